package erb

import (
	"fmt"
	"strings"
)

// TrimMode selects how newlines next to directive delimiters are dropped.
type TrimMode int

const (
	// TrimNone keeps every newline.
	TrimNone TrimMode = iota
	// TrimAfterClose (">") drops the newline right after a closing %>.
	TrimAfterClose
	// TrimSymmetric ("<>") drops it only for regions opened at the start of a line.
	TrimSymmetric
	// TrimExplicit ("-") honours <%- and -%> markers.
	TrimExplicit
)

func (m TrimMode) String() string {
	switch m {
	case TrimAfterClose:
		return ">"
	case TrimSymmetric:
		return "<>"
	case TrimExplicit:
		return "-"
	default:
		return ""
	}
}

// ParseTrimMode reads an ERB trim-mode string. A "%" anywhere enables percent
// lines; "-" wins over "<>", which wins over ">". The legacy numeric forms
// "0", "1" and "2" map to none, ">" and "<>".
func ParseTrimMode(s string) (TrimMode, bool, error) {
	switch s {
	case "", "0":
		return TrimNone, false, nil
	case "1":
		return TrimAfterClose, false, nil
	case "2":
		return TrimSymmetric, false, nil
	}

	percent := strings.Contains(s, "%")
	rest := strings.NewReplacer("%", "", "-", "", "<", "", ">", "").Replace(s)
	if rest != "" {
		return TrimNone, false, fmt.Errorf("invalid trim mode %q", s)
	}

	switch {
	case strings.Contains(s, "-"):
		return TrimExplicit, percent, nil
	case strings.Contains(s, "<>"):
		return TrimSymmetric, percent, nil
	case strings.Contains(s, ">"):
		return TrimAfterClose, percent, nil
	case strings.Contains(s, "<"):
		return TrimNone, false, fmt.Errorf("invalid trim mode %q", s)
	default:
		return TrimNone, percent, nil
	}
}
