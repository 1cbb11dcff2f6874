package erb

import "fmt"

// TokenKind identifies a scanner token.
type TokenKind int

const (
	TokenLiteral TokenKind = iota
	TokenOpenCode
	TokenOpenOutput
	TokenOpenComment
	TokenClose
	TokenEscapedOpen
	TokenEscapedClose
	TokenPercentLine
	TokenLineBreak
	TokenForcedBreak
)

var tokenNames = [...]string{
	TokenLiteral:      "Literal",
	TokenOpenCode:     "OpenCode",
	TokenOpenOutput:   "OpenOutput",
	TokenOpenComment:  "OpenComment",
	TokenClose:        "Close",
	TokenEscapedOpen:  "EscapedOpen",
	TokenEscapedClose: "EscapedClose",
	TokenPercentLine:  "PercentLine",
	TokenLineBreak:    "LineBreak",
	TokenForcedBreak:  "ForcedBreak",
}

func (k TokenKind) String() string {
	if k >= 0 && int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// Token is one unit of the scanner output. Text holds the literal span, the
// percent-line code, or the text a marker contributes ("<%" for EscapedOpen,
// "%>" for EscapedClose and Close).
type Token struct {
	Kind TokenKind
	Text string
	Line int
}

func (t Token) String() string {
	switch t.Kind {
	case TokenLiteral, TokenPercentLine:
		return fmt.Sprintf("%d:%s(%q)", t.Line, t.Kind, t.Text)
	default:
		return fmt.Sprintf("%d:%s", t.Line, t.Kind)
	}
}

// TagKind is the kind of directive region the scanner is inside of.
type TagKind int

const (
	TagNone TagKind = iota
	TagCode
	TagOutput
	TagComment
)

func (k TagKind) String() string {
	switch k {
	case TagCode:
		return "<%"
	case TagOutput:
		return "<%="
	case TagComment:
		return "<%#"
	default:
		return "none"
	}
}

// tag maps an opening token to the region it starts.
func (k TokenKind) tag() TagKind {
	switch k {
	case TokenOpenCode:
		return TagCode
	case TokenOpenOutput:
		return TagOutput
	case TokenOpenComment:
		return TagComment
	default:
		return TagNone
	}
}
