// Package helpers holds the routines every evaluator exposes to templates.
package helpers

import (
	"fmt"
	"strings"
	"sync"

	strip "github.com/grokify/html-strip-tags-go"
	"github.com/microcosm-cc/bluemonday"
)

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	">", "&gt;",
	"<", "&lt;",
)

// HTMLEscape escapes &, ", > and <. Apostrophes are left alone.
func HTMLEscape(s string) string {
	return htmlReplacer.Replace(s)
}

// URLEncode percent-encodes every byte outside [A-Za-z0-9_.-], spaces
// included, using upper-case hex.
func URLEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '-' || c == '.'
}

// StripTags removes every HTML tag.
func StripTags(s string) string {
	return strip.StripTags(s)
}

var (
	ugcPolicy     *bluemonday.Policy
	ugcPolicyOnce sync.Once
)

// Sanitize keeps the markup of the bluemonday user generated content policy
// and drops the rest.
func Sanitize(s string) string {
	ugcPolicyOnce.Do(func() {
		ugcPolicy = bluemonday.UGCPolicy()
	})
	return ugcPolicy.Sanitize(s)
}

// Func is the signature every helper shares.
type Func func(string) string

// Funcs returns the helpers under the names templates call them by. Each call
// returns a new map.
func Funcs() map[string]Func {
	return map[string]Func{
		"h":           HTMLEscape,
		"html_escape": HTMLEscape,
		"u":           URLEncode,
		"url_encode":  URLEncode,
		"strip_tags":  StripTags,
		"sanitize":    Sanitize,
	}
}

// ToString renders a helper argument the way the evaluators print values.
func ToString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
