// Package evaluator provides the program runners behind the template engine:
// JavaScript on goja, Lua on gopher-lua and expression-only templates on
// expr-lang.
package evaluator

import (
	"fmt"
	"strings"

	"erbgo/internal/common/errors"
	"erbgo/internal/erb"
)

// Languages lists the canonical language names New accepts.
var Languages = []string{"javascript", "lua", "expr"}

// Canonical maps a language name or alias to its canonical name, or "" when
// the language is unknown.
func Canonical(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "js", "javascript", "ecmascript":
		return "javascript"
	case "lua":
		return "lua"
	case "expr":
		return "expr"
	}
	return ""
}

// New returns a fresh evaluator for the language.
func New(language string) (erb.Evaluator, error) {
	switch Canonical(language) {
	case "javascript":
		return NewJavaScript(), nil
	case "lua":
		return NewLua(), nil
	case "expr":
		return NewExpr(), nil
	}
	return nil, errors.ValidationError(fmt.Sprintf("unknown language %q, expected one of %s",
		language, strings.Join(Languages, ", ")))
}
