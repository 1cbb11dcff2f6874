package erb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"erbgo/internal/common/errors"
)

// Dialect turns instructions into source text of the language an evaluator
// runs. Rendering an instruction may yield "" when the language needs nothing
// for it; empty pieces are dropped when a line group is joined.
type Dialect interface {
	Name() string
	Separator() string
	Render(in Instruction, accumulator string) (string, error)
}

// LineTerminator is implemented by dialects that end a program line with a
// marker when its last piece is generated code, so a following line that
// opens with "(" or "[" starts a new statement. Lines ending in template
// code are left as written.
type LineTerminator interface {
	LineTerminator() string
}

// TextDialect is implemented by dialects whose strings are sequences of
// Unicode code points. Template source compiled for them must be valid UTF-8,
// since literal bytes cannot be carried through unchanged otherwise.
type TextDialect interface {
	RequiresUTF8() bool
}

// JavaScript generates ECMAScript for goja. The accumulator is a var and
// the program's completion value is the accumulator. Expressions yielding
// null or undefined append nothing.
type JavaScript struct{}

func (JavaScript) Name() string           { return "javascript" }
func (JavaScript) Separator() string      { return "; " }
func (JavaScript) LineTerminator() string { return ";" }
func (JavaScript) RequiresUTF8() bool     { return true }

func (JavaScript) Render(in Instruction, acc string) (string, error) {
	switch in.Op {
	case OpInitAccumulator:
		return "var " + acc + " = \"\"", nil
	case OpAppendLiteral:
		return acc + " += " + jsQuote(in.Text), nil
	case OpAppendExpression:
		return acc + " += String((" + in.Text + ") ?? \"\")", nil
	case OpRunStatement:
		return in.Text, nil
	case OpReturnAccumulator:
		return acc, nil
	}
	return "", errors.InternalError(fmt.Sprintf("unknown instruction %s", in.Op), nil)
}

// jsQuote produces a JSON string, which is a valid JavaScript literal.
func jsQuote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// Lua generates Lua 5.1 source for gopher-lua. Statements are separated by
// whitespace only, since 5.1 has no empty statement. The first line declares
// a local converter next to the accumulator so nil appends nothing.
type Lua struct{}

func (Lua) Name() string           { return "lua" }
func (Lua) Separator() string      { return " " }
func (Lua) LineTerminator() string { return ";" }

func (Lua) Render(in Instruction, acc string) (string, error) {
	switch in.Op {
	case OpInitAccumulator:
		return "local " + acc + " = \"\" local function " + luaConverter(acc) +
			"(v) if v == nil then return \"\" end return tostring(v) end", nil
	case OpAppendLiteral:
		return acc + " = " + acc + " .. " + luaQuote(in.Text), nil
	case OpAppendExpression:
		return acc + " = " + acc + " .. " + luaConverter(acc) + "((" + in.Text + "))", nil
	case OpRunStatement:
		return in.Text, nil
	case OpReturnAccumulator:
		return "return " + acc, nil
	}
	return "", errors.InternalError(fmt.Sprintf("unknown instruction %s", in.Op), nil)
}

func luaConverter(acc string) string { return acc + "_str" }

func luaQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, `\%03d`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Expr generates a single expr-lang expression concatenating every piece.
// The language has no statements, so code regions cannot be compiled. A nil
// expression appends nothing.
type Expr struct{}

func (Expr) Name() string       { return "expr" }
func (Expr) Separator() string  { return " " }
func (Expr) RequiresUTF8() bool { return true }

func (Expr) Render(in Instruction, _ string) (string, error) {
	switch in.Op {
	case OpInitAccumulator:
		return `""`, nil
	case OpAppendLiteral:
		return "+ " + strconv.Quote(in.Text), nil
	case OpAppendExpression:
		return "+ string((" + in.Text + ") ?? \"\")", nil
	case OpRunStatement:
		return "", errors.UnsupportedError("the expr dialect has no statements; use <%= %> regions only").
			WithContext("line", in.Line)
	case OpReturnAccumulator:
		return "", nil
	}
	return "", errors.InternalError(fmt.Sprintf("unknown instruction %s", in.Op), nil)
}
