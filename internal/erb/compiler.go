package erb

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"erbgo/internal/common/errors"
)

// DefaultAccumulator is the generated output variable. The leading
// underscore keeps it out of the way of template variables.
const DefaultAccumulator = "_erbout"

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Option configures a Compiler.
type Option func(*Compiler)

// WithTrimMode sets the newline trimming policy.
func WithTrimMode(mode TrimMode) Option {
	return func(c *Compiler) { c.trimMode = mode }
}

// WithPercent enables whole-line "%" directives.
func WithPercent(enabled bool) Option {
	return func(c *Compiler) { c.percent = enabled }
}

// WithAccumulator renames the generated output variable.
func WithAccumulator(name string) Option {
	return func(c *Compiler) { c.accumulator = name }
}

// Compiler turns template source into a Program for one dialect. A Compiler
// holds configuration only; every Compile call builds its own scanner and
// buffer, so one Compiler may be shared between goroutines.
type Compiler struct {
	dialect     Dialect
	trimMode    TrimMode
	percent     bool
	accumulator string
}

// NewCompiler returns a compiler generating code in the given dialect.
func NewCompiler(dialect Dialect, opts ...Option) (*Compiler, error) {
	c := &Compiler{
		dialect:     dialect,
		accumulator: DefaultAccumulator,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dialect == nil {
		return nil, errors.ConfigError("compiler requires a dialect")
	}
	if !identifierRegex.MatchString(c.accumulator) {
		return nil, errors.ValidationError(fmt.Sprintf("accumulator %q is not an identifier", c.accumulator))
	}
	return c, nil
}

// Compile compiles src with the JavaScript dialect.
func Compile(src string, opts ...Option) (*Program, error) {
	c, err := NewCompiler(JavaScript{}, opts...)
	if err != nil {
		return nil, err
	}
	return c.Compile(src)
}

// Compile scans src and generates the program. On any error no program is
// returned.
func (c *Compiler) Compile(src string) (*Program, error) {
	if err := c.checkEncoding(src); err != nil {
		return nil, err
	}

	scanner := NewScanner(src, c.trimMode, c.percent)
	out := newBuffer(c.dialect, c.accumulator)

	if err := out.push(Instruction{Op: OpInitAccumulator, Line: 1}); err != nil {
		return nil, err
	}

	var content strings.Builder
	contentLine := 1
	regionLine := 1
	line := 1
	tag := TagNone

	flush := func() error {
		if content.Len() == 0 {
			return nil
		}
		in := Instruction{Op: OpAppendLiteral, Text: content.String(), Line: contentLine}
		content.Reset()
		return out.push(in)
	}
	appendText := func(tok Token) {
		if content.Len() == 0 {
			contentLine = tok.Line
		}
		content.WriteString(tok.Text)
	}

	for {
		tok, err := scanner.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line = tok.Line

		if tag == TagNone {
			switch tok.Kind {
			case TokenPercentLine:
				if err := flush(); err != nil {
					return nil, err
				}
				if err := out.push(Instruction{Op: OpRunStatement, Text: tok.Text, Line: tok.Line}); err != nil {
					return nil, err
				}
				out.closeLineGroup()
			case TokenForcedBreak:
				out.closeLineGroup()
			case TokenLineBreak:
				appendText(tok)
				if err := flush(); err != nil {
					return nil, err
				}
				out.closeLineGroup()
			case TokenOpenCode, TokenOpenOutput, TokenOpenComment:
				if err := flush(); err != nil {
					return nil, err
				}
				tag = tok.Kind.tag()
				regionLine = tok.Line
			default:
				// Literal, escaped markers and a stray Close all contribute
				// their text.
				appendText(tok)
			}
			continue
		}

		if tag == TagComment {
			if tok.Kind == TokenClose {
				tag = TagNone
			} else if tok.Text == "\n" {
				out.closeLineGroup()
			}
			continue
		}

		if tok.Kind != TokenClose {
			content.WriteString(tok.Text)
			continue
		}

		code := content.String()
		content.Reset()
		switch tag {
		case TagCode:
			if strings.HasSuffix(code, "\n") {
				if err := out.push(Instruction{Op: OpRunStatement, Text: code[:len(code)-1], Line: regionLine}); err != nil {
					return nil, err
				}
				out.closeLineGroup()
			} else if err := out.push(Instruction{Op: OpRunStatement, Text: code, Line: regionLine}); err != nil {
				return nil, err
			}
		case TagOutput:
			if err := out.push(Instruction{Op: OpAppendExpression, Text: code, Line: regionLine}); err != nil {
				return nil, err
			}
		}
		tag = TagNone
	}

	if err := flush(); err != nil {
		return nil, err
	}
	if err := out.push(Instruction{Op: OpReturnAccumulator, Line: line}); err != nil {
		return nil, err
	}
	text, err := out.finalize()
	if err != nil {
		return nil, err
	}

	return &Program{
		text:         text,
		accumulator:  c.accumulator,
		dialect:      c.dialect.Name(),
		trimMode:     c.trimMode,
		percent:      c.percent,
		instructions: out.instructions,
		lines:        out.lines,
	}, nil
}

// checkEncoding rejects invalid UTF-8 for dialects that cannot represent raw
// bytes in a string literal.
func (c *Compiler) checkEncoding(src string) error {
	d, ok := c.dialect.(TextDialect)
	if !ok || !d.RequiresUTF8() || utf8.ValidString(src) {
		return nil
	}

	line := 1
	for offset := 0; offset < len(src); {
		r, size := utf8.DecodeRuneInString(src[offset:])
		if r == utf8.RuneError && size == 1 {
			return errors.ValidationError(fmt.Sprintf("template is not valid UTF-8 at byte %d (line %d)", offset, line)).
				WithContext("offset", offset).
				WithContext("line", line)
		}
		if r == '\n' {
			line++
		}
		offset += size
	}
	return nil
}
