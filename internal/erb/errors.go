package erb

import "fmt"

// UnterminatedTagError is returned when the source ends inside a directive.
type UnterminatedTagError struct {
	Kind TagKind
	Line int
}

func (e *UnterminatedTagError) Error() string {
	return fmt.Sprintf("unterminated %s tag opened on line %d", e.Kind, e.Line)
}

// BufferMisuseError reports a Buffer used out of order. It means the compiler
// itself is broken, not the template.
type BufferMisuseError struct {
	Reason string
}

func (e *BufferMisuseError) Error() string {
	return "buffer misuse: " + e.Reason
}
