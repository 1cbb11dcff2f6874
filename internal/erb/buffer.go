package erb

import "strings"

// Buffer collects rendered instructions into line groups. Every group becomes
// one line of program text, so line N of the program comes from line N of the
// template and evaluator diagnostics point at the right place.
type Buffer struct {
	dialect     Dialect
	accumulator string

	group        []string
	lastOp       Op
	script       strings.Builder
	instructions []Instruction
	lines        int
	returned     bool
	finalized    bool
}

func newBuffer(dialect Dialect, accumulator string) *Buffer {
	return &Buffer{dialect: dialect, accumulator: accumulator}
}

func (b *Buffer) push(in Instruction) error {
	if b.finalized {
		return &BufferMisuseError{Reason: "push after finalize"}
	}
	if b.returned {
		return &BufferMisuseError{Reason: "push after ReturnAccumulator"}
	}

	text, err := b.dialect.Render(in, b.accumulator)
	if err != nil {
		return err
	}
	if text != "" {
		b.group = append(b.group, text)
		b.lastOp = in.Op
	}
	b.instructions = append(b.instructions, in)
	if in.Op == OpReturnAccumulator {
		b.returned = true
	}
	return nil
}

func (b *Buffer) closeLineGroup() {
	b.script.WriteString(strings.Join(b.group, b.dialect.Separator()))
	if t, ok := b.dialect.(LineTerminator); ok && len(b.group) > 0 && b.lastOp != OpRunStatement {
		b.script.WriteString(t.LineTerminator())
	}
	b.script.WriteByte('\n')
	b.group = b.group[:0]
}

// finalize joins the last group and returns the program text. It may run once,
// after ReturnAccumulator was pushed.
func (b *Buffer) finalize() (string, error) {
	if b.finalized {
		return "", &BufferMisuseError{Reason: "finalize called twice"}
	}
	if !b.returned {
		return "", &BufferMisuseError{Reason: "finalize before ReturnAccumulator"}
	}
	b.finalized = true

	b.script.WriteString(strings.Join(b.group, b.dialect.Separator()))
	b.group = nil
	text := b.script.String()
	// Code regions may carry their own newlines.
	b.lines = strings.Count(text, "\n") + 1
	return text, nil
}
