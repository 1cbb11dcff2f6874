package erb

import "fmt"

// Op is the operation of a compiled instruction.
type Op int

const (
	OpInitAccumulator Op = iota
	OpAppendLiteral
	OpAppendExpression
	OpRunStatement
	OpReturnAccumulator
)

func (o Op) String() string {
	switch o {
	case OpInitAccumulator:
		return "InitAccumulator"
	case OpAppendLiteral:
		return "AppendLiteral"
	case OpAppendExpression:
		return "AppendExpression"
	case OpRunStatement:
		return "RunStatement"
	case OpReturnAccumulator:
		return "ReturnAccumulator"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// Instruction is one step of a compiled template. Text is the literal for
// AppendLiteral and the raw embedded code for AppendExpression and
// RunStatement. Line is the source line the instruction came from.
type Instruction struct {
	Op   Op
	Text string
	Line int
}

func (in Instruction) String() string {
	if in.Op == OpInitAccumulator || in.Op == OpReturnAccumulator {
		return fmt.Sprintf("%d:%s", in.Line, in.Op)
	}
	return fmt.Sprintf("%d:%s(%q)", in.Line, in.Op, in.Text)
}
