package erb

import (
	"context"
	"fmt"
	"strconv"
)

// IsolationLevel is the restriction applied while a program runs. Anything
// above IsolationNone also moves execution onto a dedicated worker.
type IsolationLevel int

const (
	IsolationNone IsolationLevel = iota
	IsolationRestricted
	IsolationStrict
)

func (l IsolationLevel) String() string {
	switch l {
	case IsolationNone:
		return "none"
	case IsolationRestricted:
		return "restricted"
	case IsolationStrict:
		return "strict"
	default:
		return fmt.Sprintf("IsolationLevel(%d)", int(l))
	}
}

// ParseIsolationLevel accepts the level names or their numeric values.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	switch s {
	case "", "none":
		return IsolationNone, nil
	case "restricted":
		return IsolationRestricted, nil
	case "strict":
		return IsolationStrict, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(IsolationNone) || n > int(IsolationStrict) {
		return IsolationNone, fmt.Errorf("invalid isolation level %q", s)
	}
	return IsolationLevel(n), nil
}

// Execution is one request to run program text.
type Execution struct {
	Program   string
	Vars      map[string]interface{}
	Filename  string
	Isolation IsolationLevel
}

// Evaluator runs generated program text against a variable context. Errors
// from the embedded code are returned as the evaluator reports them,
// including their filename and line information.
type Evaluator interface {
	Dialect() Dialect
	Execute(ctx context.Context, exec *Execution) (interface{}, error)
}
