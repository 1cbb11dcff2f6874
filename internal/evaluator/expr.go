package evaluator

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"erbgo/internal/erb"
	"erbgo/internal/helpers"
)

var (
	restrictedBuiltins = []string{"now", "date", "duration"}
	strictBuiltins     = []string{"toJSON", "fromJSON", "toBase64", "fromBase64"}
)

// Expr evaluates expression-only templates with expr-lang. Programs are
// compiled against an untyped environment, so one compiled program serves any
// variable context.
type Expr struct {
	programs *programCache
}

// NewExpr creates the expr-lang evaluator.
func NewExpr() *Expr {
	return &Expr{programs: newProgramCache()}
}

func (e *Expr) Dialect() erb.Dialect { return erb.Expr{} }

// ClearCache drops every compiled program.
func (e *Expr) ClearCache() { e.programs.flush() }

func (e *Expr) Execute(ctx context.Context, exec *erb.Execution) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := cacheKey("expr", exec.Isolation.String(), exec.Filename, exec.Program)
	compiled, err := e.programs.getOrCompile(key, "expr", func() (interface{}, error) {
		return expr.Compile(exec.Program, exprOptions(exec.Isolation)...)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exec.Filename, err)
	}

	env := exec.Vars
	if env == nil {
		env = map[string]interface{}{}
	}
	result, err := expr.Run(compiled.(*vm.Program), env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", exec.Filename, err)
	}
	return result, nil
}

func exprOptions(level erb.IsolationLevel) []expr.Option {
	options := []expr.Option{
		expr.Env(map[string]interface{}{}),
		expr.AllowUndefinedVariables(),
	}
	for name, fn := range helpers.Funcs() {
		options = append(options, expr.Function(name, exprHelper(name, fn)))
	}

	if level >= erb.IsolationRestricted {
		for _, name := range restrictedBuiltins {
			options = append(options, expr.DisableBuiltin(name))
		}
	}
	if level >= erb.IsolationStrict {
		for _, name := range strictBuiltins {
			options = append(options, expr.DisableBuiltin(name))
		}
	}
	return options
}

func exprHelper(name string, fn helpers.Func) func(params ...interface{}) (interface{}, error) {
	return func(params ...interface{}) (interface{}, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s() requires exactly 1 argument", name)
		}
		return fn(helpers.ToString(params[0])), nil
	}
}
