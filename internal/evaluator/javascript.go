package evaluator

import (
	"context"

	"github.com/dop251/goja"

	"erbgo/internal/erb"
	"erbgo/internal/helpers"
)

// JavaScript runs programs on goja. Compiled programs are shared between
// renders; every Execute gets a fresh runtime.
type JavaScript struct {
	programs *programCache
}

// NewJavaScript creates the goja evaluator.
func NewJavaScript() *JavaScript {
	return &JavaScript{programs: newProgramCache()}
}

func (e *JavaScript) Dialect() erb.Dialect { return erb.JavaScript{} }

// ClearCache drops every compiled program.
func (e *JavaScript) ClearCache() { e.programs.flush() }

func (e *JavaScript) Execute(ctx context.Context, exec *erb.Execution) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	compiled, err := e.programs.getOrCompile(cacheKey("js", exec.Filename, exec.Program), "javascript", func() (interface{}, error) {
		return goja.Compile(exec.Filename, exec.Program, false)
	})
	if err != nil {
		return nil, err
	}

	vm := goja.New()
	vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	for name, fn := range helpers.Funcs() {
		if err := vm.Set(name, jsHelper(fn)); err != nil {
			return nil, err
		}
	}
	for name, value := range exec.Vars {
		if err := vm.Set(name, value); err != nil {
			return nil, err
		}
	}
	if err := applyJSIsolation(vm, exec.Isolation); err != nil {
		return nil, err
	}

	result, err := vm.RunProgram(compiled.(*goja.Program))
	if err != nil {
		return nil, err
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return nil, nil
	}
	return result.Export(), nil
}

func jsHelper(fn helpers.Func) func(goja.Value) string {
	return func(v goja.Value) string {
		if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
			return fn("")
		}
		return fn(v.String())
	}
}

const freezeObjectPrototype = `Object.freeze(Object.prototype);`

const freezeBuiltinPrototypes = `
[Array, String, Number, Boolean, Function, RegExp, Date, Error].forEach(function (ctor) {
	Object.freeze(ctor.prototype);
});
Object.freeze(Object);
`

// applyJSIsolation removes code loading from the runtime and freezes shared
// prototypes. Prototypes are frozen before the globals that reach them go.
func applyJSIsolation(vm *goja.Runtime, level erb.IsolationLevel) error {
	if level == erb.IsolationNone {
		return nil
	}

	if _, err := vm.RunString(freezeObjectPrototype); err != nil {
		return err
	}
	if level >= erb.IsolationStrict {
		if _, err := vm.RunString(freezeBuiltinPrototypes); err != nil {
			return err
		}
	}

	removed := []string{"eval", "Function"}
	if level >= erb.IsolationStrict {
		removed = append(removed, "Reflect", "Proxy")
	}
	for _, name := range removed {
		if err := vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}
	return nil
}
