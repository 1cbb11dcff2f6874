package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erbgo/internal/common/errors"
	"erbgo/internal/erb"
)

// render compiles src for the evaluator's dialect and runs it.
func render(t *testing.T, ev erb.Evaluator, src string, vars map[string]interface{}, level erb.IsolationLevel, opts ...erb.Option) (interface{}, error) {
	t.Helper()
	c, err := erb.NewCompiler(ev.Dialect(), opts...)
	require.NoError(t, err)
	prog, err := c.Compile(src)
	require.NoError(t, err)
	return ev.Execute(context.Background(), &erb.Execution{
		Program:   prog.Source(),
		Vars:      vars,
		Filename:  "page.erb",
		Isolation: level,
	})
}

func mustRender(t *testing.T, ev erb.Evaluator, src string, vars map[string]interface{}, level erb.IsolationLevel, opts ...erb.Option) string {
	t.Helper()
	out, err := render(t, ev, src, vars, level, opts...)
	require.NoError(t, err)
	return out.(string)
}

func TestNew(t *testing.T) {
	tests := []struct {
		language string
		want     interface{}
	}{
		{"js", &JavaScript{}},
		{"JavaScript", &JavaScript{}},
		{"lua", &Lua{}},
		{" LUA ", &Lua{}},
		{"expr", &Expr{}},
	}
	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			ev, err := New(tt.language)
			require.NoError(t, err)
			assert.IsType(t, tt.want, ev)
		})
	}

	_, err := New("ruby")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Contains(t, err.Error(), "ruby")
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "javascript", Canonical("ecmascript"))
	assert.Equal(t, "", Canonical("python"))
	for _, name := range Languages {
		assert.Equal(t, name, Canonical(name))
	}
}

func TestEvaluators_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, ev := range []erb.Evaluator{NewJavaScript(), NewLua(), NewExpr()} {
		_, err := ev.Execute(ctx, &erb.Execution{Program: `""`, Filename: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestProgramCache(t *testing.T) {
	ev := NewJavaScript()
	for i := 0; i < 3; i++ {
		assert.Equal(t, "2", mustRender(t, ev, "<%= 1 + 1 %>", nil, erb.IsolationNone))
	}
	assert.Equal(t, 1, ev.programs.len())

	// Same program text under another filename compiles separately.
	_, err := ev.Execute(context.Background(), &erb.Execution{Program: `"x"`, Filename: "a"})
	require.NoError(t, err)
	_, err = ev.Execute(context.Background(), &erb.Execution{Program: `"x"`, Filename: "b"})
	require.NoError(t, err)
	assert.Equal(t, 3, ev.programs.len())

	ev.ClearCache()
	assert.Equal(t, 0, ev.programs.len())
}

func TestProgramCache_ErrorsNotCached(t *testing.T) {
	ev := NewLua()
	_, err := ev.Execute(context.Background(), &erb.Execution{Program: "return (", Filename: "bad"})
	require.Error(t, err)
	assert.Equal(t, 0, ev.programs.len())
}

func TestEvaluators_NilExpressionAppendsNothing(t *testing.T) {
	tests := []struct {
		ev   erb.Evaluator
		src  string
		want string
	}{
		{NewJavaScript(), "[<%= null %>|<%= undefined %>|<%= v %>|<%= false %>|<%= 0 %>]", "[|||false|0]"},
		{NewLua(), "[<%= nil %>|<%= v %>|<%= false %>|<%= 0 %>]", "[||false|0]"},
		{NewExpr(), "[<%= nil %>|<%= v %>|<%= missing %>|<%= false %>|<%= 0 %>]", "[|||false|0]"},
	}
	for _, tt := range tests {
		t.Run(tt.ev.Dialect().Name(), func(t *testing.T) {
			vars := map[string]interface{}{"v": nil}
			assert.Equal(t, tt.want, mustRender(t, tt.ev, tt.src, vars, erb.IsolationNone))
		})
	}
}
