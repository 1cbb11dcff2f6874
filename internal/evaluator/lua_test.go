package evaluator

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"erbgo/internal/erb"
)

func TestLua_Render(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]interface{}
		opts []erb.Option
		want string
	}{
		{name: "arithmetic", src: "<%= 1 + 1 %>", want: "2"},
		{name: "comment between", src: "A<%# c %>B<%= 1 %>C", want: "AB1C"},
		{
			name: "literal roundtrip",
			src:  "quote \" backslash \\ bell \a\r\nüñí",
			want: "quote \" backslash \\ bell \a\r\nüñí",
		},
		{
			name: "percent loop",
			src:  "% for i = 1, 3 do\n<%= i %>,\n% end\n",
			opts: []erb.Option{erb.WithPercent(true)},
			want: "1,\n2,\n3,\n",
		},
		{
			name: "symmetric trim",
			src:  "<% for i = 1, 2 do %>\n[<%= i %>]\n<% end %>\n",
			opts: []erb.Option{erb.WithTrimMode(erb.TrimSymmetric)},
			want: "[1]\n[2]\n",
		},
		{
			name: "line starting with a parenthesis",
			src:  "x\n<% (tostring)(1) %>y",
			want: "x\ny",
		},
		{
			name: "nested variables",
			src:  "<%= user.name %>:<%= #items %>:<%= items[2] %>",
			vars: map[string]interface{}{
				"user":  map[string]interface{}{"name": "Ann"},
				"items": []interface{}{"a", "b"},
			},
			want: "Ann:2:b",
		},
		{
			name: "struct through json",
			src:  "<%= item.title %>",
			vars: map[string]interface{}{"item": book{Title: "Dune"}},
			want: "Dune",
		},
		{
			name: "typed slices and maps",
			src:  "<%= tags[1] %><%= env.HOME %>",
			vars: map[string]interface{}{
				"tags": []string{"first"},
				"env":  map[string]string{"HOME": "/root"},
			},
			want: "first/root",
		},
		{
			name: "helpers",
			src:  `<%= h("<i>") %> <%= u("a&b") %> <%= url_encode(12) %>`,
			want: "&lt;i&gt; a%26b 12",
		},
	}

	ev := NewLua()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRender(t, ev, tt.src, tt.vars, erb.IsolationNone, tt.opts...))
		})
	}
}

func TestLua_Errors(t *testing.T) {
	ev := NewLua()

	_, err := render(t, ev, "a\n<% error('boom') %>", nil, erb.IsolationNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page.erb:2")
	assert.Contains(t, err.Error(), "boom")

	_, err = render(t, ev, "<% if then %>", nil, erb.IsolationNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page.erb")
}

func TestLua_Isolation(t *testing.T) {
	ev := NewLua()
	tests := []struct {
		src   string
		level erb.IsolationLevel
		want  string
	}{
		{"<%= type(loadstring) %>", erb.IsolationNone, "function"},
		{"<%= type(loadstring) %>", erb.IsolationRestricted, "nil"},
		{"<%= type(dofile) %>", erb.IsolationRestricted, "nil"},
		{"<%= type(io) %>", erb.IsolationNone, "table"},
		{"<%= type(io) %>", erb.IsolationRestricted, "nil"},
		{"<%= type(os) %>", erb.IsolationRestricted, "nil"},
		{"<%= string.upper('x') %><%= math.max(1, 2) %>", erb.IsolationRestricted, "X2"},
		{"<%= type(setmetatable) %>", erb.IsolationRestricted, "function"},
		{"<%= type(setmetatable) %>", erb.IsolationStrict, "nil"},
		{"<%= type(rawget) %>", erb.IsolationStrict, "nil"},
		{"<%= h('&') %>", erb.IsolationStrict, "&amp;"},
	}
	for _, tt := range tests {
		t.Run(tt.level.String()+" "+tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRender(t, ev, tt.src, nil, tt.level))
		})
	}
}

func luaGlobals(L *lua.LState) []string {
	var names []string
	L.G.Global.ForEach(func(k, _ lua.LValue) {
		names = append(names, k.String())
	})
	sort.Strings(names)
	return names
}

func TestLua_RestrictedGlobals(t *testing.T) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openLuaLibs(L, erb.IsolationRestricted)

	globals := luaGlobals(L)
	for _, name := range []string{"string", "table", "math", "print", "pairs"} {
		assert.Contains(t, globals, name)
	}
	for _, name := range []string{"io", "os", "dofile", "loadfile", "load", "loadstring", "require"} {
		assert.NotContains(t, globals, name)
	}
}

func TestLua_ValueConversion(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	in := map[string]interface{}{
		"n":    3,
		"f":    1.5,
		"ok":   true,
		"s":    "x",
		"list": []interface{}{"a", int64(2)},
		"nil":  nil,
	}
	out := fromLValue(toLValue(L, in))

	assert.Equal(t, map[string]interface{}{
		"n":    float64(3),
		"f":    1.5,
		"ok":   true,
		"s":    "x",
		"list": []interface{}{"a", float64(2)},
	}, out)

	assert.Nil(t, fromLValue(lua.LNil))
	assert.Equal(t, lua.LNil, toLValue(L, func() {}))
}
