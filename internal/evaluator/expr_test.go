package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erbgo/internal/erb"
)

func TestExpr_Render(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]interface{}
		want string
	}{
		{name: "arithmetic", src: "<%= 1 + 1 %>", want: "2"},
		{name: "comment between", src: "A<%# c %>B<%= 1 %>C", want: "AB1C"},
		{name: "literal only", src: "just \"text\"\n", want: "just \"text\"\n"},
		{
			name: "variables",
			src:  "Hello <%= name %>! <%= len(items) %> items",
			vars: map[string]interface{}{"name": "Ann", "items": []interface{}{1, 2, 3}},
			want: "Hello Ann! 3 items",
		},
		{
			name: "conditional",
			src:  "<%= admin ? \"yes\" : \"no\" %>",
			vars: map[string]interface{}{"admin": true},
			want: "yes",
		},
		{
			name: "missing variables are nil",
			src:  "[<%= missing ?? \"default\" %>]",
			want: "[default]",
		},
		{
			name: "helpers",
			src:  "<%= h(name) %>|<%= u(name) %>",
			vars: map[string]interface{}{"name": "<b> &"},
			want: "&lt;b&gt; &amp;|%3Cb%3E%20%26",
		},
	}

	ev := NewExpr()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRender(t, ev, tt.src, tt.vars, erb.IsolationNone))
		})
	}
}

func TestExpr_SameProgramDifferentTypes(t *testing.T) {
	ev := NewExpr()
	assert.Equal(t, "1", mustRender(t, ev, "<%= v %>", map[string]interface{}{"v": 1}, erb.IsolationNone))
	assert.Equal(t, "x", mustRender(t, ev, "<%= v %>", map[string]interface{}{"v": "x"}, erb.IsolationNone))
	assert.Equal(t, 1, ev.programs.len())
}

func TestExpr_Errors(t *testing.T) {
	ev := NewExpr()

	_, err := render(t, ev, "<%= 1 + %>", nil, erb.IsolationNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page.erb")

	_, err = render(t, ev, "<%= h(1, 2) %>", nil, erb.IsolationNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly 1 argument")
}

func TestExpr_Isolation(t *testing.T) {
	ev := NewExpr()

	assert.Equal(t, "true", mustRender(t, ev, "<%= now().Year() > 2000 %>", nil, erb.IsolationNone))
	_, err := render(t, ev, "<%= now().Year() > 2000 %>", nil, erb.IsolationRestricted)
	assert.Error(t, err)

	assert.Equal(t, "1", mustRender(t, ev, "<%= toJSON(1) %>", nil, erb.IsolationRestricted))
	_, err = render(t, ev, "<%= toJSON(1) %>", nil, erb.IsolationStrict)
	assert.Error(t, err)
}
