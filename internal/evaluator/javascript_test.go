package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erbgo/internal/erb"
)

type book struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

func TestJavaScript_Render(t *testing.T) {
	tests := []struct {
		name string
		src  string
		vars map[string]interface{}
		opts []erb.Option
		want string
	}{
		{name: "arithmetic", src: "<%= 1 + 1 %>", want: "2"},
		{name: "comment", src: "<%# ignored %>rest", want: "rest"},
		{name: "comment between", src: "A<%# c %>B<%= 1 %>C", want: "AB1C"},
		{
			name: "newline after code trimmed",
			src:  "<% x=1 %>\nY",
			opts: []erb.Option{erb.WithTrimMode(erb.TrimAfterClose)},
			want: "Y",
		},
		{name: "newline after code kept", src: "<% x=1 %>\nY", want: "\nY"},
		{name: "literal only", src: "no directives\n", want: "no directives\n"},
		{
			name: "doubled percent",
			src:  "%%literal",
			opts: []erb.Option{erb.WithPercent(true)},
			want: "%literal",
		},
		{
			name: "literal roundtrip",
			src:  "He said \"hi\" \\n\n\tüñí\u2028end</script>",
			want: "He said \"hi\" \\n\n\tüñí\u2028end</script>",
		},
		{name: "escaped markers", src: "a <%% b %%> c", want: "a <% b %> c"},
		{
			name: "percent loop",
			src:  "% for (var i = 0; i < 3; i++) {\n<%= i %>,\n% }\n",
			opts: []erb.Option{erb.WithPercent(true)},
			want: "0,\n1,\n2,\n",
		},
		{
			name: "trimmed loop",
			src:  "<% for (var i = 0; i < 2; i++) { %>\n<%= i %>,\n<% } %>\n",
			opts: []erb.Option{erb.WithTrimMode(erb.TrimAfterClose)},
			want: "0,\n1,\n",
		},
		{
			name: "untrimmed loop",
			src:  "<% for (var i = 0; i < 2; i++) { %>\n<%= i %>,\n<% } %>\n",
			want: "\n0,\n\n1,\n\n",
		},
		{
			name: "explicit trim",
			src:  "<ul>\n  <%- ['a', 'b'].forEach(function (x) { -%>\n  <li><%= x %></li>\n  <%- }) -%>\n</ul>\n",
			opts: []erb.Option{erb.WithTrimMode(erb.TrimExplicit)},
			want: "<ul>\n  <li>a</li>\n  <li>b</li>\n</ul>\n",
		},
		{
			name: "variables",
			src:  "Hello <%= name %>, <%= count * 2 %>",
			vars: map[string]interface{}{"name": "World", "count": 21},
			want: "Hello World, 42",
		},
		{
			name: "struct fields by json tag",
			src:  "<%= item.title %> by <%= item.author %>",
			vars: map[string]interface{}{"item": book{Title: "Dune", Author: "Herbert"}},
			want: "Dune by Herbert",
		},
		{
			name: "nested maps and slices",
			src:  "<%= user.tags.length %>:<%= user.tags[1] %>",
			vars: map[string]interface{}{"user": map[string]interface{}{"tags": []interface{}{"a", "b"}}},
			want: "2:b",
		},
		{
			name: "helpers",
			src:  `<%= h("<a href=\"x\">") %> <%= u("a b/c") %> <%= strip_tags("<b>x</b>") %> <%= html_escape(1) %>`,
			want: "&lt;a href=&quot;x&quot;&gt; a%20b%2Fc x 1",
		},
		{
			name: "custom accumulator",
			src:  "<% var _erbout = 'shadow' %><%= _erbout %>",
			opts: []erb.Option{erb.WithAccumulator("buf")},
			want: "shadow",
		},
	}

	ev := NewJavaScript()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRender(t, ev, tt.src, tt.vars, erb.IsolationNone, tt.opts...))
		})
	}
}

func TestJavaScript_Errors(t *testing.T) {
	ev := NewJavaScript()

	_, err := render(t, ev, "line one\n<% throw new Error('boom') %>", nil, erb.IsolationNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "page.erb:2")

	_, err = render(t, ev, "<% if ( %>", nil, erb.IsolationNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page.erb")

	_, err = render(t, ev, "<%= missing %>", nil, erb.IsolationNone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestJavaScript_Isolation(t *testing.T) {
	ev := NewJavaScript()
	tests := []struct {
		name  string
		src   string
		level erb.IsolationLevel
		want  string
	}{
		{"eval available", "<%= typeof eval %>", erb.IsolationNone, "function"},
		{"eval removed", "<%= typeof eval %>", erb.IsolationRestricted, "undefined"},
		{"Function removed", "<%= typeof Function %>", erb.IsolationRestricted, "undefined"},
		{"prototype writable", "<% Object.prototype.polluted = 1 %><%= ({}).polluted %>", erb.IsolationNone, "1"},
		{"prototype frozen", "<% Object.prototype.polluted = 1 %><%= typeof ({}).polluted %>", erb.IsolationRestricted, "undefined"},
		{"Reflect kept when restricted", "<%= typeof Reflect %>", erb.IsolationRestricted, "object"},
		{"Reflect removed when strict", "<%= typeof Reflect %>", erb.IsolationStrict, "undefined"},
		{"Proxy removed when strict", "<%= typeof Proxy %>", erb.IsolationStrict, "undefined"},
		{"array prototype frozen when strict", "<% Array.prototype.extra = 1 %><%= typeof [].extra %>", erb.IsolationStrict, "undefined"},
		{"helpers still work", `<%= h("<") %>`, erb.IsolationStrict, "&lt;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustRender(t, ev, tt.src, nil, tt.level))
		})
	}

	_, err := render(t, ev, `<% eval("1") %>`, nil, erb.IsolationRestricted)
	assert.Error(t, err)
}
