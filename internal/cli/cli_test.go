package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erbgo/internal/common/errors"
	"erbgo/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Language:        "js",
		Accumulator:     "_erbout",
		Isolation:       "0",
		MaxWorkers:      "4",
		CacheTemplates:  true,
		CacheTTL:        "1m",
		MaxTemplateSize: "1048576",
		ServeAddr:       "127.0.0.1:0",
		TemplateDir:     "templates",
		RateLimitRPS:    "0",
		RateLimitBurst:  "20",
		LogLevel:        "info",
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(testConfig())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{
			name:  "stdin with set",
			stdin: "Hello <%= name %>!\n",
			args:  []string{"render", "--set", "name=World"},
			want:  "Hello World!\n",
		},
		{
			name:  "dash reads stdin",
			stdin: "<%= 6 * 7 %>",
			args:  []string{"render", "-"},
			want:  "42",
		},
		{
			name:  "percent flag",
			stdin: "% for (var i = 0; i < 2; i++) {\n<%= i %>\n% }\n",
			args:  []string{"render", "-P"},
			want:  "0\n1\n",
		},
		{
			name:  "trim mode with percent",
			stdin: "% var x = 1;\n<% if (x) { -%>\nyes\n<% } -%>\n",
			args:  []string{"render", "-T", "%-"},
			want:  "yes\n",
		},
		{
			name:  "strict isolation",
			stdin: "<%= [1, 2, 3].join('-') %>",
			args:  []string{"render", "-S", "strict"},
			want:  "1-2-3",
		},
		{
			name:  "custom accumulator",
			stdin: "<% out += 'x' %>y",
			args:  []string{"render", "--accumulator", "out"},
			want:  "xy",
		},
		{
			name:  "expr language",
			stdin: "<%= upper(word) %>",
			args:  []string{"render", "--lang", "expr", "--set", "word=go"},
			want:  "GO",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.stdin, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestRender_FilesInOrder(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "data.yaml", "n: 1\n")
	var args []string
	var want strings.Builder
	for i := 0; i < 8; i++ {
		name := string(rune('a'+i)) + ".erb"
		args = append(args, writeFile(t, dir, name, string(rune('A'+i))+"<%= n + "+string(rune('0'+i))+" %>\n"))
		want.WriteString(string(rune('A'+i)) + string(rune('1'+i)) + "\n")
	}

	out, err := run(t, "", append([]string{"render", "--lang", "lua", "-d", data}, args...)...)
	require.NoError(t, err)
	assert.Equal(t, want.String(), out)
}

func TestRender_Errors(t *testing.T) {
	_, err := run(t, "a\n<% x", "render")
	assert.True(t, errors.IsType(err, errors.ErrTypeSyntax))

	_, err = run(t, "x", "render", "--lang", "cobol")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = run(t, "x", "render", "-T", "bogus")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	_, err = run(t, "", "render", filepath.Join(t.TempDir(), "missing.erb"))
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	_, err = run(t, "<%= missing %>", "render")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestCompile(t *testing.T) {
	out, err := run(t, "a\n<%= b %>", "compile", "-n")
	require.NoError(t, err)
	want := "  1 var _erbout = \"\"; _erbout += \"a\\n\";\n" +
		"  2 _erbout += String(( b ) ?? \"\"); _erbout\n"
	assert.Equal(t, want, out)

	out, err = run(t, "<%= b %>", "compile", "--lang", "lua")
	require.NoError(t, err)
	assert.Equal(t, "local _erbout = \"\" local function _erbout_str(v) if v == nil then return \"\" end return tostring(v) end "+
		"_erbout = _erbout .. _erbout_str(( b )) return _erbout\n", out)
}

func TestTokens(t *testing.T) {
	out, err := run(t, "a<%= x %>\n", "tokens")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, `   1  Literal      "a"`, lines[0])
	assert.Equal(t, `   1  OpenOutput   "<%="`, lines[1])
	assert.Equal(t, `   1  LineBreak    "\n"`, lines[4])

	out, err = run(t, "<% a %>\n", "tokens", "-T", ">")
	require.NoError(t, err)
	assert.Contains(t, out, "ForcedBreak")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version", "--format", "json")
	require.NoError(t, err)

	var payload versionPayload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "erbgo", payload.Tool)
	assert.Equal(t, Version, payload.Version)
	assert.Equal(t, []string{"javascript", "lua", "expr"}, payload.Languages)

	_, err = run(t, "", "version", "--format", "xml")
	assert.Error(t, err)
}

func TestPrintError(t *testing.T) {
	err := errors.SyntaxError("page.erb: unterminated <% tag", nil).WithContext("line", 3)

	var plain bytes.Buffer
	printError(&plain, err, false)
	assert.Equal(t, "error: page.erb: unterminated <% tag\n  at line 3\n", plain.String())

	var colored bytes.Buffer
	printError(&colored, err, true)
	assert.Contains(t, colored.String(), "\x1b[")

	assert.True(t, useColor("on", os.Stderr))
	assert.False(t, useColor("off", os.Stderr))
}
