package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testdataDir = "../../pkg/widgets/testdata/widgets"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd("test")
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestList(t *testing.T) {
	out, _, err := run(t, "list", "-d", testdataDir)
	require.NoError(t, err)
	require.Contains(t, out, "KEY")
	for _, key := range []string{"card", "greeting", "uppercase", "youtube"} {
		require.Contains(t, out, key)
	}

	out, _, err = run(t, "list", "-d", testdataDir, "--json", "--category", "layout")
	require.NoError(t, err)
	var rows []map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	require.Equal(t, "card", rows[0]["key"])
	require.Equal(t, "ejs", rows[0]["kind"])
}

func TestLint(t *testing.T) {
	out, _, err := run(t, "lint", testdataDir)
	require.NoError(t, err)
	require.Contains(t, out, "ok 4 definition(s)")

	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("good.yaml", "key: good\nname: Good\nversion: '1'\nauthor: a\ntemplate: '{{x}}'\n")
	write("unclosed.yaml", "key: unclosed\nname: U\nversion: '1'\nauthor: a\ntemplate: '<% if (x) {'\n")
	write("schema.yaml", "name: missing key\nversion: '1'\nauthor: a\ntemplate: t\n")
	write("zdup.yml", "key: good\nname: Dup\nversion: '1'\nauthor: a\ntemplate: t\n")
	write("color.json", `{"key":"color","name":"C","version":"1","author":"a","template":"x","parameters":[{"name":"c","title":"C","type":"color","value":"red"}]}`)

	out, _, err = run(t, "lint", dir)
	require.Error(t, err)
	require.Contains(t, err.Error(), "4 problem(s) in 5 definition(s)")
	for _, file := range []string{"unclosed.yaml", "schema.yaml", "zdup.yml", "color.json"} {
		require.Contains(t, out, "FAIL "+filepath.Join(dir, file))
	}
	require.NotContains(t, out, "good.yaml:")
}

func TestRender_Widget(t *testing.T) {
	out, _, err := run(t, "render", "greeting", "-d", testdataDir, "--set", "name=Ada", "--set", "shout=on", "--lang", "es")
	require.NoError(t, err)
	require.Contains(t, out, "Hola, Ada!</p>")

	_, _, err = run(t, "render", "nope", "-d", testdataDir)
	require.Error(t, err)

	_, _, err = run(t, "render", "greeting", "-d", testdataDir, "--set", "novalue")
	require.Error(t, err)
}

func TestRender_TemplateFile(t *testing.T) {
	dir := t.TempDir()
	tpl := filepath.Join(dir, "snippet.ejs")
	require.NoError(t, os.WriteFile(tpl, []byte(`<b><%= title %></b>`), 0o644))

	out, _, err := run(t, "render", tpl, "--set", "title=Hi & bye")
	require.NoError(t, err)
	require.Equal(t, "<b>Hi &amp; bye</b>\n", out)

	forced := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(forced, []byte(`{{#eval}}[1 + 1]{{/eval}}`), 0o644))
	out, _, err = run(t, "render", forced, "--engine", "mustache")
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestRender_DefinitionFilePage(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "card.html")
	_, _, err := run(t, "render", filepath.Join(testdataDir, "card.json"), "--page", "-o", outFile, "--set", "stars=1")
	require.NoError(t, err)

	page, err := os.ReadFile(outFile)
	require.NoError(t, err)
	require.Contains(t, string(page), `<main class="widget-preview" data-engine="ejs">`)
	require.Contains(t, string(page), `<h3>Untitled</h3>*</div>`)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	abs, err := filepath.Abs(testdataDir)
	require.NoError(t, err)
	cfgFile := filepath.Join(dir, "widgets.yaml")
	body := "widgets_dir: " + abs + "\nlang: ca\nlog:\n  level: debug\n"
	require.NoError(t, os.WriteFile(cfgFile, []byte(body), 0o644))

	out, _, err := run(t, "-c", cfgFile, "render", "greeting")
	require.NoError(t, err)
	require.Contains(t, out, "Hola, World")

	_, _, err = run(t, "-c", filepath.Join(dir, "missing.yaml"), "list")
	require.Error(t, err)
}

func TestTrace(t *testing.T) {
	_, stderr, err := run(t, "--trace", "render", "greeting", "-d", testdataDir)
	require.NoError(t, err)
	require.True(t, strings.Contains(stderr, "widgets.render"), stderr)
}

func TestParseSet(t *testing.T) {
	values, err := parseSet([]string{"a=1", "b = x=y", "a=2"})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": "2", "b": " x=y"}, values)

	_, err = parseSet([]string{"=x"})
	require.Error(t, err)
}
