package ejs

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-widgets/pkg/cache"
	"github.com/goliatone/go-widgets/pkg/expr"
)

func mustCompile(t *testing.T, text string, opts Options) *Template {
	t.Helper()
	tpl, err := Compile(text, opts)
	if err != nil {
		t.Fatalf("compile %q: %v", text, err)
	}
	return tpl
}

func TestCompile_Execute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		text   string
		locals map[string]any
		want   string
	}{
		{
			name:   "escaped output",
			text:   `<p><%= name %></p>`,
			locals: map[string]any{"name": `<a href="x">'&'</a>`},
			want:   `<p>&lt;a href=&#34;x&#34;&gt;&#39;&amp;&#39;&lt;/a&gt;</p>`,
		},
		{
			name:   "raw output",
			text:   `<%- html %>`,
			locals: map[string]any{"html": "<b>bold</b>"},
			want:   "<b>bold</b>",
		},
		{
			name:   "nullish output is empty",
			text:   `[<%= missing %>|<%- none %>]`,
			locals: map[string]any{"missing": nil, "none": nil},
			want:   "[|]",
		},
		{
			name: "for loop",
			text: `<ul><% for (var i = 0; i < 3; i++) { %><li><%= i %></li><% } %></ul>`,
			want: `<ul><li>0</li><li>1</li><li>2</li></ul>`,
		},
		{
			name:   "for of over context list",
			text:   `<% for (const item of items) { %><%= item.name %>;<% } %>`,
			locals: map[string]any{"items": []any{map[string]any{"name": "a"}, map[string]any{"name": "b"}}},
			want:   "a;b;",
		},
		{
			name:   "if else",
			text:   `<% if (show) { %>yes<% } else { %>no<% } %>`,
			locals: map[string]any{"show": false},
			want:   "no",
		},
		{
			name:   "locals object",
			text:   `<%= locals.title || "untitled" %>`,
			locals: map[string]any{},
			want:   "untitled",
		},
		{
			name: "comments are dropped",
			text: `a<%# hidden %>b`,
			want: "ab",
		},
		{
			name: "literal delimiters",
			text: `<%%= x %> and %%>`,
			want: `<%= x %> and %>`,
		},
		{
			name: "text is embedded as a string literal",
			text: "\"quoted\" \\ back\r\nslash",
			want: "\"quoted\" \\ back\r\nslash",
		},
		{
			name:   "newline trim",
			text:   "<% if (true) { -%>\nline\n<% } -%>\nend",
			want:   "line\nend",
			locals: nil,
		},
		{
			name: "whitespace slurp",
			text: "  <%_ if (true) { _%>  \n  x\n  <%_ } _%>",
			want: "  x\n",
		},
		{
			name: "line comment inside scriptlet",
			text: "<% var n = 2 // two %><%= n %>",
			want: "2",
		},
		{
			name:   "assignment to undeclared name stays local to the render",
			text:   `<% total = price * 2 %><%= total %>`,
			locals: map[string]any{"price": 4},
			want:   "8",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tpl := mustCompile(t, tc.text, DefaultOptions())
			got, err := tpl.Execute(tc.locals)
			if err != nil {
				t.Fatalf("execute: %v\nsource:\n%s", err, tpl.Source())
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompile_DoesNotMutateLocals(t *testing.T) {
	t.Parallel()

	locals := map[string]any{"price": 4}
	tpl := mustCompile(t, `<% total = price; price = 0 %>`, DefaultOptions())
	if _, err := tpl.Execute(locals); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"price": 4}, locals); diff != "" {
		t.Fatalf("locals changed (-want +got):\n%s", diff)
	}
}

func TestCompile_RmWhitespace(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.RmWhitespace = true
	tpl := mustCompile(t, "  <p>\n\n   <%= a %>  \n  </p>  ", opts)
	got, err := tpl.Execute(map[string]any{"a": "x"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if diff := cmp.Diff("<p>\nx\n</p>", got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_CustomDelimiters(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Delimiter = "?"
	opts.OpenDelimiter = "["
	opts.CloseDelimiter = "]"
	tpl := mustCompile(t, `<%= x %>[?= x ?]`, opts)
	got, err := tpl.Execute(map[string]any{"x": 1})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if diff := cmp.Diff("<%= x %>1", got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_StrictAndDestructuredLocals(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	opts.Strict = true
	opts.LocalsName = "data"
	opts.DestructuredLocals = []string{"name"}
	opts.OutputFunctionName = "echo"
	tpl := mustCompile(t, `<%= name %>-<%= data.count %><% echo("!") %>`, opts)

	got, err := tpl.Execute(map[string]any{"name": "Ada", "count": 2})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if diff := cmp.Diff("Ada-2!", got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	strict := mustCompile(t, `<%= count %>`, opts)
	if _, err := strict.Execute(map[string]any{"count": 2}); !errors.Is(err, expr.ErrReference) {
		t.Fatalf("expected reference error for bare local in strict mode, got %v", err)
	}
}

func TestCompile_OptionValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Options)
		want   error
	}{
		{name: "output function", mutate: func(o *Options) { o.OutputFunctionName = "1bad" }, want: ErrInvalidIdentifier},
		{name: "destructured local", mutate: func(o *Options) { o.DestructuredLocals = []string{"ok", "a-b"} }, want: ErrInvalidIdentifier},
		{name: "locals name", mutate: func(o *Options) { o.LocalsName = "var" }, want: ErrInvalidIdentifier},
		{name: "cache without filename", mutate: func(o *Options) { o.Cache = true }, want: ErrFilenameRequired},
	}
	for _, tc := range cases {
		opts := DefaultOptions()
		tc.mutate(&opts)
		_, err := Compile(`x`, opts)
		var compileErr *CompileError
		if !errors.As(err, &compileErr) || !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected CompileError wrapping %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCompile_StructuralErrors(t *testing.T) {
	t.Parallel()

	cases := []string{
		`<p><%= name</p>`,
		`<% if (a) { <%= b %><% } %>`,
		"line\n<%# never closed",
	}
	for _, text := range cases {
		_, err := Compile(text, DefaultOptions())
		var compileErr *CompileError
		if !errors.As(err, &compileErr) || !errors.Is(err, ErrStructure) {
			t.Fatalf("%q: expected structural CompileError, got %v", text, err)
		}
	}

	_, err := Compile("a\n<%= name", DefaultOptions())
	var compileErr *CompileError
	errors.As(err, &compileErr)
	if compileErr.Line != 2 || !strings.Contains(err.Error(), `"<%= name"`) {
		t.Fatalf("expected error naming the fragment on line 2, got %v", err)
	}
}

func TestCompile_SyntaxErrorInScriptlet(t *testing.T) {
	t.Parallel()

	_, err := Compile(`<% if (a { %>x<% } %>`, DefaultOptions())
	var compileErr *CompileError
	if !errors.As(err, &compileErr) || !errors.Is(err, expr.ErrSyntax) {
		t.Fatalf("expected syntax CompileError, got %v", err)
	}
	if compileErr.Source == "" {
		t.Fatalf("expected generated source on the compile error")
	}
}

func TestCompile_CacheByFilename(t *testing.T) {
	t.Parallel()

	store := cache.NewStore[*Template]()
	opts := DefaultOptions()
	opts.Cache = true
	opts.Filename = "widgets/card.ejs"
	opts.Store = store

	first := mustCompile(t, `first`, opts)
	second := mustCompile(t, `second`, opts)
	if first != second {
		t.Fatalf("expected the cached template for a repeated filename")
	}
	got, err := second.Execute(nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "first" {
		t.Fatalf("expected cached output, got %q", got)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one cached template, got %d", store.Len())
	}

	store.Clear()
	if got := mustCompile(t, `second`, opts); got == first {
		t.Fatalf("expected a fresh compile after clearing the cache")
	}
}

func TestTemplate_Include(t *testing.T) {
	t.Parallel()

	loader := MapLoader{
		"partials/item.ejs":  `<li><%= label %></li>`,
		"partials/title.ejs": `<h1><%= title %></h1>`,
		"loop.ejs":           `<%- include('loop') %>`,
	}
	opts := DefaultOptions()
	opts.Loader = loader
	opts.Filename = "pages/list.ejs"

	tpl := mustCompile(t, `<%- include('/partials/title') %><ul><% for (const l of labels) { %><%- include('../partials/item', {label: l}) %><% } %></ul>`, opts)
	got, err := tpl.Execute(map[string]any{"title": "List", "labels": []any{"a", "b"}})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if diff := cmp.Diff(`<h1>List</h1><ul><li>a</li><li>b</li></ul>`, got); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}

	missing := mustCompile(t, `<%- include('nope') %>`, opts)
	if _, err := missing.Execute(nil); !errors.Is(err, ErrInclude) {
		t.Fatalf("expected include error, got %v", err)
	}

	opts.Filename = "loop.ejs"
	loop := mustCompile(t, loader["loop.ejs"], opts)
	if _, err := loop.Execute(nil); !errors.Is(err, ErrInclude) {
		t.Fatalf("expected include depth error, got %v", err)
	}
}

func TestResolveInclude(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, filename, want string
	}{
		{name: "item", filename: "pages/list.ejs", want: "pages/item.ejs"},
		{name: "../shared/box.html", filename: "pages/list.ejs", want: "shared/box.html"},
		{name: "/root", filename: "pages/list.ejs", want: "root.ejs"},
		{name: "item", filename: "", want: "item.ejs"},
	}
	for _, tc := range cases {
		got, err := ResolveInclude(tc.name, tc.filename)
		if err != nil {
			t.Fatalf("resolve %q: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("resolve %q from %q: expected %q, got %q", tc.name, tc.filename, tc.want, got)
		}
	}
	if _, err := ResolveInclude("../../etc/passwd", "pages/list.ejs"); !errors.Is(err, ErrInclude) {
		t.Fatalf("expected escape outside the root to fail, got %v", err)
	}
}

func TestTemplate_RethrowContext(t *testing.T) {
	t.Parallel()

	tpl := mustCompile(t, "line1\nline2\n<%= boom() %>\nline4", DefaultOptions())
	_, err := tpl.Execute(nil)

	var runtimeErr *RuntimeError
	if !errors.As(err, &runtimeErr) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if runtimeErr.Line != 3 {
		t.Fatalf("expected line 3, got %d", runtimeErr.Line)
	}
	want := "    1| line1\n    2| line2\n >> 3| <%= boom() %>\n    4| line4"
	if diff := cmp.Diff(want, runtimeErr.Context); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(err, expr.ErrReference) {
		t.Fatalf("expected the cause to be kept, got %v", err)
	}

	opts := DefaultOptions()
	opts.CompileDebug = false
	plain := mustCompile(t, "<%= boom() %>", opts)
	_, err = plain.Execute(nil)
	if errors.As(err, &runtimeErr) || !errors.Is(err, expr.ErrReference) {
		t.Fatalf("expected a bare evaluation error without debug, got %v", err)
	}
}

func TestTemplate_Fn(t *testing.T) {
	t.Parallel()

	tpl := mustCompile(t, `<%= name %>`, DefaultOptions())
	got, err := tpl.Fn()(map[string]any{"name": "ada"}, strings.ToUpper, nil, nil)
	if err != nil {
		t.Fatalf("fn: %v", err)
	}
	if got != "ADA" {
		t.Fatalf("expected the supplied escape function to run, got %q", got)
	}
}
