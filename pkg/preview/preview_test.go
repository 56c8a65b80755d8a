package preview

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-widgets/pkg/widgets"
)

func testDefinition() widgets.Definition {
	return widgets.Definition{
		Key:      "card",
		Name:     "Card <beta>",
		Version:  "1.0",
		Author:   "widgets",
		Category: "layout",
		Icon:     `<svg viewBox="0 0 1 1"></svg>`,
		Template: "<div><%= title %></div>",
		Parameters: []widgets.Parameter{
			{Name: "title", Title: "Title"},
			{Name: "caption", Title: "Caption", When: "{{ false }}"},
		},
	}
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	renderer, err := New(WithGlobals(map[string]any{"stylesheet": "/static/app.css"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	def := testDefinition()
	ctx := map[string]any{"title": "Hi", "caption": "", widgets.LangKey: "es"}
	page := NewPage(def, `<div class="card">Hi</div>`, ctx, map[string]bool{"title": true, "caption": false})
	page.Engine = "ejs"

	out, err := renderer.Render(page)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	for _, want := range []string{
		`<html lang="es">`,
		`<div class="card">Hi</div>`,
		`<title>Card &lt;beta&gt; | Widget preview</title>`,
		`<link rel="stylesheet" href="/static/app.css">`,
		`data-engine="ejs"`,
		`<svg viewBox="0 0 1 1"></svg>`,
		`card v1.0 by widgets in layout`,
		`<tr data-name="caption" hidden>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if !strings.Contains(out, `<td>&quot;Hi&quot;</td>`) && !strings.Contains(out, `<td>&#34;Hi&#34;</td>`) {
		t.Fatalf("expected escaped JSON value, got:\n%s", out)
	}
	if strings.Contains(out, `<tr data-name="title" hidden>`) {
		t.Fatalf("expected title row to be visible")
	}
}

func TestNewPage_DefaultsToVisible(t *testing.T) {
	t.Parallel()

	page := NewPage(testDefinition(), "", map[string]any{"title": "x"}, nil)
	if page.Lang != "" {
		t.Fatalf("expected no lang, got %q", page.Lang)
	}
	for _, p := range page.Parameters {
		if !p.Visible {
			t.Fatalf("expected %q visible without a visibility map", p.Name)
		}
	}
	if page.Parameters[0].Value != "x" {
		t.Fatalf("expected value from context, got %#v", page.Parameters[0].Value)
	}
}

func TestRenderer_CustomTemplates(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		PageTemplate: {Data: []byte(`[{{ widget.Key }}]{{ html|safe }}`)},
	}
	renderer, err := New(WithTemplates(fsys))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := renderer.Render(Page{Widget: widgets.Definition{Key: "k"}, HTML: "<b>x</b>"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "[k]<b>x</b>" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNew_MissingTemplate(t *testing.T) {
	t.Parallel()

	if _, err := New(WithTemplates(fstest.MapFS{})); err == nil {
		t.Fatalf("expected error for missing page template")
	}
}
