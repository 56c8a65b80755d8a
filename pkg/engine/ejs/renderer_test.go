package ejs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"pgregory.net/rapid"

	"github.com/goliatone/go-widgets/pkg/cache"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/logging"
)

func TestEscapeXML_RoundTripsThroughHTMLParser(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringOf(rapid.SampledFrom([]rune(`&<>"' abcxyz;#`))).Draw(t, "s")
		escaped := EscapeXML(s)

		doc, err := html.Parse(strings.NewReader(`<div title="` + escaped + `">` + escaped + `</div>`))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		div := findElement(doc, "div")
		if div == nil {
			t.Fatalf("div not found for %q", escaped)
		}
		if got := textContent(div); got != s {
			t.Fatalf("text round trip: expected %q, got %q", s, got)
		}
		if len(div.Attr) != 1 || div.Attr[0].Val != s {
			t.Fatalf("attribute round trip: expected %q, got %+v", s, div.Attr)
		}
	})
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func TestRenderer_Render(t *testing.T) {
	t.Parallel()

	got, err := New().Render(context.Background(), `<b><%= name %></b>`, map[string]any{"name": "Ada"}, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "<b>Ada</b>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRenderer_RandomIDs(t *testing.T) {
	t.Parallel()

	n := 0
	r := New(WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("w%d", n)
	}))
	vars := map[string]any{"a": "$RND", "b": "$RND"}
	tpl := `<%= a %> <%= a %> <%= b %>`

	first, err := r.Render(context.Background(), tpl, vars, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := r.Render(context.Background(), tpl, vars, nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	parts := strings.Fields(first)
	if parts[0] != parts[1] || parts[0] == parts[2] {
		t.Fatalf("expected one id per key within a render, got %q", first)
	}
	if strings.Fields(second)[0] == parts[0] {
		t.Fatalf("expected a fresh id per render")
	}
	if vars["a"] != "$RND" {
		t.Fatalf("caller context was modified")
	}
}

func TestRenderer_I18n(t *testing.T) {
	t.Parallel()

	r := New()
	translations := i18n.Translations{"greet": {"es": "Hola", "ca": "Bon dia"}}

	got, err := r.Render(context.Background(), `<%= I18n.greet %>|<%= I18n["greet"] %>`, map[string]any{"LANG": "fr"}, translations)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hola|Hola" {
		t.Fatalf("expected the es fallback, got %q", got)
	}

	got, err = r.Render(context.Background(), `<%= I18n.unknown_key %>`, map[string]any{"LANG": "fr"}, i18n.Translations{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "unknown_key" {
		t.Fatalf("expected the key itself, got %q", got)
	}
}

func TestRenderer_ExecutionFailureIsSoft(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	opts := DefaultOptions()
	opts.Strict = true
	r := New(
		WithOptions(opts),
		WithLogger(logging.New(logging.Config{Level: logging.LevelDebug, Output: &logs})),
	)

	got, err := r.Render(context.Background(), `<p><%= undefinedVariable %></p>`, nil, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
	if !strings.Contains(logs.String(), "ejs render failed") {
		t.Fatalf("expected the failure to be logged, got %q", logs.String())
	}
}

func TestRenderer_CompileErrorsPropagate(t *testing.T) {
	t.Parallel()

	_, err := New().Render(context.Background(), `<p><%= name</p>`, map[string]any{"name": "x"}, nil)
	if !errors.Is(err, ErrStructure) {
		t.Fatalf("expected structural error, got %v", err)
	}
}

func TestRenderer_CachesByContent(t *testing.T) {
	t.Parallel()

	store := cache.NewStore[*Template]()
	r := New(WithStore(store))
	for i := 0; i < 3; i++ {
		if _, err := r.Render(context.Background(), `<%= i %>`, map[string]any{"i": i}, nil); err != nil {
			t.Fatalf("render: %v", err)
		}
	}
	if _, err := r.Render(context.Background(), `other`, nil, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected two cached templates, got %d", store.Len())
	}

	r.Reset()
	if store.Len() != 0 {
		t.Fatalf("expected an empty cache after reset")
	}

	uncached := New(WithStore(store), WithCache(false))
	if _, err := uncached.Render(context.Background(), `x`, nil, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no caching when disabled")
	}
}

func TestRenderer_SharedStoreKeysByOptions(t *testing.T) {
	t.Parallel()

	store := cache.NewStore[*Template]()
	percent := New(WithStore(store))
	qopts := DefaultOptions()
	qopts.Delimiter = "?"
	question := New(WithStore(store), WithOptions(qopts))

	const tpl = `<?= name ?>|<%= name %>`
	vars := map[string]any{"name": "Ada"}
	for i := 0; i < 2; i++ {
		out, err := percent.Render(context.Background(), tpl, vars, nil)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if out != "<?= name ?>|Ada" {
			t.Fatalf("percent delimiters: got %q", out)
		}
		out, err = question.Render(context.Background(), tpl, vars, nil)
		if err != nil {
			t.Fatalf("render: %v", err)
		}
		if out != "Ada|<%= name %>" {
			t.Fatalf("question delimiters: got %q", out)
		}
	}
	if store.Len() != 2 {
		t.Fatalf("expected one cached template per option set, got %d", store.Len())
	}
}
