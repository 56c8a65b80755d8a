package mustache

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-widgets/pkg/expr"
)

func TestInterpreterRender(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"name":   "<b>Ada</b>",
		"count":  3,
		"ratio":  0.5,
		"person": map[string]any{"first": "Grace", "langs": []any{"cobol", "fortran"}},
		"items":  []any{map[string]any{"n": 1}, map[string]any{"n": 2}},
		"empty":  []any{},
		"on":     true,
		"off":    false,
		"zero":   0,
		"words":  []string{"a", "b"},
	}

	cases := []struct {
		name     string
		template string
		want     string
	}{
		{"escaped", "Hi {{name}}", "Hi &lt;b&gt;Ada&lt;&#x2F;b&gt;"},
		{"triple", "Hi {{{name}}}", "Hi <b>Ada</b>"},
		{"ampersand", "Hi {{& name}}", "Hi <b>Ada</b>"},
		{"numbers", "{{count}}/{{ratio}}", "3/0.5"},
		{"dotted", "{{person.first}} {{person.langs.1}}", "Grace fortran"},
		{"missing", "[{{nope}}][{{person.nope}}]", "[][]"},
		{"list", "{{#items}}<{{n}}>{{/items}}", "<1><2>"},
		{"implicit iterator", "{{#words}}{{.}},{{/words}}", "a,b,"},
		{"map section", "{{#person}}{{first}}{{/person}}", "Grace"},
		{"bool section", "{{#on}}yes{{/on}}{{#off}}no{{/off}}", "yes"},
		{"zero is falsy", "{{#zero}}x{{/zero}}{{^zero}}none{{/zero}}", "none"},
		{"inverted empty list", "{{^empty}}nothing{{/empty}}", "nothing"},
		{"outer lookup", "{{#items}}{{count}}{{/items}}", "33"},
		{"comment", "a{{! ignored }}b", "ab"},
		{"set delimiters", "{{=<% %>=}}<% count %>{{count}}", "3{{count}}"},
		{"standalone", "<ul>\n  {{#words}}\n  <li>{{.}}</li>\n  {{/words}}\n</ul>", "<ul>\n  <li>a</li>\n  <li>b</li>\n</ul>"},
	}

	interp := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := interp.Render(tc.template, data)
			if err != nil {
				t.Fatalf("Render returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Render mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLambdaReceivesRawTextAndOutputIsVerbatim(t *testing.T) {
	t.Parallel()

	var seen string
	data := map[string]any{
		"who": "<i>",
		"wrap": Lambda(func(text string, render RenderFunc) (string, error) {
			seen = text
			inner, err := render(text)
			if err != nil {
				return "", err
			}
			return "<b>" + inner + "</b>", nil
		}),
	}

	got, err := New().Render("{{#wrap}}hi {{who}}{{/wrap}}", data)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if seen != "hi {{who}}" {
		t.Fatalf("lambda received %q", seen)
	}
	if got != "<b>hi &lt;i&gt;</b>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestLambdaErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	data := map[string]any{
		"fail": Lambda(func(string, RenderFunc) (string, error) { return "", boom }),
	}
	_, err := New().Render("{{#fail}}x{{/fail}}", data)
	if !errors.Is(err, boom) {
		t.Fatalf("expected lambda error, got %v", err)
	}
}

func TestPartials(t *testing.T) {
	t.Parallel()

	interp := New(WithPartials(Partials{"item": "<li>{{name}}</li>\n"}))
	got, err := interp.Render("<ul>\n  {{> item}}\n</ul>", map[string]any{"name": "a"})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if got != "<ul>\n  <li>a</li>\n</ul>" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestGetterContext(t *testing.T) {
	t.Parallel()

	arr := expr.NewArray("x", "y")
	got, err := New().Render("{{#list}}{{.}}{{/list}}", map[string]any{"list": arr})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if got != "xy" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestSyntaxErrors(t *testing.T) {
	t.Parallel()

	cases := []string{
		"{{#open}}never closed",
		"{{/close}}",
		"{{#a}}{{/b}}",
		"{{unterminated",
		"{{=<% %>",
	}
	for _, src := range cases {
		_, err := New().Render(src, nil)
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("Render(%q): expected ErrSyntax, got %v", src, err)
		}
	}
}

func TestEscapeHTML(t *testing.T) {
	t.Parallel()

	got := EscapeHTML(`&<>"'/` + "`=")
	want := "&amp;&lt;&gt;&quot;&#39;&#x2F;&#x60;&#x3D;"
	if got != want {
		t.Fatalf("EscapeHTML = %q, want %q", got, want)
	}
	if strings.Contains(EscapeHTML("plain"), "&") {
		t.Fatalf("plain text should be untouched")
	}
}
