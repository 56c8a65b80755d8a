package widgets

import (
	"errors"
	"os"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func loadTestdata(t *testing.T) *Registry {
	t.Helper()
	registry, err := LoadFS(os.DirFS("testdata/widgets"))
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	return registry
}

func TestLoadFS_Testdata(t *testing.T) {
	t.Parallel()

	registry := loadTestdata(t)

	keys := make([]string, 0, registry.Len())
	for _, def := range registry.List() {
		keys = append(keys, def.Key)
	}
	if diff := cmp.Diff([]string{"card", "greeting", "uppercase", "youtube"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"filters", "layout", "media", "text"}, registry.Categories()); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}

	youtube, err := registry.Lookup("youtube")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if youtube.Source != "media/youtube.yml" {
		t.Fatalf("expected source media/youtube.yml, got %q", youtube.Source)
	}
}

func TestParse_DecodesJSONDefinition(t *testing.T) {
	t.Parallel()

	card, err := loadTestdata(t).Lookup("card")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if card.Engine != "ejs" || !card.Renderable() {
		t.Fatalf("unexpected card definition: engine=%q renderable=%v", card.Engine, card.Renderable())
	}

	size, ok := card.Parameter("size")
	if !ok {
		t.Fatalf("expected size parameter")
	}
	want := []Option{{Text: "s", Value: "s"}, {Text: "m", Value: "m"}, {Text: "Large", Value: "l"}}
	if diff := cmp.Diff(want, size.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}

	stars, _ := card.Parameter("stars")
	if stars.Kind() != TypeNumeric || stars.Value != float64(3) {
		t.Fatalf("unexpected stars parameter: %+v", stars)
	}
	title, _ := card.Parameter("title")
	if title.Kind() != TypeText {
		t.Fatalf("expected untyped parameter to be text, got %q", title.Kind())
	}
}

func TestParse_DecodesYAMLDefinition(t *testing.T) {
	t.Parallel()

	greeting, err := loadTestdata(t).Lookup("greeting")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if greeting.Engine != "" {
		t.Fatalf("expected no engine, got %q", greeting.Engine)
	}
	if got := greeting.I18n["hello"]["es"]; got != "Hola" {
		t.Fatalf("expected es translation Hola, got %q", got)
	}
	if strings.HasSuffix(greeting.Template, "\n") {
		t.Fatalf("expected block scalar to be chomped, got %q", greeting.Template)
	}

	uppercase, _ := loadTestdata(t).Get("uppercase")
	if uppercase.Renderable() || uppercase.Filter == "" {
		t.Fatalf("expected filter widget, got %+v", uppercase)
	}
}

func TestParse_SanitizesIcon(t *testing.T) {
	t.Parallel()

	greeting, _ := loadTestdata(t).Get("greeting")
	icon := greeting.Icon
	if !strings.Contains(icon, "<svg") || !strings.Contains(icon, "<path") {
		t.Fatalf("expected svg markup to survive, got %q", icon)
	}
	for _, banned := range []string{"script", "onload", "alert"} {
		if strings.Contains(icon, banned) {
			t.Fatalf("expected %q to be stripped from icon, got %q", banned, icon)
		}
	}
}

func TestParse_InvalidDefinitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		doc      string
		wantPath string
	}{
		{
			name:     "missing key",
			doc:      "name: x\nversion: '1'\nauthor: a\ntemplate: t\n",
			wantPath: "",
		},
		{
			name:     "template and filter",
			doc:      "key: x\nname: x\nversion: '1'\nauthor: a\ntemplate: t\nfilter: f\n",
			wantPath: "",
		},
		{
			name:     "neither template nor filter",
			doc:      `{"key":"x","name":"x","version":"1","author":"a"}`,
			wantPath: "",
		},
		{
			name:     "unknown engine",
			doc:      "key: x\nname: x\nversion: '1'\nauthor: a\nengine: jade\ntemplate: t\n",
			wantPath: "engine",
		},
		{
			name:     "bad parameter name",
			doc:      "key: x\nname: x\nversion: '1'\nauthor: a\ntemplate: t\nparameters:\n  - name: 1st\n    title: First\n",
			wantPath: "parameters.0.name",
		},
		{
			name:     "unknown parameter type",
			doc:      "key: x\nname: x\nversion: '1'\nauthor: a\ntemplate: t\nparameters:\n  - name: a\n    title: A\n    type: slider\n",
			wantPath: "parameters.0.type",
		},
		{
			name:     "unknown transform",
			doc:      "key: x\nname: x\nversion: '1'\nauthor: a\ntemplate: t\nparameters:\n  - name: a\n    title: A\n    transform: trim|shout\n",
			wantPath: "parameters.0.transform",
		},
		{
			name:     "duplicate parameter",
			doc:      "key: x\nname: x\nversion: '1'\nauthor: a\ntemplate: t\nparameters:\n  - name: a\n    title: A\n  - name: a\n    title: B\n",
			wantPath: "parameters.1.name",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tc.doc), "inline.yaml")
			if !errors.Is(err, ErrInvalidDefinition) {
				t.Fatalf("expected ErrInvalidDefinition, got %v", err)
			}
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if validationErr.Source != "inline.yaml" {
				t.Fatalf("expected source inline.yaml, got %q", validationErr.Source)
			}
			if len(validationErr.Issues) == 0 {
				t.Fatalf("expected issues")
			}
			if tc.wantPath == "" {
				return
			}
			for _, issue := range validationErr.Issues {
				if issue.Path == tc.wantPath {
					return
				}
			}
			t.Fatalf("expected an issue at %q, got %+v", tc.wantPath, validationErr.Issues)
		})
	}
}

func TestParse_RejectsMalformedDocuments(t *testing.T) {
	t.Parallel()

	for _, doc := range []string{"", "   \n", "- just\n- a list\n", "key: [unclosed\n"} {
		if _, err := Parse([]byte(doc), "bad.yaml"); err == nil {
			t.Fatalf("expected error for %q", doc)
		}
	}
}

func TestLoadFS_DuplicateKeys(t *testing.T) {
	t.Parallel()

	doc := []byte("key: same\nname: x\nversion: '1'\nauthor: a\ntemplate: t\n")
	fsys := fstest.MapFS{
		"a/one.yaml": {Data: doc},
		"b/two.yml":  {Data: doc},
	}

	_, err := LoadFS(fsys)
	if err == nil {
		t.Fatalf("expected duplicate key error")
	}
	for _, want := range []string{`duplicate key "same"`, "a/one.yaml", "b/two.yml"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %q, got %v", want, err)
		}
	}
}

func TestLoadFS_NilFS(t *testing.T) {
	t.Parallel()

	registry, err := LoadFS(nil)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", registry.Len())
	}
}
