package widgets

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-widgets/pkg/engine/ejs"
	"github.com/goliatone/go-widgets/pkg/engine/mustache"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/render"
)

func newTestService() *render.Service {
	fixed := func() string { return "w1" }
	return render.New(
		render.WithMustacheOptions(mustache.WithIDGenerator(fixed)),
		render.WithEJSOptions(ejs.WithIDGenerator(fixed)),
	)
}

func TestRender_Widgets(t *testing.T) {
	t.Parallel()

	registry := loadTestdata(t)
	svc := newTestService()

	cases := []struct {
		key    string
		values map[string]any
		lang   string
		want   string
	}{
		{
			key:  "greeting",
			want: `<p class="greeting" id="w1">Hello, World</p>`,
		},
		{
			key:    "greeting",
			values: map[string]any{"name": " Ada ", "shout": "on"},
			lang:   "es",
			want:   `<p class="greeting" id="w1">Hola, Ada!</p>`,
		},
		{
			key:  "card",
			want: `<div class="card" style="color:#333"><h3>Untitled</h3>***</div>`,
		},
		{
			key:    "card",
			values: map[string]any{"title": "<b>bold</b>", "stars": "1"},
			want:   `<div class="card" style="color:#333"><h3>&lt;b&gt;bold&lt;/b&gt;</h3>*</div>`,
		},
		{
			key:  "youtube",
			want: `<iframe src="https://www.youtube.com/embed/dQw4w9WgXcQ" width="560"></iframe>`,
		},
	}

	for _, tc := range cases {
		def, err := registry.Lookup(tc.key)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", tc.key, err)
		}
		got, err := Render(context.Background(), svc, def, tc.values, tc.lang, nil)
		if err != nil {
			t.Fatalf("Render(%q): %v", tc.key, err)
		}
		if got != tc.want {
			t.Fatalf("Render(%q):\nwant %s\ngot  %s", tc.key, tc.want, got)
		}
	}
}

func TestRender_GlobalTranslationsAreOverridden(t *testing.T) {
	t.Parallel()

	greeting, _ := loadTestdata(t).Get("greeting")
	global := i18n.Translations{"hello": {"en": "Hi", "fr": "Salut"}}

	got, err := Render(context.Background(), newTestService(), greeting, nil, "fr", global)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != `<p class="greeting" id="w1">Salut, World</p>` {
		t.Fatalf("unexpected output %q", got)
	}

	got, err = Render(context.Background(), newTestService(), greeting, nil, "en", global)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != `<p class="greeting" id="w1">Hello, World</p>` {
		t.Fatalf("expected widget translation to win, got %q", got)
	}
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	registry := loadTestdata(t)
	svc := newTestService()

	uppercase, _ := registry.Get("uppercase")
	if _, err := Render(context.Background(), svc, uppercase, nil, "", nil); !errors.Is(err, ErrNotRenderable) {
		t.Fatalf("expected ErrNotRenderable, got %v", err)
	}

	card, _ := registry.Get("card")
	if _, err := Render(context.Background(), svc, card, map[string]any{"color": "blue"}, "", nil); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
}
