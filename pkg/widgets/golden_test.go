package widgets_test

import (
	"testing"

	"github.com/goliatone/go-widgets/pkg/engine/ejs"
	"github.com/goliatone/go-widgets/pkg/engine/mustache"
	"github.com/goliatone/go-widgets/pkg/render"
	"github.com/goliatone/go-widgets/pkg/testsupport"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

func TestRender_Golden(t *testing.T) {
	t.Parallel()

	registry := testsupport.LoadRegistry(t, "testdata/widgets")

	got := map[string]string{}
	for _, def := range registry.List() {
		if !def.Renderable() {
			continue
		}
		// one id per widget, so every widget sees w1
		ids := testsupport.SequentialIDs("w")
		svc := render.New(
			render.WithMustacheOptions(mustache.WithIDGenerator(ids)),
			render.WithEJSOptions(ejs.WithIDGenerator(ids)),
		)
		html, err := widgets.Render(testsupport.Context(), svc, def, nil, "", nil)
		if err != nil {
			t.Fatalf("Render(%q): %v", def.Key, err)
		}
		got[def.Key] = html
	}

	testsupport.AssertGoldenJSON(t, "testdata/golden/render.json", got)
}
