package widgets

import (
	"context"
	"fmt"

	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/render"
)

// Render builds the context of def from values and renders its template
// through svc. The definition's translations are layered over global.
func Render(ctx context.Context, svc *render.Service, def Definition, values map[string]any, lang string, global i18n.Translations) (string, error) {
	if !def.Renderable() {
		return "", fmt.Errorf("%w: %q", ErrNotRenderable, def.Key)
	}
	vars, err := def.Context(values, lang)
	if err != nil {
		return "", err
	}
	return svc.Render(ctx, render.Request{
		Template:     def.Template,
		Data:         vars,
		Translations: global.Merge(def.I18n),
		Engine:       def.Engine,
	})
}
