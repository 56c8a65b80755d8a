// Package widgets is the entry point of go-widgets: a Toolkit bundles a
// widget registry, global translations and the dispatch service, and the
// package level helpers cover one-off renders.
//
//	kit := widgets.New()
//	if err := kit.LoadFS(os.DirFS("widgets")); err != nil { ... }
//	html, err := kit.Render(ctx, "video", map[string]any{"url": u}, "es")
package widgets

import (
	"context"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/goliatone/go-widgets/pkg/cache"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/logging"
	"github.com/goliatone/go-widgets/pkg/render"
	defs "github.com/goliatone/go-widgets/pkg/widgets"
)

// Definition aliases the widget definition type.
type Definition = defs.Definition

// Request aliases render.Request for raw template renders.
type Request = render.Request

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithService injects the dispatch service.
func WithService(svc *render.Service) Option {
	return func(t *Toolkit) {
		if svc != nil {
			t.service = svc
		}
	}
}

// WithRegistry injects the definition registry.
func WithRegistry(registry *defs.Registry) Option {
	return func(t *Toolkit) {
		if registry != nil {
			t.registry = registry
		}
	}
}

// WithTranslations sets the global translations.
func WithTranslations(translations i18n.Translations) Option {
	return func(t *Toolkit) {
		t.translations = translations
	}
}

// WithRenderOptions configures the service built when none is injected.
func WithRenderOptions(opts ...render.Option) Option {
	return func(t *Toolkit) {
		t.renderOpts = append(t.renderOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Toolkit) {
		t.logger = logger
	}
}

// Toolkit renders registered widgets.
type Toolkit struct {
	mu           sync.RWMutex
	registry     *defs.Registry
	service      *render.Service
	translations i18n.Translations
	renderOpts   []render.Option
	logger       *slog.Logger
}

// New constructs a Toolkit.
func New(options ...Option) *Toolkit {
	t := &Toolkit{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(t)
	}
	t.applyDefaults()
	return t
}

func (t *Toolkit) applyDefaults() {
	t.logger = logging.OrNop(t.logger)
	if t.registry == nil {
		t.registry = defs.NewRegistry()
	}
	if t.service == nil {
		opts := append([]render.Option{render.WithLogger(t.logger)}, t.renderOpts...)
		t.service = render.New(opts...)
	}
	if t.translations == nil {
		t.translations = i18n.Translations{}
	}
}

// Registry returns the definition registry.
func (t *Toolkit) Registry() *defs.Registry { return t.registry }

// Service returns the dispatch service.
func (t *Toolkit) Service() *render.Service { return t.service }

// Translations returns the global translations.
func (t *Toolkit) Translations() i18n.Translations {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.translations
}

// LoadFS replaces the registered definitions with the ones found in fsys
// and clears the engine caches. On error the registry is left untouched.
func (t *Toolkit) LoadFS(fsys fs.FS) error {
	next, err := defs.LoadFS(fsys)
	if err != nil {
		return err
	}
	t.registry.Replace(next)
	t.service.Reset()
	t.logger.Debug("widgets loaded", slog.Int("count", next.Len()))
	return nil
}

// LoadTranslationsFS merges the translation files of fsys into the global
// translations.
func (t *Toolkit) LoadTranslationsFS(fsys fs.FS) error {
	loaded, err := i18n.LoadFS(fsys)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.translations = t.translations.Merge(loaded)
	t.mu.Unlock()
	return nil
}

// Render renders the widget registered under key.
func (t *Toolkit) Render(ctx context.Context, key string, values map[string]any, lang string) (string, error) {
	def, err := t.registry.Lookup(key)
	if err != nil {
		return "", err
	}
	return defs.Render(ctx, t.service, def, values, lang, t.Translations())
}

// RenderTemplate renders a raw template with the global translations
// layered under the request ones.
func (t *Toolkit) RenderTemplate(ctx context.Context, req Request) (string, error) {
	req.Translations = t.Translations().Merge(req.Translations)
	return t.service.Render(ctx, req)
}

// NewService constructs a dispatch service with both engines registered.
func NewService(options ...render.Option) *render.Service {
	return render.New(options...)
}

var defaultService = cache.NewLazy(func() (*render.Service, error) {
	return render.New(), nil
})

// RenderWidget renders def with a shared default service.
func RenderWidget(ctx context.Context, def Definition, values map[string]any, lang string) (string, error) {
	svc, err := defaultService.Get()
	if err != nil {
		return "", err
	}
	return defs.Render(ctx, svc, def, values, lang, nil)
}

// RenderTemplate renders a raw template with a shared default service.
// The engine is picked from the template text unless req names one.
func RenderTemplate(ctx context.Context, req Request) (string, error) {
	svc, err := defaultService.Get()
	if err != nil {
		return "", err
	}
	return svc.Render(ctx, req)
}
