// Package preview renders a full HTML page around a rendered widget, used by
// the HTTP preview endpoint and `widgets render --page`.
package preview

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-widgets/pkg/logging"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

// PageTemplate is the name of the page template inside the template FS.
const PageTemplate = "page.html"

//go:embed templates/*.html
var embedded embed.FS

// Templates returns the built-in templates.
func Templates() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	templates fs.FS
	globals   map[string]any
	logger    *slog.Logger
}

// WithTemplates replaces the built-in templates. fsys must contain
// PageTemplate.
func WithTemplates(fsys fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = fsys
	}
}

// WithGlobals seeds values available to every page, such as title or
// stylesheet.
func WithGlobals(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globals[strings.TrimSpace(key)] = value
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// Parameter is one row of the parameter table.
type Parameter struct {
	Name    string
	Title   string
	Value   any
	Visible bool
}

// Page is the data of one preview page.
type Page struct {
	Widget     widgets.Definition
	HTML       string
	Engine     string
	Lang       string
	Parameters []Parameter
}

// NewPage assembles a page from a definition, its rendered HTML, the
// render context and the visibility map.
func NewPage(def widgets.Definition, html string, ctx map[string]any, visible map[string]bool) Page {
	page := Page{Widget: def, HTML: html}
	if lang, ok := ctx[widgets.LangKey].(string); ok {
		page.Lang = lang
	}
	for _, p := range def.Parameters {
		shown := true
		if visible != nil {
			shown = visible[p.Name]
		}
		page.Parameters = append(page.Parameters, Parameter{
			Name:    p.Name,
			Title:   p.Title,
			Value:   ctx[p.Name],
			Visible: shown,
		})
	}
	return page
}

// Renderer renders preview pages with pongo2.
type Renderer struct {
	mu     sync.RWMutex
	set    *pongo2.TemplateSet
	page   *pongo2.Template
	logger *slog.Logger
}

// New constructs a Renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	if cfg.templates == nil {
		cfg.templates = Templates()
	}

	registerFilters()

	set := pongo2.NewSet("widgets-preview", pongo2.NewFSLoader(cfg.templates))
	set.Globals = pongo2.Context{"title": "Widget preview", "lang": "en"}
	set.Globals.Update(pongo2.Context(cfg.globals))

	page, err := set.FromFile(PageTemplate)
	if err != nil {
		return nil, fmt.Errorf("preview: load template %q: %w", PageTemplate, err)
	}
	return &Renderer{set: set, page: page, logger: logging.OrNop(cfg.logger)}, nil
}

// Render returns the page HTML.
func (r *Renderer) Render(page Page) (string, error) {
	var buf bytes.Buffer
	if err := r.Write(&buf, page); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write renders the page to w.
func (r *Renderer) Write(w io.Writer, page Page) error {
	if r == nil || r.page == nil {
		return errors.New("preview: renderer is nil")
	}
	ctx := pongo2.Context{
		"widget":     page.Widget,
		"icon":       page.Widget.Icon,
		"html":       page.HTML,
		"engine":     page.Engine,
		"parameters": parameterContext(page.Parameters),
	}
	if page.Lang != "" {
		ctx["lang"] = page.Lang
	}

	r.mu.RLock()
	err := r.page.ExecuteWriter(ctx, w)
	r.mu.RUnlock()
	if err != nil {
		r.logger.Error("preview render failed", slog.String("widget", page.Widget.Key), slog.Any("error", err))
		return fmt.Errorf("preview: execute %q: %w", PageTemplate, err)
	}
	return nil
}

func parameterContext(params []Parameter) []map[string]any {
	out := make([]map[string]any, len(params))
	for i, p := range params {
		out[i] = map[string]any{
			"name":    p.Name,
			"title":   p.Title,
			"value":   p.Value,
			"visible": p.Visible,
		}
	}
	return out
}

var filtersOnce sync.Once

func registerFilters() {
	filtersOnce.Do(func() {
		if pongo2.FilterExists("tojson") {
			return
		}
		_ = pongo2.RegisterFilter("tojson", func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			raw, err := json.Marshal(in.Interface())
			if err != nil {
				return nil, &pongo2.Error{Sender: "filter:tojson", OrigError: err}
			}
			return pongo2.AsValue(string(raw)), nil
		})
	})
}
