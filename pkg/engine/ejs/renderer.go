package ejs

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/goliatone/go-widgets/pkg/cache"
	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/logging"
	"github.com/goliatone/go-widgets/pkg/rnd"
)

// Name identifies the engine in the dispatch service.
const Name = "ejs"

// Option configures a Renderer.
type Option func(*Renderer)

// WithOptions sets the base compile options.
func WithOptions(opts Options) Option {
	return func(r *Renderer) {
		r.opts = opts
	}
}

// WithStore shares the compiled template cache.
func WithStore(store *cache.Store[*Template]) Option {
	return func(r *Renderer) {
		if store != nil {
			r.store = store
		}
	}
}

// WithCache toggles caching of compiled templates by content.
func WithCache(enabled bool) Option {
	return func(r *Renderer) {
		r.cache = enabled
	}
}

// WithLoader sets the include loader.
func WithLoader(loader Loader) Option {
	return func(r *Renderer) {
		r.opts.Loader = loader
	}
}

// WithIDGenerator sets the generator used to replace "$RND" values.
func WithIDGenerator(gen rnd.Generator) Option {
	return func(r *Renderer) {
		if gen != nil {
			r.ids = gen
		}
	}
}

// WithLogger sets the logger. Execution failures are reported here.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logging.OrNop(logger)
	}
}

// Renderer compiles and executes templates for the dispatch service.
// Compile errors are returned; execution errors are logged and render as
// an empty string.
type Renderer struct {
	opts   Options
	store  *cache.Store[*Template]
	cache  bool
	ids    rnd.Generator
	logger *slog.Logger
}

// New constructs a Renderer with caching enabled.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		opts:   DefaultOptions(),
		cache:  true,
		ids:    rnd.ShortID,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.store == nil {
		r.store = cache.NewStore[*Template]()
	}
	return r
}

// Render renders template against vars with an I18n lookup object built
// from translations and the LANG value of vars.
func (r *Renderer) Render(ctx context.Context, template string, vars map[string]any, translations i18n.Translations) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	env := rnd.Substitute(vars, r.ids)
	lang := ""
	if v, ok := env["LANG"]; ok && !expr.IsNullish(v) {
		lang = expr.ToString(v)
	}
	env["I18n"] = i18n.Resolver{
		Translations: translations,
		Lang:         lang,
		Fallbacks:    []string{i18n.EJSFallback},
	}

	tpl, err := r.Compile(template)
	if err != nil {
		return "", err
	}

	out, err := tpl.Execute(env)
	if err != nil {
		r.logger.Error("ejs render failed", "filename", tpl.Filename(), "error", err)
		return "", nil
	}
	return out, nil
}

// Compile compiles template with the renderer options. With caching on,
// the template is keyed by a content hash placed next to the configured
// filename, so relative includes still resolve.
func (r *Renderer) Compile(template string) (*Template, error) {
	opts := r.opts
	opts.Store = r.store
	if opts.Logger == nil {
		opts.Logger = r.logger
	}
	if r.cache {
		h := blake3.New()
		_, _ = io.WriteString(h, optionsFingerprint(opts))
		_, _ = io.WriteString(h, template)
		sum := h.Sum(nil)
		opts.Filename = path.Join(path.Dir(opts.Filename), "widget-"+hex.EncodeToString(sum[:12])+DefaultExtension)
		opts.Cache = true
	}
	return Compile(template, opts)
}

// Reset drops every cached template.
func (r *Renderer) Reset() {
	r.store.Clear()
}

// optionsFingerprint covers every option that changes the compiled program.
func optionsFingerprint(opts Options) string {
	return fmt.Sprintf("%q|%q|%q|%t|%q|%q|%q|%t|%t|%p\x00",
		opts.Delimiter, opts.OpenDelimiter, opts.CloseDelimiter,
		opts.Strict, opts.LocalsName, strings.Join(opts.DestructuredLocals, ","),
		opts.OutputFunctionName, opts.CompileDebug, opts.RmWhitespace,
		opts.Escape)
}
