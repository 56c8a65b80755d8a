// Package mustache renders logic-less widget templates extended with the
// helper sections if, var, eval, I18n, each and for.
//
// Helpers are section lambdas bound to a per-render copy of the context, so
// a var or for helper can introduce bindings that later tags in the same
// render see without touching the caller's map. Helper output is inserted
// as is; interpolation tags inside helper bodies are escaped as usual.
//
// Evaluation errors and malformed helper syntax are returned to the caller.
package mustache

import (
	"context"
	"log/slog"

	core "github.com/goliatone/go-widgets/internal/mustache"
	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/logging"
	"github.com/goliatone/go-widgets/pkg/rnd"
)

// Name identifies the engine in the dispatch service.
const Name = "mustache"

// MaxForIterations caps the for helper.
const MaxForIterations = 1000

// Option configures a Renderer.
type Option func(*Renderer)

// WithEvaluator replaces the expression evaluator used by the helpers.
func WithEvaluator(eval expr.Evaluator) Option {
	return func(r *Renderer) {
		if eval != nil {
			r.eval = eval
		}
	}
}

// WithInterpreter replaces the underlying mustache interpreter, for example
// to share its parse cache or to configure partials.
func WithInterpreter(interp *core.Interpreter) Option {
	return func(r *Renderer) {
		if interp != nil {
			r.interp = interp
		}
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

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logging.OrNop(logger)
	}
}

// Renderer renders mustache templates. It is safe for concurrent use.
type Renderer struct {
	eval   expr.Evaluator
	interp *core.Interpreter
	ids    rnd.Generator
	logger *slog.Logger
}

// New constructs a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		ids:    rnd.ShortID,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.eval == nil {
		r.eval = expr.New()
	}
	if r.interp == nil {
		r.interp = core.New()
	}
	return r
}

// Render renders template against vars. vars is never modified.
func (r *Renderer) Render(ctx context.Context, template string, vars map[string]any, translations i18n.Translations) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	env := rnd.Substitute(vars, r.ids)
	h := &helpers{env: env, eval: r.eval, translations: translations}
	env["if"] = core.Lambda(h.ifHelper)
	env["var"] = core.Lambda(h.varHelper)
	env["eval"] = core.Lambda(h.evalHelper)
	env["I18n"] = core.Lambda(h.i18nHelper)
	env["each"] = core.Lambda(h.eachHelper)
	env["for"] = core.Lambda(h.forHelper)

	out, err := r.interp.Render(template, env)
	if err != nil {
		r.logger.Debug("mustache render failed", "error", err)
		return "", err
	}
	return out, nil
}

// Reset drops the parsed template cache.
func (r *Renderer) Reset() {
	r.interp.Clear()
}
