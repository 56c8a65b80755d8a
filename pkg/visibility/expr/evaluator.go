// Package expr evaluates visibility rules with the widget expression
// evaluator.
package expr

import (
	"fmt"
	"maps"

	core "github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/visibility"
)

// ExtrasKey names Context.Extras inside rules.
const ExtrasKey = "extras"

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithEvaluator swaps the expression backend, for example for the
// expr-lang evaluator.
func WithEvaluator(eval core.Evaluator) Option {
	return func(e *Evaluator) {
		if eval != nil {
			e.eval = eval
		}
	}
}

// Evaluator evaluates rules as expressions over the parameter values and
// reports whether the result is truthy. Empty rules are always visible.
type Evaluator struct {
	eval core.Evaluator
}

var _ visibility.Evaluator = (*Evaluator)(nil)

func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.eval == nil {
		e.eval = core.New()
	}
	return e
}

func (e *Evaluator) Eval(name, rule string, ctx visibility.Context) (bool, error) {
	src := visibility.Rule(rule)
	if src == "" {
		return true, nil
	}

	vars := maps.Clone(ctx.Values)
	if vars == nil {
		vars = map[string]any{}
	}
	if len(ctx.Extras) > 0 {
		vars[ExtrasKey] = maps.Clone(ctx.Extras)
	}

	value, err := e.eval.Evaluate(vars, src)
	if err != nil {
		return false, fmt.Errorf("visibility: %s: %w", name, err)
	}
	return core.Truthy(value), nil
}
