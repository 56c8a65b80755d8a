// Package exprlang provides an expr.Evaluator backed by expr-lang/expr.
//
// The backend only evaluates pure expressions. Template helpers that assign
// variables split the assignment themselves, so either backend can serve the
// mustache engine.
package exprlang

import (
	"fmt"
	"slices"
	"strings"

	exprlang "github.com/expr-lang/expr"
	"github.com/expr-lang/expr/builtin"
	"github.com/expr-lang/expr/vm"

	"github.com/goliatone/go-widgets/pkg/cache"
	"github.com/goliatone/go-widgets/pkg/expr"
)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCache shares a compiled program cache.
func WithCache(store *cache.Store[*vm.Program]) Option {
	return func(e *Evaluator) {
		if store != nil {
			e.programs = store
		}
	}
}

// WithFunction registers a helper function available to every expression.
func WithFunction(name string, fn func(params ...any) (any, error)) Option {
	return func(e *Evaluator) {
		if name == "" || fn == nil {
			return
		}
		e.options = append(e.options, exprlang.Function(name, fn))
	}
}

// Evaluator compiles expressions with expr-lang and runs them against the
// variables map.
type Evaluator struct {
	programs *cache.Store[*vm.Program]
	options  []exprlang.Option
}

var _ expr.Evaluator = (*Evaluator)(nil)

// New constructs an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.programs == nil {
		e.programs = cache.NewStore[*vm.Program]()
	}
	return e
}

// Evaluate implements expr.Evaluator.
func (e *Evaluator) Evaluate(vars map[string]any, expression string) (any, error) {
	source := strings.TrimSpace(expression)
	if source == "" {
		return expr.Undefined, nil
	}

	shadowed := shadowedBuiltins(vars)
	key := source
	if len(shadowed) > 0 {
		key = strings.Join(shadowed, ",") + "\x00" + source
	}
	program, err := e.programs.GetOrLoad(key, func() (*vm.Program, error) {
		opts := slices.Clone(e.options)
		for _, name := range shadowed {
			opts = append(opts, exprlang.DisableBuiltin(name))
		}
		return exprlang.Compile(source, opts...)
	})
	if err != nil {
		return nil, &expr.EvaluationError{
			Expression: source,
			Err:        fmt.Errorf("%w: %v", expr.ErrSyntax, err),
		}
	}

	env := vars
	if env == nil {
		env = map[string]any{}
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return nil, &expr.EvaluationError{
			Expression: source,
			Err:        fmt.Errorf("%w: %v", expr.ErrType, err),
		}
	}
	return out, nil
}

// shadowedBuiltins lists the variable names that collide with expr-lang
// builtins, sorted. Variables win over builtins.
func shadowedBuiltins(vars map[string]any) []string {
	var names []string
	for name := range vars {
		if _, ok := builtin.Index[name]; ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}
