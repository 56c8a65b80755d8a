package expr

import (
	"strings"

	"github.com/goliatone/go-widgets/pkg/cache"
)

// Evaluator evaluates an expression with the keys of vars available as free
// variables.
type Evaluator interface {
	Evaluate(vars map[string]any, expression string) (any, error)
}

// Program is a parsed list of statements ready to run against a scope.
// Programs are immutable and safe to run concurrently.
type Program struct {
	source string
	body   []node
}

// Parse parses src as a program. A top-level return ends the program with
// its value.
func Parse(src string) (*Program, error) {
	body, err := parseSource(src, true)
	if err != nil {
		return nil, err
	}
	return &Program{source: src, body: body}, nil
}

// Source returns the text the program was parsed from.
func (p *Program) Source() string { return p.source }

// Run executes the program in scope and returns the value of the last
// expression statement, or the returned value.
func (p *Program) Run(scope *Scope) (any, error) {
	if scope == nil {
		scope = NewScope(nil)
	}
	in := &interp{src: p.source}
	return in.run(p.body, scope)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithCache shares a parsed program cache between interpreters.
func WithCache(store *cache.Store[*Program]) Option {
	return func(i *Interpreter) {
		if store != nil {
			i.programs = store
		}
	}
}

// WithStrictAssignments rejects assignments to undeclared identifiers.
func WithStrictAssignments(strict bool) Option {
	return func(i *Interpreter) {
		i.strict = strict
	}
}

// Interpreter is the default Evaluator.
type Interpreter struct {
	programs *cache.Store[*Program]
	strict   bool
}

var _ Evaluator = (*Interpreter)(nil)

// New constructs an Interpreter with its own parse cache.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	if i.programs == nil {
		i.programs = cache.NewStore[*Program]()
	}
	return i
}

// Compile parses src, reusing a cached program when one exists.
func (i *Interpreter) Compile(src string) (*Program, error) {
	return i.programs.GetOrLoad(src, func() (*Program, error) {
		return Parse(src)
	})
}

// Evaluate implements Evaluator. Assignments made by the expression write
// into vars.
func (i *Interpreter) Evaluate(vars map[string]any, expression string) (any, error) {
	if strings.TrimSpace(expression) == "" {
		return Undefined, nil
	}
	prog, err := i.Compile(expression)
	if err != nil {
		return nil, err
	}
	var opts []ScopeOption
	if i.strict {
		opts = append(opts, Strict())
	}
	return prog.Run(NewScope(vars, opts...))
}

var defaultInterpreter = New()

// Evaluate evaluates expression with the package default Interpreter.
func Evaluate(vars map[string]any, expression string) (any, error) {
	return defaultInterpreter.Evaluate(vars, expression)
}
