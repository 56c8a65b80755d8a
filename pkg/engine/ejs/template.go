package ejs

import (
	"fmt"
	"maps"

	"github.com/goliatone/go-widgets/pkg/expr"
)

// MaxIncludeDepth bounds nested includes.
const MaxIncludeDepth = 32

// IncludeFunc renders the template at path with the current locals
// overridden by data.
type IncludeFunc func(path string, data map[string]any) (string, error)

// RenderFunc is a compiled template. It can be invoked any number of times,
// concurrently.
type RenderFunc func(locals map[string]any, escape EscapeFunc, include IncludeFunc, rethrow RethrowFunc) (string, error)

// Template is a compiled template.
type Template struct {
	text    string
	source  string
	program *expr.Program
	opts    Options
	fn      RenderFunc
}

// Source returns the generated program source.
func (t *Template) Source() string { return t.source }

// Filename returns the filename the template was compiled with.
func (t *Template) Filename() string { return t.opts.Filename }

// Fn returns the compiled render function.
func (t *Template) Fn() RenderFunc { return t.fn }

// Execute renders the template with locals. locals is not modified.
func (t *Template) Execute(locals map[string]any) (string, error) {
	return t.execute(locals, 0)
}

func (t *Template) execute(locals map[string]any, depth int) (string, error) {
	var rethrow RethrowFunc
	if t.opts.CompileDebug {
		rethrow = Rethrow
	}
	return t.fn(locals, t.opts.Escape, t.includer(locals, depth), rethrow)
}

func (t *Template) run(locals map[string]any, escape EscapeFunc, include IncludeFunc, rethrow RethrowFunc) (string, error) {
	env := maps.Clone(locals)
	if env == nil {
		env = map[string]any{}
	}
	if escape == nil {
		escape = EscapeXML
	}

	var root *expr.Scope
	if t.opts.Strict {
		root = expr.NewScope(nil, expr.Strict())
	} else {
		root = expr.NewScope(env)
	}
	scope := root.Function(map[string]any{
		t.opts.LocalsName: env,
		"escapeFn": expr.NativeFunc(func(args ...any) (any, error) {
			if len(args) == 0 || expr.IsNullish(args[0]) {
				return "", nil
			}
			return escape(expr.ToString(args[0])), nil
		}),
		"include": expr.NativeFunc(func(args ...any) (any, error) {
			if include == nil {
				return nil, fmt.Errorf("%w: include is not available", ErrInclude)
			}
			if len(args) == 0 {
				return nil, fmt.Errorf("%w: include needs a path", ErrInclude)
			}
			var data map[string]any
			if len(args) > 1 {
				data, _ = args[1].(map[string]any)
			}
			return include(expr.ToString(args[0]), data)
		}),
	})

	out, err := t.program.Run(scope)
	if err != nil {
		if rethrow == nil {
			return "", err
		}
		line := 0
		if v, ok := scope.Get("__line"); ok {
			line = int(expr.ToNumber(v))
		}
		return "", rethrow(err, t.text, t.opts.Filename, line)
	}
	return expr.ToString(out), nil
}

// includer returns the include function for one execution.
func (t *Template) includer(locals map[string]any, depth int) IncludeFunc {
	return func(name string, data map[string]any) (string, error) {
		if depth+1 > MaxIncludeDepth {
			return "", fmt.Errorf("%w: %q exceeds the include depth of %d", ErrInclude, name, MaxIncludeDepth)
		}
		if t.opts.Loader == nil {
			return "", fmt.Errorf("%w: %q: no loader configured", ErrInclude, name)
		}
		resolved, err := ResolveInclude(name, t.opts.Filename)
		if err != nil {
			return "", err
		}
		text, err := t.opts.Loader.Load(resolved)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %w", ErrInclude, name, err)
		}

		opts := t.opts
		opts.Filename = resolved
		child, err := Compile(text, opts)
		if err != nil {
			return "", err
		}

		merged := maps.Clone(locals)
		if merged == nil {
			merged = map[string]any{}
		}
		maps.Copy(merged, data)
		return child.execute(merged, depth+1)
	}
}
