package mustache

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/goliatone/go-widgets/pkg/cache"
	"github.com/goliatone/go-widgets/pkg/expr"
)

// RenderFunc renders template text against the context of the section that
// invoked a lambda.
type RenderFunc func(text string) (string, error)

// Lambda is a section helper. It receives the raw section text and a render
// function bound to the current context. Its output is inserted verbatim.
type Lambda func(text string, render RenderFunc) (string, error)

// PartialLoader resolves partial templates by name.
type PartialLoader interface {
	LoadPartial(name string) (string, bool)
}

// Partials is a map backed PartialLoader.
type Partials map[string]string

func (p Partials) LoadPartial(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Template is a parsed template.
type Template struct {
	source string
	nodes  []node
}

// Parse parses src with the default {{ }} delimiters.
func Parse(src string) (*Template, error) {
	nodes, err := parse(src, defaultDelimiters)
	if err != nil {
		return nil, err
	}
	return &Template{source: src, nodes: nodes}, nil
}

// Source returns the template text.
func (t *Template) Source() string { return t.source }

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithPartials sets the partial loader.
func WithPartials(loader PartialLoader) Option {
	return func(i *Interpreter) {
		i.partials = loader
	}
}

// WithCache shares the parsed template cache.
func WithCache(store *cache.Store[*Template]) Option {
	return func(i *Interpreter) {
		if store != nil {
			i.templates = store
		}
	}
}

// Interpreter renders templates, caching parsed templates by content.
type Interpreter struct {
	templates *cache.Store[*Template]
	partials  PartialLoader
}

// New constructs an Interpreter.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	if i.templates == nil {
		i.templates = cache.NewStore[*Template]()
	}
	return i
}

// Render renders src against data, which is usually a map[string]any.
func (i *Interpreter) Render(src string, data any) (string, error) {
	nodes, err := i.parse(src, defaultDelimiters)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	r := &renderer{interp: i}
	if err := r.render(&b, nodes, []any{data}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Clear drops every cached template.
func (i *Interpreter) Clear() {
	i.templates.Clear()
}

func (i *Interpreter) parse(src string, delim delimiters) ([]node, error) {
	sum := blake3.Sum256([]byte(src))
	key := fmt.Sprintf("%s %s %x", delim.open, delim.close, sum[:16])
	tpl, err := i.templates.GetOrLoad(key, func() (*Template, error) {
		nodes, err := parse(src, delim)
		if err != nil {
			return nil, err
		}
		return &Template{source: src, nodes: nodes}, nil
	})
	if err != nil {
		return nil, err
	}
	return tpl.nodes, nil
}

type renderer struct {
	interp *Interpreter
}

func (r *renderer) render(b *strings.Builder, nodes []node, stack []any) error {
	for _, n := range nodes {
		switch n := n.(type) {
		case *textNode:
			b.WriteString(n.text)
		case *varNode:
			if err := r.variable(b, n, stack); err != nil {
				return err
			}
		case *sectionNode:
			if err := r.section(b, n, stack); err != nil {
				return err
			}
		case *partialNode:
			if err := r.partial(b, n, stack); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *renderer) variable(b *strings.Builder, n *varNode, stack []any) error {
	value, _ := lookup(stack, n.name)
	if lambda, ok := asLambda(value); ok {
		out, err := lambda("", r.renderFunc(stack, defaultDelimiters))
		if err != nil {
			return err
		}
		value = out
	}
	if expr.IsNullish(value) {
		return nil
	}
	s := expr.ToString(value)
	if !n.raw {
		s = EscapeHTML(s)
	}
	b.WriteString(s)
	return nil
}

func (r *renderer) section(b *strings.Builder, n *sectionNode, stack []any) error {
	value, _ := lookup(stack, n.name)

	if n.inverted {
		if falsy(value) {
			return r.render(b, n.children, stack)
		}
		return nil
	}

	if lambda, ok := asLambda(value); ok {
		out, err := lambda(n.text, r.renderFunc(stack, n.delim))
		if err != nil {
			return fmt.Errorf("mustache: section %q: %w", n.name, err)
		}
		b.WriteString(out)
		return nil
	}

	if falsy(value) {
		return nil
	}
	if items, ok := list(value); ok {
		for _, item := range items {
			if err := r.render(b, n.children, push(stack, item)); err != nil {
				return err
			}
		}
		return nil
	}
	if _, ok := value.(bool); ok {
		return r.render(b, n.children, stack)
	}
	return r.render(b, n.children, push(stack, value))
}

func (r *renderer) partial(b *strings.Builder, n *partialNode, stack []any) error {
	if r.interp.partials == nil {
		return nil
	}
	src, ok := r.interp.partials.LoadPartial(n.name)
	if !ok || src == "" {
		return nil
	}
	if n.indent != "" {
		src = indent(src, n.indent)
	}
	nodes, err := r.interp.parse(src, defaultDelimiters)
	if err != nil {
		return fmt.Errorf("mustache: partial %q: %w", n.name, err)
	}
	return r.render(b, nodes, stack)
}

func (r *renderer) renderFunc(stack []any, delim delimiters) RenderFunc {
	frozen := append([]any(nil), stack...)
	return func(text string) (string, error) {
		nodes, err := r.interp.parse(text, delim)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		if err := r.render(&b, nodes, frozen); err != nil {
			return "", err
		}
		return b.String(), nil
	}
}

func indent(src, prefix string) string {
	lines := strings.SplitAfter(src, "\n")
	var b strings.Builder
	for _, line := range lines {
		if line == "" {
			continue
		}
		b.WriteString(prefix)
		b.WriteString(line)
	}
	return b.String()
}

func push(stack []any, value any) []any {
	next := make([]any, len(stack), len(stack)+1)
	copy(next, stack)
	return append(next, value)
}

func asLambda(v any) (Lambda, bool) {
	switch fn := v.(type) {
	case Lambda:
		return fn, fn != nil
	case func(string, RenderFunc) (string, error):
		return fn, fn != nil
	}
	return nil, false
}

func falsy(v any) bool {
	if items, ok := list(v); ok {
		return len(items) == 0
	}
	return !expr.Truthy(v)
}

// list returns the items of slice values.
func list(v any) ([]any, bool) {
	switch val := v.(type) {
	case []any:
		return val, true
	case *expr.Array:
		return val.Elems, true
	case nil, string, []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// lookup resolves a possibly dotted name against the context stack, top
// first. Once the first segment resolves, the rest must resolve from there.
func lookup(stack []any, name string) (any, bool) {
	if name == "." {
		if len(stack) == 0 {
			return nil, false
		}
		return stack[len(stack)-1], true
	}
	first, rest, dotted := strings.Cut(name, ".")
	for i := len(stack) - 1; i >= 0; i-- {
		value, ok := member(stack[i], first)
		if !ok {
			continue
		}
		if !dotted {
			return value, true
		}
		for _, segment := range strings.Split(rest, ".") {
			value, ok = member(value, segment)
			if !ok {
				return nil, false
			}
		}
		return value, true
	}
	return nil, false
}

func member(ctx any, name string) (any, bool) {
	switch c := ctx.(type) {
	case map[string]any:
		v, ok := c[name]
		return v, ok
	case map[string]string:
		v, ok := c[name]
		return v, ok
	case expr.Getter:
		return c.Get(name)
	}
	if items, ok := list(ctx); ok {
		idx := 0
		for _, ch := range name {
			if ch < '0' || ch > '9' {
				return nil, false
			}
			idx = idx*10 + int(ch-'0')
		}
		if name == "" || idx >= len(items) {
			return nil, false
		}
		return items[idx], true
	}
	if ctx == nil {
		return nil, false
	}
	rv := reflect.ValueOf(ctx)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		f := rv.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), true
		}
	}
	return nil, false
}
