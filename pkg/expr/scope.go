package expr

// Scope is one level of the identifier environment. Lookups walk from the
// innermost scope outwards and end at the builtin globals.
type Scope struct {
	vars     map[string]any
	consts   map[string]struct{}
	parent   *Scope
	function bool
	strict   bool
}

// ScopeOption configures a root scope.
type ScopeOption func(*Scope)

// Strict makes assignments to undeclared identifiers fail with a
// ReferenceError instead of creating a binding in the root scope.
func Strict() ScopeOption {
	return func(s *Scope) {
		s.strict = true
	}
}

// NewScope returns a root scope over vars. The map is used directly:
// declarations and assignments made by evaluated code write into it.
func NewScope(vars map[string]any, opts ...ScopeOption) *Scope {
	if vars == nil {
		vars = map[string]any{}
	}
	s := &Scope{vars: vars, parent: globalScope, function: true}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Child returns a nested scope whose bindings shadow the receiver's.
// A nil vars map starts empty.
func (s *Scope) Child(vars map[string]any) *Scope {
	if vars == nil {
		vars = map[string]any{}
	}
	return &Scope{vars: vars, parent: s, strict: s.strict}
}

// Function returns a nested scope that receives var declarations.
func (s *Scope) Function(vars map[string]any) *Scope {
	child := s.Child(vars)
	child.function = true
	return child
}

// Get resolves name through the scope chain.
func (s *Scope) Get(name string) (any, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set binds name in this scope, replacing any existing binding.
func (s *Scope) Set(name string, value any) {
	s.vars[name] = value
}

// Vars exposes the bindings held directly by this scope.
func (s *Scope) Vars() map[string]any { return s.vars }

func (s *Scope) lookup(name string) *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			return cur
		}
	}
	return nil
}

func (s *Scope) nearestFunction() *Scope {
	cur := s
	for cur.parent != nil && !cur.function {
		cur = cur.parent
	}
	return cur
}

// root returns the outermost scope below the globals.
func (s *Scope) root() *Scope {
	cur := s
	for cur.parent != nil && cur.parent != globalScope {
		cur = cur.parent
	}
	return cur
}

func (s *Scope) declare(kind, name string, value any, pos position) {
	target := s
	if kind == "var" {
		target = s.nearestFunction()
	}
	if target == globalScope {
		throwf(ErrReference, pos, "cannot declare %s in the global scope", name)
	}
	if _, isConst := target.consts[name]; isConst {
		throwf(ErrType, pos, "assignment to constant variable %s", name)
	}
	target.vars[name] = value
	if kind == "const" {
		if target.consts == nil {
			target.consts = map[string]struct{}{}
		}
		target.consts[name] = struct{}{}
	}
}

func (s *Scope) assign(name string, value any, pos position) {
	target := s.lookup(name)
	if target == globalScope {
		// globals are shadowed, never overwritten
		target = nil
	}
	if target == nil {
		if s.strict {
			throwf(ErrReference, pos, "%s is not defined", name)
		}
		target = s.root()
	}
	if _, isConst := target.consts[name]; isConst {
		throwf(ErrType, pos, "assignment to constant variable %s", name)
	}
	target.vars[name] = value
}
