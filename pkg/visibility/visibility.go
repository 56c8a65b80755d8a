// Package visibility decides which widget parameters are shown, from the
// `when` rules of their definitions.
package visibility

import "strings"

// Evaluator determines whether a parameter should be visible based on a rule
// string and the current values.
type Evaluator interface {
	Eval(name, rule string, ctx Context) (bool, error)
}

// Context provides inputs to an Evaluator. Values holds the parameter values
// while Extras lets callers inject data such as user roles or feature flags,
// reachable from rules as extras.name.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(name, rule string, ctx Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(name, rule string, ctx Context) (bool, error) {
	return fn(name, rule, ctx)
}

// Rule strips the mustache braces wrapping a when rule.
func Rule(when string) string {
	s := strings.TrimSpace(when)
	if strings.HasPrefix(s, "{{") && strings.HasSuffix(s, "}}") {
		s = strings.TrimSpace(s[2 : len(s)-2])
	}
	return s
}
