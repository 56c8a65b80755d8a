package widgets

import (
	"maps"

	"github.com/goliatone/go-widgets/pkg/visibility"
	visexpr "github.com/goliatone/go-widgets/pkg/visibility/expr"
)

// Visible reports which parameters are shown for values. Parameters
// without a when condition are always visible.
func (d Definition) Visible(values map[string]any) (map[string]bool, error) {
	return d.VisibleWith(values, nil)
}

// VisibleWith is Visible using eval, or the expression evaluator when nil.
func (d Definition) VisibleWith(values map[string]any, eval visibility.Evaluator) (map[string]bool, error) {
	if eval == nil {
		eval = visexpr.New()
	}
	vars := make(map[string]any, len(d.Parameters)+len(values))
	for _, p := range d.Parameters {
		vars[p.Name] = p.Value
	}
	maps.Copy(vars, values)

	out := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if visibility.Rule(p.When) == "" {
			out[p.Name] = true
			continue
		}
		ok, err := eval.Eval(p.Name, p.When, visibility.Context{Values: vars})
		if err != nil {
			return nil, &ValidationError{
				Source: d.Key,
				Issues: []Issue{{Path: p.Name, Message: err.Error()}},
				Err:    ErrInvalidDefinition,
			}
		}
		out[p.Name] = ok
	}
	return out, nil
}
