package prompt

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

var colorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Collect asks for every visible parameter of def in order, starting from
// the values already given. Visibility is re-evaluated after each answer,
// so a checkbox can reveal the parameters that depend on it. The returned
// map holds the answers merged over values.
func Collect(ctx context.Context, driver Driver, def widgets.Definition, values map[string]any) (map[string]any, error) {
	answers := maps.Clone(values)
	if answers == nil {
		answers = map[string]any{}
	}

	for _, p := range def.Parameters {
		visible, err := def.Visible(answers)
		if err != nil {
			return nil, err
		}
		if !visible[p.Name] {
			continue
		}

		current, ok := answers[p.Name]
		if !ok {
			current = p.Value
		}
		answer, skip, err := ask(ctx, driver, p, current)
		if err != nil {
			return nil, fmt.Errorf("prompt: %s: %w", p.Name, err)
		}
		if skip {
			continue
		}
		answers[p.Name] = answer
	}
	return answers, nil
}

func ask(ctx context.Context, driver Driver, p widgets.Parameter, current any) (any, bool, error) {
	message := p.Title
	if message == "" {
		message = p.Name
	}
	help := p.Transform
	if help != "" {
		help = "applied: " + help
	}

	switch p.Kind() {
	case widgets.TypeInfo:
		return nil, true, driver.Info(ctx, message)

	case widgets.TypeCheckbox:
		v, err := driver.Confirm(ctx, ConfirmConfig{Message: message, Default: expr.Truthy(current), Help: help})
		return v, false, err

	case widgets.TypeSelect, widgets.TypeAutocomplete:
		if len(p.Options) == 0 {
			break
		}
		texts := make([]string, len(p.Options))
		def := -1
		for i, o := range p.Options {
			texts[i] = o.Text
			if o.Value == expr.ToString(current) {
				def = i
			}
		}
		idx, err := driver.Select(ctx, SelectConfig{Message: message, Options: texts, DefaultIndex: def, Help: help})
		if err != nil {
			return nil, false, err
		}
		if idx < 0 || idx >= len(p.Options) {
			return nil, false, fmt.Errorf("selection %d out of range", idx)
		}
		return p.Options[idx].Value, false, nil

	case widgets.TypeTextarea:
		v, err := driver.TextArea(ctx, TextAreaConfig{Message: message, Default: defaultText(current), Help: help})
		return v, false, err

	case widgets.TypeNumeric:
		v, err := driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   defaultText(current),
			Help:      help,
			Validator: validateNumber,
		})
		return v, false, err

	case widgets.TypeColor:
		v, err := driver.Input(ctx, InputConfig{
			Message:   message,
			Default:   defaultText(current),
			Help:      help,
			Validator: validateColor,
		})
		return v, false, err
	}

	v, err := driver.Input(ctx, InputConfig{Message: message, Default: defaultText(current), Help: help})
	return v, false, err
}

func defaultText(v any) string {
	if expr.IsNullish(v) {
		return ""
	}
	return expr.ToString(v)
}

func validateNumber(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return fmt.Errorf("%q is not a number", s)
	}
	return nil
}

func validateColor(s string) error {
	if s == "" || colorRe.MatchString(s) {
		return nil
	}
	return fmt.Errorf("%q is not a #hex color", s)
}
