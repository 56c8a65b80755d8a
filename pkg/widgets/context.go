package widgets

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/rnd"
	"github.com/goliatone/go-widgets/pkg/widgets/transform"
)

// LangKey is the context key holding the render language.
const LangKey = "LANG"

const colorPattern = `^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`

// Context builds the render context: parameter defaults overlaid with
// values, each coerced to its parameter type, validated and transformed.
// Keys of values that match no parameter are passed through. LANG is set
// to lang, or kept from values, or defaults to "en".
func (d Definition) Context(values map[string]any, lang string) (map[string]any, error) {
	ctx := make(map[string]any, len(d.Parameters)+len(values)+1)
	for _, p := range d.Parameters {
		ctx[p.Name] = p.Value
	}
	maps.Copy(ctx, values)

	var issues []Issue
	for _, p := range d.Parameters {
		value, err := p.coerce(ctx[p.Name])
		if err == nil {
			err = p.validate(value)
		}
		if err == nil {
			value, err = p.transform(value)
		}
		if err != nil {
			issues = append(issues, Issue{Path: p.Name, Message: err.Error()})
			continue
		}
		ctx[p.Name] = value
	}
	if len(issues) > 0 {
		return nil, &ValidationError{Source: d.Key, Issues: issues, Err: ErrInvalidValue}
	}

	switch {
	case lang != "":
		ctx[LangKey] = lang
	case ctx[LangKey] == nil:
		ctx[LangKey] = i18n.DefaultLanguage
	}
	return ctx, nil
}

// coerce converts form style values (strings from query strings, flags or
// prompts) to the parameter type.
func (p Parameter) coerce(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if s, ok := value.(string); ok && s == rnd.Sentinel {
		return s, nil
	}
	switch p.Kind() {
	case TypeNumeric:
		if s, ok := value.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, nil
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is not a number", s)
			}
			return f, nil
		}
		if b, ok := value.(bool); ok {
			return nil, fmt.Errorf("%t is not a number", b)
		}
		return expr.ToNumber(value), nil
	case TypeCheckbox:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "on", "yes", "1":
				return true, nil
			case "false", "off", "no", "0", "":
				return false, nil
			}
			return nil, fmt.Errorf("%q is not a boolean", v)
		}
		return expr.Truthy(value), nil
	default:
		if s, ok := value.(string); ok {
			return s, nil
		}
		return expr.ToString(value), nil
	}
}

// schema returns the OpenAPI schema values of the parameter must satisfy.
func (p Parameter) schema() *openapi3.Schema {
	switch p.Kind() {
	case TypeNumeric:
		return openapi3.NewFloat64Schema()
	case TypeCheckbox:
		return openapi3.NewBoolSchema()
	case TypeSelect:
		s := openapi3.NewStringSchema()
		if len(p.Options) > 0 {
			enum := make([]any, len(p.Options))
			for i, o := range p.Options {
				enum[i] = o.Value
			}
			s = s.WithEnum(enum...)
		}
		return s
	case TypeColor:
		return openapi3.NewStringSchema().WithPattern(colorPattern)
	default:
		return openapi3.NewStringSchema()
	}
}

func (p Parameter) validate(value any) error {
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok && (s == "" || s == rnd.Sentinel) {
		return nil
	}
	if err := p.schema().VisitJSON(value); err != nil {
		var schemaErr *openapi3.SchemaError
		if errors.As(err, &schemaErr) && schemaErr.Reason != "" {
			return errors.New(schemaErr.Reason)
		}
		return err
	}
	return nil
}

func (p Parameter) transform(value any) (any, error) {
	s, ok := value.(string)
	if !ok || p.Transform == "" || s == rnd.Sentinel {
		return value, nil
	}
	return transform.Apply(p.Transform, s)
}
