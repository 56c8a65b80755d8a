package widgets

import (
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/i18n"
)

// ParameterType selects the editor control and the validation applied to a
// parameter value.
type ParameterType string

const (
	TypeText         ParameterType = "text"
	TypeTextarea     ParameterType = "textarea"
	TypeNumeric      ParameterType = "numeric"
	TypeCheckbox     ParameterType = "checkbox"
	TypeSelect       ParameterType = "select"
	TypeColor        ParameterType = "color"
	TypeImage        ParameterType = "image"
	TypeAutocomplete ParameterType = "autocomplete"
	TypeInfo         ParameterType = "info"
)

// Option is one choice of a select or autocomplete parameter. In documents
// it is either a plain string or an object with text and value.
type Option struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

func (o *Option) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		o.Text, o.Value = plain, plain
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("widgets: option must be a string or an object: %w", err)
	}
	value, hasValue := obj["value"]
	text, hasText := obj["text"]
	switch {
	case hasValue && hasText:
		o.Text, o.Value = expr.ToString(text), expr.ToString(value)
	case hasValue:
		o.Value = expr.ToString(value)
		o.Text = o.Value
	case hasText:
		o.Text = expr.ToString(text)
		o.Value = o.Text
	}
	return nil
}

// Parameter describes one configurable widget value.
type Parameter struct {
	Name  string        `json:"name"`
	Title string        `json:"title"`
	Value any           `json:"value,omitempty"`
	Type  ParameterType `json:"type,omitempty"`
	// Options lists the choices of select and autocomplete parameters.
	Options []Option `json:"options,omitempty"`
	// Bind names the DOM target of the value, "selector@attribute".
	Bind string `json:"bind,omitempty"`
	// Transform is a pipe separated list of transforms, see pkg/widgets/transform.
	Transform string `json:"transform,omitempty"`
	// When gates visibility with a mustache wrapped expression.
	When string `json:"when,omitempty"`
}

// Kind returns the parameter type, TypeText when unset.
func (p Parameter) Kind() ParameterType {
	if p.Type == "" {
		return TypeText
	}
	return p.Type
}

// Definition is a widget definition.
type Definition struct {
	Key        string            `json:"key"`
	Name       string            `json:"name"`
	Version    string            `json:"version"`
	Author     string            `json:"author"`
	Category   string            `json:"category,omitempty"`
	Icon       string            `json:"icon,omitempty"`
	Engine     string            `json:"engine,omitempty"`
	Template   string            `json:"template,omitempty"`
	Filter     string            `json:"filter,omitempty"`
	I18n       i18n.Translations `json:"i18n,omitempty"`
	Parameters []Parameter       `json:"parameters,omitempty"`

	// Source is the file the definition was loaded from.
	Source string `json:"-"`
}

// Parameter returns the parameter called name.
func (d Definition) Parameter(name string) (Parameter, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Renderable reports whether the definition has a template.
func (d Definition) Renderable() bool {
	return d.Template != ""
}
