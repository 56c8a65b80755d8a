package widgets

import (
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValidateDocument_YAMLNumbers(t *testing.T) {
	t.Parallel()

	src := "key: x\nname: x\nversion: '1'\nauthor: a\ntemplate: t\nparameters:\n" +
		"  - name: size\n    title: Size\n    type: select\n    value: 2\n" +
		"    options:\n      - {text: Small, value: 1}\n      - {text: Large, value: 2.5}\n"
	var doc any
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if err := validateDocument(doc, "numbers.yaml"); err != nil {
		t.Fatalf("validateDocument: %v", err)
	}
}

func TestValidateDocument_ReportsIssuePaths(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"key": "x", "name": "x", "version": "1", "author": "a", "template": "t",
		"parameters": []any{
			map[string]any{"name": "a", "title": "A", "options": []any{map[string]any{"value": []any{1}}}},
		},
	}
	err := validateDocument(doc, "inline.json")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || !errors.Is(err, ErrInvalidDefinition) {
		t.Fatalf("expected *ValidationError wrapping ErrInvalidDefinition, got %v", err)
	}
	for _, issue := range validationErr.Issues {
		if issue.Path == "parameters.0.options.0" || issue.Path == "parameters.0.options.0.value" {
			return
		}
	}
	t.Fatalf("expected an issue under parameters.0.options.0, got %+v", validationErr.Issues)
}

func TestSchema_ReturnsCopy(t *testing.T) {
	t.Parallel()

	a := Schema()
	a[0] = 'x'
	if Schema()[0] != '{' {
		t.Fatalf("Schema returned shared bytes")
	}
}
