package widgets

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var definitionSchemaJSON []byte

const definitionSchemaURL = "widget.schema.json"

var (
	definitionSchemaOnce sync.Once
	definitionSchema     *jsonschema.Schema
	definitionSchemaErr  error
)

// Schema returns the JSON Schema definitions are validated against.
func Schema() []byte {
	return append([]byte(nil), definitionSchemaJSON...)
}

func compiledSchema() (*jsonschema.Schema, error) {
	definitionSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft7
		if err := compiler.AddResource(definitionSchemaURL, bytes.NewReader(definitionSchemaJSON)); err != nil {
			definitionSchemaErr = fmt.Errorf("widgets: add schema resource: %w", err)
			return
		}
		definitionSchema, definitionSchemaErr = compiler.Compile(definitionSchemaURL)
	})
	return definitionSchema, definitionSchemaErr
}

// validateDocument validates a decoded document. Numbers are normalised
// through a JSON round trip first so YAML integers validate as numbers.
func validateDocument(doc any, source string) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("widgets: %s: encode document: %w", source, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return fmt.Errorf("widgets: %s: decode document: %w", source, err)
	}

	err = schema.Validate(instance)
	if err == nil {
		return nil
	}
	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("widgets: %s: %w", source, err)
	}
	issues := collectIssues(validationErr, nil)
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Path < issues[j].Path })
	return &ValidationError{Source: source, Issues: issues, Err: ErrInvalidDefinition}
}

// collectIssues flattens the leaves of a validation error tree.
func collectIssues(err *jsonschema.ValidationError, out []Issue) []Issue {
	if len(err.Causes) == 0 {
		return append(out, Issue{
			Path:    pointerToPath(err.InstanceLocation),
			Message: err.Message,
		})
	}
	for _, cause := range err.Causes {
		out = collectIssues(cause, out)
	}
	return out
}

func pointerToPath(pointer string) string {
	if pointer == "" || pointer == "/" {
		return ""
	}
	pointer = strings.TrimPrefix(pointer, "/")
	return strings.ReplaceAll(pointer, "/", ".")
}
