package widgets

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-widgets/pkg/widgets/transform"
)

// Parse decodes and validates one definition document. source names the
// document in errors.
func Parse(data []byte, source string) (Definition, error) {
	doc, err := parseDocument(data, source)
	if err != nil {
		return Definition{}, err
	}
	if err := validateDocument(doc, source); err != nil {
		return Definition{}, err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return Definition{}, fmt.Errorf("widgets: %s: encode document: %w", source, err)
	}
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("widgets: %s: decode definition: %w", source, err)
	}
	def.Source = source
	def.Key = strings.TrimSpace(def.Key)
	def.Icon = SanitizeIcon(def.Icon)
	if err := checkParameters(def); err != nil {
		return Definition{}, err
	}
	return def, nil
}

// checkParameters reports what the schema cannot: duplicate names and
// unknown transforms.
func checkParameters(def Definition) error {
	var issues []Issue
	seen := make(map[string]struct{}, len(def.Parameters))
	for i, p := range def.Parameters {
		path := fmt.Sprintf("parameters.%d", i)
		if _, dup := seen[p.Name]; dup {
			issues = append(issues, Issue{Path: path + ".name", Message: fmt.Sprintf("duplicate parameter %q", p.Name)})
		}
		seen[p.Name] = struct{}{}
		if err := transform.Validate(p.Transform); err != nil {
			issues = append(issues, Issue{Path: path + ".transform", Message: err.Error()})
		}
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Source: def.Source, Issues: issues, Err: ErrInvalidDefinition}
}

// LoadFS walks fsys and loads every .yml, .yaml and .json file into a new
// Registry. A nil fsys yields an empty registry.
func LoadFS(fsys fs.FS) (*Registry, error) {
	registry := NewRegistry()
	if fsys == nil {
		return registry, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("widgets: read %s: %w", path, err)
		}
		def, err := Parse(data, path)
		if err != nil {
			return err
		}
		return registry.Register(def)
	})
	if err != nil {
		return nil, err
	}
	return registry, nil
}

func parseDocument(data []byte, source string) (map[string]any, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("widgets: file %s is empty", source)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("widgets: parse %s: invalid JSON or YAML: %w", source, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("widgets: parse %s: document is not a mapping", source)
	}
	return doc, nil
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
