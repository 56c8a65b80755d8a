package i18n

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse decodes a translation document. YAML and JSON share the layout
// key -> language -> text.
func Parse(data []byte, source string) (Translations, error) {
	var raw map[string]map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("i18n: parse %s: %w", source, err)
	}
	out := make(Translations, len(raw))
	for key, texts := range raw {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("i18n: %s defines an empty key", source)
		}
		entry := make(map[string]string, len(texts))
		for lang, text := range texts {
			switch v := text.(type) {
			case string:
				entry[lang] = v
			case nil:
				entry[lang] = ""
			default:
				entry[lang] = fmt.Sprint(v)
			}
		}
		out[key] = entry
	}
	return out, nil
}

// LoadFS reads every .yml, .yaml and .json file under fsys and merges them.
// Files are visited in lexical order, so later files win on conflicts.
func LoadFS(fsys fs.FS) (Translations, error) {
	out := Translations{}
	if fsys == nil {
		return out, nil
	}
	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isTranslationFile(p) {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", p, err)
		}
		parsed, err := Parse(data, p)
		if err != nil {
			return err
		}
		out = out.Merge(parsed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func isTranslationFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".yml", ".yaml", ".json":
		return true
	}
	return false
}
