package ejs

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
)

// DefaultExtension is appended to include paths without an extension.
const DefaultExtension = ".ejs"

// Loader resolves included templates by slash separated path.
type Loader interface {
	Load(name string) (string, error)
}

// FSLoader loads templates from a filesystem.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader returns a Loader reading from fsys.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

// Load implements Loader.
func (l *FSLoader) Load(name string) (string, error) {
	if l == nil || l.fsys == nil {
		return "", fmt.Errorf("ejs: load %s: no filesystem configured", name)
	}
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", fmt.Errorf("ejs: load %s: %w", name, err)
	}
	return string(data), nil
}

// MapLoader serves templates from memory.
type MapLoader map[string]string

// Load implements Loader.
func (m MapLoader) Load(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", fmt.Errorf("ejs: load %s: %w", name, fs.ErrNotExist)
	}
	return text, nil
}

// ResolveInclude resolves name against the including template's filename.
// Absolute names are taken from the loader root.
func ResolveInclude(name, filename string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty include path", ErrInclude)
	}

	var resolved string
	if strings.HasPrefix(name, "/") || filename == "" {
		resolved = path.Clean(strings.TrimPrefix(name, "/"))
	} else {
		resolved = path.Join(path.Dir(filename), name)
	}
	if path.Ext(resolved) == "" {
		resolved += DefaultExtension
	}
	if !fs.ValidPath(resolved) {
		return "", fmt.Errorf("%w: path %q escapes the template root", ErrInclude, name)
	}
	return resolved, nil
}
