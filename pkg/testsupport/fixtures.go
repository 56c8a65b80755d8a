// Package testsupport holds fixture and golden file helpers shared by the
// package tests.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-widgets/pkg/rnd"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

// UpdateEnv enables golden rewrites when set.
const UpdateEnv = "UPDATE_GOLDENS"

// LoadDefinition reads and validates a definition fixture.
func LoadDefinition(t *testing.T, path string) widgets.Definition {
	t.Helper()

	def, err := LoadDefinitionFromPath(path)
	if err != nil {
		t.Fatalf("load definition: %v", err)
	}
	return def
}

// LoadDefinitionFromPath is LoadDefinition for setup code without a
// *testing.T.
func LoadDefinitionFromPath(path string) (widgets.Definition, error) {
	if path == "" {
		return widgets.Definition{}, errors.New("testsupport: definition path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return widgets.Definition{}, fmt.Errorf("testsupport: read definition: %w", err)
	}
	return widgets.Parse(data, filepath.Base(path))
}

// LoadRegistry loads every definition under dir.
func LoadRegistry(t *testing.T, dir string) *widgets.Registry {
	t.Helper()

	registry, err := widgets.LoadFS(os.DirFS(dir))
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return registry
}

// SequentialIDs returns a generator yielding prefix1, prefix2, ... It is
// safe for concurrent use.
func SequentialIDs(prefix string) rnd.Generator {
	var n atomic.Int64
	return func() string {
		return prefix + strconv.FormatInt(n.Add(1), 10)
	}
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv(UpdateEnv) == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// AssertGoldenJSON compares got with the JSON golden at path. Both sides
// are compared as decoded JSON, so formatting and key order do not matter.
func AssertGoldenJSON(t *testing.T, path string, got any) {
	t.Helper()

	payload, err := json.MarshalIndent(got, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if WriteMaybeGolden(t, path, append(payload, '\n')) {
		return
	}

	var want, have any
	if err := json.Unmarshal(MustReadGolden(t, path), &want); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	if err := json.Unmarshal(payload, &have); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if diff := cmp.Diff(want, have); diff != "" {
		t.Fatalf("golden mismatch %s (-want +got):\n%s", path, diff)
	}
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
