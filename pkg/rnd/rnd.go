// Package rnd replaces the "$RND" sentinel in render contexts with fresh
// identifiers.
package rnd

import (
	"maps"

	"github.com/google/uuid"
	"github.com/lucsky/cuid"
)

// Sentinel marks a context value that must be replaced by a fresh id.
const Sentinel = "$RND"

// Generator returns a new unique id.
type Generator func() string

// ShortID returns a short alphanumeric id that is safe to use as an HTML id.
func ShortID() string {
	id := cuid.Slug()
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		return "w" + id
	}
	return id
}

// UUIDGenerator returns ids in the canonical UUID form.
func UUIDGenerator() string {
	return uuid.NewString()
}

// Substitute returns a shallow copy of vars in which every value equal to
// Sentinel is replaced by a fresh id, one per key. vars is not modified. A
// nil generator uses ShortID.
func Substitute(vars map[string]any, gen Generator) map[string]any {
	if gen == nil {
		gen = ShortID
	}
	out := maps.Clone(vars)
	if out == nil {
		out = map[string]any{}
	}
	for key, value := range out {
		if s, ok := value.(string); ok && s == Sentinel {
			out[key] = gen()
		}
	}
	return out
}
