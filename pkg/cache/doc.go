// Package cache provides the process-wide caches used by the rendering
// pipeline: a keyed Store for compiled artifacts and a Lazy value for
// load-once collaborators such as engines.
//
// Both types are meant to be created once and injected into the components
// that need them rather than kept in package level variables.
package cache
