// Package widgets loads editor widget definitions, validates them and turns
// caller supplied parameter values into render contexts.
//
// Definitions are YAML or JSON documents validated against an embedded JSON
// Schema. A definition carries either a template, rendered through the
// dispatch service in pkg/render, or a filter selector used by DOM level
// widgets that this package does not render.
package widgets
