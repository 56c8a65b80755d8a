// Package expr implements a small JavaScript-like language used by the
// template engines: an expression evaluator for helper conditions and a
// statement interpreter for compiled templates.
//
// Identifiers resolve through an explicit scope chain that ends at a fixed
// set of builtin globals (Math, JSON, String, Number, Boolean, parseInt,
// parseFloat, isNaN, isFinite, Array, Object, encodeURIComponent and
// decodeURIComponent). Values follow JavaScript coercion rules: numbers are
// float64, arrays created by expressions are *Array, objects are
// map[string]any and undefined is the Undefined sentinel.
//
// Nothing is sandboxed. Template authors are trusted.
package expr
