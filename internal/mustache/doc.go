// Package mustache is the logic-less template interpreter underneath the
// widget mustache engine. It supports variables, dotted names, the implicit
// iterator, sections, inverted sections, comments, partials, set-delimiter
// tags, standalone line trimming and section lambdas.
//
// Lambda output is written as is: it is neither escaped nor rendered again.
package mustache
