package ejs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStructure reports an opening tag without a matching close tag.
	ErrStructure = errors.New("unmatched delimiter")
	// ErrInvalidIdentifier reports an option naming an invalid identifier.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrFilenameRequired reports caching requested without a filename.
	ErrFilenameRequired = errors.New("cache option requires a filename")
	// ErrInclude reports an include that could not be resolved.
	ErrInclude = errors.New("include failed")
)

// CompileError is returned for every compile time failure. Compile errors
// are never swallowed by the renderer.
type CompileError struct {
	Filename string
	Line     int
	// Source is the generated program source when generation succeeded.
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	name := e.Filename
	if name == "" {
		name = "template"
	}
	if e.Line > 0 {
		return fmt.Sprintf("ejs: compile %s:%d: %v", name, e.Line, e.Err)
	}
	return fmt.Sprintf("ejs: compile %s: %v", name, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// RuntimeError annotates an execution failure with the template lines
// around the failing line.
type RuntimeError struct {
	Filename string
	Line     int
	Context  string
	Err      error
}

func (e *RuntimeError) Error() string {
	name := e.Filename
	if name == "" {
		name = "ejs"
	}
	return fmt.Sprintf("%s:%d\n%s\n\n%v", name, e.Line, e.Context, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// RethrowFunc turns an execution error into the error reported to the
// caller, given the template text, its filename and the failing line.
type RethrowFunc func(err error, template, filename string, line int) error

// Rethrow is the default RethrowFunc. It returns a *RuntimeError carrying
// three lines of context on each side of line, the failing one marked
// with ">> ".
func Rethrow(err error, template, filename string, line int) error {
	lines := strings.Split(template, "\n")
	start := max(line-3, 0)
	end := min(len(lines), line+3)

	var b strings.Builder
	for i := start; i < end; i++ {
		curr := i + 1
		if i > start {
			b.WriteByte('\n')
		}
		marker := "    "
		if curr == line {
			marker = " >> "
		}
		fmt.Fprintf(&b, "%s%d| %s", marker, curr, lines[i])
	}
	return &RuntimeError{Filename: filename, Line: line, Context: b.String(), Err: err}
}
