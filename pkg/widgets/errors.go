package widgets

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDefinition reports a definition that fails schema validation.
	ErrInvalidDefinition = errors.New("widgets: invalid definition")
	// ErrInvalidValue reports parameter values that fail validation.
	ErrInvalidValue = errors.New("widgets: invalid parameter value")
	// ErrNotRenderable reports a filter widget passed to Render.
	ErrNotRenderable = errors.New("widgets: definition has no template")
	// ErrNotFound reports an unknown widget key.
	ErrNotFound = errors.New("widgets: not found")
)

// Issue is one validation failure.
type Issue struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError lists the issues found in a definition or in a set of
// parameter values. It unwraps to ErrInvalidDefinition or ErrInvalidValue.
type ValidationError struct {
	Source string
	Issues []Issue
	Err    error
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	msg := e.Err.Error()
	if e.Source != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Source)
	}
	if len(parts) == 0 {
		return msg
	}
	return msg + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }
