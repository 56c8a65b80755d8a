package render

import "errors"

// ErrUnknownEngine reports a request for an engine that is not registered.
var ErrUnknownEngine = errors.New("render: unknown engine")
