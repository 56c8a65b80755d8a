package ejs

import (
	"fmt"
	"log/slog"

	"github.com/goliatone/go-widgets/pkg/cache"
	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/logging"
)

// Default delimiters and names.
const (
	DefaultDelimiter      = "%"
	DefaultOpenDelimiter  = "<"
	DefaultCloseDelimiter = ">"
	DefaultLocalsName     = "locals"
)

// Options control compilation. Start from DefaultOptions; the zero value
// disables line tracking.
type Options struct {
	Delimiter      string
	OpenDelimiter  string
	CloseDelimiter string

	// Strict disables the dynamic scope: locals are only reachable through
	// LocalsName and assignments to undeclared names fail.
	Strict bool
	// LocalsName names the variable holding the locals object.
	LocalsName string
	// DestructuredLocals are declared as variables from the locals object.
	DestructuredLocals []string
	// OutputFunctionName aliases the append function, for templates that
	// write output from inside scriptlets.
	OutputFunctionName string

	// Escape escapes <%= output. Defaults to EscapeXML.
	Escape EscapeFunc
	// CompileDebug tracks the current template line so execution errors
	// carry context.
	CompileDebug bool
	// Debug logs the generated source.
	Debug bool
	// RmWhitespace removes leading and trailing whitespace of every line
	// and collapses blank lines.
	RmWhitespace bool

	// Cache stores the compiled template under Filename.
	Cache    bool
	Filename string
	Store    *cache.Store[*Template]

	// Loader resolves include paths.
	Loader Loader
	Logger *slog.Logger
}

// DefaultOptions returns the default compile options.
func DefaultOptions() Options {
	return Options{
		Delimiter:      DefaultDelimiter,
		OpenDelimiter:  DefaultOpenDelimiter,
		CloseDelimiter: DefaultCloseDelimiter,
		LocalsName:     DefaultLocalsName,
		Escape:         EscapeXML,
		CompileDebug:   true,
	}
}

var defaultStore = cache.NewStore[*Template]()

// ClearCache drops every template cached in the package default store,
// used when Options.Store is nil.
func ClearCache() {
	defaultStore.Clear()
}

func (o Options) normalized() (Options, error) {
	if o.Delimiter == "" {
		o.Delimiter = DefaultDelimiter
	}
	if o.OpenDelimiter == "" {
		o.OpenDelimiter = DefaultOpenDelimiter
	}
	if o.CloseDelimiter == "" {
		o.CloseDelimiter = DefaultCloseDelimiter
	}
	if o.LocalsName == "" {
		o.LocalsName = DefaultLocalsName
	}
	if o.Escape == nil {
		o.Escape = EscapeXML
	}
	if o.Store == nil {
		o.Store = defaultStore
	}
	o.Logger = logging.OrNop(o.Logger)

	if o.Cache && o.Filename == "" {
		return o, ErrFilenameRequired
	}
	if !expr.IsIdentifier(o.LocalsName) {
		return o, fmt.Errorf("%w: locals name %q", ErrInvalidIdentifier, o.LocalsName)
	}
	if o.OutputFunctionName != "" && !expr.IsIdentifier(o.OutputFunctionName) {
		return o, fmt.Errorf("%w: output function name %q", ErrInvalidIdentifier, o.OutputFunctionName)
	}
	for _, name := range o.DestructuredLocals {
		if !expr.IsIdentifier(name) {
			return o, fmt.Errorf("%w: destructured local %q", ErrInvalidIdentifier, name)
		}
	}
	return o, nil
}
