package render

import (
	"log/slog"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-widgets/pkg/engine/ejs"
	"github.com/goliatone/go-widgets/pkg/engine/mustache"
	"github.com/goliatone/go-widgets/pkg/logging"
)

// Option customises the Service configuration.
type Option func(*Service)

// WithRegistry injects an engine registry. The built-in engines are added
// to it unless names are already taken.
func WithRegistry(registry *Registry) Option {
	return func(s *Service) {
		if registry != nil {
			s.registry = registry
		}
	}
}

// WithEngine registers an additional engine.
func WithEngine(name string, factory Factory) Option {
	return func(s *Service) {
		s.extra = append(s.extra, namedFactory{name: name, factory: factory})
	}
}

// WithMustacheOptions configures the built-in mustache engine.
func WithMustacheOptions(opts ...mustache.Option) Option {
	return func(s *Service) {
		s.mustacheOpts = append(s.mustacheOpts, opts...)
	}
}

// WithEJSOptions configures the built-in ejs engine.
func WithEJSOptions(opts ...ejs.Option) Option {
	return func(s *Service) {
		s.ejsOpts = append(s.ejsOpts, opts...)
	}
}

// WithDefaultEngine overrides the engine used when a request omits Engine
// and the template has no compiled-template marker.
func WithDefaultEngine(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultEngine = name
		}
	}
}

// WithSanitizer runs every rendered output through policy.
func WithSanitizer(policy *bluemonday.Policy) Option {
	return func(s *Service) {
		s.sanitizer = policy
	}
}

// WithTracerProvider sets the provider used for render spans. Defaults to
// the global provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(s *Service) {
		s.tracerProvider = provider
	}
}

// WithLogger sets the logger handed to the built-in engines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}
