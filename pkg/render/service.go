package render

import (
	"context"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-widgets/pkg/engine/ejs"
	"github.com/goliatone/go-widgets/pkg/engine/mustache"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/logging"
)

const (
	tracerName = "github.com/goliatone/go-widgets/pkg/render"
	spanName   = "widgets.render"

	// CompiledMarker selects the ejs engine when a request names none.
	CompiledMarker = "<%"
)

// Engine renders one template dialect.
type Engine interface {
	Render(ctx context.Context, template string, vars map[string]any, translations i18n.Translations) (string, error)
}

// Request describes one render.
type Request struct {
	Template     string
	Data         map[string]any
	Translations i18n.Translations
	// Engine names the engine. When empty the engine is picked from the
	// template text.
	Engine string
}

// Result is delivered by RenderAsync.
type Result struct {
	HTML   string
	Engine string
	Err    error
}

type namedFactory struct {
	name    string
	factory Factory
}

// Service dispatches templates to engines.
type Service struct {
	registry       *Registry
	extra          []namedFactory
	mustacheOpts   []mustache.Option
	ejsOpts        []ejs.Option
	defaultEngine  string
	sanitizer      *bluemonday.Policy
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	logger         *slog.Logger
	initialiseErr  error
}

// New constructs a Service with the mustache and ejs engines registered.
func New(options ...Option) *Service {
	s := &Service{
		defaultEngine: mustache.Name,
		logger:        logging.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.applyDefaults()
	return s
}

func (s *Service) applyDefaults() {
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.tracerProvider == nil {
		s.tracerProvider = otel.GetTracerProvider()
	}
	s.tracer = s.tracerProvider.Tracer(tracerName)

	logger := s.logger
	if !s.registry.Has(mustache.Name) {
		opts := append([]mustache.Option{mustache.WithLogger(logging.Component(logger, mustache.Name))}, s.mustacheOpts...)
		s.registry.MustRegister(mustache.Name, func() (Engine, error) {
			return mustache.New(opts...), nil
		})
	}
	if !s.registry.Has(ejs.Name) {
		opts := append([]ejs.Option{ejs.WithLogger(logging.Component(logger, ejs.Name))}, s.ejsOpts...)
		s.registry.MustRegister(ejs.Name, func() (Engine, error) {
			return ejs.New(opts...), nil
		})
	}
	for _, nf := range s.extra {
		if err := s.registry.Register(nf.name, nf.factory); err != nil && s.initialiseErr == nil {
			s.initialiseErr = err
		}
	}
}

// Registry exposes the engine registry.
func (s *Service) Registry() *Registry { return s.registry }

// Select returns the engine name used for req.
func (s *Service) Select(req Request) string {
	if name := strings.TrimSpace(req.Engine); name != "" {
		return name
	}
	if strings.Contains(req.Template, CompiledMarker) {
		return ejs.Name
	}
	return s.defaultEngine
}

// Render renders req with the selected engine.
func (s *Service) Render(ctx context.Context, req Request) (string, error) {
	if s.initialiseErr != nil {
		return "", s.initialiseErr
	}
	name := s.Select(req)

	ctx, span := s.tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	span.SetAttributes(
		attribute.String("engine", name),
		attribute.Int("template.length", len(req.Template)),
	)

	out, err := s.render(ctx, name, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func (s *Service) render(ctx context.Context, name string, req Request) (string, error) {
	engine, err := s.registry.Get(name)
	if err != nil {
		return "", err
	}
	out, err := engine.Render(ctx, req.Template, req.Data, req.Translations)
	if err != nil {
		return "", err
	}
	if s.sanitizer != nil {
		out = s.sanitizer.Sanitize(out)
	}
	return out, nil
}

// RenderAsync renders req on its own goroutine. The channel receives
// exactly one Result and is then closed.
func (s *Service) RenderAsync(ctx context.Context, req Request) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		html, err := s.Render(ctx, req)
		ch <- Result{HTML: html, Engine: s.Select(req), Err: err}
	}()
	return ch
}

// Reset clears the template caches of the engines built so far.
func (s *Service) Reset() {
	s.registry.Reset()
}
