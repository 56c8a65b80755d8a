// Package server exposes widget rendering over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/logging"
	"github.com/goliatone/go-widgets/pkg/preview"
	"github.com/goliatone/go-widgets/pkg/render"
	"github.com/goliatone/go-widgets/pkg/rnd"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

// RequestIDHeader carries the request id on requests and responses.
const RequestIDHeader = "X-Request-ID"

// MaxBodyBytes bounds JSON request bodies.
const MaxBodyBytes = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithPreview sets the page renderer used by the preview route. Without it
// the route answers 404.
func WithPreview(renderer *preview.Renderer) Option {
	return func(s *Server) {
		s.preview = renderer
	}
}

// WithTranslations sets the global translations widget translations are
// layered over.
func WithTranslations(translations i18n.Translations) Option {
	return func(s *Server) {
		s.translations = translations
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRequestIDs sets the generator for request ids.
func WithRequestIDs(gen rnd.Generator) Option {
	return func(s *Server) {
		if gen != nil {
			s.ids = gen
		}
	}
}

// Server serves the widget API.
type Server struct {
	registry     *widgets.Registry
	service      *render.Service
	preview      *preview.Renderer
	translations i18n.Translations
	logger       *slog.Logger
	ids          rnd.Generator
	router       *mux.Router
}

// New builds a Server over registry and service. The registry is read on
// every request, so replacing its content takes effect immediately.
func New(registry *widgets.Registry, service *render.Service, opts ...Option) *Server {
	s := &Server{
		registry: registry,
		service:  service,
		ids:      rnd.UUIDGenerator,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.registry == nil {
		s.registry = widgets.NewRegistry()
	}
	if s.service == nil {
		s.service = render.New(render.WithLogger(s.logger))
	}
	s.logger = logging.Component(s.logger, "server")
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.requestID, s.logRequests)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/widgets", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/widgets/{key}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/widgets/{key}/render", s.handleRenderWidget).Methods(http.MethodPost)
	r.HandleFunc("/widgets/{key}/preview", s.handlePreview).Methods(http.MethodGet)
	r.HandleFunc("/render", s.handleRender).Methods(http.MethodPost)
	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type ctxKey struct{}

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = s.ids()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", RequestID(r.Context())),
		)
	})
}
