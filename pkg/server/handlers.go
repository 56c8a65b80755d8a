package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/goliatone/go-widgets/pkg/engine/ejs"
	"github.com/goliatone/go-widgets/pkg/expr"
	"github.com/goliatone/go-widgets/pkg/i18n"
	"github.com/goliatone/go-widgets/pkg/preview"
	"github.com/goliatone/go-widgets/pkg/render"
	"github.com/goliatone/go-widgets/pkg/widgets"
)

// Summary is the list view of a definition.
type Summary struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Author     string `json:"author"`
	Category   string `json:"category,omitempty"`
	Engine     string `json:"engine,omitempty"`
	Renderable bool   `json:"renderable"`
}

// WidgetRenderRequest is the body of POST /widgets/{key}/render.
type WidgetRenderRequest struct {
	Values map[string]any `json:"values"`
	Lang   string         `json:"lang"`
}

// RenderRequest is the body of POST /render.
type RenderRequest struct {
	Template     string            `json:"template"`
	Data         map[string]any    `json:"data"`
	Translations i18n.Translations `json:"translations"`
	Engine       string            `json:"engine"`
}

// RenderResponse is returned by both render routes.
type RenderResponse struct {
	HTML   string `json:"html"`
	Engine string `json:"engine"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Error  string          `json:"error"`
	Issues []widgets.Issue `json:"issues,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "widgets": s.registry.Len()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	out := []Summary{}
	for _, def := range s.registry.List() {
		if category != "" && def.Category != category {
			continue
		}
		out = append(out, Summary{
			Key:        def.Key,
			Name:       def.Name,
			Version:    def.Version,
			Author:     def.Author,
			Category:   def.Category,
			Engine:     def.Engine,
			Renderable: def.Renderable(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	def, err := s.registry.Lookup(mux.Vars(r)["key"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (s *Server) handleRenderWidget(w http.ResponseWriter, r *http.Request) {
	def, err := s.registry.Lookup(mux.Vars(r)["key"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req WidgetRenderRequest
	if !decode(w, r, &req) {
		return
	}

	html, err := widgets.Render(r.Context(), s.service, def, req.Values, req.Lang, s.translations)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	engine := s.service.Select(render.Request{Template: def.Template, Engine: def.Engine})
	writeJSON(w, http.StatusOK, RenderResponse{HTML: html, Engine: engine})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Template) == "" {
		writeError(w, http.StatusBadRequest, "template is required")
		return
	}

	rreq := render.Request{
		Template:     req.Template,
		Data:         req.Data,
		Translations: s.translations.Merge(req.Translations),
		Engine:       req.Engine,
	}
	html, err := s.service.Render(r.Context(), rreq)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{HTML: html, Engine: s.service.Select(rreq)})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.preview == nil {
		writeError(w, http.StatusNotFound, "preview is disabled")
		return
	}
	def, err := s.registry.Lookup(mux.Vars(r)["key"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	lang := query.Get("lang")
	values := make(map[string]any, len(query))
	for key, vals := range query {
		if key == "lang" || len(vals) == 0 {
			continue
		}
		values[key] = vals[len(vals)-1]
	}

	ctx, err := def.Context(values, lang)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	visible, err := def.Visible(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var html string
	if def.Renderable() {
		html, err = widgets.Render(r.Context(), s.service, def, values, lang, s.translations)
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}

	page := preview.NewPage(def, html, ctx, visible)
	page.Engine = s.service.Select(render.Request{Template: def.Template, Engine: def.Engine})
	out, err := s.preview.Render(page)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestID(r.Context())),
			slog.Any("error", err),
		)
	}
	body := ErrorResponse{Error: err.Error()}
	var validationErr *widgets.ValidationError
	if errors.As(err, &validationErr) {
		body.Issues = validationErr.Issues
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	var (
		evalErr    *expr.EvaluationError
		compileErr *ejs.CompileError
	)
	switch {
	case errors.Is(err, widgets.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, render.ErrUnknownEngine):
		return http.StatusBadRequest
	case errors.Is(err, widgets.ErrInvalidValue),
		errors.Is(err, widgets.ErrInvalidDefinition),
		errors.Is(err, widgets.ErrNotRenderable),
		errors.As(err, &evalErr),
		errors.As(err, &compileErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, into any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
