package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"outlay/internal/core"
	applog "outlay/internal/log"
	"outlay/internal/navigation"
)

// page is the data every full page is rendered with.
type page struct {
	Title    string
	Nav      []navigation.Item
	Theme    core.Theme
	Currency core.Currency
	Notice   string
	Data     any
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).String(),
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(health)
}

// handleReady checks storage and reports request metrics.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{"templates": "ok", "storage": "ok"}
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			checks["storage"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		}
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"checks":  checks,
		"metrics": s.Metrics(),
	})
}

// render executes a full page. Rendering goes through a buffer so a template
// failure can still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, dest navigation.Destination, data any) {
	ctx := r.Context()
	prefs, err := s.settings.Preferences(ctx)
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to read preferences", applog.FieldError, err)
		prefs = core.DefaultPreferences()
	}

	p := page{
		Title:    dest.Title(),
		Nav:      navigation.BottomBar(dest),
		Theme:    prefs.Theme,
		Currency: prefs.Currency,
		Notice:   r.URL.Query().Get("notice"),
		Data:     data,
	}
	s.execute(w, r, status, name, "layout", p)
}

// renderPartial executes a named block of a page's template set.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, page, block string, data any) {
	s.execute(w, r, http.StatusOK, page, block, data)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, status int, page, block string, data any) {
	ctx := r.Context()
	t, ok := s.pages[page]
	if !ok {
		applog.FromContext(ctx).ErrorContext(ctx, "Unknown template", "template", page)
		InternalServerError("Template not found").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed",
			applog.FieldError, err, "template", page, "block", block,
			applog.FieldOperation, applog.OpRender)
		InternalServerError("Error rendering page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// storageFailure logs err and answers with a retryable 500.
func (s *Server) storageFailure(w http.ResponseWriter, r *http.Request, msg string, err error, op string) {
	applog.LogError(r.Context(), msg, err, op, applog.NewFields().WithComponent(applog.ComponentHTTP))
	InternalServerError(msg).Write(w)
}

// done finishes a successful write: htmx clients get the builder, plain
// form posts are redirected.
func done(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, location string) {
	if isHTMX(r) {
		b.Write(w)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
