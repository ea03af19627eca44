package http

import (
	"context"
	"net/http"
	"time"

	applog "metricsdash/internal/log"
	"metricsdash/internal/source"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Header("Cache-Control", "no-store").
		Body(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		}).
		Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.source == nil:
		checks["record_source"] = "not_configured"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		if err := source.Ping(ctx, s.source); err != nil {
			s.logger.WarnContext(ctx, "Record source not ready",
				applog.FieldError, err,
				applog.FieldErrorType, applog.ErrorTypeDatabase)
			checks["record_source"] = "unavailable"
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["record_source"] = "ok"
		}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
	}

	NewJSONResponse().
		Status(httpStatus).
		Header("Cache-Control", "no-store").
		Body(map[string]any{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// indexData feeds the dashboard page template.
type indexData struct {
	Company string
	Fields  []string
	From    string
	To      string
	Error   string
}

// handleIndex renders the dashboard page with the fields the full record
// set offers. A failing source still renders the page, with an error note.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != RouteIndex {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	logger := applog.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			applog.FieldComponent, applog.ComponentTemplate,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := indexData{Company: s.company, Fields: []string{}}
	if env, err := s.runQuery(r, DashboardParams{}); err != nil {
		_, message, errorType := queryFailure(err)
		logger.ErrorContext(r.Context(), "Dashboard fields unavailable",
			applog.FieldError, err,
			applog.FieldErrorType, errorType)
		data.Error = message
	} else {
		data.Fields = env.AvailableFields
		if n := len(env.Data); n > 0 {
			data.From = env.Data[0].Date.String()
			data.To = env.Data[n-1].Date.String()
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		logger.ErrorContext(r.Context(), "Index template execution failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender)
		http.Error(w, msgInternal, http.StatusInternalServerError)
	}
}
