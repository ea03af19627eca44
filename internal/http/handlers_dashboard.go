package http

import (
	"bytes"
	"errors"
	"net/http"

	"metricsdash/internal/chart"
	applog "metricsdash/internal/log"
	"metricsdash/internal/services"
)

// handleDashboardAPI serves GET /api/dashboard?fields=a,b&from=&to=.
func (s *Server) handleDashboardAPI(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	params := ParseDashboardParams(r.URL.Query())
	env, err := s.runQuery(r, params)
	if err != nil {
		s.queryError(r, params, err).Write(w)
		return
	}

	s.structured.LogQueryServed(r.Context(), services.SplitFields(params.Fields), params.From, params.To, len(env.Data), env.AvailableFields)
	NewJSONResponse().
		Header("Cache-Control", "no-store").
		Body(env).
		Write(w)
}

// handleChart serves GET /chart?type=bar|line&layout=combined|split&fields&from&to,
// an ECharts page over the same envelope the API returns.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	params := ParseDashboardParams(r.URL.Query())
	chartType, err := chart.ParseType(params.ChartType)
	if err != nil {
		BadRequestError("Unknown chart type").Write(w)
		return
	}
	layout, err := chart.ParseLayout(params.Layout)
	if err != nil {
		BadRequestError("Unknown chart layout").Write(w)
		return
	}

	env, err := s.runQuery(r, params)
	if err != nil {
		s.queryError(r, params, err).Write(w)
		return
	}

	title := s.company
	if title == "" {
		title = "Dashboard"
	}

	var buf bytes.Buffer
	cfg := chart.Build(chartType, title, env)
	cfg.Layout = layout
	if err := chart.Render(&buf, cfg); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Chart render failed",
			applog.FieldError, err,
			applog.FieldOperation, applog.OpRender,
			applog.FieldComponent, applog.ComponentChart)
		InternalServerError(msgInternal).Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) runQuery(r *http.Request, params DashboardParams) (services.Envelope, error) {
	if s.query == nil {
		return services.Envelope{}, errors.New("query service not configured")
	}
	q, err := params.Query()
	if err != nil {
		return services.Envelope{}, err
	}
	return s.query.Query(r.Context(), q)
}

// queryError logs the cause and builds the client response, which only
// names the class of failure.
func (s *Server) queryError(r *http.Request, params DashboardParams, err error) *JSONResponseBuilder {
	status, message, errorType := queryFailure(err)

	fields := applog.NewFields().
		WithQuery(services.SplitFields(params.Fields), params.From, params.To).
		WithErrorType(errorType)

	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Dashboard query failed", err, applog.ComponentQuery, applog.OpQuery, fields)
	} else {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Dashboard query rejected",
			append(fields.WithError(err).ToSlice(), applog.FieldOperation, applog.OpQuery)...)
	}
	return ErrorResponse(status, message)
}
