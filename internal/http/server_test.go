package http

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metricsdash/internal/core"
	"metricsdash/internal/middleware/ratelimit"
	"metricsdash/internal/services"
	"metricsdash/internal/source"
	"metricsdash/internal/source/memory"
)

type failingSource struct{ err error }

func (f failingSource) FetchRecords(ctx context.Context, _ *core.DateRange) ([]core.Record, error) {
	return nil, f.err
}

func (f failingSource) Ping(ctx context.Context) error { return f.err }

type envelopeBody struct {
	Data            []map[string]any `json:"data"`
	AvailableFields []string         `json:"availableFields"`
}

func newTestServer(t *testing.T, src source.RecordSource) *Server {
	t.Helper()
	cfg := services.DefaultQueryServiceConfig()
	cfg.CacheTTL = 0
	srv := NewServer(Options{
		Addr:    ":0",
		Query:   services.NewQueryService(src, cfg, nil),
		Source:  src,
		Company: core.SampleCompany,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelopeBody {
	t.Helper()
	var body envelopeBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), rr.Body.String())
	return body
}

func TestDashboardAPI_AllFields(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/api/dashboard")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	body := decodeEnvelope(t, rr)
	assert.Len(t, body.Data, 12)
	assert.Equal(t, []string{
		"totalSales", "orderCount", "averageOrderValue",
		"customerSatisfaction", "newCustomers", "returnRate",
	}, body.AvailableFields)
	assert.NotContains(t, body.Data[0], "topCategory")
	assert.Equal(t, "2023-01-01", body.Data[0]["date"])
}

func TestDashboardAPI_FieldsAndRange(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/api/dashboard?fields=orderCount,bogus,totalSales&from=2023-03-01&to=2023-05-01")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decodeEnvelope(t, rr)
	require.Len(t, body.Data, 3)
	assert.Equal(t, map[string]any{"date": "2023-03-01", "orderCount": 489.0, "totalSales": 22450.75}, body.Data[0])
	assert.Equal(t, "2023-05-01", body.Data[2]["date"])
	assert.Len(t, body.AvailableFields, 6)
}

func TestDashboardAPI_RepeatedFieldsParam(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/api/dashboard?fields=returnRate&fields=newCustomers")
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeEnvelope(t, rr)
	assert.Equal(t, map[string]any{"date": "2023-01-01", "returnRate": 0.05, "newCustomers": 87.0}, body.Data[0])
}

func TestDashboardAPI_SingleBoundIgnored(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/api/dashboard?from=2023-06-01")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeEnvelope(t, rr).Data, 12)
}

func TestDashboardAPI_EmptyWindow(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/api/dashboard?from=2024-01-01&to=2024-12-31")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[],"availableFields":[]}`, rr.Body.String())
}

func TestDashboardAPI_MissingDate(t *testing.T) {
	recs := core.SampleRecords()
	recs[4].Date = core.Date{}
	srv := newTestServer(t, memory.New(recs))

	rr := serve(srv, http.MethodGet, "/api/dashboard")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"`+msgMissingDate+`"}`, rr.Body.String())
}

func TestDashboardAPI_SourceUnavailable(t *testing.T) {
	srv := newTestServer(t, failingSource{err: errors.New("dial tcp 10.0.0.9:27017: connection refused")})

	rr := serve(srv, http.MethodGet, "/api/dashboard")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "10.0.0.9", "the cause must not leak to clients")
}

func TestDashboardAPI_MalformedDate(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/api/dashboard?from=yesterday&to=2023-05-01")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rr.Body.String())
}

func TestDashboardAPI_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rr := serve(srv, method, "/api/dashboard")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, method)
		assert.Equal(t, "GET", rr.Header().Get("Allow"), method)
	}
}

func TestDashboardAPI_Gzip(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "gzip", rr.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rr.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	var body envelopeBody
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Len(t, body.Data, 12)
}

func TestDashboardAPI_RateLimited(t *testing.T) {
	src := memory.New(core.SampleRecords())
	srv := NewServer(Options{
		Query:     services.NewQueryService(src, services.DefaultQueryServiceConfig(), nil),
		Source:    src,
		RateLimit: ratelimit.Config{RequestsPerWindow: 2, Window: time.Minute},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/api/dashboard").Code)
	}
	rr := serve(srv, http.MethodGet, "/api/dashboard")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.JSONEq(t, `{"error":"`+msgRateLimited+`"}`, rr.Body.String())
}

func TestChart(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	for _, typ := range []string{"bar", "line", ""} {
		rr := serve(srv, http.MethodGet, "/chart?type="+typ+"&fields=totalSales&from=2023-01-01&to=2023-06-01")
		require.Equal(t, http.StatusOK, rr.Code, typ)
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
		body := rr.Body.String()
		assert.Contains(t, body, "Total Sales")
		assert.Contains(t, body, "2023-06-01")
		assert.NotContains(t, body, "2023-07-01")
	}

	assert.Equal(t, http.StatusBadRequest, serve(srv, http.MethodGet, "/chart?type=pie").Code)
	assert.Equal(t, http.StatusBadRequest, serve(srv, http.MethodGet, "/chart?layout=grid").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(srv, http.MethodPost, "/chart").Code)
}

func TestChartSplitLayout(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/chart?layout=split&fields=totalSales,returnRate")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := rr.Body.String()
	assert.Contains(t, body, "Total Sales")
	assert.Contains(t, body, "Return Rate")
	assert.NotContains(t, body, "Order Count")
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, core.SampleCompany)
	assert.Contains(t, body, `value="totalSales"> Total Sales`)
	assert.NotContains(t, body, `value="topCategory"`)
	assert.Contains(t, body, `value="2023-12-01"`)

	assert.Equal(t, http.StatusNotFound, serve(srv, http.MethodGet, "/nope").Code)
}

func TestIndexRendersWhenSourceFails(t *testing.T) {
	srv := newTestServer(t, failingSource{err: errors.New("down")})

	rr := serve(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Internal server error")
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	down := newTestServer(t, failingSource{err: errors.New("down")})
	rr := serve(down, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"record_source":"unavailable"`)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))
	serve(srv, http.MethodGet, "/api/dashboard")

	rr := serve(srv, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "metricsdash_http_requests_total")
}

func TestStaticAndHeaders(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))

	rr := serve(srv, http.MethodGet, "/static/dashboard.css")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/":               "/",
		"/api/dashboard":  "/api/dashboard",
		"/static/app.css": "/static/",
		"/wp-admin":       "other",
	}
	for path, want := range tests {
		assert.Equal(t, want, routeLabel(httptest.NewRequest(http.MethodGet, path, nil)), path)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, memory.New(core.SampleRecords()))
	assert.NoError(t, srv.Shutdown(context.Background()))
	assert.NoError(t, srv.Shutdown(context.Background()))
}
