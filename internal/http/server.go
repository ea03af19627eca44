package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"metricsdash/internal/cache"
	"metricsdash/internal/chart"
	applog "metricsdash/internal/log"
	"metricsdash/internal/middleware/ratelimit"
	"metricsdash/internal/middleware/security"
	"metricsdash/internal/middleware/trace"
	"metricsdash/internal/services"
	"metricsdash/internal/source"
	appweb "metricsdash/web"
)

// Routes served by the dashboard.
const (
	RouteIndex     = "/"
	RouteDashboard = "/api/dashboard"
	RouteChart     = "/chart"
	RouteHealth    = "/healthz"
	RouteReady     = "/readyz"
	RouteMetrics   = "/metrics"
	RouteStatic    = "/static/"
)

// Options configures a Server.
type Options struct {
	Addr    string
	Query   *services.QueryService
	Source  source.RecordSource
	Company string
	Logger  *applog.Logger

	// RateLimit bounds dashboard and chart requests per client.
	RateLimit ratelimit.Config

	// CleanupInterval is how often expired cache and limiter entries are
	// dropped. Zero disables periodic cleanup.
	CleanupInterval time.Duration
}

type Server struct {
	http.Server
	templates  *template.Template
	query      *services.QueryService
	source     source.RecordSource
	company    string
	logger     *applog.Logger
	structured *applog.StructuredLogger
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	startedAt  time.Time

	cacheManager *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	httpLogger := logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		query:      opts.Query,
		source:     opts.Source,
		company:    opts.Company,
		logger:     httpLogger,
		structured: applog.NewStructuredLogger(logger),
		limiter:    ratelimit.NewLimiter(opts.RateLimit),
		detector:   security.NewDetector(logger),
		startedAt:  time.Now(),
	}

	s.cacheManager = cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	if opts.Query != nil {
		s.cacheManager.Register(opts.Query.Cache().Cleaner())
	}
	s.cacheManager.Register(s.limiter)
	s.cacheManager.StartCleanup(opts.CleanupInterval)

	t, err := template.New("").Funcs(template.FuncMap{
		"label": chart.Label,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix(RouteStatic, http.FileServer(http.FS(sub)))
		mux.Handle(RouteStatic, security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError(msgRateLimited).Write(w)
	})

	mux.HandleFunc(RouteIndex, s.handleIndex)
	mux.Handle(RouteDashboard, limited(http.HandlerFunc(s.handleDashboardAPI)))
	mux.Handle(RouteChart, limited(http.HandlerFunc(s.handleChart)))
	mux.HandleFunc(RouteHealth, s.handleHealth)
	mux.HandleFunc(RouteReady, s.handleReady)
	mux.Handle(RouteMetrics, promhttp.Handler())

	var handler http.Handler = mux
	handler = gzhttp.GzipHandler(handler)
	handler = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(handler)
	handler = applog.Middleware(logger)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP, routeLabel).Middleware(handler)
	s.Handler = handler

	return s
}

// routeLabel keeps the metrics route label bounded.
func routeLabel(r *http.Request) string {
	switch p := r.URL.Path; {
	case p == RouteIndex, p == RouteDashboard, p == RouteChart,
		p == RouteHealth, p == RouteReady, p == RouteMetrics:
		return p
	case strings.HasPrefix(p, RouteStatic):
		return RouteStatic
	default:
		return "other"
	}
}

// Shutdown stops cache cleanup and gracefully shuts down the HTTP server.
// It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
