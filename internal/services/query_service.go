package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"metricsdash/internal/cache"
	"metricsdash/internal/core"
	applog "metricsdash/internal/log"
	"metricsdash/internal/metrics"
	"metricsdash/internal/source"
)

// ErrSourceUnavailable wraps any failure to read the record source.
var ErrSourceUnavailable = errors.New("record source unavailable")

const recordSetKey = "records"

// Query is one dashboard request: an optional field selection and an
// optional inclusive date window.
type Query struct {
	Fields []string
	Range  *core.DateRange
}

// Envelope is the dashboard response body. Both slices are always non-nil.
type Envelope struct {
	Data            []core.Record `json:"data"`
	AvailableFields []string      `json:"availableFields"`
}

// ParseQuery builds a Query from raw parameters. fields is a comma
// separated list; from and to only take effect together.
func ParseQuery(fields, from, to string) (Query, error) {
	q := Query{Fields: SplitFields(fields)}

	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return q, nil
	}
	rng, err := core.NewDateRange(from, to)
	if err != nil {
		return Query{}, err
	}
	q.Range = &rng
	return q, nil
}

// SplitFields splits a comma separated field list, dropping blanks.
func SplitFields(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// QueryServiceConfig holds tuning for the query service
type QueryServiceConfig struct {
	// Backend names the store in logs and metrics
	Backend string

	// CacheTTL is how long a fetched record set is reused (0 disables)
	CacheTTL time.Duration

	// FetchTimeout bounds each read of the record source
	FetchTimeout time.Duration
}

// DefaultQueryServiceConfig returns sensible defaults
func DefaultQueryServiceConfig() QueryServiceConfig {
	return QueryServiceConfig{
		Backend:      "memory",
		CacheTTL:     time.Minute,
		FetchTimeout: 7 * time.Second,
	}
}

// QueryService turns a record source into dashboard envelopes.
type QueryService struct {
	source source.RecordSource
	cache  *cache.RecordCache
	config QueryServiceConfig
	logger *applog.Logger
}

// NewQueryService creates a query service over src.
func NewQueryService(src source.RecordSource, config QueryServiceConfig, logger *applog.Logger) *QueryService {
	if logger == nil {
		logger = applog.New(applog.Config{Handler: slog.Default().Handler()})
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultQueryServiceConfig().FetchTimeout
	}
	return &QueryService{
		source: src,
		cache:  cache.NewRecordCache(config.CacheTTL),
		config: config,
		logger: logger.WithComponent(applog.ComponentQuery),
	}
}

// Cache exposes the record cache so its expiry can be managed.
func (s *QueryService) Cache() *cache.RecordCache {
	return s.cache
}

// Query fetches the record set, checks that every record is dated, then
// filters, classifies and projects it. Nothing is returned on failure.
func (s *QueryService) Query(ctx context.Context, q Query) (Envelope, error) {
	records, hit, err := s.cache.Load(ctx, recordSetKey, s.fetch)
	if err != nil {
		var mde *core.MalformedDateError
		if errors.As(err, &mde) {
			metrics.RecordQuery(metrics.OutcomeMalformed)
			return Envelope{}, err
		}
		metrics.RecordQuery(metrics.OutcomeUnavailable)
		return Envelope{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	metrics.RecordCacheLookup(hit)

	if err := core.ValidateDates(records); err != nil {
		metrics.RecordQuery(metrics.OutcomeInvalid)
		return Envelope{}, err
	}

	env := Shape(records, q)
	if unknown := core.UnknownFields(q.Fields, env.AvailableFields); len(unknown) > 0 {
		s.logger.DebugContext(ctx, "Ignoring unknown or non-numeric fields", applog.FieldFields, unknown)
	}
	metrics.RecordQuery(metrics.OutcomeOK)
	return env, nil
}

// Shape runs the pure part of a query over records that are already known
// to be dated.
func Shape(records []core.Record, q Query) Envelope {
	windowed := core.FilterRange(records, q.Range)
	available := core.ClassifyNumeric(windowed)
	selected := core.ResolveFields(q.Fields, available)

	data := core.Project(windowed, selected)
	if data == nil {
		data = []core.Record{}
	}
	if available == nil {
		available = []string{}
	}
	return Envelope{Data: data, AvailableFields: available}
}

func (s *QueryService) fetch(ctx context.Context) ([]core.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	start := time.Now()
	recs, err := s.source.FetchRecords(ctx, nil)
	metrics.RecordFetch(s.config.Backend, len(recs), err, time.Since(start))
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch records",
			applog.FieldBackend, s.config.Backend,
			applog.FieldErrorType, classifyFetchError(err),
			applog.FieldError, err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "Records fetched",
		applog.FieldBackend, s.config.Backend,
		applog.FieldRecordCount, len(recs),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return recs, nil
}

func classifyFetchError(err error) string {
	var mde *core.MalformedDateError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	case errors.As(err, &mde):
		return applog.ErrorTypeValidation
	default:
		return applog.ErrorTypeDatabase
	}
}
