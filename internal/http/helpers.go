package http

import (
	"errors"
	"net/http"
	"strings"

	"metricsdash/internal/core"
	applog "metricsdash/internal/log"
	"metricsdash/internal/services"
)

// Client-facing error messages. Causes are logged, never sent.
const (
	msgMissingDate = "Data validation error: Missing date field in one or more data points"
	msgInternal    = "Internal server error"
	msgRateLimited = "Rate limit exceeded. Please try again later."
)

// queryFailure maps a query error to its HTTP status, client message and
// log category.
func queryFailure(err error) (status int, message, errorType string) {
	var mde *core.MalformedDateError
	switch {
	case errors.Is(err, core.ErrMissingDate):
		return http.StatusBadRequest, msgMissingDate, applog.ErrorTypeValidation
	case errors.As(err, &mde):
		return http.StatusInternalServerError, msgInternal, applog.ErrorTypeValidation
	case errors.Is(err, services.ErrSourceUnavailable):
		return http.StatusInternalServerError, msgInternal, applog.ErrorTypeDatabase
	default:
		return http.StatusInternalServerError, msgInternal, applog.ErrorTypeInternal
	}
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
