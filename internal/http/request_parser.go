// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading dashboard query parameters
// and checking request methods.

package http

import (
	"net/http"
	"net/url"
	"strings"

	"metricsdash/internal/services"
)

// DashboardParams holds the raw dashboard query parameters.
type DashboardParams struct {
	Fields    string
	From      string
	To        string
	ChartType string
	Layout    string
}

// ParseDashboardParams reads fields, from, to and type from the query
// string. Repeated fields parameters are joined into one list.
func ParseDashboardParams(query url.Values) DashboardParams {
	fields := make([]string, 0, len(query["fields"]))
	for _, f := range query["fields"] {
		if f = sanitizeInput(f); f != "" {
			fields = append(fields, f)
		}
	}
	return DashboardParams{
		Fields:    strings.Join(fields, ","),
		From:      sanitizeInput(query.Get("from")),
		To:        sanitizeInput(query.Get("to")),
		ChartType: sanitizeInput(query.Get("type")),
		Layout:    sanitizeInput(query.Get("layout")),
	}
}

// Query converts the parameters into a dashboard query. from and to only
// apply together.
func (p DashboardParams) Query() (services.Query, error) {
	return services.ParseQuery(p.Fields, p.From, p.To)
}

// Encode returns the parameters as a query string, leaving out empty ones.
func (p DashboardParams) Encode() string {
	v := url.Values{}
	for k, val := range map[string]string{
		"fields": p.Fields,
		"from":   p.From,
		"to":     p.To,
		"type":   p.ChartType,
		"layout": p.Layout,
	} {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v.Encode()
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *JSONResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequireGET is a convenience function for read-only handlers.
func RequireGET(r *http.Request) *JSONResponseBuilder {
	return RequireMethod(r, http.MethodGet)
}
