package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"metricsdash/internal/core"
)

func TestParseDashboardParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  DashboardParams
	}{
		{
			name:  "empty",
			query: "",
			want:  DashboardParams{},
		},
		{
			name:  "all params",
			query: "fields=a,b&from=2023-01-01&to=2023-02-01&type=line&layout=split",
			want:  DashboardParams{Fields: "a,b", From: "2023-01-01", To: "2023-02-01", ChartType: "line", Layout: "split"},
		},
		{
			name:  "repeated fields joined",
			query: "fields=a&fields=&fields=b",
			want:  DashboardParams{Fields: "a,b"},
		},
		{
			name:  "whitespace and control characters stripped",
			query: "from=%202023-01-01%00%20&to=2023-02-01",
			want:  DashboardParams{From: "2023-01-01", To: "2023-02-01"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			if got := ParseDashboardParams(q); got != tt.want {
				t.Errorf("ParseDashboardParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDashboardParamsQuery(t *testing.T) {
	q, err := DashboardParams{Fields: "a, b", From: "2023-01-01"}.Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if q.Range != nil {
		t.Error("a single bound must not build a range")
	}
	if len(q.Fields) != 2 || q.Fields[1] != "b" {
		t.Errorf("fields = %v", q.Fields)
	}

	q, err = DashboardParams{From: "2023-01-01", To: "2023-03-01"}.Query()
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if q.Range == nil || q.Range.To.String() != "2023-03-01" {
		t.Errorf("range = %+v", q.Range)
	}

	_, err = DashboardParams{From: "01/02/2023", To: "2023-03-01"}.Query()
	var mde *core.MalformedDateError
	if !errors.As(err, &mde) {
		t.Errorf("expected MalformedDateError, got %v", err)
	}
}

func TestDashboardParamsEncode(t *testing.T) {
	got := DashboardParams{Fields: "a,b", To: "2023-02-01"}.Encode()
	if got != "fields=a%2Cb&to=2023-02-01" {
		t.Errorf("Encode() = %q", got)
	}
}

func TestRequireMethod(t *testing.T) {
	if resp := RequireGET(httptest.NewRequest(http.MethodGet, "/", nil)); resp != nil {
		t.Fatal("GET should be allowed")
	}

	resp := RequireGET(httptest.NewRequest(http.MethodPost, "/", nil))
	if resp == nil {
		t.Fatal("POST should be rejected")
	}
	rr := httptest.NewRecorder()
	resp.Write(rr)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rr.Code)
	}
	if rr.Header().Get("Allow") != "GET" {
		t.Errorf("Allow = %q", rr.Header().Get("Allow"))
	}
}
