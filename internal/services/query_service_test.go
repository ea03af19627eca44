package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metricsdash/internal/core"
)

type fakeSource struct {
	records []core.Record
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (f *fakeSource) FetchRecords(ctx context.Context, hint *core.DateRange) ([]core.Record, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return core.CloneRecords(f.records), nil
}

func newService(src *fakeSource, ttl time.Duration) *QueryService {
	return NewQueryService(src, QueryServiceConfig{Backend: "fake", CacheTTL: ttl, FetchTimeout: time.Second}, nil)
}

var allNumeric = []string{"totalSales", "orderCount", "averageOrderValue", "customerSatisfaction", "newCustomers", "returnRate"}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name      string
		fields    string
		from, to  string
		want      []string
		wantRange bool
		wantErr   bool
	}{
		{name: "empty", want: nil},
		{name: "fields trimmed", fields: " totalSales, orderCount ,,", want: []string{"totalSales", "orderCount"}},
		{name: "pair", from: "2023-01-01", to: "2023-03-31", wantRange: true},
		{name: "from only ignored", from: "2023-01-01"},
		{name: "to only ignored", to: "not-a-date"},
		{name: "malformed pair", from: "2023-13-45", to: "2023-03-31", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.fields, tt.from, tt.to)
			if tt.wantErr {
				var mde *core.MalformedDateError
				assert.ErrorAs(t, err, &mde)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Fields)
			assert.Equal(t, tt.wantRange, q.Range != nil)
		})
	}
}

func TestQuery_WindowAndSelection(t *testing.T) {
	svc := newService(&fakeSource{records: core.SampleRecords()}, time.Minute)
	q, err := ParseQuery("totalSales,orderCount", "2023-01-01", "2023-03-31")
	require.NoError(t, err)

	env, err := svc.Query(context.Background(), q)
	require.NoError(t, err)

	require.Len(t, env.Data, 3)
	for i, month := range []string{"2023-01-01", "2023-02-01", "2023-03-01"} {
		assert.Equal(t, month, env.Data[i].Date.String())
		assert.Equal(t, []string{"totalSales", "orderCount"}, env.Data[i].Names())
	}
	assert.Equal(t, allNumeric, env.AvailableFields)
}

func TestQuery_NonNumericFieldFallsBack(t *testing.T) {
	svc := newService(&fakeSource{records: core.SampleRecords()}, time.Minute)

	env, err := svc.Query(context.Background(), Query{Fields: []string{"topCategory"}})
	require.NoError(t, err)

	require.Len(t, env.Data, 12)
	for _, rec := range env.Data {
		assert.Equal(t, allNumeric, rec.Names())
		_, ok := rec.Get("topCategory")
		assert.False(t, ok)
	}
}

func TestQuery_MissingDateFailsWholeRequest(t *testing.T) {
	recs := core.SampleRecords()
	recs[4].Date = core.Date{}
	svc := newService(&fakeSource{records: recs}, time.Minute)

	env, err := svc.Query(context.Background(), Query{})
	assert.ErrorIs(t, err, core.ErrMissingDate)
	assert.Nil(t, env.Data)
}

func TestQuery_InvertedRangeIsEmpty(t *testing.T) {
	svc := newService(&fakeSource{records: core.SampleRecords()}, time.Minute)
	q, err := ParseQuery("", "2023-12-31", "2023-01-01")
	require.NoError(t, err)

	env, err := svc.Query(context.Background(), q)
	require.NoError(t, err)
	assert.Empty(t, env.Data)
	assert.Empty(t, env.AvailableFields)

	b, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[],"availableFields":[]}`, string(b))
}

func TestQuery_EmptySource(t *testing.T) {
	svc := newService(&fakeSource{}, time.Minute)

	env, err := svc.Query(context.Background(), Query{Fields: []string{"totalSales"}})
	require.NoError(t, err)
	assert.NotNil(t, env.Data)
	assert.NotNil(t, env.AvailableFields)
	assert.Empty(t, env.Data)
}

func TestQuery_SourceUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newService(&fakeSource{err: boom}, time.Minute)

	_, err := svc.Query(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestQuery_MalformedStoredDate(t *testing.T) {
	_, parseErr := core.ParseDate("first of May")
	svc := newService(&fakeSource{err: parseErr}, time.Minute)

	_, err := svc.Query(context.Background(), Query{})
	var mde *core.MalformedDateError
	assert.ErrorAs(t, err, &mde)
	assert.NotErrorIs(t, err, ErrSourceUnavailable)
}

func TestQuery_FetchTimeout(t *testing.T) {
	src := &fakeSource{records: core.SampleRecords(), delay: time.Second}
	svc := NewQueryService(src, QueryServiceConfig{FetchTimeout: 20 * time.Millisecond}, nil)

	_, err := svc.Query(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQuery_CachesRecordSet(t *testing.T) {
	src := &fakeSource{records: core.SampleRecords()}
	svc := newService(src, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Query(ctx, Query{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestQuery_ConcurrentRequestsAreIndependent(t *testing.T) {
	src := &fakeSource{records: core.SampleRecords(), delay: 10 * time.Millisecond}
	svc := newService(src, time.Minute)
	ctx := context.Background()

	selections := [][]string{{"totalSales"}, {"orderCount", "returnRate"}, nil, {"topCategory"}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(fields []string) {
			defer wg.Done()
			env, err := svc.Query(ctx, Query{Fields: fields})
			if !assert.NoError(t, err) {
				return
			}
			want := core.ResolveFields(fields, allNumeric)
			for _, rec := range env.Data {
				assert.Equal(t, want, rec.Names())
			}
			if len(env.Data) > 0 {
				env.Data[0].Set("mutated", core.Number(1))
			}
		}(selections[i%len(selections)])
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load(), "concurrent misses share one fetch")

	env, err := svc.Query(ctx, Query{})
	require.NoError(t, err)
	_, ok := env.Data[0].Get("mutated")
	assert.False(t, ok)
}

func TestShapeIsIdempotent(t *testing.T) {
	q := Query{Fields: []string{"newCustomers", "totalSales", "newCustomers"}}
	first := Shape(core.SampleRecords(), q)
	second := Shape(first.Data, Query{Fields: first.Data[0].Names()})

	assert.Equal(t, allNumeric, first.AvailableFields)
	assert.Equal(t, []string{"newCustomers", "totalSales"}, first.Data[0].Names())
	assert.Equal(t, []string{"newCustomers", "totalSales"}, second.AvailableFields)
	a, _ := json.Marshal(first.Data)
	b, _ := json.Marshal(second.Data)
	assert.JSONEq(t, string(a), string(b))
}
