package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metricsdash/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreReplaceAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	removed, err := s.ReplaceAll(ctx, core.SampleRecords())
	require.NoError(t, err)
	assert.Zero(t, removed)

	recs, err := s.FetchRecords(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, core.SampleRecords(), recs)

	removed, err = s.ReplaceAll(ctx, core.SampleRecords()[:2])
	require.NoError(t, err)
	assert.Equal(t, 12, removed)

	recs, err = s.FetchRecords(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestStoreFetchWithHint(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Upsert(ctx, core.SampleRecords()))

	rng, err := core.NewDateRange("2023-03-01", "2023-05-31")
	require.NoError(t, err)
	recs, err := s.FetchRecords(ctx, &rng)
	require.NoError(t, err)

	var dates []string
	for _, r := range recs {
		dates = append(dates, r.Date.String())
	}
	assert.Equal(t, []string{"2023-03-01", "2023-04-01", "2023-05-01"}, dates)
}

func TestStoreUpsertRejectsUndated(t *testing.T) {
	s := newTestStore(t)
	rec := core.SampleRecords()[0]
	rec.Date = core.Date{}
	assert.ErrorIs(t, s.Upsert(context.Background(), []core.Record{rec}), core.ErrMissingDate)
}

func TestCodecRoundTrip(t *testing.T) {
	c, err := newCodec()
	require.NoError(t, err)
	defer c.close()

	rec := core.SampleRecords()[4]
	rec.Set("createdAt", core.Text("2024-01-01T00:00:00Z"))

	b, err := c.encode(rec)
	require.NoError(t, err)
	got, err := c.decode(rec.Date, b)
	require.NoError(t, err)
	assert.Equal(t, core.SampleRecords()[4], got)
}
