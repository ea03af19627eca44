//go:build integration

package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metricsdash/internal/core"
)

// Integration tests require a reachable MongoDB
// Run with: MONGODB_URI=mongodb://localhost:27017 go test -tags=integration ./internal/source/mongostore

func TestIntegration_MongoStoreFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping integration test")
	}

	s, err := NewStore(Config{URI: uri, Database: "metricsdash_test", Collection: "metrics_" + time.Now().Format("150405")})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, s.Ping(ctx))

	_, err = s.ReplaceAll(ctx, core.SampleRecords())
	require.NoError(t, err)

	recs, err := s.FetchRecords(ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 12)
	assert.Equal(t, core.SampleRecords()[0].Names(), recs[0].Names())

	changed := core.SampleRecords()[0]
	changed.Set("orderCount", core.Number(1))
	require.NoError(t, s.Upsert(ctx, []core.Record{changed}))

	rng, _ := core.NewDateRange("2023-01-01", "2023-01-31")
	recs, err = s.FetchRecords(ctx, &rng)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	v, _ := recs[0].Get("orderCount")
	assert.True(t, v.Equal(core.Number(1)))

	removed, err := s.ReplaceAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 12, removed)
}
