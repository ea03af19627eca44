package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metricsdash/internal/amqp"
	"metricsdash/internal/core"
	"metricsdash/internal/source/memory"
)

type failingWriter struct {
	err error
}

func (f failingWriter) ReplaceAll(context.Context, []core.Record) (int, error) { return 0, f.err }
func (f failingWriter) Upsert(context.Context, []core.Record) error           { return f.err }

func TestHandleBatch_WritesValidRecords(t *testing.T) {
	store := memory.New(nil)
	w := NewIngestWorker(store, core.MetricSchema, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleBatch(ctx, amqp.NewRecordBatchMessage(core.SampleRecords()[:3])))

	updated := core.SampleRecords()[0]
	updated.Set("orderCount", core.Number(1))
	require.NoError(t, w.HandleBatch(ctx, amqp.NewRecordBatchMessage([]core.Record{updated})))

	recs, err := store.FetchRecords(ctx, nil)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	v, _ := recs[0].Get("orderCount")
	assert.True(t, v.Equal(core.Number(1)))
}

func TestHandleBatch_RejectsInvalidBatchWhole(t *testing.T) {
	store := memory.New(nil)
	w := NewIngestWorker(store, core.MetricSchema, nil)

	recs := core.SampleRecords()[:2]
	recs[1].Set("orderCount", core.Text("many"))

	err := w.HandleBatch(context.Background(), amqp.NewRecordBatchMessage(recs))
	assert.ErrorIs(t, err, amqp.ErrInvalidMessage)
	assert.ErrorIs(t, err, core.ErrSchemaViolation)
	assert.Equal(t, 0, store.Len(), "nothing from a rejected batch is written")
}

func TestHandleBatch_MissingDateRejected(t *testing.T) {
	w := NewIngestWorker(memory.New(nil), core.MetricSchema, nil)
	recs := core.SampleRecords()[:1]
	recs[0].Date = core.Date{}

	err := w.HandleBatch(context.Background(), amqp.NewRecordBatchMessage(recs))
	assert.ErrorIs(t, err, amqp.ErrInvalidMessage)
}

func TestHandleBatch_StoreErrorIsRetryable(t *testing.T) {
	down := errors.New("database is locked")
	w := NewIngestWorker(failingWriter{err: down}, core.MetricSchema, nil)

	err := w.HandleBatch(context.Background(), amqp.NewRecordBatchMessage(core.SampleRecords()[:1]))
	assert.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, amqp.ErrInvalidMessage)
}

func TestHandleBatch_Empty(t *testing.T) {
	w := NewIngestWorker(failingWriter{err: errors.New("unused")}, core.MetricSchema, nil)
	assert.NoError(t, w.HandleBatch(context.Background(), amqp.NewRecordBatchMessage(nil)))
}
