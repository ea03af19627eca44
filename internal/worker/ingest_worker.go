package worker

import (
	"context"
	"fmt"
	"log/slog"

	"metricsdash/internal/amqp"
	"metricsdash/internal/core"
	applog "metricsdash/internal/log"
	"metricsdash/internal/metrics"
	"metricsdash/internal/source"
)

// IngestWorker validates record batches from AMQP and writes them to the
// configured store.
type IngestWorker struct {
	writer source.RecordWriter
	schema core.Schema
	logger *applog.StructuredLogger
}

func NewIngestWorker(writer source.RecordWriter, schema core.Schema, logger *applog.Logger) *IngestWorker {
	if logger == nil {
		logger = applog.New(applog.Config{Component: applog.ComponentWorker, Handler: slog.Default().Handler()})
	}
	return &IngestWorker{
		writer: writer,
		schema: schema,
		logger: applog.NewStructuredLogger(logger),
	}
}

// HandleBatch processes a single record batch message. Batches that fail
// validation are rejected as a whole and never retried; store errors are
// returned for a retry.
func (w *IngestWorker) HandleBatch(ctx context.Context, msg *amqp.RecordBatchMessage) error {
	slog.DebugContext(ctx, "Processing record batch",
		applog.FieldBatchID, msg.BatchID,
		applog.FieldRecordCount, len(msg.Records))

	if len(msg.Records) == 0 {
		metrics.RecordIngestedBatch(metrics.OutcomeOK, 0)
		return nil
	}

	if err := w.schema.ValidateAll(msg.Records); err != nil {
		metrics.RecordIngestedBatch(metrics.OutcomeRejected, len(msg.Records))
		w.logger.LogError(ctx, "Record batch rejected", err, applog.ComponentWorker, applog.OpValidate,
			applog.NewFields().WithErrorType(applog.ErrorTypeValidation).WithRecordCount(len(msg.Records)))
		return fmt.Errorf("batch %s: %w: %w", msg.BatchID, amqp.ErrInvalidMessage, err)
	}

	if err := w.writer.Upsert(ctx, msg.Records); err != nil {
		metrics.RecordIngestedBatch(metrics.OutcomeFailed, len(msg.Records))
		w.logger.LogError(ctx, "Failed to write record batch", err, applog.ComponentWorker, applog.OpUpsert,
			applog.NewFields().WithErrorType(applog.ErrorTypeDatabase).WithRecordCount(len(msg.Records)))
		return fmt.Errorf("upsert batch %s: %w", msg.BatchID, err)
	}

	metrics.RecordIngestedBatch(metrics.OutcomeOK, len(msg.Records))
	w.logger.LogBatchIngested(ctx, msg.BatchID, len(msg.Records))
	return nil
}
