package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"metricsdash/internal/amqp"
	"metricsdash/internal/core"
)

type fakeConsumer struct {
	batches []*amqp.RecordBatchMessage
	err     error
	handled chan error
}

func (f *fakeConsumer) ConsumeBatches(ctx context.Context, handler amqp.BatchHandler) error {
	for _, b := range f.batches {
		f.handled <- handler(ctx, b)
	}
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestIngestProcessor_Lifecycle(t *testing.T) {
	consumer := &fakeConsumer{
		batches: []*amqp.RecordBatchMessage{amqp.NewRecordBatchMessage(core.SampleRecords()[:2])},
		handled: make(chan error, 1),
	}
	var got int
	processor := NewIngestProcessor(consumer, func(ctx context.Context, msg *amqp.RecordBatchMessage) error {
		got += len(msg.Records)
		return nil
	})

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}

	ctx := context.Background()
	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("second Start should fail while running")
	}

	select {
	case err := <-consumer.handled:
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("batch was not handled")
	}
	if got != 2 {
		t.Errorf("handled %d records, want 2", got)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
	if processor.Err() != nil {
		t.Errorf("cancelled consumer should not report an error, got %v", processor.Err())
	}
}

func TestIngestProcessor_FatalError(t *testing.T) {
	fatal := errors.New("access refused")
	processor := NewIngestProcessor(&fakeConsumer{err: fatal, handled: make(chan error)}, nil)

	if err := processor.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	select {
	case <-processor.Done():
	case <-time.After(time.Second):
		t.Fatal("processor did not stop after a fatal consumer error")
	}
	if !errors.Is(processor.Err(), fatal) {
		t.Errorf("Err() = %v, want %v", processor.Err(), fatal)
	}
}

func TestIngestProcessor_StopBeforeStart(t *testing.T) {
	processor := NewIngestProcessor(&fakeConsumer{}, nil)
	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop() before Start should be a no-op, got %v", err)
	}
	select {
	case <-processor.Done():
	default:
		t.Error("Done() should be closed when never started")
	}
}
