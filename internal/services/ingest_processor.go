package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"metricsdash/internal/amqp"
)

// BatchConsumer delivers record batches to a handler until ctx is done.
type BatchConsumer interface {
	ConsumeBatches(ctx context.Context, handler amqp.BatchHandler) error
}

// IngestProcessor runs a batch consumer in the background and owns its
// lifecycle.
type IngestProcessor struct {
	consumer BatchConsumer
	handler  amqp.BatchHandler

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
	err     error
}

// NewIngestProcessor creates a new ingest processor
func NewIngestProcessor(consumer BatchConsumer, handler amqp.BatchHandler) *IngestProcessor {
	return &IngestProcessor{
		consumer: consumer,
		handler:  handler,
	}
}

// Start begins consuming. Returns an error if already running.
func (p *IngestProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("ingest processor is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.doneCh = make(chan struct{})
	p.err = nil

	go p.run(runCtx, p.doneCh)

	slog.InfoContext(ctx, "Ingest processor started")
	return nil
}

func (p *IngestProcessor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	err := p.consumer.ConsumeBatches(ctx, p.handler)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "Ingest consumer stopped", "error", err)
	}

	p.mu.Lock()
	p.err = err
	p.running = false
	p.mu.Unlock()
}

// Done is closed when the consumer stops, on Stop or on a fatal error.
func (p *IngestProcessor) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doneCh == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.doneCh
}

// Err returns the error that stopped the consumer, if any.
func (p *IngestProcessor) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop cancels consumption and waits for the consumer to return.
func (p *IngestProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return nil
	}
	cancel, done := p.cancel, p.doneCh
	p.mu.Unlock()

	cancel()

	select {
	case <-done:
		slog.InfoContext(ctx, "Ingest processor stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Ingest processor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the processor is currently running
func (p *IngestProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
