package source

import (
	"context"

	"metricsdash/internal/core"
)

// Ports for record stores.
type (
	// RecordSource supplies metric records in ascending date order.
	RecordSource interface {
		// FetchRecords returns every record, or only those inside hint when
		// the store can narrow the read. Callers must not rely on the hint
		// being applied.
		FetchRecords(ctx context.Context, hint *core.DateRange) ([]core.Record, error)
	}

	// RecordWriter stores metric records. Every implementation fails with
	// core.ErrMissingDate, before changing anything, when a record has no
	// date.
	RecordWriter interface {
		// ReplaceAll drops every stored record and inserts recs. It returns
		// how many records were removed.
		ReplaceAll(ctx context.Context, recs []core.Record) (removed int, err error)
		// Upsert inserts recs, replacing records that share a date.
		Upsert(ctx context.Context, recs []core.Record) error
	}

	// Pinger is implemented by stores backed by an engine that can be
	// probed for readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Store is a readable and writable record store.
	Store interface {
		RecordSource
		RecordWriter
		Close() error
	}
)

// Ping probes s when it supports it. Stores without an engine are always
// ready.
func Ping(ctx context.Context, s RecordSource) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
