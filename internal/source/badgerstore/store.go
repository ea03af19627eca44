// Package badgerstore stores metric records in an embedded Badger database,
// one zstd-compressed JSON document per day.
package badgerstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"metricsdash/internal/conn"
	"metricsdash/internal/core"
)

const keyPrefix = "metric/"

// Config holds store configuration
type Config struct {
	Dir      string
	InMemory bool
}

// Store implements source.Store on Badger.
type Store struct {
	db    *conn.Handle[*badger.DB]
	codec *codec
}

// NewStore prepares a store. The database is opened on first use.
func NewStore(cfg Config) (*Store, error) {
	c, err := newCodec()
	if err != nil {
		return nil, err
	}
	return &Store{
		codec: c,
		db: conn.NewHandle(func(ctx context.Context) (*badger.DB, error) {
			opts := badger.DefaultOptions(cfg.Dir)
			if cfg.InMemory {
				opts = badger.DefaultOptions("").WithInMemory(true)
			}
			opts = opts.WithLogger(nil)

			db, err := badger.Open(opts)
			if err != nil {
				return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
			}
			slog.InfoContext(ctx, "Badger database ready", "dir", cfg.Dir, "in_memory", cfg.InMemory)
			return db, nil
		}, (*badger.DB).Close),
	}, nil
}

func recordKey(d core.Date) []byte {
	return []byte(keyPrefix + d.String())
}

// FetchRecords implements source.RecordSource. Keys sort by day, so a hint
// becomes a bounded key scan.
func (s *Store) FetchRecords(ctx context.Context, hint *core.DateRange) ([]core.Record, error) {
	db, err := s.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]core.Record, 0)
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		start := []byte(keyPrefix)
		if hint != nil {
			start = recordKey(hint.From)
		}
		for it.Seek(start); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			date, err := core.ParseDate(string(item.Key()[len(keyPrefix):]))
			if err != nil {
				return err
			}
			if hint != nil && date.After(hint.To.Time) {
				break
			}
			value, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("read metric %s: %w", date, err)
			}
			rec, err := s.codec.decode(date, value)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// ReplaceAll implements source.RecordWriter
func (s *Store) ReplaceAll(ctx context.Context, recs []core.Record) (int, error) {
	db, err := s.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	var keys [][]byte
	err = db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list metrics: %w", err)
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return 0, fmt.Errorf("delete metric: %w", err)
		}
	}
	if err := s.writeAll(wb, recs); err != nil {
		return 0, err
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flush metrics: %w", err)
	}

	slog.InfoContext(ctx, "Metrics replaced in Badger", "removed", len(keys), "inserted", len(recs))
	return len(keys), nil
}

// Upsert implements source.RecordWriter
func (s *Store) Upsert(ctx context.Context, recs []core.Record) error {
	db, err := s.db.Acquire(ctx)
	if err != nil {
		return err
	}

	wb := db.NewWriteBatch()
	defer wb.Cancel()
	if err := s.writeAll(wb, recs); err != nil {
		return err
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush metrics: %w", err)
	}
	slog.InfoContext(ctx, "Metrics upserted to Badger", "count", len(recs))
	return nil
}

func (s *Store) writeAll(wb *badger.WriteBatch, recs []core.Record) error {
	for _, rec := range recs {
		if rec.Date.IsEmpty() {
			return core.ErrMissingDate
		}
		value, err := s.codec.encode(rec)
		if err != nil {
			return err
		}
		if err := wb.Set(recordKey(rec.Date), value); err != nil {
			return fmt.Errorf("write metric %s: %w", rec.Date, err)
		}
	}
	return nil
}

// Ping opens the database if needed.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.db.Acquire(ctx)
	return err
}

// Close closes the database and releases the codec.
func (s *Store) Close() error {
	err := s.db.Close()
	s.codec.close()
	return err
}
