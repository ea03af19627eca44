package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"metricsdash/internal/conn"
	"metricsdash/internal/core"

	_ "modernc.org/sqlite"
)

const nowExpr = `strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`

// SQLiteRepository stores records as JSON payloads keyed by date.
type SQLiteRepository struct {
	path string
	db   *conn.Handle[*sql.DB]
}

// NewSQLiteRepository prepares a repository for dbPath. The database is
// opened and migrated on first use.
func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{
		path: dbPath,
		db: conn.NewHandle(func(ctx context.Context) (*sql.DB, error) {
			return openSQLite(ctx, dbPath)
		}, (*sql.DB).Close),
	}
}

func openSQLite(ctx context.Context, dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "SQLite database ready", "path", dbPath)
	return db, nil
}

// Close releases the database if it was opened.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Ping opens the database if needed and checks it answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	db, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// FetchRecords implements source.RecordSource
func (r *SQLiteRepository) FetchRecords(ctx context.Context, hint *core.DateRange) ([]core.Record, error) {
	db, err := r.db.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT date, payload FROM metrics`
	var args []any
	if hint != nil {
		query += ` WHERE date BETWEEN ? AND ?`
		args = append(args, hint.From.String(), hint.To.String())
	}
	query += ` ORDER BY date ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	recs := make([]core.Record, 0)
	for rows.Next() {
		var date, payload string
		if err := rows.Scan(&date, &payload); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		rec, err := decodeRow(date, payload)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return recs, nil
}

// ReplaceAll implements source.RecordWriter
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, recs []core.Record) (int, error) {
	db, err := r.db.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM metrics`)
	if err != nil {
		return 0, fmt.Errorf("clear metrics: %w", err)
	}
	removed, _ := res.RowsAffected()

	if err := upsertTx(ctx, tx, recs); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Metrics replaced in SQLite", "removed", removed, "inserted", len(recs))
	return int(removed), nil
}

// Upsert implements source.RecordWriter
func (r *SQLiteRepository) Upsert(ctx context.Context, recs []core.Record) error {
	db, err := r.db.Acquire(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertTx(ctx, tx, recs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Metrics upserted to SQLite", "count", len(recs))
	return nil
}

func upsertTx(ctx context.Context, tx *sql.Tx, recs []core.Record) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO metrics (date, payload) VALUES (?, ?)
		ON CONFLICT(date) DO UPDATE SET payload = excluded.payload, updated_at = `+nowExpr)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if rec.Date.IsEmpty() {
			return core.ErrMissingDate
		}
		payload, err := encodePayload(rec)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, rec.Date.String(), payload); err != nil {
			return fmt.Errorf("upsert metric %s: %w", rec.Date, err)
		}
	}
	return nil
}

// encodePayload stores every field except the date and storage metadata.
func encodePayload(rec core.Record) (string, error) {
	body := core.Record{Fields: make([]core.Field, 0, len(rec.Fields))}
	for _, f := range rec.Fields {
		if !core.IsMetadataField(f.Name) {
			body.Fields = append(body.Fields, f)
		}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode metric %s: %w", rec.Date, err)
	}
	return string(b), nil
}

func decodeRow(date, payload string) (core.Record, error) {
	var rec core.Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return core.Record{}, fmt.Errorf("decode metric %s: %w", date, err)
	}
	if date != "" {
		d, err := core.ParseDate(date)
		if err != nil {
			return core.Record{}, err
		}
		rec.Date = d
	}
	return rec, nil
}
