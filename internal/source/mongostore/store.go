// Package mongostore reads and writes metric documents in a MongoDB
// collection.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"metricsdash/internal/conn"
	"metricsdash/internal/core"
)

const (
	serverSelectionTimeout = 5 * time.Second
	socketTimeout          = 45 * time.Second
)

var ErrNoURI = errors.New("MONGODB_URI is not defined")

// Config holds connection settings
type Config struct {
	URI        string
	Database   string
	Collection string
}

// Store implements source.Store on a MongoDB collection.
type Store struct {
	cfg    Config
	client *conn.Handle[*mongo.Client]
}

// NewStore prepares a store. The client connects on first use and is
// shared by every caller afterwards.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, ErrNoURI
	}
	if cfg.Database == "" {
		cfg.Database = "dashboard"
	}
	if cfg.Collection == "" {
		cfg.Collection = "metrics"
	}
	s := &Store{cfg: cfg}
	s.client = conn.NewHandle(s.connect, func(c *mongo.Client) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Disconnect(ctx); err != nil {
			return err
		}
		slog.Info("MongoDB disconnected")
		return nil
	})
	return s, nil
}

func (s *Store) connect(ctx context.Context) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(s.cfg.URI).
		SetServerSelectionTimeout(serverSelectionTimeout).
		SetSocketTimeout(socketTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	slog.InfoContext(ctx, "MongoDB connected successfully", "database", s.cfg.Database, "collection", s.cfg.Collection)
	return client, nil
}

func (s *Store) collection(ctx context.Context) (*mongo.Collection, error) {
	client, err := s.client.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(s.cfg.Database).Collection(s.cfg.Collection), nil
}

// FetchRecords implements source.RecordSource
func (s *Store) FetchRecords(ctx context.Context, hint *core.DateRange) ([]core.Record, error) {
	coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}

	filter := bson.D{}
	if hint != nil {
		filter = bson.D{{Key: core.DateField, Value: bson.D{
			{Key: "$gte", Value: hint.From.String()},
			{Key: "$lte", Value: hint.To.String()},
		}}}
	}
	cur, err := coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: core.DateField, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find metrics: %w", err)
	}
	defer cur.Close(ctx)

	recs := make([]core.Record, 0)
	for cur.Next(ctx) {
		var doc bson.D
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode metric document: %w", err)
		}
		rec, err := documentToRecord(doc)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics: %w", err)
	}
	return recs, nil
}

// ReplaceAll implements source.RecordWriter. Records are checked before the
// collection is touched, so a dateless record leaves it intact.
func (s *Store) ReplaceAll(ctx context.Context, recs []core.Record) (int, error) {
	if err := core.ValidateDates(recs); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(recs))
	for _, rec := range recs {
		doc := recordToDocument(rec)
		doc = append(doc, bson.E{Key: "createdAt", Value: now}, bson.E{Key: "updatedAt", Value: now})
		docs = append(docs, doc)
	}

	coll, err := s.collection(ctx)
	if err != nil {
		return 0, err
	}

	res, err := coll.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("clear metrics: %w", err)
	}
	if len(docs) > 0 {
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return int(res.DeletedCount), fmt.Errorf("insert metrics: %w", err)
		}
	}

	slog.InfoContext(ctx, "Metrics replaced in MongoDB", "removed", res.DeletedCount, "inserted", len(recs))
	return int(res.DeletedCount), nil
}

// Upsert implements source.RecordWriter
func (s *Store) Upsert(ctx context.Context, recs []core.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if err := core.ValidateDates(recs); err != nil {
		return err
	}

	models := make([]mongo.WriteModel, 0, len(recs))
	for _, rec := range recs {
		update := bson.D{
			{Key: "$set", Value: recordToDocument(rec)},
			{Key: "$setOnInsert", Value: bson.D{{Key: "createdAt", Value: time.Now().UTC()}}},
			{Key: "$currentDate", Value: bson.D{{Key: "updatedAt", Value: true}}},
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: core.DateField, Value: rec.Date.String()}}).
			SetUpdate(update).
			SetUpsert(true))
	}
	coll, err := s.collection(ctx)
	if err != nil {
		return err
	}
	res, err := coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("upsert metrics: %w", err)
	}

	slog.InfoContext(ctx, "Metrics upserted to MongoDB", "matched", res.MatchedCount, "upserted", res.UpsertedCount)
	return nil
}

// Ping connects if needed and pings the primary.
func (s *Store) Ping(ctx context.Context) error {
	client, err := s.client.Acquire(ctx)
	if err != nil {
		return err
	}
	return client.Ping(ctx, nil)
}

// Close disconnects the client if it was connected.
func (s *Store) Close() error {
	return s.client.Close()
}

// recordToDocument writes the date and metric fields. Metadata is left to
// the store.
func recordToDocument(rec core.Record) bson.D {
	doc := bson.D{{Key: core.DateField, Value: rec.Date.String()}}
	for _, f := range rec.Fields {
		if core.IsMetadataField(f.Name) {
			continue
		}
		doc = append(doc, bson.E{Key: f.Name, Value: f.Value.Interface()})
	}
	return doc
}

// documentToRecord drops _id, __v and the timestamps, and keeps every
// other key in document order.
func documentToRecord(doc bson.D) (core.Record, error) {
	var rec core.Record
	for _, e := range doc {
		if e.Key == core.DateField {
			d, err := dateValue(e.Value)
			if err != nil {
				return core.Record{}, err
			}
			rec.Date = d
			continue
		}
		if core.IsMetadataField(e.Key) {
			continue
		}
		rec.Set(e.Key, bsonValue(e.Value))
	}
	return rec, nil
}

func dateValue(v any) (core.Date, error) {
	switch t := v.(type) {
	case nil:
		return core.Date{}, nil
	case string:
		if t == "" {
			return core.Date{}, nil
		}
		return core.ParseDate(t)
	case primitive.DateTime:
		return core.DateOf(t.Time().UTC()), nil
	case time.Time:
		return core.DateOf(t.UTC()), nil
	default:
		return core.Date{}, &core.MalformedDateError{Input: fmt.Sprint(v), Err: fmt.Errorf("unsupported date type %T", v)}
	}
}

func bsonValue(v any) core.Value {
	switch t := v.(type) {
	case primitive.Decimal128:
		if f, err := decimalToFloat(t); err == nil {
			return core.Number(f)
		}
		return core.Text(t.String())
	case primitive.DateTime:
		return core.Text(t.Time().UTC().Format(time.RFC3339))
	case primitive.ObjectID:
		return core.Text(t.Hex())
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = bsonValue(e.Value).Interface()
		}
		return core.ValueOf(m)
	case bson.A:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = bsonValue(item).Interface()
		}
		return core.ValueOf(items)
	default:
		return core.ValueOf(v)
	}
}

func decimalToFloat(d primitive.Decimal128) (float64, error) {
	var f float64
	_, err := fmt.Sscan(d.String(), &f)
	return f, err
}
