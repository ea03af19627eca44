package backend

import (
	"context"
	"fmt"
	"log/slog"

	"metricsdash/internal/source/badgerstore"
	"metricsdash/internal/source/memory"
	"metricsdash/internal/source/mongostore"
	"metricsdash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend. Stores that talk to an
// engine connect lazily, so creation never dials.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case BadgerBackend:
		return f.createBadgerBackend(config)
	case MongoBackend:
		return f.createMongoBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromFile(config.RecordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load records file: %w", err)
	}

	f.logger.Info("Initialized memory backend", "records_file", config.RecordsFile, "records", store.Len())

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo := storage.NewSQLiteRepository(config.SQLiteDBPath)

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createBadgerBackend(config Config) (*BackendResult, error) {
	store, err := badgerstore.NewStore(badgerstore.Config{Dir: config.BadgerDir})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Badger store: %w", err)
	}

	f.logger.Info("Initialized Badger backend", "dir", config.BadgerDir)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMongoBackend(config Config) (*BackendResult, error) {
	store, err := mongostore.NewStore(mongostore.Config{
		URI:        config.MongoURI,
		Database:   config.MongoDatabase,
		Collection: config.MongoCollection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}

	f.logger.Info("Initialized MongoDB backend",
		"database", config.MongoDatabase,
		"collection", config.MongoCollection)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}
