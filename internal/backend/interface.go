package backend

import (
	"context"

	"metricsdash/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record store and optional cleanup function
type BackendResult struct {
	Store   source.Store
	Cleanup CleanupFunc
}

// Factory creates record stores based on configuration
type Factory interface {
	// CreateBackend creates a store instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Memory specific
	RecordsFile string

	// SQLite specific
	SQLiteDBPath string

	// Badger specific
	BadgerDir string

	// MongoDB specific
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	BadgerBackend BackendType = "badger"
	MongoBackend  BackendType = "mongo"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsPersistent reports whether records written to the backend outlive the
// process that wrote them.
func (bt BackendType) IsPersistent() bool {
	return bt.IsValid() && bt != MemoryBackend
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, BadgerBackend, MongoBackend:
		return true
	default:
		return false
	}
}
