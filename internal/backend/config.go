package backend

import (
	"errors"
	"fmt"

	"metricsdash/internal/config"
)

// ErrVolatileBackend is returned when a write path is pointed at a store
// that does not outlive the process.
var ErrVolatileBackend = errors.New("backend does not persist records")

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:            backendType,
		RecordsFile:     appConfig.RecordsFile,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		BadgerDir:       appConfig.BadgerDir,
		MongoURI:        appConfig.MongoURI,
		MongoDatabase:   appConfig.MongoDatabase,
		MongoCollection: appConfig.MongoCollection,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case BadgerBackend:
		if c.BadgerDir == "" {
			return fmt.Errorf("Badger directory is required for badger backend")
		}
	case MongoBackend:
		if c.MongoURI == "" {
			return fmt.Errorf("MongoDB URI is required for mongo backend")
		}
	case MemoryBackend:
		// An empty records file selects the built-in sample dataset
	}

	return nil
}

// RequirePersistent fails with ErrVolatileBackend unless writes to the
// configured backend survive the process. Seeding and ingestion need this.
func (c Config) RequirePersistent() error {
	if !c.Type.IsPersistent() {
		return fmt.Errorf("%w: %s; choose one of sqlite, badger or mongo", ErrVolatileBackend, c.Type)
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, BadgerBackend, MongoBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
