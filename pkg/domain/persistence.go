package domain

import "context"

// StorageDriver identifies a concrete document store implementation.
type StorageDriver string

// Supported storage drivers.
const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageFile     StorageDriver = "file"     // single JSON file
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// DocumentStore is the durable slot holding the serialised aggregate.
// Save must replace the whole document atomically: a later Load observes either
// the previous document or the new one, never a mix.
type DocumentStore interface {
	// Load returns ErrNoDocument when nothing has been saved yet.
	Load(ctx context.Context) (Aggregate, error)
	Save(ctx context.Context, agg Aggregate) error
	Driver() StorageDriver
}
