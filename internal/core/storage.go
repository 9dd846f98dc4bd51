package core

import (
	"context"
	"fmt"

	"uksledger/internal/infra/persistence/file"
	"uksledger/internal/infra/persistence/memory"
	"uksledger/internal/infra/persistence/postgres"
	"uksledger/internal/infra/persistence/sqlite"
	"uksledger/pkg/domain"
)

// StorageConfig selects and configures the document backend.
type StorageConfig struct {
	Driver      domain.StorageDriver
	SQLitePath  string
	PostgresDSN string
	FilePath    string
}

// OpenDocumentStore builds the configured backend. An empty driver selects sqlite.
//
//	memory:   nothing survives the process
//	file:     one JSON document at FilePath (default ./uks_db.json)
//	sqlite:   state table in SQLitePath (default ./uks.db)
//	postgres: state table reached through PostgresDSN
func OpenDocumentStore(ctx context.Context, cfg StorageConfig) (domain.DocumentStore, error) {
	switch cfg.Driver {
	case domain.StorageMemory:
		return memory.NewStore(), nil
	case domain.StorageFile:
		return file.NewStore(cfg.FilePath)
	case "", domain.StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case domain.StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
