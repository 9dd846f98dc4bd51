// Package sqlite persists the ledger aggregate to an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"uksledger/internal/infra/persistence"
	"uksledger/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.DocumentStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "uks.db"

// Store writes each aggregate section to a row of the state table. A save
// replaces every row in one transaction.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Driver identifies the backend.
func (s *Store) Driver() domain.StorageDriver { return domain.StorageSQLite }

// Load reads every bucket and rebuilds the aggregate.
func (s *Store) Load(ctx context.Context) (domain.Aggregate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	raws := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return domain.Aggregate{}, fmt.Errorf("scan: %w", err)
		}
		raws[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return domain.Aggregate{}, fmt.Errorf("iterate state: %w", err)
	}
	return persistence.DecodeBuckets(raws)
}

// Save upserts every bucket inside a single transaction.
func (s *Store) Save(ctx context.Context, agg domain.Aggregate) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payloads, err := persistence.EncodeBuckets(agg)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range persistence.Buckets {
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, payloads[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
