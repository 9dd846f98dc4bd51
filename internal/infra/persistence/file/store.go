// Package file persists the ledger aggregate as a single JSON document on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"uksledger/pkg/domain"
)

var _ domain.DocumentStore = (*Store)(nil)

// DefaultPath is used when no document path is configured.
const DefaultPath = "uks_db.json"

// Store reads and writes one JSON file. Saves go through a temp file and a
// rename so a crash leaves either the old or the new document.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore returns a file store at path, creating parent directories.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	return &Store{path: path}, nil
}

// Driver identifies the backend.
func (s *Store) Driver() domain.StorageDriver { return domain.StorageFile }

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load parses the document file.
func (s *Store) Load(ctx context.Context) (domain.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return domain.Aggregate{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Aggregate{}, domain.ErrNoDocument
	}
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("read document: %w", err)
	}
	return domain.DecodeAggregate(data)
}

// Save writes the document atomically.
func (s *Store) Save(ctx context.Context, agg domain.Aggregate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := domain.EncodeAggregate(agg)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}
