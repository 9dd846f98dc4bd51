// Package blob exposes the archive store abstraction and selects a backend.
// Callers outside this package depend on Store and never on the infra backends.
package blob

import (
	"context"
	"fmt"

	"uksledger/internal/blob/core"
	fsblob "uksledger/internal/infra/blob/fs"
	memblob "uksledger/internal/infra/blob/memory"
	s3blob "uksledger/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

var (
	// ErrExists indicates a create-only put hit an existing key.
	ErrExists = core.ErrExists
	// ErrNotFound indicates an unknown key.
	ErrNotFound = core.ErrNotFound
)

// S3Config is the bucket configuration used when Driver is s3.
type S3Config = s3blob.Config

// Config selects and configures an archive backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open builds the configured backend. An empty driver selects the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fsblob.New(cfg.FSRoot)
	case DriverS3:
		return s3blob.New(ctx, cfg.S3)
	case DriverMemory:
		return memblob.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memblob.New() }

// NewMockS3ForTests returns an S3 store served by an in-process fake transport.
func NewMockS3ForTests() Store { return s3blob.NewMockForTests() }
