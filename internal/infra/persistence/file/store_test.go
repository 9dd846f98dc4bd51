package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"uksledger/pkg/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "uks.json")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	agg := domain.DefaultAggregate()
	agg.Credentials.Password = "s3cret"
	if err := store.Save(ctx, agg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Credentials.Password != "s3cret" || len(got.Students) != 5 {
		t.Fatalf("unexpected aggregate %+v", got)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files cleaned up, found %d entries", len(entries))
	}
}

func TestFileStoreCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uks.json")
	if err := os.WriteFile(path, []byte(`{"students": []}`), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.Load(context.Background()); !domain.IsFormat(err) {
		t.Fatalf("expected format error, got %v", err)
	}
	if store.Path() != path || store.Driver() != domain.StorageFile {
		t.Fatalf("unexpected accessors")
	}
}
