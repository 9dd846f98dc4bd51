package fs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"uksledger/internal/blob/blobtest"
	"uksledger/internal/blob/core"
)

func TestFilesystemStoreContract(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	blobtest.RunContract(t, store)
}

func TestFilesystemStoreLayout(t *testing.T) {
	root := t.TempDir()
	store, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.Put(context.Background(), "exports/x.csv", bytes.NewReader([]byte("a")), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	for _, name := range []string{"x.csv", "x.csv.meta"} {
		if _, err := os.Stat(filepath.Join(root, "exports", name)); err != nil {
			t.Fatalf("expected %s on disk: %v", name, err)
		}
	}
	if _, err := store.Put(context.Background(), "exports/y.meta", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected reserved suffix to be rejected")
	}
	if store.Root() != root {
		t.Fatalf("unexpected root %s", store.Root())
	}
}
