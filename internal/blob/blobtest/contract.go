// Package blobtest holds the behavioural checks every archive backend must pass.
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"uksledger/internal/blob/core"
)

// RunContract exercises create-only puts, reads, listing and deletion.
func RunContract(t *testing.T, store core.Store) {
	t.Helper()
	ctx := context.Background()
	payload := []byte(`{"credentials":{"username":"admin","password":"123"},"students":[]}`)
	info, err := store.Put(ctx, "backups/2026-10-18/a-UKS_BACKUP_2026-10-18.json", bytes.NewReader(payload), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"kind": "backup"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("unexpected size %d", info.Size)
	}
	if _, err := store.Put(ctx, "backups/2026-10-18/a-UKS_BACKUP_2026-10-18.json", bytes.NewReader([]byte("x")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := store.Put(ctx, "../escape", bytes.NewReader(nil), core.PutOptions{}); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if _, err := store.Put(ctx, "exports/2026-10-18/clinic_visits.csv", bytes.NewReader([]byte("a,b\n")), core.PutOptions{ContentType: "text/csv"}); err != nil {
		t.Fatalf("put export: %v", err)
	}

	head, err := store.Head(ctx, "backups/2026-10-18/a-UKS_BACKUP_2026-10-18.json")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.ContentType != "application/json" || head.Metadata["kind"] != "backup" {
		t.Fatalf("unexpected head %+v", head)
	}
	_, rc, err := store.Get(ctx, "backups/2026-10-18/a-UKS_BACKUP_2026-10-18.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch: %s", got)
	}
	if _, _, err := store.Get(ctx, "backups/missing.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Head(ctx, "backups/missing.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on head, got %v", err)
	}

	list, err := store.List(ctx, "backups/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Key != "backups/2026-10-18/a-UKS_BACKUP_2026-10-18.json" {
		t.Fatalf("unexpected list %+v", list)
	}
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || all[0].Key > all[1].Key {
		t.Fatalf("expected two keys ascending, got %+v", all)
	}

	existed, err := store.Delete(ctx, "exports/2026-10-18/clinic_visits.csv")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "exports/2026-10-18/clinic_visits.csv")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}
