package memory

import (
	"context"
	"errors"
	"testing"

	"uksledger/pkg/domain"
)

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
	agg := domain.DefaultAggregate()
	if err := store.Save(ctx, agg); err != nil {
		t.Fatalf("save: %v", err)
	}
	agg.Medicines[0].Stock = 0
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Medicines[0].Stock != 10 {
		t.Fatalf("stored document aliased caller slice")
	}
	got.Students[0].Name = "changed"
	again, _ := store.Load(ctx)
	if again.Students[0].Name == "changed" {
		t.Fatalf("loaded document aliased stored slice")
	}
	if store.Driver() != domain.StorageMemory {
		t.Fatalf("unexpected driver")
	}
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewStore()
	if err := store.Save(ctx, domain.DefaultAggregate()); err == nil {
		t.Fatalf("expected canceled save to fail")
	}
	if _, err := store.Load(ctx); err == nil {
		t.Fatalf("expected canceled load to fail")
	}
}
