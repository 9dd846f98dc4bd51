package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"uksledger/internal/infra/persistence/memory"
	"uksledger/pkg/domain"
)

var fixedNow = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

func fixedClock() Clock { return ClockFunc(func() time.Time { return fixedNow }) }

// manualClock starts at fixedNow and moves only when advanced.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock { return &manualClock{now: fixedNow} }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) domain.IDGenerator {
	var (
		mu sync.Mutex
		n  int
	)
	return domain.IDGeneratorFunc(func() domain.ID {
		mu.Lock()
		defer mu.Unlock()
		n++
		return domain.ID(fmt.Sprintf("%s-%d", prefix, n))
	})
}

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.Store) {
	t.Helper()
	backend := memory.NewStore()
	base := []Option{WithClock(fixedClock()), WithIDGenerator(sequentialIDs("id"))}
	svc, err := NewService(context.Background(), backend, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, backend
}

// flakyStore wraps a DocumentStore and fails saves on demand.
type flakyStore struct {
	domain.DocumentStore
	mu       sync.Mutex
	failSave bool
	saves    int
}

var errSaveFailed = errors.New("disk full")

func (f *flakyStore) Save(ctx context.Context, agg domain.Aggregate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return errSaveFailed
	}
	f.saves++
	return f.DocumentStore.Save(ctx, agg)
}

func (f *flakyStore) setFail(v bool) {
	f.mu.Lock()
	f.failSave = v
	f.mu.Unlock()
}

func totalStock(agg domain.Aggregate) int {
	total := 0
	for _, m := range agg.Medicines {
		total += m.Stock
	}
	return total
}

func stockOf(t *testing.T, agg domain.Aggregate, id domain.ID) int {
	t.Helper()
	m, ok := agg.FindMedicine(id)
	if !ok {
		t.Fatalf("medicine %s missing", id)
	}
	return m.Stock
}
