package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"uksledger/internal/infra/persistence"
	"uksledger/internal/infra/persistence/postgres/testutil"
	"uksledger/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	store, conn := openStub(t)
	if store.Driver() != domain.StoragePostgres {
		t.Fatalf("unexpected driver %s", store.Driver())
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrNoDocument) {
		t.Fatalf("expected ErrNoDocument, got %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	agg := domain.DefaultAggregate()
	agg.Screenings = []domain.ScreeningRecord{{ID: "s1", StudentID: "1", Result: domain.ScreeningHealthy}}
	if err := store.Save(ctx, agg); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(conn.State) != len(persistence.Buckets) {
		t.Fatalf("expected %d buckets, got %d", len(persistence.Buckets), len(conn.State))
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Screenings) != 1 || got.Credentials.Username != "admin" {
		t.Fatalf("unexpected aggregate %+v", got)
	}
}

func TestSaveFailureLeavesPreviousDocument(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	if err := store.Save(ctx, domain.DefaultAggregate()); err != nil {
		t.Fatalf("save: %v", err)
	}
	next := domain.DefaultAggregate()
	next.Medicines[0].Stock = 1
	next.Credentials.Password = "changed"

	conn.FailBucket = persistence.BucketMedicines
	if err := store.Save(ctx, next); err == nil {
		t.Fatalf("expected upsert failure")
	}
	conn.FailBucket = ""
	conn.FailCommit = true
	if err := store.Save(ctx, next); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.FailCommit = false

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Credentials.Password != "123" || got.Medicines[0].Stock != 10 {
		t.Fatalf("partial write leaked: %+v", got)
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("dial") })
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil {
		t.Fatalf("expected open error")
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), ""); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	store, conn := openStub(t)
	conn.FailQuery = true
	if _, err := store.Load(context.Background()); err == nil {
		t.Fatalf("expected query error")
	}
	conn.FailQuery = false
	conn.Seed(map[string][]byte{persistence.BucketCredentials: []byte("{}"), persistence.BucketStudents: []byte("nope")})
	if _, err := store.Load(context.Background()); !domain.IsFormat(err) {
		t.Fatalf("expected format error, got %v", err)
	}
}
