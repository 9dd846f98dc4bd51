package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uksledger/internal/blob"
	"uksledger/pkg/domain"
)

func TestExportRestoreRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CommitVisit(ctx, medicationDraft(domain.UsageLine{MedicineID: "1", Quantity: 3}))
	require.NoError(t, err)
	_, err = svc.RecordScreening(ctx, domain.ScreeningDraft{StudentID: "4", Result: domain.ScreeningHealthy})
	require.NoError(t, err)
	want := svc.Snapshot()

	b, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "UKS_BACKUP_2024-03-05.json", b.Filename)
	assert.Equal(t, BackupContentType, b.ContentType)

	require.NoError(t, svc.Reset(ctx))
	assert.Equal(t, domain.DefaultAggregate(), svc.Snapshot())

	got, err := svc.Restore(ctx, b.Payload)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, svc.Snapshot())
}

func TestRestoreRejectsMissingSections(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()
	_, err := svc.AddStudent(ctx, domain.StudentDraft{Name: "Keep", Class: "7C"})
	require.NoError(t, err)
	before := svc.Snapshot()

	for name, payload := range map[string]string{
		"no credentials": `{"students":[],"medicines":[]}`,
		"no students":    `{"credentials":{"username":"a","password":"b"}}`,
		"null students":  `{"credentials":{"username":"a","password":"b"},"students":null}`,
		"not json":       `<xml/>`,
	} {
		_, err := svc.Restore(ctx, []byte(payload))
		require.Error(t, err, name)
		assert.True(t, domain.IsFormat(err), name)
	}
	assert.Equal(t, before, svc.Snapshot())
	persisted, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, persisted)
}

func TestRestoreDefaultsOptionalSections(t *testing.T) {
	svc, _ := newTestService(t)
	agg, err := svc.Restore(context.Background(), []byte(`{"credentials":{"username":"u","password":"p"},"students":[{"id":7,"name":"N","class":"C"}]}`))
	require.NoError(t, err)
	assert.Empty(t, agg.Medicines)
	assert.Empty(t, agg.Visits)
	assert.Equal(t, domain.ID("7"), agg.Students[0].ID)
}

func TestRestoreClearsPendingPreviews(t *testing.T) {
	svc, _ := newTestService(t)
	rec, err := svc.PreviewVisit(medicationDraft())
	require.NoError(t, err)
	b, err := svc.Export(context.Background())
	require.NoError(t, err)
	_, err = svc.Restore(context.Background(), b.Payload)
	require.NoError(t, err)
	_, ok := svc.PendingPreview(rec.ID)
	assert.False(t, ok)
}

func TestArchiveBackupAndRestoreArchived(t *testing.T) {
	store := blob.NewMemory()
	svc, _ := newTestService(t, WithBlobStore(store))
	ctx := context.Background()

	_, err := svc.CommitVisit(ctx, medicationDraft(domain.UsageLine{MedicineID: "5", Quantity: 5}))
	require.NoError(t, err)
	want := svc.Snapshot()

	info, err := svc.ArchiveBackup(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.Key, "backups/2024-03-05/"), info.Key)
	assert.True(t, strings.HasSuffix(info.Key, "UKS_BACKUP_2024-03-05.json"), info.Key)

	list, err := svc.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Reset(ctx))
	got, err := svc.RestoreArchived(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.RestoreArchived(ctx, "backups/none.json")
	assert.True(t, domain.IsNotFound(err))
	_, err = svc.RestoreArchived(ctx, "exports/x.csv")
	assert.True(t, domain.IsValidation(err))
}

func TestArchiveWithoutBlobStore(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ArchiveBackup(context.Background())
	assert.ErrorIs(t, err, ErrNoBlobStore)
	_, err = svc.PublishExports(context.Background())
	assert.ErrorIs(t, err, ErrNoBlobStore)
}
