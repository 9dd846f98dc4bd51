package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uksledger/internal/blob"
	"uksledger/internal/sheets"
	"uksledger/pkg/domain"
)

func TestExportSheetFromSnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.CommitVisit(ctx, medicationDraft(domain.UsageLine{MedicineID: "1", Quantity: 1}))
	require.NoError(t, err)

	art, err := svc.ExportSheet(ctx, sheets.KindMedicines, sheets.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "medicine_stock.csv", art.Filename)
	assert.Equal(t, 5, art.Rows)
	assert.Contains(t, string(art.Payload), "Paracetamol,9")

	visits, err := svc.ExportSheet(ctx, sheets.KindVisits, sheets.FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, "clinic_visits.xlsx", visits.Filename)
	assert.Equal(t, 1, visits.Rows)
}

func TestPublishExports(t *testing.T) {
	store := blob.NewMemory()
	svc, _ := newTestService(t, WithBlobStore(store))
	ctx := context.Background()

	infos, err := svc.PublishExports(ctx)
	require.NoError(t, err)
	require.Len(t, infos, len(sheets.Kinds))
	for _, info := range infos {
		assert.True(t, strings.HasPrefix(info.Key, "exports/2024-03-05/"), info.Key)
		assert.Equal(t, sheets.ContentTypeXLSX, info.ContentType)
		assert.True(t, strings.HasSuffix(info.Key, ".xlsx"), info.Key)
	}
	listed, err := store.List(ctx, "exports/")
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}
