package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uksledger/internal/blob"
	"uksledger/internal/core"
	"uksledger/internal/infra/persistence/memory"
	"uksledger/internal/sheets"
	"uksledger/pkg/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) (*gin.Engine, *core.Service) {
	t.Helper()
	reg := prometheus.NewRegistry()
	svc, err := core.NewService(context.Background(), memory.NewStore(),
		core.WithClock(core.ClockFunc(func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) })),
		core.WithMetricsRecorder(core.NewPrometheusRecorder(reg)),
		core.WithBlobStore(blob.NewMemory()),
	)
	require.NoError(t, err)
	return NewHandler(svc, zerolog.Nop(), reg).Router(), svc
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLogin(t *testing.T) {
	r, _ := newTestRouter(t)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/login", loginRequest{Username: "admin", Password: "123"}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/login", loginRequest{Username: "admin", Password: "x"}).Code)
}

func TestVisitPreviewCommitFlow(t *testing.T) {
	r, svc := newTestRouter(t)
	draft := domain.VisitDraft{
		Timestamp: "2024-03-05T08:00",
		StudentID: "1",
		Complaint: domain.ComplaintDizziness,
		Treatment: domain.TreatmentDischarge,
		Usage:     []domain.UsageLine{{MedicineID: "1", Quantity: 4}},
	}

	rec := do(t, r, http.MethodPost, "/visits/preview", draft)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[struct {
		Record   domain.VisitRecord `json:"record"`
		Eligible bool               `json:"permit_eligible"`
	}](t, rec)
	assert.True(t, preview.Eligible)
	assert.Equal(t, 10, svc.ListMedicines()[0].Stock)

	rec = do(t, r, http.MethodGet, "/visits/preview/"+preview.Record.ID.String()+"/permit?format=text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BUDI SANTOSO")

	path := "/visits/preview/" + preview.Record.ID.String() + "/commit"
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, path, nil).Code)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, path, nil).Code)
	assert.Equal(t, 6, svc.ListMedicines()[0].Stock)

	rec = do(t, r, http.MethodGet, "/visits", nil)
	visits := decode[map[string][]domain.VisitRecord](t, rec)["visits"]
	require.Len(t, visits, 1)

	rec = do(t, r, http.MethodGet, "/visits/"+visits[0].ID.String()+"/permit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Budi Santoso")
}

func TestCommitVisitFromRecordIsIdempotent(t *testing.T) {
	r, svc := newTestRouter(t)
	usage := []domain.UsageLine{{MedicineID: "2", Quantity: 1}}
	record, err := svc.PreviewVisit(domain.VisitDraft{StudentID: "2", Complaint: domain.ComplaintNausea, Treatment: domain.TreatmentRest, Usage: usage})
	require.NoError(t, err)

	body := commitPreviewRequest{Record: record, Usage: usage}
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/visits", body).Code)
	require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/visits", body).Code)
	assert.Equal(t, 4, svc.ListMedicines()[1].Stock)
	assert.Len(t, svc.ListVisits(core.VisitQuery{}), 1)
}

func TestErrorMapping(t *testing.T) {
	r, _ := newTestRouter(t)
	cases := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodPost, "/visits", domain.VisitDraft{Complaint: domain.ComplaintFever, Treatment: domain.TreatmentRest}, http.StatusUnprocessableEntity},
		{http.MethodPost, "/visits", domain.VisitDraft{StudentID: "1", Complaint: domain.ComplaintFever, Treatment: domain.TreatmentMedication, Usage: []domain.UsageLine{{MedicineID: "3", Quantity: 9}}}, http.StatusUnprocessableEntity},
		{http.MethodPost, "/visits", []byte("{"), http.StatusBadRequest},
		{http.MethodDelete, "/visits/nope", nil, http.StatusNotFound},
		{http.MethodDelete, "/visits/preview/nope", nil, http.StatusNotFound},
		{http.MethodPut, "/medicines/nope", domain.MedicineDraft{Name: "X", Stock: 1}, http.StatusNotFound},
		{http.MethodPost, "/backup/restore", []byte(`{"students":[]}`), http.StatusBadRequest},
		{http.MethodGet, "/exports/patients", nil, http.StatusNotFound},
		{http.MethodGet, "/visits?limit=abc", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := do(t, r, tc.method, tc.path, tc.body)
		assert.Equal(t, tc.want, rec.Code, "%s %s: %s", tc.method, tc.path, rec.Body.String())
	}
}

func TestBackupDownloadAndRestore(t *testing.T) {
	r, svc := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/students", domain.StudentDraft{Name: "Lina", Class: "9A"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodGet, "/backup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "UKS_BACKUP_2024-03-05.json")
	payload := rec.Body.Bytes()

	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/reset", nil).Code)
	assert.Len(t, svc.ListStudents(""), 5)

	rec = do(t, r, http.MethodPost, "/backup/restore", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, svc.ListStudents(""), 6)
}

func TestArchiveRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/backup/archive", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	info := decode[blob.Info](t, rec)

	rec = do(t, r, http.MethodGet, "/backup/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), info.Key)

	rec = do(t, r, http.MethodPost, "/backup/archive/restore", archiveRestoreRequest{Key: info.Key})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestExportSheetAndMetrics(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodGet, "/exports/medicines?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,name,stock"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "medicine_stock.csv")

	rec = do(t, r, http.MethodGet, "/exports/visits", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sheets.ContentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "clinic_visits.xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip container")

	rec = do(t, r, http.MethodGet, "/exports/visits?format=ods", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uks_ledger_operations_total")
	assert.Contains(t, rec.Body.String(), "uks_ledger_medicine_stock")

	rec = do(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestMedicineAndScreeningRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(t, r, http.MethodPost, "/medicines", domain.MedicineDraft{Name: "ORS", Stock: 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	m := decode[domain.Medicine](t, rec)

	rec = do(t, r, http.MethodGet, "/medicines/critical", nil)
	assert.Contains(t, rec.Body.String(), m.ID.String())

	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/medicines/"+m.ID.String(), nil).Code)

	rec = do(t, r, http.MethodPost, "/screenings", domain.ScreeningDraft{StudentID: "5", Result: domain.ScreeningNeedsReferral})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(t, r, http.MethodGet, "/screenings", nil)
	assert.Contains(t, rec.Body.String(), "Dedi Kusnandar")

	rec = do(t, r, http.MethodGet, "/classes", nil)
	assert.Contains(t, rec.Body.String(), "9C")
}

func TestOversizeBodiesAreRejected(t *testing.T) {
	svc, err := core.NewService(context.Background(), memory.NewStore())
	require.NoError(t, err)
	h := NewHandler(svc, zerolog.Nop(), nil)
	h.maxBody = 64
	r := h.Router()
	payload := []byte(`{"credentials":{"username":"a","password":"b"},"students":[` + strings.Repeat(`{"id":"1","name":"x","class":"y"},`, 10) + `{}]}`)

	rec := do(t, r, http.MethodPost, "/backup/restore", payload)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/visits", bytes.NewReader(payload))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/backup/restore", bytes.NewReader(payload))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Len(t, svc.ListStudents(""), 5, "aggregate unchanged")
}

func TestCommitVisitRejectsRecordWithoutPreview(t *testing.T) {
	r, svc := newTestRouter(t)
	forged := commitPreviewRequest{
		Record: domain.VisitRecord{ID: "forged", MedicineUsage: "Paracetamol (1)"},
		Usage:  []domain.UsageLine{{MedicineID: "1", Quantity: -50}},
	}
	rec := do(t, r, http.MethodPost, "/visits", forged)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	forged.Usage[0].Quantity = 1
	rec = do(t, r, http.MethodPost, "/visits", forged)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	assert.Equal(t, 10, svc.ListMedicines()[0].Stock)
	assert.Empty(t, svc.ListVisits(core.VisitQuery{}))
}
