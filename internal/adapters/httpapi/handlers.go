package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"uksledger/internal/core"
	"uksledger/internal/permit"
	"uksledger/internal/sheets"
	"uksledger/pkg/domain"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type commitPreviewRequest struct {
	Record domain.VisitRecord  `json:"record"`
	Usage  []domain.UsageLine `json:"usage"`
}

type archiveRestoreRequest struct {
	Key string `json:"key" binding:"required"`
}

func bindBytes(body []byte, obj any) error {
	return binding.JSON.BindBody(body, obj)
}

func idParam(c *gin.Context) domain.ID {
	return domain.ID(c.Param("id"))
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.Authenticate(c.Request.Context(), req.Username, req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"username": req.Username})
}

func (h *Handler) changeCredentials(c *gin.Context) {
	var req domain.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.ChangeCredentials(c.Request.Context(), req); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listStudents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"students": h.svc.ListStudents(c.Query("q"))})
}

func (h *Handler) listClasses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"classes": h.svc.Classes()})
}

func (h *Handler) addStudent(c *gin.Context) {
	var draft domain.StudentDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.svc.AddStudent(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) updateStudent(c *gin.Context) {
	var draft domain.StudentDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	st, err := h.svc.UpdateStudent(c.Request.Context(), idParam(c), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) removeStudent(c *gin.Context) {
	if err := h.svc.RemoveStudent(c.Request.Context(), idParam(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listMedicines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"medicines": h.svc.ListMedicines()})
}

func (h *Handler) criticalMedicines(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"medicines": h.svc.CriticalMedicines(), "threshold": domain.CriticalStockThreshold})
}

func (h *Handler) addMedicine(c *gin.Context) {
	var draft domain.MedicineDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.svc.AddMedicine(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) updateMedicine(c *gin.Context) {
	var draft domain.MedicineDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	m, err := h.svc.UpdateMedicine(c.Request.Context(), idParam(c), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) removeMedicine(c *gin.Context) {
	if err := h.svc.RemoveMedicine(c.Request.Context(), idParam(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listVisits(c *gin.Context) {
	q := core.VisitQuery{Term: c.Query("q")}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, fmt.Errorf("invalid limit %q", raw))
			return
		}
		q.Limit = n
	}
	c.JSON(http.StatusOK, gin.H{"visits": h.svc.ListVisits(q)})
}

func (h *Handler) previewVisit(c *gin.Context) {
	var draft domain.VisitDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.svc.PreviewVisit(draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec, "permit_eligible": permit.Eligible(rec)})
}

// commitVisit accepts either a draft or a previously previewed record with its usage.
func (h *Handler) commitVisit(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	var previewed commitPreviewRequest
	if err := bindBytes(body, &previewed); err == nil && previewed.Record.ID != "" {
		rec, err := h.svc.CommitFromPreview(c.Request.Context(), previewed.Record, previewed.Usage)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, rec)
		return
	}
	var draft domain.VisitDraft
	if err := bindBytes(body, &draft); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.svc.CommitVisit(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) commitPreview(c *gin.Context) {
	rec, err := h.svc.CommitPreviewed(c.Request.Context(), idParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) discardPreview(c *gin.Context) {
	if !h.svc.DiscardPreview(idParam(c)) {
		h.fail(c, &domain.NotFoundError{Entity: domain.EntityVisit, ID: idParam(c)})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) editVisit(c *gin.Context) {
	var edit domain.VisitEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.svc.EditVisit(c.Request.Context(), idParam(c), edit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) deleteVisit(c *gin.Context) {
	if err := h.svc.DeleteVisit(c.Request.Context(), idParam(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) permit(c *gin.Context) {
	doc, err := h.svc.Permit(c.Request.Context(), idParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writePermit(c, doc)
}

func (h *Handler) previewPermit(c *gin.Context) {
	doc, err := h.svc.PreviewPermit(idParam(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.writePermit(c, doc)
}

func (h *Handler) writePermit(c *gin.Context, doc permit.Document) {
	switch strings.ToLower(c.DefaultQuery("format", "html")) {
	case "text":
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		if err := doc.WriteText(c.Writer); err != nil {
			h.log.Error().Err(err).Msg("write permit")
		}
	case "json":
		c.JSON(http.StatusOK, doc)
	default:
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := doc.WriteHTML(c.Writer); err != nil {
			h.log.Error().Err(err).Msg("write permit")
		}
	}
}

func (h *Handler) listScreenings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"screenings": h.svc.ListScreenings()})
}

func (h *Handler) recordScreening(c *gin.Context) {
	var draft domain.ScreeningDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}
	rec, err := h.svc.RecordScreening(c.Request.Context(), draft)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *Handler) exportBackup(c *gin.Context) {
	b, err := h.svc.Export(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, b.Filename)
	c.Data(http.StatusOK, b.ContentType, b.Payload)
}

func (h *Handler) restoreBackup(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err)
		return
	}
	agg, err := h.svc.Restore(c.Request.Context(), payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"students":   len(agg.Students),
		"medicines":  len(agg.Medicines),
		"visits":     len(agg.Visits),
		"screenings": len(agg.Screenings),
	})
}

func (h *Handler) archiveBackup(c *gin.Context) {
	info, err := h.svc.ArchiveBackup(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (h *Handler) listBackups(c *gin.Context) {
	infos, err := h.svc.ListBackups(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backups": infos})
}

func (h *Handler) restoreArchived(c *gin.Context) {
	var req archiveRestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	agg, err := h.svc.RestoreArchived(c.Request.Context(), req.Key)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": len(agg.Students), "visits": len(agg.Visits)})
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.svc.Reset(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exportSheet(c *gin.Context) {
	kind, err := sheets.ParseKind(c.Param("kind"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, errorBody(err.Error()))
		return
	}
	format, err := sheets.ParseFormat(c.Query("format"))
	if err != nil {
		badRequest(c, err)
		return
	}
	art, err := h.svc.ExportSheet(c.Request.Context(), kind, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, art.Filename)
	c.Data(http.StatusOK, art.ContentType, art.Payload)
}

func (h *Handler) publishExports(c *gin.Context) {
	infos, err := h.svc.PublishExports(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"exports": infos})
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
}
