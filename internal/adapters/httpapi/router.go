// Package httpapi serves the ledger over JSON/HTTP with gin.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"uksledger/internal/core"
)

// HeaderRequestID carries the request correlation id.
const HeaderRequestID = "X-Request-ID"

// DefaultMaxBodyBytes caps request bodies; it leaves room for a full backup
// document.
const DefaultMaxBodyBytes int64 = 8 << 20

// Handler exposes the ledger service routes.
type Handler struct {
	svc      *core.Service
	log      zerolog.Logger
	gatherer prometheus.Gatherer
	maxBody  int64
}

// NewHandler builds a handler over svc. A nil gatherer disables /metrics.
func NewHandler(svc *core.Service, log zerolog.Logger, gatherer prometheus.Gatherer) *Handler {
	return &Handler{svc: svc, log: log, gatherer: gatherer, maxBody: DefaultMaxBodyBytes}
}

// Router returns a gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(h.requestID(), h.recovery(), h.accessLog(), h.bodyLimit())

	r.GET("/healthz", h.health)
	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
	h.RegisterRoutes(&r.RouterGroup)
	return r
}

// RegisterRoutes mounts the ledger routes on g.
func (h *Handler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/login", h.login)
	g.PUT("/credentials", h.changeCredentials)

	students := g.Group("/students")
	{
		students.GET("", h.listStudents)
		students.POST("", h.addStudent)
		students.PUT("/:id", h.updateStudent)
		students.DELETE("/:id", h.removeStudent)
	}
	g.GET("/classes", h.listClasses)

	medicines := g.Group("/medicines")
	{
		medicines.GET("", h.listMedicines)
		medicines.POST("", h.addMedicine)
		medicines.GET("/critical", h.criticalMedicines)
		medicines.PUT("/:id", h.updateMedicine)
		medicines.DELETE("/:id", h.removeMedicine)
	}

	visits := g.Group("/visits")
	{
		visits.GET("", h.listVisits)
		visits.POST("", h.commitVisit)
		visits.POST("/preview", h.previewVisit)
		visits.POST("/preview/:id/commit", h.commitPreview)
		visits.DELETE("/preview/:id", h.discardPreview)
		visits.GET("/preview/:id/permit", h.previewPermit)
		visits.PUT("/:id", h.editVisit)
		visits.DELETE("/:id", h.deleteVisit)
		visits.GET("/:id/permit", h.permit)
	}

	screenings := g.Group("/screenings")
	{
		screenings.GET("", h.listScreenings)
		screenings.POST("", h.recordScreening)
	}

	backup := g.Group("/backup")
	{
		backup.GET("", h.exportBackup)
		backup.POST("/restore", h.restoreBackup)
		backup.POST("/archive", h.archiveBackup)
		backup.GET("/archive", h.listBackups)
		backup.POST("/archive/restore", h.restoreArchived)
	}
	g.POST("/reset", h.reset)

	g.GET("/exports/:kind", h.exportSheet)
	g.POST("/exports/publish", h.publishExports)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "driver": h.svc.Store().Driver()})
}

func (h *Handler) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("request_id", rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}

// bodyLimit rejects declared oversize bodies up front and caps the rest while
// they are read.
func (h *Handler) bodyLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > h.maxBody {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				errorBody(fmt.Sprintf("request body exceeds %d bytes", h.maxBody)))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
		}
		c.Next()
	}
}

func (h *Handler) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error().Interface("panic", rec).Str("path", c.Request.URL.Path).Msg("handler panic")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("internal error"))
			}
		}()
		c.Next()
	}
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		ev := h.log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = h.log.Error()
		case status >= http.StatusBadRequest:
			ev = h.log.Warn()
		}
		ev.Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
