package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"energypassport/internal/importer"
	"energypassport/internal/model"
	"energypassport/internal/readiness"
	"energypassport/internal/store"
)

// Ingester upload pipeline
type Ingester interface {
	Ingest(ctx context.Context, opts importer.IngestOptions) <-chan importer.ProgressEvent
	Run(ctx context.Context, opts importer.IngestOptions) (*model.IngestReport, error)
}

// Handler HTTP handlers of the ingestion API
type Handler struct {
	store     *store.Store
	ingester  Ingester
	validator *readiness.Validator
	inboxDir  string
}

// NewHandler uploads are saved under inboxDir
func NewHandler(st *store.Store, ing Ingester, v *readiness.Validator, inboxDir string) *Handler {
	return &Handler{store: st, ingester: ing, validator: v, inboxDir: inboxDir}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/status", h.GetStatus)

	router.GET("/enterprises", h.ListEnterprises)
	router.POST("/enterprises", h.CreateEnterprise)

	router.GET("/enterprises/:id/uploads", h.ListUploads)
	router.POST("/enterprises/:id/uploads", h.Upload)
	router.GET("/enterprises/:id/readiness", h.Readiness)
	router.GET("/enterprises/:id/checklist", h.Checklist)
	router.GET("/enterprises/:id/aggregated", h.Aggregated)

	router.GET("/uploads/:id/nodes", h.ListNodes)
	router.GET("/uploads/:id/logs", h.ListImportLogs)
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// enterpriseParam resolves :id to an existing enterprise
func (h *Handler) enterpriseParam(c *gin.Context) (model.Enterprise, bool) {
	id, ok := paramID(c)
	if !ok {
		return model.Enterprise{}, false
	}
	ent, err := h.store.GetEnterprise(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return model.Enterprise{}, false
	}
	return ent, true
}

func writeStoreError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
