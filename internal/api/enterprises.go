package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusResponse service status
type StatusResponse struct {
	Initialized bool `json:"initialized"`
	Enterprises int  `json:"enterprises"`
}

// GetStatus GET /api/status
func (h *Handler) GetStatus(c *gin.Context) {
	ents, err := h.store.ListEnterprises(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, StatusResponse{})
		return
	}
	c.JSON(http.StatusOK, StatusResponse{Initialized: len(ents) > 0, Enterprises: len(ents)})
}

// ListEnterprises GET /api/enterprises
func (h *Handler) ListEnterprises(c *gin.Context) {
	ents, err := h.store.ListEnterprises(c.Request.Context())
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": ents})
}

// CreateEnterpriseRequest body of POST /api/enterprises
type CreateEnterpriseRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateEnterprise POST /api/enterprises
func (h *Handler) CreateEnterprise(c *gin.Context) {
	var req CreateEnterpriseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	id, err := h.store.CreateEnterprise(c.Request.Context(), req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ent, err := h.store.GetEnterprise(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ent)
}

// ListUploads GET /api/enterprises/:id/uploads
func (h *Handler) ListUploads(c *gin.Context) {
	ent, ok := h.enterpriseParam(c)
	if !ok {
		return
	}
	uploads, err := h.store.ListUploads(c.Request.Context(), ent.ID)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": uploads})
}

// ListNodes GET /api/uploads/:id/nodes
func (h *Handler) ListNodes(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if _, err := h.store.GetUpload(c.Request.Context(), id); err != nil {
		writeStoreError(c, err)
		return
	}
	nodes, err := h.store.ListNodeRecords(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": nodes, "total": len(nodes)})
}

// ListImportLogs GET /api/uploads/:id/logs
func (h *Handler) ListImportLogs(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	logs, err := h.store.ListImportLogs(c.Request.Context(), id)
	if err != nil {
		writeStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": logs})
}
