package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Readiness GET /api/enterprises/:id/readiness
func (h *Handler) Readiness(c *gin.Context) {
	ent, ok := h.enterpriseParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.validator.Validate(c.Request.Context(), ent.ID))
}

// Checklist GET /api/enterprises/:id/checklist
func (h *Handler) Checklist(c *gin.Context) {
	ent, ok := h.enterpriseParam(c)
	if !ok {
		return
	}
	cl, err := h.validator.Checklist(c.Request.Context(), ent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cl)
}

// Aggregated merged enterprise dataset for passport generation
// GET /api/enterprises/:id/aggregated
func (h *Handler) Aggregated(c *gin.Context) {
	ent, ok := h.enterpriseParam(c)
	if !ok {
		return
	}
	agg, err := h.validator.Aggregate(c.Request.Context(), ent.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agg)
}
