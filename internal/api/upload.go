package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"energypassport/internal/importer"
)

// Upload ingests one file (SSE progress unless stream=false)
// POST /api/enterprises/:id/uploads
func (h *Handler) Upload(c *gin.Context) {
	ent, ok := h.enterpriseParam(c)
	if !ok {
		return
	}

	uploadedFile, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	filename := filepath.Base(uploadedFile.Filename)
	dir := filepath.Join(h.inboxDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare inbox"})
		return
	}
	path := filepath.Join(dir, filename)
	if err := c.SaveUploadedFile(uploadedFile, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	opts := importer.IngestOptions{
		EnterpriseID: ent.ID,
		FilePath:     path,
		Filename:     filename,
		UserHint:     c.PostForm("resource_hint"),
	}

	if c.DefaultPostForm("stream", "true") == "false" {
		report, err := h.ingester.Run(c.Request.Context(), opts)
		if err != nil {
			status := http.StatusUnprocessableEntity
			if errors.Is(err, importer.ErrCancelled) {
				status = http.StatusRequestTimeout
			}
			c.JSON(status, gin.H{"error": err.Error(), "report": report})
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// client disconnect cancels the request context and with it the ingest
	for event := range h.ingester.Ingest(c.Request.Context(), opts) {
		eventData, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", eventData)
		flusher.Flush()
	}
}
