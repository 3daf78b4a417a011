package handler

import (
	"context"
	"net/http"

	"moderation-service/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetStatus returns the protection mode and intercepted count
func (h *Handler) GetStatus(c *gin.Context) {
	h.respondStatus(c, "get status", h.status.Status)
}

// Activate switches to crisis mode
func (h *Handler) Activate(c *gin.Context) {
	h.respondStatus(c, "activate protection", h.status.Activate)
}

// Deactivate returns to daily mode
func (h *Handler) Deactivate(c *gin.Context) {
	h.respondStatus(c, "deactivate protection", h.status.Deactivate)
}

// Reset clears the interception log and turns protection off
func (h *Handler) Reset(c *gin.Context) {
	h.respondStatus(c, "reset protection", h.status.Reset)
}

// SetMode sets an explicit mode
func (h *Handler) SetMode(c *gin.Context) {
	var req models.SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be one of off, daily, crisis"})
		return
	}

	h.respondStatus(c, "set mode", func(ctx context.Context) (*models.ProtectionStatus, error) {
		return h.status.SetMode(ctx, req.Mode)
	})
}

func (h *Handler) respondStatus(c *gin.Context, op string, fn func(ctx context.Context) (*models.ProtectionStatus, error)) {
	status, err := fn(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to "+op, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to " + op})
		return
	}

	c.JSON(http.StatusOK, status)
}
