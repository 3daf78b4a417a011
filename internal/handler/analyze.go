package handler

import (
	"errors"
	"net/http"

	"moderation-service/internal/models"
	"moderation-service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const unavailableMessage = "Classification service unavailable"

// Analyze classifies a single text
func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	result, err := h.moderator.Classify(c.Request.Context(), req.Text, c.GetString("request_id"), req.Platform)
	switch {
	case errors.Is(err, service.ErrMissingInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	case err != nil:
		h.logger.Error("Failed to analyze text", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    unavailableMessage,
			"toxic":    false,
			"score":    0,
			"category": "clean",
			"reason":   "Analysis unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnalyzeBatch classifies several texts, answering in input order
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	var req models.BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	results, err := h.moderator.ClassifyBatch(c.Request.Context(), req.Items, req.Platform)
	switch {
	case errors.Is(err, service.ErrMissingInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": "items is required"})
		return
	case err != nil:
		h.logger.Error("Failed to analyze batch", zap.Int("items", len(req.Items)), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"results": []models.BatchItemResult{},
			"error":   unavailableMessage,
		})
		return
	}

	c.JSON(http.StatusOK, models.BatchAnalyzeResponse{Results: results})
}
