package handler

import (
	"net/http"
	"time"

	"moderation-service/internal/filter_client"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type generateRequest struct {
	Count    int     `json:"count" binding:"omitempty,min=1,max=50"`
	Mode     string  `json:"mode" binding:"omitempty,oneof=normal attack"`
	Language *string `json:"language"`
}

// Generate asks the primary service for synthetic comments
func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upstreamReq := filter_client.GenerateRequest{
		Count:    req.Count,
		Mode:     req.Mode,
		Language: req.Language,
	}
	if upstreamReq.Count == 0 {
		upstreamReq.Count = 1
	}
	if upstreamReq.Mode == "" {
		upstreamReq.Mode = "normal"
	}
	if upstreamReq.Language != nil && *upstreamReq.Language == "" {
		upstreamReq.Language = nil
	}

	body, err := h.upstream.Generate(c.Request.Context(), upstreamReq)
	if err != nil {
		h.logger.Error("AI service unavailable for generate", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"comments": []string{},
			"error":    "AI service unavailable",
		})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// DemoLogin issues a guest token
func (h *Handler) DemoLogin(c *gin.Context) {
	token, expiresAt, err := h.auth.IssueDemoToken()
	if err != nil {
		h.logger.Error("Failed to issue demo token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"role":      "guest",
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

// ClassifierHealth probes the primary classifier
func (h *Handler) ClassifierHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"healthy":  h.upstream.Healthy(c.Request.Context()),
		"backends": h.moderator.Backends(),
	})
}

// HealthCheck returns service health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
