package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Events streams a "status" server-sent event whenever the protection mode or
// intercepted count changes. The stream ends when the client disconnects.
func (h *Handler) Events(c *gin.Context) {
	updates := h.notifier.Subscribe(c.Request.Context())

	h.metrics.ActiveStreams.Inc()
	defer h.metrics.ActiveStreams.Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.logger.Debug("Event stream opened", zap.String("request_id", c.GetString("request_id")))

	c.Stream(func(w io.Writer) bool {
		snapshot, ok := <-updates
		if !ok {
			return false
		}
		c.SSEvent("status", snapshot)
		return true
	})

	h.logger.Debug("Event stream closed", zap.String("request_id", c.GetString("request_id")))
}
