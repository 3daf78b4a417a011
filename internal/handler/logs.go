package handler

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"moderation-service/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// GetLogs returns one page of the interception log, newest first
func (h *Handler) GetLogs(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a positive integer"})
		return
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", strconv.Itoa(defaultPageSize)))
	if err != nil || pageSize < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be a positive integer"})
		return
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	logs, err := h.status.Logs(c.Request.Context(), page, pageSize)
	if err != nil {
		h.logger.Error("Failed to get logs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get logs"})
		return
	}

	c.JSON(http.StatusOK, logs)
}

// GetStats returns interception statistics
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.status.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportCSV exports the whole log to CSV
func (h *Handler) ExportCSV(c *gin.Context) {
	entries, err := h.status.AllLogs(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export CSV", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=interceptions.csv")

	if err := writeLogsCSV(c.Writer, entries); err != nil {
		h.logger.Warn("Failed to write CSV export", zap.Error(err))
	}
}

var csvHeader = []string{"id", "created_at", "platform", "action", "category", "score", "severity", "text", "reason"}

func writeLogsCSV(w io.Writer, entries []models.LogEntry) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, e := range entries {
		err := writer.Write([]string{
			e.ID,
			e.CreatedAt,
			e.Platform,
			string(e.Action),
			e.Result.Category,
			strconv.FormatFloat(e.Result.Score, 'f', 4, 64),
			e.Result.Severity,
			e.Text,
			e.Result.Reason,
		})
		if err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// ExportJSON exports the whole log to JSON
func (h *Handler) ExportJSON(c *gin.Context) {
	entries, err := h.status.AllLogs(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to export JSON", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", "attachment; filename=interceptions.json")

	encoder := json.NewEncoder(c.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		h.logger.Warn("Failed to write JSON export", zap.Error(err))
	}
}
