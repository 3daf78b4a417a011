package service

import (
	"context"

	"moderation-service/internal/models"
)

// Classifier is one backend in the moderation chain
type Classifier interface {
	Name() string
	Classify(ctx context.Context, text, id string) (*models.ModerationResult, error)
	ClassifyBatch(ctx context.Context, items []models.BatchItem) ([]models.BatchItemResult, error)
}

// LogWriter persists toxic verdicts
type LogWriter interface {
	AddLog(ctx context.Context, entry *models.LogEntry) error
}
