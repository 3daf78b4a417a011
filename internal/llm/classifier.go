package llm

import (
	"context"
	"encoding/json"
	"strings"

	"moderation-service/internal/batch"
	"moderation-service/internal/models"

	"go.uber.org/zap"
)

// ParseErrorReason marks the degraded verdict returned for unparsable model output
const ParseErrorReason = "Parse error"

// Classifier classifies text with a generative model. It never fills in the
// enrichment fields of ModerationResult.
type Classifier struct {
	name      string
	completer Completer
	logger    *zap.Logger
}

type verdict struct {
	Toxic    bool    `json:"toxic"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
	Reason   string  `json:"reason"`
}

// NewClassifier creates a classifier named after its provider
func NewClassifier(provider string, completer Completer, logger *zap.Logger) *Classifier {
	return &Classifier{
		name:      "generative:" + provider,
		completer: completer,
		logger:    logger,
	}
}

// Name identifies this backend in logs and metrics
func (c *Classifier) Name() string {
	return c.name
}

// Classify asks the model for a verdict. Transport errors are returned; output
// that is not a JSON object degrades to ParseErrorResult. id is unused.
func (c *Classifier) Classify(ctx context.Context, text, id string) (*models.ModerationResult, error) {
	raw, err := c.completer.Complete(ctx, BuildPrompt(text))
	if err != nil {
		return nil, err
	}

	result, ok := ParseVerdict(raw)
	if !ok {
		c.logger.Warn("Unparsable generative verdict",
			zap.String("backend", c.name),
			zap.String("raw", raw))
	}
	return result, nil
}

// ClassifyBatch fans out one completion per item, keeping input order
func (c *Classifier) ClassifyBatch(ctx context.Context, items []models.BatchItem) ([]models.BatchItemResult, error) {
	return batch.Run(ctx, items, func(ctx context.Context, item models.BatchItem) (*models.ModerationResult, error) {
		return c.Classify(ctx, item.Text, item.ID)
	})
}

// Close releases the underlying model client
func (c *Classifier) Close() error {
	return c.completer.Close()
}

// ParseVerdict strips markdown fences and decodes the model's JSON object.
// ok is false when the degraded default was returned instead.
func ParseVerdict(raw string) (*models.ModerationResult, bool) {
	cleaned := cleanMarkdown(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return ParseErrorResult(), false
	}

	var v verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return ParseErrorResult(), false
	}

	return &models.ModerationResult{
		Toxic:    v.Toxic,
		Score:    models.ClampScore(v.Score),
		Category: v.Category,
		Reason:   v.Reason,
	}, true
}

// ParseErrorResult is the safe verdict used when model output cannot be decoded
func ParseErrorResult() *models.ModerationResult {
	return &models.ModerationResult{
		Toxic:    false,
		Score:    0,
		Category: "clean",
		Reason:   ParseErrorReason,
	}
}

// cleanMarkdown removes ```json ... ``` wrapping
func cleanMarkdown(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
