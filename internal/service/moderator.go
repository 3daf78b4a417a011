package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moderation-service/internal/metrics"
	"moderation-service/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrMissingInput is returned for empty text or an empty batch
	ErrMissingInput = errors.New("missing input")
	// ErrAllBackendsUnavailable is returned when every classifier in the chain failed
	ErrAllBackendsUnavailable = errors.New("all classifier backends unavailable")
)

// Moderator runs texts through an ordered chain of classifiers and records
// every toxic verdict
type Moderator struct {
	chain           []Classifier
	logs            LogWriter
	metrics         *metrics.Metrics
	logger          *zap.Logger
	defaultPlatform string
}

// NewModerator creates a moderator. chain[0] is the preferred backend; later
// entries are only called when every earlier one failed.
func NewModerator(
	chain []Classifier,
	logs LogWriter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Moderator {
	return &Moderator{
		chain:           chain,
		logs:            logs,
		metrics:         m,
		logger:          logger,
		defaultPlatform: models.DefaultPlatform,
	}
}

// SetDefaultPlatform changes the platform recorded when requests name none
func (m *Moderator) SetDefaultPlatform(platform string) {
	if platform != "" {
		m.defaultPlatform = platform
	}
}

// Backends returns the chain's backend names in call order
func (m *Moderator) Backends() []string {
	names := make([]string, len(m.chain))
	for i, c := range m.chain {
		names[i] = c.Name()
	}
	return names
}

// Classify returns the verdict of the first backend that answers. id is only
// used for tracing and is generated when empty.
func (m *Moderator) Classify(ctx context.Context, text, id, platform string) (*models.ModerationResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingInput
	}
	if id == "" {
		id = uuid.NewString()
	}

	var lastErr error
	for i, c := range m.chain {
		started := time.Now()
		result, err := c.Classify(ctx, text, id)
		m.metrics.ObserveAttempt(c.Name(), started, err)
		if err != nil {
			m.logger.Warn("Classifier failed, trying next backend",
				zap.String("backend", c.Name()),
				zap.String("id", id),
				zap.Error(err))
			lastErr = err
			continue
		}

		if i > 0 {
			m.metrics.FallbackActivations.Inc()
		}

		m.logger.Debug("Text classified",
			zap.String("backend", c.Name()),
			zap.String("id", id),
			zap.Bool("toxic", result.Toxic),
			zap.String("category", result.Category))

		m.record(ctx, text, platform, result)
		return result, nil
	}

	return nil, m.exhausted(lastErr)
}

// ClassifyBatch hands the whole batch to each backend in turn. A backend's
// batch either succeeds for every item or is discarded entirely.
func (m *Moderator) ClassifyBatch(ctx context.Context, items []models.BatchItem, platform string) ([]models.BatchItemResult, error) {
	if len(items) == 0 {
		return nil, ErrMissingInput
	}

	var lastErr error
	for i, c := range m.chain {
		started := time.Now()
		results, err := c.ClassifyBatch(ctx, items)
		m.metrics.ObserveAttempt(c.Name(), started, err)
		if err != nil {
			m.logger.Warn("Batch classification failed, trying next backend",
				zap.String("backend", c.Name()),
				zap.Int("items", len(items)),
				zap.Error(err))
			lastErr = err
			continue
		}

		if i > 0 {
			m.metrics.FallbackActivations.Inc()
		}

		// Results are in input order, so items[j] holds the source text.
		for j := range results {
			m.record(ctx, items[j].Text, platform, &results[j].ModerationResult)
		}

		m.logger.Info("Batch classified",
			zap.String("backend", c.Name()),
			zap.Int("items", len(items)))
		return results, nil
	}

	return nil, m.exhausted(lastErr)
}

func (m *Moderator) exhausted(lastErr error) error {
	m.metrics.BackendsExhausted.Inc()
	if lastErr == nil {
		return ErrAllBackendsUnavailable
	}
	m.logger.Error("All classifier backends failed", zap.Error(lastErr))
	return fmt.Errorf("%w: %w", ErrAllBackendsUnavailable, lastErr)
}

// record writes one log entry for a toxic verdict. A storage failure is logged
// and does not change the verdict returned to the caller. The write outlives
// the caller's cancellation once a verdict exists.
func (m *Moderator) record(ctx context.Context, text, platform string, result *models.ModerationResult) {
	if !result.Toxic {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if platform == "" {
		platform = m.defaultPlatform
	}

	m.metrics.ToxicVerdicts.WithLabelValues(result.Category).Inc()

	entry := &models.LogEntry{
		Text:     text,
		Result:   *result,
		Action:   models.LogActionFor(result.Action),
		Platform: platform,
	}
	if err := m.logs.AddLog(ctx, entry); err != nil {
		m.logger.Error("Failed to save log entry",
			zap.String("category", result.Category),
			zap.Error(err))
		return
	}

	m.logger.Info("Toxic content intercepted",
		zap.String("log_id", entry.ID),
		zap.String("category", result.Category),
		zap.String("action", string(entry.Action)),
		zap.String("platform", platform))
}
