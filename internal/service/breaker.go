package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moderation-service/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig controls when a backend is skipped without being called
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"` // consecutive failures before opening
	OpenTimeout time.Duration `yaml:"open_timeout"` // time spent open before a trial call
}

// BreakerClassifier short-circuits a failing backend so the chain moves on to
// the next one immediately. An open breaker is reported as an ordinary failure.
type BreakerClassifier struct {
	next    Classifier
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClassifier wraps next in a circuit breaker
func NewBreakerClassifier(next Classifier, cfg BreakerConfig, logger *zap.Logger) *BreakerClassifier {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("backend", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Callers hanging up say nothing about the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerClassifier{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerClassifier) Name() string {
	return b.next.Name()
}

func (b *BreakerClassifier) Classify(ctx context.Context, text, id string) (*models.ModerationResult, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.Classify(ctx, text, id)
	})
	if err != nil {
		return nil, fmt.Errorf("breaker (%s): %w", b.breaker.Name(), err)
	}
	return out.(*models.ModerationResult), nil
}

// ClassifyBatch counts the whole batch as a single call
func (b *BreakerClassifier) ClassifyBatch(ctx context.Context, items []models.BatchItem) ([]models.BatchItemResult, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.ClassifyBatch(ctx, items)
	})
	if err != nil {
		return nil, fmt.Errorf("breaker (%s): %w", b.breaker.Name(), err)
	}
	return out.([]models.BatchItemResult), nil
}

// State exposes the breaker state for health reporting
func (b *BreakerClassifier) State() gobreaker.State {
	return b.breaker.State()
}
