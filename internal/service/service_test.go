package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"moderation-service/internal/batch"
	"moderation-service/internal/metrics"
	"moderation-service/internal/models"
	"moderation-service/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// stubClassifier answers from a function and counts calls
type stubClassifier struct {
	name  string
	mu    sync.Mutex
	calls int
	fn    func(text string) (*models.ModerationResult, error)
}

func (s *stubClassifier) Name() string { return s.name }

func (s *stubClassifier) Classify(ctx context.Context, text, id string) (*models.ModerationResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(text)
}

func (s *stubClassifier) ClassifyBatch(ctx context.Context, items []models.BatchItem) ([]models.BatchItemResult, error) {
	return batch.Run(ctx, items, func(ctx context.Context, item models.BatchItem) (*models.ModerationResult, error) {
		return s.Classify(ctx, item.Text, item.ID)
	})
}

func (s *stubClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func failing(name string) *stubClassifier {
	return &stubClassifier{name: name, fn: func(string) (*models.ModerationResult, error) {
		return nil, errors.New(name + " unavailable")
	}}
}

func answering(name string, result models.ModerationResult) *stubClassifier {
	return &stubClassifier{name: name, fn: func(string) (*models.ModerationResult, error) {
		r := result
		return &r, nil
	}}
}

func setupRepo(t *testing.T) *repository.ModerationRepository {
	t.Helper()
	logger := zaptest.NewLogger(t)

	db, err := repository.NewSQLiteDB(filepath.Join(t.TempDir(), "service.db"), logger)
	require.NoError(t, err)
	require.NoError(t, repository.MigrateDB(db, logger))

	repo := repository.NewModerationRepository(db, logger)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newModerator(t *testing.T, repo *repository.ModerationRepository, chain ...Classifier) *Moderator {
	t.Helper()
	return NewModerator(chain, repo, metrics.New(metrics.NewRegistry()), zaptest.NewLogger(t))
}

func logCount(t *testing.T, repo *repository.ModerationRepository) int {
	t.Helper()
	stats, err := repo.GetStats(context.Background())
	require.NoError(t, err)
	return stats.TotalIntercepted
}
