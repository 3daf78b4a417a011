package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"moderation-service/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_MissingInput(t *testing.T) {
	repo := setupRepo(t)
	primary := answering("primary", models.ModerationResult{})
	m := newModerator(t, repo, primary)

	for _, text := range []string{"", "   "} {
		_, err := m.Classify(context.Background(), text, "", "")
		assert.ErrorIs(t, err, ErrMissingInput)
	}
	assert.Equal(t, 0, primary.Calls())
}

func TestClassify_PrimaryWins(t *testing.T) {
	repo := setupRepo(t)
	primary := answering("primary", models.ModerationResult{Toxic: true, Score: 0.9, Category: "threat", Action: models.ActionDelete})
	fallback := answering("generative:gemini", models.ModerationResult{})
	m := newModerator(t, repo, primary, fallback)

	result, err := m.Classify(context.Background(), "kill yourself nobody likes you", "", "")
	require.NoError(t, err)
	assert.Equal(t, "threat", result.Category)
	assert.Equal(t, 0, fallback.Calls())
}

func TestClassify_FallsBackInOrder(t *testing.T) {
	repo := setupRepo(t)
	primary := failing("primary")
	first := failing("generative:groq")
	second := answering("generative:gemini", models.ModerationResult{Toxic: false, Score: 0.1, Category: "clean", Reason: "fine"})
	m := newModerator(t, repo, primary, first, second)

	result, err := m.Classify(context.Background(), "hello", "", "")
	require.NoError(t, err)
	assert.Equal(t, "fine", result.Reason)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, 1, first.Calls())
	assert.Equal(t, 1, second.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.FallbackActivations))
}

func TestClassify_AllBackendsFail(t *testing.T) {
	repo := setupRepo(t)
	m := newModerator(t, repo, failing("primary"), failing("generative:gemini"))

	_, err := m.Classify(context.Background(), "hello", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllBackendsUnavailable)
	assert.Contains(t, err.Error(), "generative:gemini unavailable")
	assert.Equal(t, 0, logCount(t, repo))
}

func TestClassify_LogsOnlyToxicVerdicts(t *testing.T) {
	tests := []struct {
		name           string
		result         models.ModerationResult
		expectedRows   int
		expectedAction models.LogAction
	}{
		{name: "clean", result: models.ModerationResult{Toxic: false, Category: "safe", Action: models.ActionKeep}, expectedRows: 0},
		{name: "delete", result: models.ModerationResult{Toxic: true, Category: "threat", Action: models.ActionDelete}, expectedRows: 1, expectedAction: models.LogActionDeleted},
		{name: "review", result: models.ModerationResult{Toxic: true, Category: "harassment", Action: models.ActionReview}, expectedRows: 1, expectedAction: models.LogActionReview},
		{name: "no action", result: models.ModerationResult{Toxic: true, Category: "spam"}, expectedRows: 1, expectedAction: models.LogActionHidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := setupRepo(t)
			m := newModerator(t, repo, answering("primary", tt.result))

			_, err := m.Classify(context.Background(), "some text", "", "")
			require.NoError(t, err)

			page, err := repo.GetLogs(context.Background(), 1, 10)
			require.NoError(t, err)
			require.Len(t, page.Data, tt.expectedRows)
			if tt.expectedRows == 1 {
				assert.Equal(t, tt.expectedAction, page.Data[0].Action)
				assert.Equal(t, "some text", page.Data[0].Text)
				assert.Equal(t, models.DefaultPlatform, page.Data[0].Platform)
			}
		})
	}
}

func TestClassify_RecordsPlatform(t *testing.T) {
	repo := setupRepo(t)
	m := newModerator(t, repo, answering("primary", models.ModerationResult{Toxic: true, Category: "spam"}))
	m.SetDefaultPlatform("weibo")

	_, err := m.Classify(context.Background(), "buy now", "", "instagram")
	require.NoError(t, err)
	_, err = m.Classify(context.Background(), "buy now", "", "")
	require.NoError(t, err)

	entries, err := repo.ListAllLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	platforms := []string{entries[0].Platform, entries[1].Platform}
	assert.ElementsMatch(t, []string{"instagram", "weibo"}, platforms)
}

func TestClassifyBatch_MissingInput(t *testing.T) {
	m := newModerator(t, setupRepo(t), answering("primary", models.ModerationResult{}))

	_, err := m.ClassifyBatch(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestClassifyBatch_SingleFailureFallsBackForAllItems(t *testing.T) {
	repo := setupRepo(t)
	primary := &stubClassifier{name: "primary", fn: func(text string) (*models.ModerationResult, error) {
		if text == "b" {
			return nil, errors.New("timeout")
		}
		return &models.ModerationResult{Category: "safe", Action: models.ActionKeep}, nil
	}}
	fallback := &stubClassifier{name: "generative:gemini", fn: func(text string) (*models.ModerationResult, error) {
		return &models.ModerationResult{Toxic: text == "b", Score: 0.7, Category: "harassment"}, nil
	}}
	m := newModerator(t, repo, primary, fallback)

	results, err := m.ClassifyBatch(context.Background(), []models.BatchItem{
		{ID: "1", Text: "a"},
		{ID: "2", Text: "b"},
		{ID: "3", Text: "c"},
	}, "")
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, "2", results[1].ID)
	assert.Equal(t, "3", results[2].ID)
	// Every item came from the fallback, including the ones the primary answered.
	for _, r := range results {
		assert.Equal(t, "harassment", r.Category)
	}
	assert.Equal(t, 3, fallback.Calls())

	entries, err := repo.ListAllLogs(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Text)
	assert.Equal(t, models.LogActionHidden, entries[0].Action)
}

func TestClassifyBatch_AllBackendsFail(t *testing.T) {
	m := newModerator(t, setupRepo(t), failing("primary"), failing("generative:gemini"))

	results, err := m.ClassifyBatch(context.Background(), []models.BatchItem{{ID: "1", Text: "a"}}, "")
	assert.ErrorIs(t, err, ErrAllBackendsUnavailable)
	assert.Nil(t, results)
}

func TestClassify_StorageFailureKeepsVerdict(t *testing.T) {
	repo := setupRepo(t)
	m := newModerator(t, repo, answering("primary", models.ModerationResult{Toxic: true, Category: "threat"}))
	require.NoError(t, repo.Close())

	result, err := m.Classify(context.Background(), "die", "", "")
	require.NoError(t, err)
	assert.True(t, result.Toxic)
}

// cancelAfterVerdict cancels the caller's context once it has a verdict
type cancelAfterVerdict struct {
	cancel context.CancelFunc
	result models.ModerationResult
}

func (c *cancelAfterVerdict) Name() string { return "primary" }

func (c *cancelAfterVerdict) Classify(ctx context.Context, text, id string) (*models.ModerationResult, error) {
	c.cancel()
	r := c.result
	return &r, nil
}

func (c *cancelAfterVerdict) ClassifyBatch(ctx context.Context, items []models.BatchItem) ([]models.BatchItemResult, error) {
	c.cancel()
	results := make([]models.BatchItemResult, len(items))
	for i, item := range items {
		results[i] = models.BatchItemResult{ID: item.ID, ModerationResult: c.result}
	}
	return results, nil
}

func TestClassify_CancelledCallerStillLogged(t *testing.T) {
	repo := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	primary := &cancelAfterVerdict{
		cancel: cancel,
		result: models.ModerationResult{Toxic: true, Score: 0.9, Category: "threat", Action: models.ActionDelete},
	}
	m := newModerator(t, repo, primary)

	result, err := m.Classify(ctx, "kill yourself nobody likes you", "", "")
	require.NoError(t, err)
	assert.True(t, result.Toxic)
	assert.Error(t, ctx.Err())
	assert.Equal(t, 1, logCount(t, repo))
}

func TestClassifyBatch_CancelledCallerStillLogged(t *testing.T) {
	repo := setupRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	primary := &cancelAfterVerdict{
		cancel: cancel,
		result: models.ModerationResult{Toxic: true, Score: 0.8, Category: "harassment", Action: models.ActionReview},
	}
	m := newModerator(t, repo, primary)

	results, err := m.ClassifyBatch(ctx, []models.BatchItem{{ID: "1", Text: "a"}, {ID: "2", Text: "b"}}, "")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 2, logCount(t, repo))
}

func TestBackends(t *testing.T) {
	m := newModerator(t, setupRepo(t), failing("primary"), failing("generative:groq"))
	assert.Equal(t, "primary,generative:groq", strings.Join(m.Backends(), ","))
}
