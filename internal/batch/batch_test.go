package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"moderation-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_PreservesInputOrder(t *testing.T) {
	items := []models.BatchItem{{ID: "a", Text: "slow"}, {ID: "b", Text: "fast"}, {ID: "c", Text: "medium"}}
	delays := map[string]time.Duration{"slow": 30 * time.Millisecond, "fast": 0, "medium": 10 * time.Millisecond}

	results, err := Run(context.Background(), items, func(ctx context.Context, item models.BatchItem) (*models.ModerationResult, error) {
		time.Sleep(delays[item.Text])
		return &models.ModerationResult{Category: item.Text}, nil
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	ids := []string{results[0].ID, results[1].ID, results[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, "slow", results[0].Category)
	assert.Equal(t, "fast", results[1].Category)
}

func TestRun_SingleFailureFailsBatch(t *testing.T) {
	items := []models.BatchItem{{ID: "a", Text: "ok"}, {ID: "b", Text: "boom"}}
	boom := errors.New("upstream down")

	results, err := Run(context.Background(), items, func(ctx context.Context, item models.BatchItem) (*models.ModerationResult, error) {
		if item.Text == "boom" {
			return nil, boom
		}
		return &models.ModerationResult{}, nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, results)
}

func TestRun_Empty(t *testing.T) {
	results, err := Run(context.Background(), nil, func(ctx context.Context, item models.BatchItem) (*models.ModerationResult, error) {
		t.Fatal("classify must not be called")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}
