// Package batch fans a list of texts out to a single-text classifier.
package batch

import (
	"context"

	"moderation-service/internal/models"

	"golang.org/x/sync/errgroup"
)

// ClassifyFunc classifies one text
type ClassifyFunc func(ctx context.Context, item models.BatchItem) (*models.ModerationResult, error)

// Run classifies every item concurrently and returns the verdicts in input
// order. The first failure cancels the remaining calls and fails the whole batch.
func Run(ctx context.Context, items []models.BatchItem, classify ClassifyFunc) ([]models.BatchItemResult, error) {
	results := make([]models.BatchItemResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			res, err := classify(gctx, item)
			if err != nil {
				return err
			}
			results[i] = models.BatchItemResult{ID: item.ID, ModerationResult: *res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}
