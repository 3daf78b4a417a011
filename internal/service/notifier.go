package service

import (
	"context"
	"time"

	"moderation-service/internal/models"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often a subscription re-reads the store
const DefaultPollInterval = time.Second

// Snapshotter produces the current status snapshot
type Snapshotter interface {
	Snapshot(ctx context.Context) (*models.StatusSnapshot, error)
}

// Notifier turns store polling into a stream of status changes
type Notifier struct {
	source   Snapshotter
	interval time.Duration
	logger   *zap.Logger
}

// NewNotifier creates a notifier polling source every interval
func NewNotifier(source Snapshotter, interval time.Duration, logger *zap.Logger) *Notifier {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Notifier{
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Subscribe emits the current snapshot immediately and then one snapshot each
// time mode or interceptedCount differs from the last emitted one. The channel
// is closed and polling stops once ctx is done.
func (n *Notifier) Subscribe(ctx context.Context) <-chan models.StatusSnapshot {
	out := make(chan models.StatusSnapshot)

	go func() {
		defer close(out)

		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		var last *models.StatusSnapshot
		for {
			snap, err := n.source.Snapshot(ctx)
			switch {
			case err != nil:
				if ctx.Err() == nil {
					n.logger.Warn("Failed to read status snapshot", zap.Error(err))
				}
			case changed(last, snap):
				select {
				case out <- *snap:
					last = snap
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func changed(last, next *models.StatusSnapshot) bool {
	return last == nil ||
		last.Mode != next.Mode ||
		last.InterceptedCount != next.InterceptedCount
}
