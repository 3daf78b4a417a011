package service

import (
	"context"
	"fmt"

	"moderation-service/internal/models"
)

// StatusStore is the persistence the status service composes over
type StatusStore interface {
	GetMode(ctx context.Context) (*models.ProtectionStatus, error)
	SetMode(ctx context.Context, mode models.ProtectionMode) error
	GetStats(ctx context.Context) (*models.LogStats, error)
	GetLogs(ctx context.Context, page, pageSize int) (*models.LogPage, error)
	ListAllLogs(ctx context.Context) ([]models.LogEntry, error)
	Reset(ctx context.Context) error
}

// StatusService answers protection status, log and stats queries. It holds no
// state of its own; every read goes to the store.
type StatusService struct {
	store StatusStore
}

// NewStatusService creates a status service
func NewStatusService(store StatusStore) *StatusService {
	return &StatusService{store: store}
}

func (s *StatusService) Status(ctx context.Context) (*models.ProtectionStatus, error) {
	return s.store.GetMode(ctx)
}

func (s *StatusService) Stats(ctx context.Context) (*models.LogStats, error) {
	return s.store.GetStats(ctx)
}

// Snapshot combines status and stats into the live stream payload
func (s *StatusService) Snapshot(ctx context.Context) (*models.StatusSnapshot, error) {
	status, err := s.store.GetMode(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, err
	}

	return &models.StatusSnapshot{
		Mode:             status.Mode,
		ActivatedAt:      status.ActivatedAt,
		InterceptedCount: status.InterceptedCount,
		Stats:            *stats,
	}, nil
}

// Activate switches to crisis mode
func (s *StatusService) Activate(ctx context.Context) (*models.ProtectionStatus, error) {
	return s.SetMode(ctx, models.ModeCrisis)
}

// Deactivate drops back to daily mode, not off
func (s *StatusService) Deactivate(ctx context.Context) (*models.ProtectionStatus, error) {
	return s.SetMode(ctx, models.ModeDaily)
}

// SetMode stores mode and returns the resulting status
func (s *StatusService) SetMode(ctx context.Context, mode models.ProtectionMode) (*models.ProtectionStatus, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid protection mode %q", mode)
	}
	if err := s.store.SetMode(ctx, mode); err != nil {
		return nil, err
	}
	return s.store.GetMode(ctx)
}

// Reset clears every log entry and turns protection off
func (s *StatusService) Reset(ctx context.Context) (*models.ProtectionStatus, error) {
	if err := s.store.Reset(ctx); err != nil {
		return nil, err
	}
	return s.store.GetMode(ctx)
}

func (s *StatusService) Logs(ctx context.Context, page, pageSize int) (*models.LogPage, error) {
	return s.store.GetLogs(ctx, page, pageSize)
}

func (s *StatusService) AllLogs(ctx context.Context) ([]models.LogEntry, error) {
	return s.store.ListAllLogs(ctx)
}
