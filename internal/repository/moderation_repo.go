package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"moderation-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrInvalidPage is returned when page or page size is below 1
var ErrInvalidPage = errors.New("page and page size must be positive")

const (
	settingMode        = "mode"
	settingActivatedAt = "activated_at"

	defaultSeverity = "medium"
)

const logColumns = `id, text, toxic, score, category, reason, action, platform, created_at,
	severity, is_exempted, processing_path, all_scores, llm_analysis`

// logRow mirrors one row of the logs table
type logRow struct {
	ID             string         `db:"id"`
	Text           string         `db:"text"`
	Toxic          int            `db:"toxic"`
	Score          float64        `db:"score"`
	Category       string         `db:"category"`
	Reason         sql.NullString `db:"reason"`
	Action         string         `db:"action"`
	Platform       string         `db:"platform"`
	CreatedAt      string         `db:"created_at"`
	Severity       sql.NullString `db:"severity"`
	IsExempted     sql.NullInt64  `db:"is_exempted"`
	ProcessingPath sql.NullString `db:"processing_path"`
	AllScores      sql.NullString `db:"all_scores"`
	LLMAnalysis    sql.NullString `db:"llm_analysis"`
}

type categoryCount struct {
	Category string `db:"category"`
	Count    int    `db:"count"`
}

// ModerationRepository owns the settings and logs tables
type ModerationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewModerationRepository creates a repository over an already migrated database
func NewModerationRepository(db *sqlx.DB, logger *zap.Logger) *ModerationRepository {
	return &ModerationRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source used for activation stamps and the 24h window.
func (r *ModerationRepository) SetClock(now func() time.Time) {
	r.now = now
}

// GetMode returns the stored mode and activation time plus a live log count
func (r *ModerationRepository) GetMode(ctx context.Context) (*models.ProtectionStatus, error) {
	mode, err := r.getSetting(ctx, settingMode)
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = string(models.ModeOff)
	}

	activatedAt, err := r.getSetting(ctx, settingActivatedAt)
	if err != nil {
		return nil, err
	}

	count, err := r.countLogs(ctx)
	if err != nil {
		return nil, err
	}

	status := &models.ProtectionStatus{
		Mode:             models.ProtectionMode(mode),
		InterceptedCount: count,
	}
	if activatedAt != "" {
		status.ActivatedAt = &activatedAt
	}

	return status, nil
}

// SetMode stores mode. Turning protection off clears the activation time,
// any other mode stamps it with the current time. Callers validate mode.
func (r *ModerationRepository) SetMode(ctx context.Context, mode models.ProtectionMode) error {
	activatedAt := ""
	if mode != models.ModeOff {
		activatedAt = models.FormatTimestamp(r.now())
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.putSetting(ctx, tx, settingMode, string(mode)); err != nil {
		return err
	}
	if err := r.putSetting(ctx, tx, settingActivatedAt, activatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mode change: %w", err)
	}

	r.logger.Info("Protection mode changed",
		zap.String("mode", string(mode)),
		zap.String("activated_at", activatedAt))
	return nil
}

// AddLog appends one log entry. Missing id and timestamp are filled in.
func (r *ModerationRepository) AddLog(ctx context.Context, entry *models.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt == "" {
		entry.CreatedAt = models.FormatTimestamp(r.now())
	}
	if entry.Platform == "" {
		entry.Platform = models.DefaultPlatform
	}

	res := entry.Result

	allScores := "{}"
	if res.AllScores != nil {
		raw, err := json.Marshal(res.AllScores)
		if err != nil {
			return fmt.Errorf("failed to encode all_scores: %w", err)
		}
		allScores = string(raw)
	}

	var llmAnalysis sql.NullString
	if res.LLMAnalysis != nil {
		raw, err := json.Marshal(res.LLMAnalysis)
		if err != nil {
			return fmt.Errorf("failed to encode llm_analysis: %w", err)
		}
		llmAnalysis = sql.NullString{String: string(raw), Valid: true}
	}

	var reason sql.NullString
	if res.Reason != "" {
		reason = sql.NullString{String: res.Reason, Valid: true}
	}

	severity := res.Severity
	if severity == "" {
		severity = defaultSeverity
	}

	query := `
		INSERT INTO logs (
			id, text, toxic, score, category, reason, action, platform, created_at,
			severity, is_exempted, processing_path, all_scores, llm_analysis
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Text,
		boolToInt(res.Toxic),
		res.Score,
		res.Category,
		reason,
		string(entry.Action),
		entry.Platform,
		entry.CreatedAt,
		severity,
		boolToInt(res.IsExempted != nil && *res.IsExempted),
		res.ProcessingPath,
		allScores,
		llmAnalysis,
	)
	if err != nil {
		return fmt.Errorf("failed to save log entry: %w", err)
	}

	return nil
}

// GetLogs returns one page of entries, newest first. Total is the count of all
// rows, not the page length.
func (r *ModerationRepository) GetLogs(ctx context.Context, page, pageSize int) (*models.LogPage, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}

	query := `SELECT ` + logColumns + ` FROM logs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`

	var rows []logRow
	if err := r.db.SelectContext(ctx, &rows, query, pageSize, (page-1)*pageSize); err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	total, err := r.countLogs(ctx)
	if err != nil {
		return nil, err
	}

	return &models.LogPage{
		Data:  r.toEntries(rows),
		Total: total,
	}, nil
}

// ListAllLogs returns every entry, newest first
func (r *ModerationRepository) ListAllLogs(ctx context.Context) ([]models.LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM logs ORDER BY created_at DESC, rowid DESC`

	var rows []logRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	return r.toEntries(rows), nil
}

// GetStats computes totals, the rolling 24h count and the per-category breakdown
func (r *ModerationRepository) GetStats(ctx context.Context) (*models.LogStats, error) {
	total, err := r.countLogs(ctx)
	if err != nil {
		return nil, err
	}

	since := models.FormatTimestamp(r.now().Add(-24 * time.Hour))
	var last24h int
	if err := r.db.GetContext(ctx, &last24h, "SELECT COUNT(*) FROM logs WHERE created_at > ?", since); err != nil {
		return nil, fmt.Errorf("failed to count recent logs: %w", err)
	}

	var counts []categoryCount
	query := `SELECT category, COUNT(*) AS count FROM logs GROUP BY category`
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count logs by category: %w", err)
	}

	byCategory := make(map[string]int, len(counts))
	for _, c := range counts {
		byCategory[c.Category] = c.Count
	}

	return &models.LogStats{
		TotalIntercepted: total,
		Last24h:          last24h,
		ByCategory:       byCategory,
	}, nil
}

// Reset deletes every log entry and turns protection off in one transaction
func (r *ModerationRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM logs"); err != nil {
		return fmt.Errorf("failed to delete logs: %w", err)
	}
	if err := r.putSetting(ctx, tx, settingMode, string(models.ModeOff)); err != nil {
		return err
	}
	if err := r.putSetting(ctx, tx, settingActivatedAt, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	r.logger.Info("Moderation state reset")
	return nil
}

// Close closes the database connection
func (r *ModerationRepository) Close() error {
	return r.db.Close()
}

func (r *ModerationRepository) getSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, nil
}

func (r *ModerationRepository) putSetting(ctx context.Context, tx *sqlx.Tx, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, key, value, models.FormatTimestamp(r.now())); err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	return nil
}

func (r *ModerationRepository) countLogs(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM logs"); err != nil {
		return 0, fmt.Errorf("failed to count logs: %w", err)
	}
	return count, nil
}

func (r *ModerationRepository) toEntries(rows []logRow) []models.LogEntry {
	entries := make([]models.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, r.toEntry(row))
	}
	return entries
}

func (r *ModerationRepository) toEntry(row logRow) models.LogEntry {
	exempted := row.IsExempted.Valid && row.IsExempted.Int64 == 1

	result := models.ModerationResult{
		Toxic:          row.Toxic == 1,
		Score:          row.Score,
		Category:       row.Category,
		Reason:         row.Reason.String,
		Severity:       defaultSeverity,
		IsExempted:     &exempted,
		ProcessingPath: row.ProcessingPath.String,
		AllScores:      map[string]float64{},
	}
	if row.Severity.Valid && row.Severity.String != "" {
		result.Severity = row.Severity.String
	}

	if row.AllScores.Valid && row.AllScores.String != "" {
		if err := json.Unmarshal([]byte(row.AllScores.String), &result.AllScores); err != nil {
			r.logger.Warn("Failed to decode all_scores", zap.String("id", row.ID), zap.Error(err))
			result.AllScores = map[string]float64{}
		}
	}

	if row.LLMAnalysis.Valid && row.LLMAnalysis.String != "" {
		if err := json.Unmarshal([]byte(row.LLMAnalysis.String), &result.LLMAnalysis); err != nil {
			r.logger.Warn("Failed to decode llm_analysis", zap.String("id", row.ID), zap.Error(err))
			result.LLMAnalysis = nil
		}
	}

	return models.LogEntry{
		ID:        row.ID,
		Text:      row.Text,
		Result:    result,
		Action:    models.LogAction(row.Action),
		Platform:  row.Platform,
		CreatedAt: row.CreatedAt,
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
