package filter_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"moderation-service/internal/batch"
	"moderation-service/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const healthCheckID = "health_check"

// Client is a client for the moderation filter service
type Client struct {
	baseURL       string
	httpClient    *http.Client
	healthTimeout time.Duration
	logger        *zap.Logger
}

// Config for the filter service client
type Config struct {
	BaseURL       string
	Timeout       time.Duration // Default: 30s
	HealthTimeout time.Duration // Default: 3s
}

// FilterRequest is the body sent to /filter
type FilterRequest struct {
	Text string `json:"text"`
	ID   string `json:"id"`
}

// FilterResponse is the verdict returned by /filter
type FilterResponse struct {
	Category       string               `json:"category"`
	Confidence     float64              `json:"confidence"`
	Action         string               `json:"action"`
	Reason         string               `json:"reason"`
	Severity       string               `json:"severity"`
	IsExempted     bool                 `json:"is_exempted"`
	ProcessingPath string               `json:"processing_path"`
	AllScores      map[string]float64   `json:"all_scores"`
	DetoxifyRaw    map[string]float64   `json:"detoxify_raw"`
	SimilarCases   []models.SimilarCase `json:"similar_cases"`
	LLMAnalysis    map[string]any       `json:"llm_analysis"`
}

// GenerateRequest asks the service for synthetic comments
type GenerateRequest struct {
	Count    int     `json:"count"`
	Mode     string  `json:"mode"`     // normal, attack
	Language *string `json:"language"` // zh, en or null
}

// NewClient creates a new filter service client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = 3 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		healthTimeout: cfg.HealthTimeout,
		logger:        logger,
	}
}

// Name identifies this backend in logs and metrics
func (c *Client) Name() string {
	return "primary"
}

// Classify sends one text to /filter and normalizes the verdict. An empty id is
// replaced with a fresh one; it is only used for tracing.
func (c *Client) Classify(ctx context.Context, text, id string) (*models.ModerationResult, error) {
	if id == "" {
		id = uuid.NewString()
	}

	resp, err := c.filter(ctx, FilterRequest{Text: text, ID: id})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Filter service verdict",
		zap.String("id", id),
		zap.String("category", resp.Category),
		zap.String("action", resp.Action))

	return ToModerationResult(resp), nil
}

// ClassifyBatch fans out one /filter call per item; the service has no batch
// endpoint. Results keep input order and any failure fails the whole batch.
func (c *Client) ClassifyBatch(ctx context.Context, items []models.BatchItem) ([]models.BatchItemResult, error) {
	return batch.Run(ctx, items, func(ctx context.Context, item models.BatchItem) (*models.ModerationResult, error) {
		return c.Classify(ctx, item.Text, item.ID)
	})
}

// Healthy probes /filter with a sentinel text under a short timeout. Any 2xx
// answer is healthy whatever its body; errors and timeouts are not.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	if _, err := c.post(ctx, "/filter", FilterRequest{Text: "test", ID: healthCheckID}); err != nil {
		c.logger.Debug("Filter service health check failed", zap.Error(err))
		return false
	}
	return true
}

// Generate proxies a synthetic comment request to /generate and returns the raw body
func (c *Client) Generate(ctx context.Context, reqBody GenerateRequest) (json.RawMessage, error) {
	body, err := c.post(ctx, "/generate", reqBody)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("filter service returned invalid JSON from /generate")
	}
	return json.RawMessage(body), nil
}

// ToModerationResult maps the upstream schema onto the internal verdict. The
// upstream carries no toxic flag: anything not kept is toxic.
func ToModerationResult(resp *FilterResponse) *models.ModerationResult {
	exempted := resp.IsExempted
	return &models.ModerationResult{
		Toxic:          resp.Action != models.ActionKeep,
		Score:          models.ClampScore(resp.Confidence),
		Category:       resp.Category,
		Reason:         resp.Reason,
		Severity:       resp.Severity,
		Action:         resp.Action,
		IsExempted:     &exempted,
		ProcessingPath: resp.ProcessingPath,
		AllScores:      resp.AllScores,
		DetoxifyRaw:    resp.DetoxifyRaw,
		SimilarCases:   resp.SimilarCases,
		LLMAnalysis:    resp.LLMAnalysis,
	}
}

func (c *Client) filter(ctx context.Context, reqBody FilterRequest) (*FilterResponse, error) {
	body, err := c.post(ctx, "/filter", reqBody)
	if err != nil {
		return nil, err
	}

	var result FilterResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody any) ([]byte, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Filter service error response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("filter service returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
