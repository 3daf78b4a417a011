package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Base URLs of the OpenAI-compatible chat completion APIs this client speaks to.
const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	GroqBaseURL       = "https://api.groq.com/openai/v1"
)

// Client represents an OpenAI-compatible chat completion client (OpenRouter, Groq).
type Client struct {
	apiKey            string
	baseURL           string
	modelName         string
	provider          string
	systemInstruction string
	httpClient        *http.Client
	logger            *zap.Logger
}

// Config holds configuration for the client.
type Config struct {
	Provider          string // openrouter or groq, used in logs
	APIKey            string
	BaseURL           string // Default: OpenRouterBaseURL
	ModelName         string // e.g., "meta-llama/llama-3.2-3b-instruct:free"
	SystemInstruction string
	Timeout           time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Provider == "" {
		cfg.Provider = "openrouter"
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "meta-llama/llama-3.2-3b-instruct:free" // Free model
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Chat completion client initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelName))

	return &Client{
		apiKey:            cfg.APIKey,
		baseURL:           cfg.BaseURL,
		modelName:         cfg.ModelName,
		provider:          cfg.Provider,
		systemInstruction: cfg.SystemInstruction,
		httpClient:        &http.Client{Timeout: cfg.Timeout},
		logger:            logger,
	}, nil
}

// Complete sends the prompt as a user message and returns the first choice's content.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if c.systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: c.systemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	reqBody := chatRequest{
		Model:       c.modelName,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   300,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s API request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Chat completion API error",
			zap.String("provider", c.provider),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return "", fmt.Errorf("%s API returned status %d: %s", c.provider, resp.StatusCode, string(body))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.provider, apiResp.Error.Message)
	}

	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", c.provider)
	}

	return apiResp.Choices[0].Message.Content, nil
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// GetModelInfo returns information about the model being used.
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider": c.provider,
		"model":    c.modelName,
		"base_url": c.baseURL,
	}
}
