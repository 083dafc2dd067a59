// Package chat classifies text through OpenAI-compatible chat completion APIs
// such as Groq and OpenRouter.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"veracity-service/internal/classifier/gemini"
	"veracity-service/internal/models"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Client talks to a chat completions endpoint
type Client struct {
	provider   string
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config for a chat completions client
type Config struct {
	Provider   string // "groq", "openrouter"
	APIKey     string
	BaseURL    string
	ModelName  string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
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

// NewClient creates a new chat completions client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	if cfg.BaseURL == "" {
		switch cfg.Provider {
		case "groq":
			cfg.BaseURL = GroqBaseURL
		case "openrouter":
			cfg.BaseURL = OpenRouterBaseURL
		default:
			return nil, fmt.Errorf("base URL is required for provider %q", cfg.Provider)
		}
	}

	if cfg.ModelName == "" {
		switch cfg.Provider {
		case "openrouter":
			cfg.ModelName = "meta-llama/llama-3.2-3b-instruct:free"
		default:
			cfg.ModelName = "llama-3.3-70b-versatile"
		}
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger.Info("Chat classifier initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		provider:   cfg.Provider,
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		modelName:  cfg.ModelName,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close is a no-op; the HTTP client holds no resources
func (c *Client) Close() error {
	return nil
}

// Classify scores text against the candidate labels
func (c *Client) Classify(ctx context.Context, text string, labels []string) (*models.Classification, error) {
	reqBody := chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{Role: "system", Content: gemini.SystemInstruction},
			{Role: "user", Content: gemini.BuildPrompt(text, labels)},
		},
		Stream:      false,
		Temperature: 0.1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.maxRetries-1), retry.NewConstant(c.retryDelay))

	var result *models.Classification
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.logger.Warn("Retrying chat request",
				zap.String("provider", c.provider),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.maxRetries))
		}

		content, err := c.complete(ctx, jsonData)
		if err != nil {
			c.logger.Error("Chat API error",
				zap.String("provider", c.provider),
				zap.Error(err),
				zap.Int("attempt", attempt))
			return retry.RetryableError(err)
		}

		parsed, err := gemini.ParseClassification(content, labels)
		if err != nil {
			c.logger.Error("Failed to parse classification",
				zap.Error(err),
				zap.String("response", content),
				zap.Int("attempt", attempt))
			return retry.RetryableError(err)
		}

		parsed.Provider = c.provider
		parsed.Model = c.modelName
		result = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", attempt, err)
	}

	return result, nil
}

func (c *Client) complete(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API returned status %d: %s", c.provider, resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.provider, parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty response from %s", c.provider)
	}

	return parsed.Choices[0].Message.Content, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    c.provider,
		"model":       c.modelName,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
