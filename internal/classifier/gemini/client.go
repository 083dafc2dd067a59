package gemini

import (
	"context"
	"fmt"
	"time"

	"veracity-service/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client wraps the Gemini API client
type Client struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	logger     *zap.Logger
	modelName  string
	maxRetries int
	retryDelay time.Duration
}

// Config for Gemini client
type Config struct {
	APIKey     string
	ModelName  string // Default: "gemini-2.0-flash"
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a new Gemini client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash"
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemInstruction)},
	}
	model.ResponseMIMEType = "application/json"

	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.1),
		TopP:            genai.Ptr[float32](0.9),
		MaxOutputTokens: genai.Ptr[int32](200),
	}

	logger.Info("Gemini classifier initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:     client,
		model:      model,
		logger:     logger,
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	return c.client.Close()
}

// Classify scores text against the candidate labels
func (c *Client) Classify(ctx context.Context, text string, labels []string) (*models.Classification, error) {
	prompt := BuildPrompt(text, labels)

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(c.maxRetries-1), retry.NewConstant(c.retryDelay))

	var result *models.Classification
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			c.logger.Warn("Retrying Gemini request",
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.maxRetries))
		}

		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			c.logger.Error("Gemini API error", zap.Error(err), zap.Int("attempt", attempt))
			return retry.RetryableError(fmt.Errorf("gemini API error: %w", err))
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			c.logger.Error("Empty response from Gemini", zap.Int("attempt", attempt))
			return retry.RetryableError(fmt.Errorf("empty response from gemini"))
		}

		textPart, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
		if !ok {
			return retry.RetryableError(fmt.Errorf("unexpected response type from gemini"))
		}

		parsed, err := ParseClassification(string(textPart), labels)
		if err != nil {
			c.logger.Error("Failed to parse classification",
				zap.Error(err),
				zap.String("response", string(textPart)),
				zap.Int("attempt", attempt))
			return retry.RetryableError(err)
		}

		parsed.Provider = "gemini"
		parsed.Model = c.modelName
		result = parsed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed after %d attempts: %w", attempt, err)
	}

	c.logger.Debug("Text classified with Gemini", zap.Int("attempt", attempt))
	return result, nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "gemini",
		"model":       c.modelName,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
