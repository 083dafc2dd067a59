// Package facebook scores keywords by the share of verified pages among Graph API search hits.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"veracity-service/internal/signal"

	"go.uber.org/zap"
)

const (
	Name           = "facebook"
	DefaultBaseURL = "https://graph.facebook.com/v19.0"
	pageLimit      = 50
)

// Config enumerates the recognized Facebook credentials
type Config struct {
	AppID       string `yaml:"app_id"`
	AppSecret   string `yaml:"app_secret"`
	AccessToken string `yaml:"access_token"`
	BaseURL     string `yaml:"base_url"`
}

// Token returns the access token, deriving an app token from the app id and secret
func (c Config) Token() string {
	if c.AccessToken != "" {
		return c.AccessToken
	}
	if c.AppID != "" && c.AppSecret != "" {
		return c.AppID + "|" + c.AppSecret
	}
	return ""
}

// HasCredentials reports whether the Graph API can be called
func (c Config) HasCredentials() bool {
	return c.Token() != ""
}

// Page is one page search hit
type Page struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	VerificationStatus string `json:"verification_status"`
}

// Verified reports whether the page carries a verification badge
func (p Page) Verified() bool {
	return p.VerificationStatus == "blue_verified" || p.VerificationStatus == "gray_verified"
}

type searchResponse struct {
	Data  []Page `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Signal is the Facebook social signal
type Signal struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates the Facebook signal
func New(cfg Config, logger *zap.Logger) *Signal {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Signal{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (s *Signal) Name() string { return Name }

// Evaluate scores keyword by the verified share of matching pages
func (s *Signal) Evaluate(ctx context.Context, keyword string) signal.Result {
	if !s.cfg.HasCredentials() {
		return signal.Unavailable("Facebook API credentials not provided.")
	}

	pages, err := s.SearchPages(ctx, keyword)
	if err != nil {
		s.logger.Warn("Facebook search failed", zap.String("keyword", keyword), zap.Error(err))
		return signal.Unavailable(fmt.Sprintf("Facebook analysis error: %v", err))
	}

	verified := 0
	for _, p := range pages {
		if p.Verified() {
			verified++
		}
	}

	score := 0.0
	if len(pages) > 0 {
		score = float64(verified) / float64(len(pages))
	}

	return signal.NewResult(score, fmt.Sprintf(
		"Facebook analysis: Found %d pages for keyword '%s', %d of them verified. Calculated veracity score: %.2f.",
		len(pages), keyword, verified, score))
}

// SearchPages queries the Graph API page search
func (s *Signal) SearchPages(ctx context.Context, keyword string) ([]Page, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("fields", "id,name,verification_status")
	q.Set("limit", fmt.Sprint(pageLimit))
	q.Set("access_token", s.cfg.Token())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/pages/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// url.Error would echo the access token
		return nil, fmt.Errorf("facebook request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("facebook API error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facebook API returned status %d", resp.StatusCode)
	}

	return parsed.Data, nil
}
