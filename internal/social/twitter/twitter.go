// Package twitter scores keywords by the share of recent posts written by verified accounts.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"veracity-service/internal/signal"

	"go.uber.org/zap"
)

const (
	Name           = "twitter"
	DefaultBaseURL = "https://api.twitter.com"
	maxResults     = 50
)

// Config enumerates the recognized Twitter credentials.
// The recent search endpoint authenticates with the bearer token only.
type Config struct {
	APIKey            string `yaml:"api_key"`
	APISecret         string `yaml:"api_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	BearerToken       string `yaml:"bearer_token"`
	BaseURL           string `yaml:"base_url"`
}

// HasCredentials reports whether search can be authenticated
func (c Config) HasCredentials() bool {
	return c.BearerToken != ""
}

// Tweet is one search hit with its author's verification flag resolved
type Tweet struct {
	ID               string
	Text             string
	AuthorID         string
	AuthorIsVerified bool
}

type searchResponse struct {
	Data []struct {
		ID       string `json:"id"`
		Text     string `json:"text"`
		AuthorID string `json:"author_id"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			Verified bool   `json:"verified"`
		} `json:"users"`
	} `json:"includes"`
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// Signal is the Twitter social signal
type Signal struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates the Twitter signal
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

// Evaluate scores keyword by the verified-author ratio of up to 50 recent posts
func (s *Signal) Evaluate(ctx context.Context, keyword string) signal.Result {
	if !s.cfg.HasCredentials() {
		return signal.Unavailable("Twitter API credentials not provided.")
	}

	tweets, err := s.Search(ctx, keyword)
	if err != nil {
		s.logger.Warn("Twitter search failed", zap.String("keyword", keyword), zap.Error(err))
		return signal.Unavailable(fmt.Sprintf("Twitter analysis error: %v", err))
	}

	verified := 0
	for _, t := range tweets {
		if t.AuthorIsVerified {
			verified++
		}
	}

	score := 0.0
	if len(tweets) > 0 {
		score = float64(verified) / float64(len(tweets))
	}

	return signal.NewResult(score, fmt.Sprintf(
		"Twitter analysis: Found %d tweets for keyword '%s', with %d tweets from verified accounts. Calculated veracity score: %.2f.",
		len(tweets), keyword, verified, score))
}

// Search returns recent English posts matching keyword
func (s *Signal) Search(ctx context.Context, keyword string) ([]Tweet, error) {
	q := url.Values{}
	q.Set("query", keyword+" lang:en")
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("expansions", "author_id")
	q.Set("user.fields", "verified")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/2/tweets/search/recent?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.BearerToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twitter request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twitter API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Data) == 0 && len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("twitter API error: %s", parsed.Errors[0].Detail)
	}

	verified := make(map[string]bool, len(parsed.Includes.Users))
	for _, u := range parsed.Includes.Users {
		verified[u.ID] = u.Verified
	}

	tweets := make([]Tweet, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		tweets = append(tweets, Tweet{
			ID:               d.ID,
			Text:             d.Text,
			AuthorID:         d.AuthorID,
			AuthorIsVerified: verified[d.AuthorID],
		})
	}
	return tweets, nil
}
