// Package instagram scores keywords by how widely the matching hashtag is used.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"veracity-service/internal/signal"

	"go.uber.org/zap"
)

const (
	Name           = "instagram"
	DefaultBaseURL = "https://graph.facebook.com/v19.0"

	sampleSize       = 50
	popularThreshold = 20
	popularScore     = 0.6
	obscureScore     = 0.4
)

// Config enumerates the recognized Instagram credentials.
// Hashtag search requires a business account id alongside the token.
type Config struct {
	AccessToken string `yaml:"access_token"`
	UserID      string `yaml:"user_id"`
	BaseURL     string `yaml:"base_url"`
}

// HasCredentials reports whether hashtag search can be called
func (c Config) HasCredentials() bool {
	return c.AccessToken != "" && c.UserID != ""
}

type graphError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type hashtagSearchResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Error *graphError `json:"error"`
}

type mediaResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
	Error *graphError `json:"error"`
}

// Signal is the Instagram social signal
type Signal struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates the Instagram signal
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

// Hashtag normalizes a keyword into a hashtag name
func Hashtag(keyword string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return -1
	}, keyword)
}

// Evaluate samples up to 50 recent posts under the keyword's hashtag
func (s *Signal) Evaluate(ctx context.Context, keyword string) signal.Result {
	if !s.cfg.HasCredentials() {
		return signal.Unavailable("Instagram API credentials not provided.")
	}

	tag := Hashtag(keyword)
	if tag == "" {
		return signal.Unavailable(fmt.Sprintf("Instagram analysis error: keyword %q has no usable hashtag.", keyword))
	}

	count, err := s.CountPosts(ctx, tag, sampleSize)
	if err != nil {
		s.logger.Warn("Instagram search failed", zap.String("hashtag", tag), zap.Error(err))
		return signal.Unavailable(fmt.Sprintf("Instagram analysis error: %v", err))
	}

	score := obscureScore
	if count > popularThreshold {
		score = popularScore
	}

	return signal.NewResult(score, fmt.Sprintf(
		"Instagram analysis: Analyzed %d posts for hashtag '%s'. Calculated veracity score: %.2f.",
		count, tag, score))
}

// CountPosts counts recent posts under tag, stopping at limit
func (s *Signal) CountPosts(ctx context.Context, tag string, limit int) (int, error) {
	q := url.Values{}
	q.Set("user_id", s.cfg.UserID)
	q.Set("q", tag)
	q.Set("access_token", s.cfg.AccessToken)

	var search hashtagSearchResponse
	if err := s.get(ctx, s.cfg.BaseURL+"/ig_hashtag_search?"+q.Encode(), &search); err != nil {
		return 0, err
	}
	if search.Error != nil {
		return 0, fmt.Errorf("instagram API error %d: %s", search.Error.Code, search.Error.Message)
	}
	if len(search.Data) == 0 {
		return 0, nil
	}

	q = url.Values{}
	q.Set("user_id", s.cfg.UserID)
	q.Set("fields", "id")
	q.Set("limit", fmt.Sprint(limit))
	q.Set("access_token", s.cfg.AccessToken)
	next := s.cfg.BaseURL + "/" + url.PathEscape(search.Data[0].ID) + "/recent_media?" + q.Encode()

	count := 0
	for next != "" && count < limit {
		var page mediaResponse
		if err := s.get(ctx, next, &page); err != nil {
			return count, err
		}
		if page.Error != nil {
			return count, fmt.Errorf("instagram API error %d: %s", page.Error.Code, page.Error.Message)
		}
		if len(page.Data) == 0 {
			break
		}
		count += len(page.Data)
		next = page.Paging.Next
	}

	if count > limit {
		count = limit
	}
	return count, nil
}

func (s *Signal) get(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// url.Error would echo the access token
		return fmt.Errorf("instagram request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error *graphError `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			return fmt.Errorf("instagram API error %d: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("instagram API returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
