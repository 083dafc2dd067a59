package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedExtractor reads item titles from an RSS or Atom feed
type FeedExtractor struct {
	client    *http.Client
	userAgent string
}

// NewFeedExtractor creates a feed headline extractor
func NewFeedExtractor(cfg Config) *FeedExtractor {
	cfg = cfg.withDefaults()
	return &FeedExtractor{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

func (e *FeedExtractor) Extract(ctx context.Context, url string) ([]string, error) {
	resp, err := get(ctx, e.client, url, e.userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	titles := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if title := strings.TrimSpace(item.Title); title != "" {
			titles = append(titles, title)
		}
	}
	return titles, nil
}
