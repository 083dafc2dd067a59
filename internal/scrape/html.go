package scrape

import (
	"context"
	"net/http"
)

// HTMLExtractor fetches a page over HTTP and reads its headings
type HTMLExtractor struct {
	client    *http.Client
	userAgent string
}

// NewHTMLExtractor creates an HTTP heading extractor
func NewHTMLExtractor(cfg Config) *HTMLExtractor {
	cfg = cfg.withDefaults()
	return &HTMLExtractor{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
	}
}

func (e *HTMLExtractor) Extract(ctx context.Context, url string) ([]string, error) {
	resp, err := get(ctx, e.client, url, e.userAgent)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return ParseHeadings(resp.Body)
}
