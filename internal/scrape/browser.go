package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserExtractor renders the page in headless Chrome before reading headings.
// It suits sites that build their markup client side.
type BrowserExtractor struct {
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

// NewBrowserExtractor creates a headless browser extractor
func NewBrowserExtractor(cfg Config, logger *zap.Logger) *BrowserExtractor {
	cfg = cfg.withDefaults()
	return &BrowserExtractor{timeout: cfg.Timeout, userAgent: cfg.UserAgent, logger: logger}
}

func (e *BrowserExtractor) Extract(ctx context.Context, url string) ([]string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(e.userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(e.logger.Sugar().Debugf))
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, e.timeout)
	defer cancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", url, err)
	}

	return ParseHeadings(strings.NewReader(html))
}
