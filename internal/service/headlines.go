package service

import (
	"context"

	"veracity-service/internal/signal"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TrustedSource pairs a reference outlet with the extractor that reads it
type TrustedSource struct {
	URL       string
	Extractor signal.HeadingExtractor
}

// TrustedHeadlines collects the current headlines of every trusted source.
// A source that cannot be read maps to an empty list.
func (v *Verifier) TrustedHeadlines(ctx context.Context) map[string][]string {
	sources := v.opts.TrustedSources
	results := make([][]string, len(sources))

	var g errgroup.Group
	g.SetLimit(4)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			v.logger.Info("Scraping headlines", zap.String("source", src.URL))
			headlines, err := src.Extractor.Extract(ctx, src.URL)
			if err != nil {
				v.logger.Error("Error fetching trusted source", zap.String("source", src.URL), zap.Error(err))
				headlines = []string{}
			}
			if headlines == nil {
				headlines = []string{}
			}
			results[i] = headlines
			v.logger.Info("Found headlines", zap.String("source", src.URL), zap.Int("count", len(headlines)))
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string][]string, len(sources))
	for i, src := range sources {
		out[src.URL] = results[i]
	}
	return out
}
