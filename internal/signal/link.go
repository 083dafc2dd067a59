package signal

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// HeadingExtractor pulls headline strings out of a web page
type HeadingExtractor interface {
	Extract(ctx context.Context, url string) ([]string, error)
}

// LinkAnalysis is the outcome of analyzing a linked article
type LinkAnalysis struct {
	Result   Result
	Headings []string
}

// Text is the blob handed to the text analyzer
func (a LinkAnalysis) Text() string {
	return strings.Join(a.Headings, "\n")
}

// LinkSignal scrapes a page's headings and rates them as text
type LinkSignal struct {
	extractor HeadingExtractor
	text      Source
	logger    *zap.Logger
}

// NewLinkSignal creates a link analyzer
func NewLinkSignal(extractor HeadingExtractor, text Source, logger *zap.Logger) *LinkSignal {
	return &LinkSignal{extractor: extractor, text: text, logger: logger}
}

// Evaluate implements Source
func (l *LinkSignal) Evaluate(ctx context.Context, url string) Result {
	return l.Analyze(ctx, url).Result
}

// Analyze scrapes url and classifies the extracted headings.
// Text classification is skipped when nothing was extracted.
func (l *LinkSignal) Analyze(ctx context.Context, url string) LinkAnalysis {
	var headings []string
	res := Guard("link", func() Result {
		var err error
		headings, err = l.extractor.Extract(ctx, url)
		if err != nil {
			l.logger.Warn("Heading extraction failed", zap.String("url", url), zap.Error(err))
			return Unavailable(fmt.Sprintf("Link analysis unavailable: could not extract headlines from %s: %v", url, err))
		}

		headings = nonEmpty(headings)
		if len(headings) == 0 {
			return Unavailable(fmt.Sprintf("Link analysis unavailable: no headlines found at %s.", url))
		}

		text := l.text.Evaluate(ctx, strings.Join(headings, "\n"))
		return NewResult(text.Score, linkNarrative(url, headings, text))
	})
	return LinkAnalysis{Result: res, Headings: headings}
}

func linkNarrative(url string, headings []string, text Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extracted %d headlines from %s:\n", len(headings), url)
	for _, h := range headings {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	b.WriteString("\n")
	b.WriteString(text.Narrative)
	return b.String()
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
