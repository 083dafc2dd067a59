// Package record flattens verdicts into persisted analysis records.
package record

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"veracity-service/internal/verdict"
)

const (
	// MaxTitleLength and MaxSourceLength bound the title and source columns
	MaxTitleLength  = 256
	MaxSourceLength = 256
	UnknownSource   = "Unknown"
)

// Record is the persisted outcome of one verification
type Record struct {
	ID             int64     `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	Content        string    `json:"content" db:"content"`
	Source         string    `json:"source" db:"source"`
	PublishedDate  time.Time `json:"published_date" db:"published_date"`
	VeracityScore  float64   `json:"veracity_score" db:"veracity_score"`
	IsFake         bool      `json:"is_fake" db:"is_fake"`
	AnalysisReport string    `json:"analysis_report" db:"analysis_report"`
}

// Meta is the request metadata carried into a record
type Meta struct {
	Title       string
	Content     string
	Source      string
	PublishedAt time.Time
}

// FromVerdict maps a verdict and its request metadata onto a record
func FromVerdict(v verdict.Verdict, meta Meta) (*Record, error) {
	report, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize verdict: %w", err)
	}

	source := strings.TrimSpace(meta.Source)
	if source == "" {
		source = UnknownSource
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		title = DeriveTitle(meta.Content)
	}

	return &Record{
		Title:          truncate(title, MaxTitleLength),
		Content:        meta.Content,
		Source:         truncate(source, MaxSourceLength),
		PublishedDate:  meta.PublishedAt.UTC(),
		VeracityScore:  v.FinalScore,
		IsFake:         !v.IsAuthentic,
		AnalysisReport: string(report),
	}, nil
}

// DeriveTitle uses the first non-empty line of content
func DeriveTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return truncate(line, MaxTitleLength)
		}
	}
	return "Untitled"
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
