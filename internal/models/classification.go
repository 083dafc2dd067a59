package models

import (
	"fmt"
	"strings"
)

// VeracityLabels are the candidate labels every text classifier is asked to score
var VeracityLabels = []string{"fake", "real"}

// Classification is a confidence distribution over candidate labels.
// Labels and Scores are parallel slices; the order is provider-defined,
// so look scores up by label name.
type Classification struct {
	Sequence string    `json:"sequence,omitempty"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
	Provider string    `json:"provider,omitempty"`
	Model    string    `json:"model,omitempty"`
}

// Validate checks that labels and scores line up
func (c *Classification) Validate() error {
	if len(c.Labels) == 0 {
		return fmt.Errorf("classification has no labels")
	}
	if len(c.Labels) != len(c.Scores) {
		return fmt.Errorf("classification has %d labels but %d scores", len(c.Labels), len(c.Scores))
	}
	return nil
}

// ScoreFor returns the confidence assigned to label (case-insensitive)
func (c *Classification) ScoreFor(label string) (float64, bool) {
	for i, l := range c.Labels {
		if i >= len(c.Scores) {
			break
		}
		if strings.EqualFold(strings.TrimSpace(l), label) {
			return c.Scores[i], true
		}
	}
	return 0, false
}
