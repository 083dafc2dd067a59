// Package signal defines the partial verdicts produced by individual analyzers
// and the analyzers that produce them.
package signal

import (
	"context"
	"fmt"
	"math"
	"strings"
)

// Kind is the type of content submitted for verification
type Kind string

const (
	KindText  Kind = "text"
	KindLink  Kind = "link"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// ParseKind maps raw input onto a known Kind
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindText, KindLink, KindImage, KindVideo:
		return k, nil
	default:
		return "", fmt.Errorf("unrecognized input kind %q", s)
	}
}

// Persisted reports whether verdicts of this kind are stored as analysis records.
// Image and video verdicts are returned to the caller only.
func (k Kind) Persisted() bool {
	return k == KindText || k == KindLink
}

// Result is the score and explanation produced by one analyzer.
// Score is the confidence that the content is genuine.
type Result struct {
	Score     float64 `json:"score"`
	Narrative string  `json:"narrative"`
}

const noNarrative = "no explanation was provided by the analyzer"

// NewResult builds a Result with the score clamped into [0,1]
func NewResult(score float64, narrative string) Result {
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		narrative = noNarrative
	}
	return Result{Score: Clamp(score), Narrative: narrative}
}

// Unavailable is the result of an analyzer that could not run.
func Unavailable(reason string) Result {
	return NewResult(0, reason)
}

// Clamp bounds v to [0,1]. NaN is treated as 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Source is any analyzer that turns an input into a Result.
// Implementations never fail: problems are reported through the narrative with a zero score.
type Source interface {
	Evaluate(ctx context.Context, input string) Result
}

// SourceFunc adapts a function to the Source interface
type SourceFunc func(ctx context.Context, input string) Result

func (f SourceFunc) Evaluate(ctx context.Context, input string) Result {
	return f(ctx, input)
}

// Guard runs fn and converts a panic into an unavailable result.
func Guard(name string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Unavailable(fmt.Sprintf("%s analysis error: %v", name, r))
		}
	}()
	return fn()
}
