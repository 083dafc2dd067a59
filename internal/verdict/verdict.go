// Package verdict combines a primary analysis with social corroboration
// into one deterministic, explainable decision.
package verdict

import (
	"errors"
	"fmt"
	"maps"
	"math"

	"veracity-service/internal/signal"
	"veracity-service/internal/social"
)

const (
	ConclusionAuthentic = "likely authentic"
	ConclusionFake      = "likely fake"
)

// Policy holds the weighting and the decision threshold.
// The weights must be non-negative and sum to 1.
type Policy struct {
	PrimaryWeight float64 `yaml:"primary_weight" json:"primary_weight"`
	SocialWeight  float64 `yaml:"social_weight" json:"social_weight"`
	Threshold     float64 `yaml:"threshold" json:"threshold"`
}

// DefaultPolicy weighs the primary analysis at 0.6, social corroboration at 0.4,
// and calls a score above 0.5 authentic.
func DefaultPolicy() Policy {
	return Policy{PrimaryWeight: 0.6, SocialWeight: 0.4, Threshold: 0.5}
}

const weightTolerance = 1e-9

// Validate checks the policy is usable
func (p Policy) Validate() error {
	var errs []error
	if p.PrimaryWeight < 0 || p.SocialWeight < 0 || math.IsNaN(p.PrimaryWeight) || math.IsNaN(p.SocialWeight) {
		errs = append(errs, fmt.Errorf("weights must be non-negative (primary %v, social %v)", p.PrimaryWeight, p.SocialWeight))
	}
	if sum := p.PrimaryWeight + p.SocialWeight; math.Abs(sum-1) > weightTolerance {
		errs = append(errs, fmt.Errorf("weights must sum to 1, got %v", sum))
	}
	if p.Threshold < 0 || p.Threshold > 1 || math.IsNaN(p.Threshold) {
		errs = append(errs, fmt.Errorf("threshold must be within [0,1], got %v", p.Threshold))
	}
	return errors.Join(errs...)
}

// Verdict is the aggregated decision for one request
type Verdict struct {
	InputKind   signal.Kind     `json:"input_kind"`
	Primary     signal.Result   `json:"primary"`
	Social      social.Snapshot `json:"social"`
	FinalScore  float64         `json:"final_score"`
	IsAuthentic bool            `json:"is_authentic"`
	Conclusion  string          `json:"conclusion"`
}

// Score is the weighted combination of the two clamped inputs
func (p Policy) Score(primary, socialMean float64) float64 {
	return signal.Clamp(p.PrimaryWeight*signal.Clamp(primary) + p.SocialWeight*signal.Clamp(socialMean))
}

// Conclude maps a final score onto the authentic/fake decision.
// A score equal to the threshold is not authentic.
func (p Policy) Conclude(finalScore float64) (bool, string) {
	if finalScore > p.Threshold {
		return true, ConclusionAuthentic
	}
	return false, ConclusionFake
}

// Combine produces the verdict for one request. It has no side effects and
// applies the formula even when the primary analyzer was unavailable.
func (p Policy) Combine(kind signal.Kind, primary signal.Result, snap social.Snapshot) Verdict {
	primary.Score = signal.Clamp(primary.Score)
	snap.MeanScore = signal.Clamp(snap.MeanScore)
	snap.PerPlatform = maps.Clone(snap.PerPlatform)

	final := p.Score(primary.Score, snap.MeanScore)
	authentic, conclusion := p.Conclude(final)

	return Verdict{
		InputKind:   kind,
		Primary:     primary,
		Social:      snap,
		FinalScore:  final,
		IsAuthentic: authentic,
		Conclusion:  conclusion,
	}
}

// Combine uses the default policy
func Combine(kind signal.Kind, primary signal.Result, snap social.Snapshot) Verdict {
	return DefaultPolicy().Combine(kind, primary, snap)
}
