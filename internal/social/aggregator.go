// Package social corroborates content against social media platforms.
package social

import (
	"context"
	"fmt"
	"sort"
	"time"

	"veracity-service/internal/signal"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultTimeout bounds a single platform evaluation
const DefaultTimeout = 5 * time.Second

// Platform is a Social Signal: a keyword-driven source bound to one network
type Platform interface {
	signal.Source
	Name() string
}

// Snapshot is the combined per-platform results and their mean
type Snapshot struct {
	PerPlatform map[string]signal.Result `json:"per_platform"`
	MeanScore   float64                  `json:"mean_score"`
}

// NewSnapshot builds a snapshot from per-platform results.
// The mean of an empty set is 0.
func NewSnapshot(results map[string]signal.Result) Snapshot {
	if results == nil {
		results = map[string]signal.Result{}
	}
	if len(results) == 0 {
		return Snapshot{PerPlatform: results}
	}

	// Summed in name order so the mean does not depend on map iteration
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	var sum float64
	for _, name := range names {
		sum += signal.Clamp(results[name].Score)
	}
	return Snapshot{PerPlatform: results, MeanScore: sum / float64(len(results))}
}

// Platforms returns the platform names in sorted order
func (s Snapshot) Platforms() []string {
	names := make([]string, 0, len(s.PerPlatform))
	for name := range s.PerPlatform {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregator fans a keyword out to every configured platform
type Aggregator struct {
	platforms []Platform
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAggregator creates an aggregator. A non-positive timeout selects DefaultTimeout.
func NewAggregator(platforms []Platform, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Aggregator{platforms: platforms, timeout: timeout, logger: logger}
}

// Platforms lists the configured platform names
func (a *Aggregator) Platforms() []string {
	names := make([]string, len(a.platforms))
	for i, p := range a.platforms {
		names[i] = p.Name()
	}
	return names
}

// Aggregate evaluates keyword on every platform concurrently.
// A platform that exceeds the timeout contributes an unavailable result.
func (a *Aggregator) Aggregate(ctx context.Context, keyword string) Snapshot {
	results := make([]signal.Result, len(a.platforms))

	var g errgroup.Group
	for i, p := range a.platforms {
		i, p := i, p
		g.Go(func() error {
			results[i] = a.evaluate(ctx, p, keyword)
			return nil // platform failures are reported in the result
		})
	}
	_ = g.Wait()

	byName := make(map[string]signal.Result, len(a.platforms))
	for i, p := range a.platforms {
		byName[p.Name()] = results[i]
	}

	snap := NewSnapshot(byName)
	a.logger.Debug("Social analysis complete",
		zap.String("keyword", keyword),
		zap.Int("platforms", len(byName)),
		zap.Float64("mean_score", snap.MeanScore))
	return snap
}

func (a *Aggregator) evaluate(ctx context.Context, p Platform, keyword string) signal.Result {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan signal.Result, 1)
	go func() {
		done <- signal.Guard(p.Name(), func() signal.Result {
			return p.Evaluate(ctx, keyword)
		})
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		a.logger.Warn("Social platform timed out",
			zap.String("platform", p.Name()),
			zap.Duration("timeout", a.timeout))
		return signal.Unavailable(fmt.Sprintf("%s analysis timed out after %s.", p.Name(), a.timeout))
	}
}
