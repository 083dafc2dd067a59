// Package media decodes images and video frames and scores them with
// illustrative pixel-statistics heuristics.
package media

import (
	"image"
	"image/color"
	"math"
)

// HistogramScorer rates an image by the spread of its grayscale histogram.
// A flat, evenly populated histogram (low deviation between bins) is
// treated as suspicious; natural photos tend to have a peaked histogram.
type HistogramScorer struct {
	Cutoff    float64 `yaml:"cutoff"`
	HighScore float64 `yaml:"high_score"`
	LowScore  float64 `yaml:"low_score"`
}

// DefaultHistogramScorer returns the stock thresholds
func DefaultHistogramScorer() HistogramScorer {
	return HistogramScorer{Cutoff: 50, HighScore: 0.9, LowScore: 0.4}
}

// FrameScore is the heuristic outcome for one image
type FrameScore struct {
	Score  float64
	StdDev float64
}

// Authentic reports whether the deviation cleared the cutoff
func (s HistogramScorer) Authentic(stdDev float64) bool {
	return stdDev > s.Cutoff
}

// Score computes the heuristic for img
func (s HistogramScorer) Score(img image.Image) FrameScore {
	std := StdDev(GrayHistogram(img))
	if s.Authentic(std) {
		return FrameScore{Score: s.HighScore, StdDev: std}
	}
	return FrameScore{Score: s.LowScore, StdDev: std}
}

// GrayHistogram counts pixels per luma intensity
func GrayHistogram(img image.Image) [256]int {
	var hist [256]int
	b := img.Bounds()

	if g, ok := img.(*image.Gray); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := g.Pix[g.PixOffset(b.Min.X, y):g.PixOffset(b.Max.X, y)]
			for _, v := range row {
				hist[v]++
			}
		}
		return hist
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			hist[v]++
		}
	}
	return hist
}

// StdDev is the population standard deviation of the histogram bin counts
func StdDev(hist [256]int) float64 {
	var sum float64
	for _, c := range hist {
		sum += float64(c)
	}
	mean := sum / float64(len(hist))

	var sq float64
	for _, c := range hist {
		d := float64(c) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(hist)))
}
