package signal

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"runtime"
	"sort"
	"sync"

	"veracity-service/internal/media"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ImageDecoder loads an image and its metadata
type ImageDecoder interface {
	DecodeImage(path string) (image.Image, media.Metadata, error)
}

// VideoOpener starts a lazy frame sequence for a video
type VideoOpener interface {
	OpenVideo(ctx context.Context, path string) (media.FrameReader, error)
}

// ImageOptions tune the image heuristic
type ImageOptions struct {
	Scorer            media.HistogramScorer
	EditingSignatures []string
	EditingPenalty    float64
}

// ImageSignal rates a still image
type ImageSignal struct {
	decoder ImageDecoder
	opts    ImageOptions
	logger  *zap.Logger
}

// NewImageSignal creates an image analyzer
func NewImageSignal(decoder ImageDecoder, opts ImageOptions, logger *zap.Logger) *ImageSignal {
	return &ImageSignal{decoder: decoder, opts: opts, logger: logger}
}

// Evaluate scores the image stored at path
func (s *ImageSignal) Evaluate(ctx context.Context, path string) Result {
	return Guard("image", func() Result {
		img, meta, err := s.decoder.DecodeImage(path)
		if err != nil {
			s.logger.Warn("Image decode failed", zap.String("path", path), zap.Error(err))
			return Unavailable(fmt.Sprintf("Error loading image: %v", err))
		}

		fs := s.opts.Scorer.Score(img)
		narrative := fmt.Sprintf("Image histogram standard deviation: %.2f. ", fs.StdDev)
		if s.opts.Scorer.Authentic(fs.StdDev) {
			narrative += "Image appears authentic."
		} else {
			narrative += "Image may be manipulated."
		}

		score := fs.Score
		if sig, ok := media.EditingSignature(meta.Software, s.opts.EditingSignatures); ok {
			score -= s.opts.EditingPenalty
			narrative += fmt.Sprintf(" Metadata names editing software %q (matched %q); score reduced by %.2f.",
				meta.Software, sig, s.opts.EditingPenalty)
		}

		return NewResult(score, narrative)
	})
}

// VideoOptions tune frame sampling
type VideoOptions struct {
	Scorer       media.HistogramScorer
	TargetFrames int
	Workers      int
}

// VideoSignal rates a video by averaging the image heuristic over sampled frames
type VideoSignal struct {
	opener VideoOpener
	opts   VideoOptions
	logger *zap.Logger
}

// NewVideoSignal creates a video analyzer
func NewVideoSignal(opener VideoOpener, opts VideoOptions, logger *zap.Logger) *VideoSignal {
	if opts.TargetFrames <= 0 {
		opts.TargetFrames = 10
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &VideoSignal{opener: opener, opts: opts, logger: logger}
}

// SampleInterval is the stride between sampled frames
func SampleInterval(frameCount, target int) int {
	if target <= 0 {
		target = 1
	}
	if n := frameCount / target; n > 1 {
		return n
	}
	return 1
}

// Evaluate samples frames from the video at path
func (s *VideoSignal) Evaluate(ctx context.Context, path string) Result {
	return Guard("video", func() Result {
		frames, err := s.opener.OpenVideo(ctx, path)
		if err != nil {
			s.logger.Warn("Video open failed", zap.String("path", path), zap.Error(err))
			return Unavailable(fmt.Sprintf("Error opening video file: %v", err))
		}
		defer frames.Close()

		scores, err := s.scoreFrames(ctx, frames)
		if err != nil {
			s.logger.Warn("Video decode stopped early", zap.String("path", path), zap.Error(err))
		}

		if len(scores) == 0 {
			if err != nil {
				return Unavailable(fmt.Sprintf("Error decoding video: %v", err))
			}
			return Unavailable("No frames were analyzed from the video.")
		}

		var sum float64
		for _, v := range scores {
			sum += v
		}
		avg := sum / float64(len(scores))

		narrative := fmt.Sprintf("Analyzed %d frames from video. Average veracity score: %.2f. ", len(scores), avg)
		if avg > 0.5 {
			narrative += "Video appears authentic."
		} else {
			narrative += "Video may be manipulated."
		}
		if err != nil {
			narrative += fmt.Sprintf(" Decoding stopped early: %v", err)
		}
		return NewResult(avg, narrative)
	})
}

// scoreFrames reads the stream sequentially and scores sampled frames in parallel.
// Frames scored before a decode error are kept.
//
// When the stream length is unknown the stride doubles every time the sample
// budget of twice the target is reached, and only frames on the final stride are
// averaged, leaving between target and twice target samples for long streams.
func (s *VideoSignal) scoreFrames(ctx context.Context, frames media.FrameReader) ([]float64, error) {
	stride := SampleInterval(frames.FrameCount(), s.opts.TargetFrames)
	adaptive := frames.FrameCount() <= 0
	budget := 2 * s.opts.TargetFrames

	var (
		mu     sync.Mutex
		scored = make(map[int]float64)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	var readErr error
	sampled := 0
	for i := 0; ; i++ {
		if err := gctx.Err(); err != nil {
			readErr = err
			break
		}

		img, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = err
			break
		}
		if i%stride != 0 {
			continue
		}
		if adaptive && sampled >= budget {
			stride *= 2
			// multiples of the new stride already dispatched
			sampled = (i + stride - 1) / stride
			if i%stride != 0 {
				continue
			}
		}
		sampled++

		idx := i
		g.Go(func() error {
			fs := s.opts.Scorer.Score(img)
			mu.Lock()
			scored[idx] = fs.Score
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // scoring never fails

	indices := make([]int, 0, len(scored))
	for idx := range scored {
		if idx%stride == 0 {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	scores := make([]float64, len(indices))
	for n, idx := range indices {
		scores[n] = scored[idx]
	}
	return scores, readErr
}
