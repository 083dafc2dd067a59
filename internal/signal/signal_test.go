package signal

import (
	"context"
	"errors"
	"image"
	"io"
	"math"
	"strings"
	"sync/atomic"
	"testing"

	"veracity-service/internal/media"
	"veracity-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-0.2))
	assert.Equal(t, 1.0, Clamp(1.7))
	assert.Equal(t, 0.25, Clamp(0.25))
	assert.Equal(t, 0.0, Clamp(math.NaN()))
	assert.Equal(t, 1.0, Clamp(math.Inf(1)))
}

func TestNewResultNeverEmpty(t *testing.T) {
	r := NewResult(2, "  ")
	assert.Equal(t, 1.0, r.Score)
	assert.NotEmpty(t, r.Narrative)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Video ")
	require.NoError(t, err)
	assert.Equal(t, KindVideo, k)

	_, err = ParseKind("audio")
	assert.Error(t, err)

	assert.True(t, KindText.Persisted())
	assert.True(t, KindLink.Persisted())
	assert.False(t, KindImage.Persisted())
	assert.False(t, KindVideo.Persisted())
}

func TestGuardRecoversPanic(t *testing.T) {
	r := Guard("twitter", func() Result { panic("boom") })
	assert.Zero(t, r.Score)
	assert.Equal(t, "twitter analysis error: boom", r.Narrative)
}

type fakeClassifier struct {
	result *models.Classification
	err    error
	calls  atomic.Int32
	last   string
}

func (f *fakeClassifier) Classify(_ context.Context, text string, _ []string) (*models.Classification, error) {
	f.calls.Add(1)
	f.last = text
	return f.result, f.err
}

func TestTextSignal(t *testing.T) {
	c := &fakeClassifier{result: &models.Classification{
		Labels: []string{"real", "fake"},
		Scores: []float64{0.7, 0.3},
	}}
	r := NewTextSignal(c, zap.NewNop()).Evaluate(context.Background(), "The council approved the budget")

	assert.InDelta(t, 0.7, r.Score, 1e-9)
	assert.Contains(t, r.Narrative, "Label 'real': confidence 0.70")
	assert.Contains(t, r.Narrative, "Label 'fake': confidence 0.30")
	assert.Contains(t, r.Narrative, "Determined veracity score (for 'real'): 0.70")
}

func TestTextSignalMissingRealLabel(t *testing.T) {
	c := &fakeClassifier{result: &models.Classification{Labels: []string{"fake"}, Scores: []float64{0.9}}}
	r := NewTextSignal(c, zap.NewNop()).Evaluate(context.Background(), "text")
	assert.Zero(t, r.Score)
}

func TestTextSignalUnavailable(t *testing.T) {
	c := &fakeClassifier{err: errors.New("quota exceeded")}
	ts := NewTextSignal(c, zap.NewNop())

	r := ts.Evaluate(context.Background(), "text")
	assert.Zero(t, r.Score)
	assert.Contains(t, r.Narrative, "quota exceeded")

	r = ts.Evaluate(context.Background(), "   ")
	assert.Zero(t, r.Score)
	assert.Equal(t, int32(1), c.calls.Load(), "blank text is not classified")
}

type fakeExtractor struct {
	headings []string
	err      error
}

func (f fakeExtractor) Extract(context.Context, string) ([]string, error) {
	return f.headings, f.err
}

func TestLinkSignalWithoutHeadingsSkipsClassifier(t *testing.T) {
	for name, ex := range map[string]fakeExtractor{
		"empty":  {headings: []string{}},
		"blank":  {headings: []string{" ", "\n"}},
		"failed": {err: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			c := &fakeClassifier{result: &models.Classification{Labels: []string{"real"}, Scores: []float64{1}}}
			link := NewLinkSignal(ex, NewTextSignal(c, zap.NewNop()), zap.NewNop())

			a := link.Analyze(context.Background(), "https://example.com")
			assert.Zero(t, a.Result.Score)
			assert.Contains(t, a.Result.Narrative, "Link analysis unavailable")
			assert.Zero(t, c.calls.Load())
		})
	}
}

func TestLinkSignalClassifiesHeadings(t *testing.T) {
	c := &fakeClassifier{result: &models.Classification{Labels: []string{"real", "fake"}, Scores: []float64{0.6, 0.4}}}
	link := NewLinkSignal(fakeExtractor{headings: []string{"Markets rally", "", "Rain expected"}},
		NewTextSignal(c, zap.NewNop()), zap.NewNop())

	a := link.Analyze(context.Background(), "https://example.com")
	assert.InDelta(t, 0.6, a.Result.Score, 1e-9)
	assert.Equal(t, []string{"Markets rally", "Rain expected"}, a.Headings)
	assert.Equal(t, "Markets rally\nRain expected", c.last)
	assert.Equal(t, c.last, a.Text())
	assert.Contains(t, a.Result.Narrative, "Extracted 2 headlines from https://example.com")
	assert.Contains(t, a.Result.Narrative, "- Rain expected")
	assert.Contains(t, a.Result.Narrative, "Determined veracity score")
}

type fakeDecoder struct {
	img  image.Image
	meta media.Metadata
	err  error
}

func (f fakeDecoder) DecodeImage(string) (image.Image, media.Metadata, error) {
	return f.img, f.meta, f.err
}

func uniform(v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func imageOptions() ImageOptions {
	return ImageOptions{
		Scorer:            media.DefaultHistogramScorer(),
		EditingSignatures: media.DefaultEditingSignatures,
		EditingPenalty:    0.3,
	}
}

func TestImageSignal(t *testing.T) {
	r := NewImageSignal(fakeDecoder{img: uniform(200)}, imageOptions(), zap.NewNop()).
		Evaluate(context.Background(), "photo.png")
	assert.Equal(t, 0.9, r.Score)
	assert.Contains(t, r.Narrative, "Image appears authentic.")
}

func TestImageSignalEditingSoftware(t *testing.T) {
	dec := fakeDecoder{img: uniform(200), meta: media.Metadata{Software: "Adobe Photoshop 24.1"}}
	r := NewImageSignal(dec, imageOptions(), zap.NewNop()).Evaluate(context.Background(), "photo.jpg")
	assert.InDelta(t, 0.6, r.Score, 1e-9)
	assert.Contains(t, r.Narrative, "Adobe Photoshop 24.1")
}

func TestImageSignalDecodeError(t *testing.T) {
	r := NewImageSignal(fakeDecoder{err: errors.New("unknown format")}, imageOptions(), zap.NewNop()).
		Evaluate(context.Background(), "photo.xyz")
	assert.Zero(t, r.Score)
	assert.True(t, strings.HasPrefix(r.Narrative, "Error loading image"))
}

type sliceFrames struct {
	frames []image.Image
	count  int
	pos    int
	err    error
}

func (s *sliceFrames) FrameCount() int { return s.count }

func (s *sliceFrames) Next() (image.Image, error) {
	if s.pos >= len(s.frames) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	img := s.frames[s.pos]
	s.pos++
	return img, nil
}

func (s *sliceFrames) Close() error { return nil }

type fakeOpener struct {
	frames *sliceFrames
	err    error
}

func (f fakeOpener) OpenVideo(context.Context, string) (media.FrameReader, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.frames, nil
}

func videoFrames(n int) *sliceFrames {
	frames := make([]image.Image, n)
	for i := range frames {
		frames[i] = uniform(uint8(i))
	}
	return &sliceFrames{frames: frames, count: n}
}

func TestSampleInterval(t *testing.T) {
	assert.Equal(t, 1, SampleInterval(0, 10))
	assert.Equal(t, 1, SampleInterval(9, 10))
	assert.Equal(t, 1, SampleInterval(19, 10))
	assert.Equal(t, 2, SampleInterval(25, 10))
	assert.Equal(t, 30, SampleInterval(300, 10))
	assert.Equal(t, 7, SampleInterval(7, 0))
}

func TestVideoSignalSamplesFrames(t *testing.T) {
	vs := NewVideoSignal(fakeOpener{frames: videoFrames(25)}, VideoOptions{Scorer: media.DefaultHistogramScorer(), Workers: 3}, zap.NewNop())

	r := vs.Evaluate(context.Background(), "clip.mp4")
	assert.InDelta(t, 0.9, r.Score, 1e-9)
	assert.Equal(t, "Analyzed 13 frames from video. Average veracity score: 0.90. Video appears authentic.", r.Narrative)
}

func TestVideoSignalNoFrames(t *testing.T) {
	vs := NewVideoSignal(fakeOpener{frames: videoFrames(0)}, VideoOptions{Scorer: media.DefaultHistogramScorer()}, zap.NewNop())

	r := vs.Evaluate(context.Background(), "empty.mp4")
	assert.Zero(t, r.Score)
	assert.Equal(t, "No frames were analyzed from the video.", r.Narrative)
}

func TestVideoSignalKeepsFramesBeforeDecodeError(t *testing.T) {
	frames := videoFrames(3)
	frames.err = errors.New("corrupt packet")
	vs := NewVideoSignal(fakeOpener{frames: frames}, VideoOptions{Scorer: media.DefaultHistogramScorer()}, zap.NewNop())

	r := vs.Evaluate(context.Background(), "broken.mp4")
	assert.InDelta(t, 0.9, r.Score, 1e-9)
	assert.Contains(t, r.Narrative, "Analyzed 3 frames")
	assert.Contains(t, r.Narrative, "Decoding stopped early: corrupt packet")
}

func TestVideoSignalUnknownLengthCapsSamples(t *testing.T) {
	short := videoFrames(25)
	short.count = 0
	vs := NewVideoSignal(fakeOpener{frames: short}, VideoOptions{Scorer: media.DefaultHistogramScorer(), Workers: 2}, zap.NewNop())
	r := vs.Evaluate(context.Background(), "stream.ts")
	assert.Contains(t, r.Narrative, "Analyzed 13 frames")

	long := videoFrames(1000)
	long.count = 0
	vs = NewVideoSignal(fakeOpener{frames: long}, VideoOptions{Scorer: media.DefaultHistogramScorer(), Workers: 4}, zap.NewNop())
	r = vs.Evaluate(context.Background(), "stream.ts")
	assert.InDelta(t, 0.9, r.Score, 1e-9)
	assert.Contains(t, r.Narrative, "Analyzed 16 frames")
}

func TestVideoSignalDecodeErrorBeforeAnyFrame(t *testing.T) {
	frames := videoFrames(0)
	frames.err = errors.New("ffmpeg decode failed: exit status 1: moov atom not found")
	vs := NewVideoSignal(fakeOpener{frames: frames}, VideoOptions{Scorer: media.DefaultHistogramScorer()}, zap.NewNop())

	r := vs.Evaluate(context.Background(), "broken.mp4")
	assert.Zero(t, r.Score)
	assert.Contains(t, r.Narrative, "moov atom not found")
}

func TestVideoSignalOpenError(t *testing.T) {
	vs := NewVideoSignal(fakeOpener{err: errors.New("ffprobe failed")}, VideoOptions{Scorer: media.DefaultHistogramScorer()}, zap.NewNop())

	r := vs.Evaluate(context.Background(), "missing.mp4")
	assert.Zero(t, r.Score)
	assert.Contains(t, r.Narrative, "ffprobe failed")
}
