package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// FrameReader is a lazy, finite, non-restartable sequence of video frames.
// Next returns io.EOF once the stream is exhausted.
type FrameReader interface {
	// FrameCount is the expected number of frames, or 0 when unknown
	FrameCount() int
	Next() (image.Image, error)
	Close() error
}

// FFmpeg decodes video by shelling out to ffprobe and ffmpeg
type FFmpeg struct {
	FFprobePath string `yaml:"ffprobe_path"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
}

type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		NbFrames   string `json:"nb_frames"`
		RFrameRate string `json:"r_frame_rate"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// VideoInfo describes the first video stream of a file
type VideoInfo struct {
	Width      int
	Height     int
	FrameCount int
}

// Probe reads stream dimensions and the frame count
func (f FFmpeg) Probe(ctx context.Context, path string) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, f.ffprobe(),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames,r_frame_rate,duration",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("ffprobe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return VideoInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return VideoInfo{}, errors.New("no video stream found")
	}

	s := probe.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return VideoInfo{}, fmt.Errorf("invalid video dimensions %dx%d", s.Width, s.Height)
	}

	info := VideoInfo{Width: s.Width, Height: s.Height}
	if n, err := strconv.Atoi(s.NbFrames); err == nil && n > 0 {
		info.FrameCount = n
		return info, nil
	}

	// Containers without a frame index: estimate from duration and frame rate
	fps := parseRate(s.RFrameRate)
	dur, err := strconv.ParseFloat(s.Duration, 64)
	if err == nil && fps > 0 && dur > 0 {
		info.FrameCount = int(dur * fps)
	}
	return info, nil
}

func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// OpenVideo starts decoding path into 8-bit grayscale frames
func (f FFmpeg) OpenVideo(ctx context.Context, path string) (FrameReader, error) {
	info, err := f.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, f.ffmpeg(),
		"-v", "error",
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-",
	)
	stderr := &tailBuffer{max: maxStderrBytes}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open ffmpeg output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return &rawFrameReader{
		r:      stdout,
		info:   info,
		wait:   cmd.Wait,
		stderr: stderr,
		cancel: cancel,
	}, nil
}

func (f FFmpeg) ffprobe() string {
	if f.FFprobePath != "" {
		return f.FFprobePath
	}
	return "ffprobe"
}

func (f FFmpeg) ffmpeg() string {
	if f.FFmpegPath != "" {
		return f.FFmpegPath
	}
	return "ffmpeg"
}

// maxStderrBytes bounds the ffmpeg diagnostics kept for error messages
const maxStderrBytes = 4 << 10

// tailBuffer keeps the last max bytes written to it
type tailBuffer struct {
	max int
	buf []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.max; over > 0 {
		b.buf = append(b.buf[:0:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}

// rawFrameReader splits a raw gray8 stream into frames
type rawFrameReader struct {
	r      io.Reader
	info   VideoInfo
	wait   func() error
	stderr *tailBuffer
	cancel context.CancelFunc
	reaped bool
	closed bool
}

// NewRawFrameReader reads consecutive width x height gray8 frames from r
func NewRawFrameReader(r io.Reader, width, height, frameCount int) FrameReader {
	return &rawFrameReader{r: r, info: VideoInfo{Width: width, Height: height, FrameCount: frameCount}}
}

func (r *rawFrameReader) FrameCount() int {
	return r.info.FrameCount
}

func (r *rawFrameReader) Next() (image.Image, error) {
	if r.closed {
		return nil, io.EOF
	}
	img := image.NewGray(image.Rect(0, 0, r.info.Width, r.info.Height))
	if _, err := io.ReadFull(r.r, img.Pix); err != nil {
		// A truncated trailing frame ends the stream
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if err := r.reap(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return nil, err
	}
	return img, nil
}

// reap waits for the decoder once the output is drained and reports a failed exit
func (r *rawFrameReader) reap() error {
	if r.wait == nil || r.reaped {
		return nil
	}
	r.reaped = true
	if err := r.wait(); err != nil {
		msg := ""
		if r.stderr != nil {
			msg = strings.TrimSpace(r.stderr.String())
		}
		return fmt.Errorf("ffmpeg decode failed: %w: %s", err, msg)
	}
	return nil
}

func (r *rawFrameReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.cancel != nil {
		r.cancel()
	}
	if r.wait == nil || r.reaped {
		return nil
	}
	r.reaped = true
	// Killed on purpose, so the exit status carries no information
	_ = r.wait()
	return nil
}
