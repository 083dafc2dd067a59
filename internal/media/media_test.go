package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// gradient has exactly one pixel per intensity, so every histogram bin is equal
func gradient() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 256, 1))
	for x := 0; x < 256; x++ {
		img.Pix[x] = uint8(x)
	}
	return img
}

func TestStdDev(t *testing.T) {
	var flat [256]int
	for i := range flat {
		flat[i] = 4
	}
	assert.Zero(t, StdDev(flat))

	var spike [256]int
	spike[0] = 256
	// mean 1, one bin off by 255 and 255 bins off by 1
	assert.InDelta(t, 15.968719, StdDev(spike), 1e-6)
}

func TestHistogramScorer(t *testing.T) {
	s := DefaultHistogramScorer()

	peaked := s.Score(uniformGray(100, 100, 128))
	assert.Equal(t, 0.9, peaked.Score)
	assert.Greater(t, peaked.StdDev, 50.0)

	flat := s.Score(gradient())
	assert.Equal(t, 0.4, flat.Score)
	assert.Zero(t, flat.StdDev)

	assert.False(t, s.Authentic(50), "cutoff is exclusive")
}

func TestGrayHistogramConvertsColor(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{255, 255, 255, 255})
	img.Set(1, 0, color.RGBA{0, 0, 0, 255})

	hist := GrayHistogram(img)
	assert.Equal(t, 1, hist[255])
	assert.Equal(t, 1, hist[0])
}

func TestFileDecoder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, uniformGray(8, 8, 10)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	img, meta, err := FileDecoder{}.DecodeImage(path)
	require.NoError(t, err)
	assert.Equal(t, "png", meta.Format)
	assert.Empty(t, meta.Software)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, _, err = FileDecoder{}.DecodeImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, _, err = FileDecoder{}.DecodeImage(bad)
	assert.Error(t, err)
}

func TestEditingSignature(t *testing.T) {
	sig, ok := EditingSignature("Adobe Photoshop 25.0 (Macintosh)", DefaultEditingSignatures)
	assert.True(t, ok)
	assert.Equal(t, "photoshop", sig)

	_, ok = EditingSignature("iOS 17.4", DefaultEditingSignatures)
	assert.False(t, ok)

	_, ok = EditingSignature("", DefaultEditingSignatures)
	assert.False(t, ok)
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{"streams":[{"width":640,"height":360,"nb_frames":"250","r_frame_rate":"25/1","duration":"10.0"}]}`))
	require.NoError(t, err)
	assert.Equal(t, VideoInfo{Width: 640, Height: 360, FrameCount: 250}, info)

	info, err = parseProbe([]byte(`{"streams":[{"width":320,"height":240,"nb_frames":"N/A","r_frame_rate":"24/1","duration":"2.5"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 60, info.FrameCount)

	info, err = parseProbe([]byte(`{"streams":[{"width":320,"height":240}]}`))
	require.NoError(t, err)
	assert.Zero(t, info.FrameCount)

	_, err = parseProbe([]byte(`{"streams":[]}`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`{"streams":[{"width":0,"height":0}]}`))
	assert.Error(t, err)

	_, err = parseProbe([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseRate(t *testing.T) {
	assert.Equal(t, 25.0, parseRate("25/1"))
	assert.Equal(t, 24.0, parseRate("24"))
	assert.Zero(t, parseRate("25/0"))
	assert.Zero(t, parseRate("abc"))
}

func TestRawFrameReader(t *testing.T) {
	// two full 2x2 frames followed by a truncated one
	data := []byte{1, 1, 1, 1, 2, 2, 2, 2, 3}
	r := NewRawFrameReader(bytes.NewReader(data), 2, 2, 2)
	assert.Equal(t, 2, r.FrameCount())

	var got []uint8
	for {
		img, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, img.(*image.Gray).Pix[0])
	}
	assert.Equal(t, []uint8{1, 2}, got)

	require.NoError(t, r.Close())
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRawFrameReaderReportsDecoderFailure(t *testing.T) {
	stderr := &tailBuffer{max: maxStderrBytes}
	stderr.Write([]byte("[h264 @ 0x1] Invalid NAL unit size\n"))
	r := &rawFrameReader{
		r:      bytes.NewReader([]byte{7, 7, 7, 7}),
		info:   VideoInfo{Width: 2, Height: 2},
		wait:   func() error { return errors.New("exit status 1") },
		stderr: stderr,
	}

	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "Invalid NAL unit size")

	require.NoError(t, r.Close())
}

func TestRawFrameReaderCleanExit(t *testing.T) {
	waits := 0
	r := &rawFrameReader{
		r:    bytes.NewReader([]byte{7, 7, 7, 7}),
		info: VideoInfo{Width: 2, Height: 2},
		wait: func() error { waits++; return nil },
	}

	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, r.Close())
	assert.Equal(t, 1, waits)
}

func TestTailBufferKeepsLastBytes(t *testing.T) {
	b := &tailBuffer{max: 4}
	b.Write([]byte("abc"))
	b.Write([]byte("defg"))
	assert.Equal(t, "defg", b.String())
}
