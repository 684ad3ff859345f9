package video

import (
	"io"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"
)

// fakeSource simulates a constant frame rate video. Each decoded frame is
// filled with its frame number so tests can tell which frame was read.
type fakeSource struct {
	fps     float64
	frames  int
	pos     float64
	seeks   []float64
	closed  int
	seekErr error
}

func (f *fakeSource) SeekMillis(ms float64) error {
	if f.seekErr != nil {
		return f.seekErr
	}
	f.seeks = append(f.seeks, ms)
	f.pos = ms
	return nil
}

func (f *fakeSource) Read(dst *gocv.Mat) bool {
	frame := int(math.Round(f.pos / 1000 * f.fps))
	if frame >= f.frames {
		return false
	}
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(frame%256), 0, 0, 0), 4, 4, gocv.MatTypeCV8UC3)
	m.CopyTo(dst)
	m.Close()
	return true
}

func (f *fakeSource) FrameCount() int { return f.frames }

func (f *fakeSource) Close() error {
	f.closed++
	return nil
}

func drain(t *testing.T, s *Sampler) []FrameSample {
	t.Helper()
	var out []FrameSample
	for {
		sample, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, sample)
	}
}

func TestSamplerTimestamps(t *testing.T) {
	rates := []float64{0.5, 1, 3, 7.5, 25}

	for _, rate := range rates {
		src := &fakeSource{fps: 25, frames: 250} // ten seconds
		sampler, err := NewSampler(src, rate)
		require.NoError(t, err)

		samples := drain(t, sampler)
		require.NotEmpty(t, samples)

		for k, sample := range samples {
			assert.Equal(t, k+1, sample.Index)
			assert.InDelta(t, float64(k)/rate, sample.Timestamp, 1e-9)
			assert.InDelta(t, float64(k)/rate*1000, src.seeks[k], 1e-6)
			if k > 0 {
				assert.Greater(t, sample.Timestamp, samples[k-1].Timestamp)
			}
			assert.False(t, sample.Image.Empty())
			sample.Close()
		}

		// The last sample lies within the ten seconds of video.
		assert.Less(t, samples[len(samples)-1].Timestamp, 10.0)
		assert.Equal(t, 1, src.closed, "source must be released once at end of stream")
	}
}

func TestSamplerReadsSeekTarget(t *testing.T) {
	src := &fakeSource{fps: 30, frames: 300}
	sampler, err := NewSampler(src, 3)
	require.NoError(t, err)
	defer sampler.Close()

	for k := 0; k < 4; k++ {
		sample, err := sampler.Next()
		require.NoError(t, err)
		// Sample k lands on frame 10k, whose blue channel holds 10k.
		assert.Equal(t, uint8(10*k), sample.Image.GetVecbAt(0, 0)[0])
		sample.Close()
	}
}

func TestSamplerEndIsSticky(t *testing.T) {
	src := &fakeSource{fps: 10, frames: 10}
	sampler, err := NewSampler(src, 5)
	require.NoError(t, err)

	samples := drain(t, sampler)
	for _, s := range samples {
		s.Close()
	}
	assert.Len(t, samples, 5)

	_, err = sampler.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, sampler.Close())
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 0, sampler.FrameCount())
}

func TestSamplerSeekError(t *testing.T) {
	src := &fakeSource{fps: 10, frames: 10, seekErr: errors.New("boom")}
	sampler, err := NewSampler(src, 1)
	require.NoError(t, err)

	_, err = sampler.Next()
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)

	_, err = sampler.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestNewSamplerRejectsRate(t *testing.T) {
	src := &fakeSource{fps: 10, frames: 10}

	_, err := NewSampler(src, 0)
	assert.Error(t, err)
	assert.Equal(t, 1, src.closed)
}

func TestOpen(t *testing.T) {
	logger := zaptest.NewLogger(t)

	t.Run("unreadable", func(t *testing.T) {
		failing := func(string) (Source, error) { return nil, errors.New("no such codec") }

		_, err := Open("lecture.mp4", 3, failing, logger)
		assert.True(t, errors.Is(err, ErrUnreadableSource))
	})

	t.Run("unreadable passthrough", func(t *testing.T) {
		failing := func(string) (Source, error) { return nil, errors.Wrap(ErrUnreadableSource, "x") }

		_, err := Open("lecture.mp4", 3, failing, logger)
		assert.True(t, errors.Is(err, ErrUnreadableSource))
	})

	t.Run("opened", func(t *testing.T) {
		src := &fakeSource{fps: 25, frames: 50}
		opener := func(string) (Source, error) { return src, nil }

		sampler, err := Open("lecture.mp4", 3, opener, logger)
		require.NoError(t, err)
		defer sampler.Close()

		assert.Equal(t, 3.0, sampler.Rate())
		assert.Equal(t, 50, sampler.FrameCount())
	})
}

func TestOpenCaptureMissingFile(t *testing.T) {
	_, err := OpenCapture("/nonexistent/lecture.mp4")
	assert.True(t, errors.Is(err, ErrUnreadableSource))
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name      string
		at        float64
		wantIndex int
		wantTime  float64
	}{
		{name: "start", at: 0, wantIndex: 1, wantTime: 0},
		{name: "exact", at: 2, wantIndex: 7, wantTime: 2},
		{name: "between samples", at: 2.1, wantIndex: 8, wantTime: 7.0 / 3},
		{name: "past the end", at: 45, wantIndex: 30, wantTime: 29.0 / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{fps: 30, frames: 300}
			sampler, err := NewSampler(src, 3)
			require.NoError(t, err)
			defer sampler.Close()

			sample, err := Probe(sampler, tt.at)
			require.NoError(t, err)
			defer sample.Close()

			assert.Equal(t, tt.wantIndex, sample.Index)
			assert.InDelta(t, tt.wantTime, sample.Timestamp, 1e-9)
		})
	}
}

func TestProbeEmptyVideo(t *testing.T) {
	sampler, err := NewSampler(&fakeSource{fps: 30}, 3)
	require.NoError(t, err)

	_, err = Probe(sampler, 45)
	assert.Error(t, err)
}
