// Package video - This file contains the frame sampler that turns a video
// source into an evenly spaced, lazily decoded sequence of frames.
package video

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// FrameSample is a single sampled frame of video.
type FrameSample struct {
	// Index is the 1-based count of frames sampled so far.
	Index int
	// Timestamp is the seek position in seconds.
	Timestamp float64
	// Image is the frame at native decode resolution.
	Image gocv.Mat
}

// Close releases the frame's pixel buffer.
func (f *FrameSample) Close() error {
	return f.Image.Close()
}

// Sampler produces frames at a fixed rate by seeking to k/rate seconds for
// k = 0, 1, 2, ... It keeps no more than the frame being returned and
// cannot be rewound.
type Sampler struct {
	source Source
	rate   float64
	next   int
	done   bool
}

// NewSampler wraps an already opened source.
//
// Arguments:
//   - source: The video source. The sampler takes ownership and closes it.
//   - rate: Frames sampled per second of video time, must be > 0.
//
// Returns:
//   - *Sampler: The sampler.
//   - error: An error if the rate is not positive.
func NewSampler(source Source, rate float64) (*Sampler, error) {
	if rate <= 0 {
		source.Close()
		return nil, errors.Errorf("sample rate must be > 0, got %v", rate)
	}
	return &Sampler{source: source, rate: rate}, nil
}

// Open opens the video at path and returns a sampler over it. The source is
// opened immediately, so unreadable files fail here rather than on the first
// call to Next.
//
// Arguments:
//   - path: The video path.
//   - rate: Frames sampled per second of video time.
//   - open: The source opener, usually OpenCapture.
//   - logger: Logger for source information.
//
// Returns:
//   - *Sampler: The sampler.
//   - error: ErrUnreadableSource when the video cannot be opened.
func Open(path string, rate float64, open Opener, logger *zap.Logger) (*Sampler, error) {
	source, err := open(path)
	if err != nil {
		if errors.Is(err, ErrUnreadableSource) {
			return nil, err
		}
		return nil, errors.Wrapf(ErrUnreadableSource, "open %s: %v", path, err)
	}

	logger.Debug("video opened",
		zap.String("path", path),
		zap.Int("total_frames", source.FrameCount()),
		zap.Float64("sample_rate", rate),
	)

	return NewSampler(source, rate)
}

// Rate returns the sampling rate.
func (s *Sampler) Rate() float64 {
	return s.rate
}

// FrameCount returns the frame count declared by the source.
func (s *Sampler) FrameCount() int {
	if s.source == nil {
		return 0
	}
	return s.source.FrameCount()
}

// Next returns the next sample. The caller owns the sample and must Close it.
//
// Returns:
//   - FrameSample: The next frame.
//   - error: io.EOF when the video is exhausted, or a seek error.
func (s *Sampler) Next() (FrameSample, error) {
	if s.done {
		return FrameSample{}, io.EOF
	}

	timestamp := float64(s.next) / s.rate
	if err := s.source.SeekMillis(timestamp * 1000); err != nil {
		s.finish()
		return FrameSample{}, errors.Wrapf(err, "seek to %.3fs", timestamp)
	}

	img := gocv.NewMat()
	if ok := s.source.Read(&img); !ok || img.Empty() {
		img.Close()
		s.finish()
		return FrameSample{}, io.EOF
	}

	s.next++
	return FrameSample{Index: s.next, Timestamp: timestamp, Image: img}, nil
}

// Close releases the underlying source. It is safe to call more than once.
func (s *Sampler) Close() error {
	if s.source == nil {
		return nil
	}
	err := s.source.Close()
	s.source = nil
	s.done = true
	return err
}

// finish marks the sequence as ended and releases the source.
func (s *Sampler) finish() {
	s.done = true
	if s.source != nil {
		s.source.Close()
		s.source = nil
	}
}
