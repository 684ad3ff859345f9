package video

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrUnreadableSource is returned when a video cannot be opened.
var ErrUnreadableSource = errors.New("unreadable video source")

// Source is the video decoding collaborator the sampler depends on.
type Source interface {
	// SeekMillis moves the read position to the given timestamp.
	SeekMillis(ms float64) error
	// Read decodes the frame at the current position into dst. It returns
	// false when no frame is available.
	Read(dst *gocv.Mat) bool
	// FrameCount reports the number of frames the container declares.
	FrameCount() int
	// Close releases the source.
	Close() error
}

// Opener opens a video source by path.
type Opener func(path string) (Source, error)

// CaptureSource is a Source backed by an OpenCV VideoCapture.
type CaptureSource struct {
	capture *gocv.VideoCapture
}

// OpenCapture opens a video file with gocv.
//
// Arguments:
//   - path: The path of the video file.
//
// Returns:
//   - Source: The opened source.
//   - error: ErrUnreadableSource if the file cannot be opened.
func OpenCapture(path string) (Source, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, errors.Wrapf(ErrUnreadableSource, "open %s: %v", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, errors.Wrapf(ErrUnreadableSource, "open %s", path)
	}
	return &CaptureSource{capture: capture}, nil
}

// SeekMillis sets CAP_PROP_POS_MSEC. Backends snap to the nearest decodable
// frame, so positions are approximate on variable frame rate files.
func (s *CaptureSource) SeekMillis(ms float64) error {
	s.capture.Set(gocv.VideoCapturePosMsec, ms)
	return nil
}

// Read reads the frame at the current position.
func (s *CaptureSource) Read(dst *gocv.Mat) bool {
	return s.capture.Read(dst) && !dst.Empty()
}

// FrameCount returns CAP_PROP_FRAME_COUNT.
func (s *CaptureSource) FrameCount() int {
	return int(s.capture.Get(gocv.VideoCaptureFrameCount))
}

// Close releases the capture.
func (s *CaptureSource) Close() error {
	return s.capture.Close()
}
