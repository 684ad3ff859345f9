// Package images - This file contains the background model used to decide
// whether a region of a slide video is still moving, using OpenCV (via gocv).
//
// The BackgroundModel struct wraps a MOG2 background subtractor and turns
// each cropped frame into a foreground mask and a foreground percentage:
//
// ┌──────────────────┐
// │ Cropped ROI Frame│
// └──────┬───────────┘
// ┌────────────────────────────┐
// │ Background Subtraction     │
// │       (MOG2)               │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Shadow removal (optional)  │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ CountNonZero / area * 100  │
// └────────────────────────────┘
//
// Usage:
//
//	model := images.NewBackgroundModel(images.DefaultBackgroundConfig(3))
//	defer model.Close()
//
//	for {
//	    roi := getNextCroppedFrame()
//	    ratio, err := model.Apply(roi)
//	}
//
// Note: You must call Close() when finished to release native resources.
package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// shadowValue is the mask value MOG2 assigns to shadow pixels.
const shadowValue = 127

// ErrEmptyRegion is returned when a mask has no pixels to compute a ratio over.
var ErrEmptyRegion = errors.New("foreground mask has zero area")

// BackgroundConfig holds the MOG2 parameters.
type BackgroundConfig struct {
	// History is the number of most recent frames that shape the background estimate.
	History int
	// VarThreshold is the squared Mahalanobis distance a pixel must exceed to be
	// foreground. Higher values are less sensitive.
	VarThreshold float64
	// DetectShadows enables shadow marking. Shadow pixels are not counted as foreground.
	DetectShadows bool
}

// DefaultBackgroundConfig returns the parameters tuned for slide videos sampled
// at the given rate: fifteen seconds of history and a variance threshold of 16.
//
// Arguments:
//   - sampleRate: Sampled frames per second of video.
//
// Returns:
//   - BackgroundConfig: The default configuration.
func DefaultBackgroundConfig(sampleRate int) BackgroundConfig {
	return BackgroundConfig{
		History:       sampleRate * 15,
		VarThreshold:  16,
		DetectShadows: false,
	}
}

// BackgroundModel encapsulates a persistent MOG2 background model for one
// detection run. It is stateful, not safe for concurrent use, and must not be
// shared between videos.
type BackgroundModel struct {
	Config               BackgroundConfig
	Mask                 gocv.Mat                      // Foreground mask of the last frame.
	Threshold            gocv.Mat                      // Mask with shadows removed.
	BackgroundSubtractor gocv.BackgroundSubtractorMOG2 // Persistent background model.
}

// NewBackgroundModel constructs a background model with initialized OpenCV matrices.
//
// Arguments:
//   - cfg: The MOG2 parameters.
//
// Returns:
//   - *BackgroundModel: The model. Always call Close() to release memory.
func NewBackgroundModel(cfg BackgroundConfig) *BackgroundModel {
	return &BackgroundModel{
		Config:               cfg,
		Mask:                 gocv.NewMat(),
		Threshold:            gocv.NewMat(),
		BackgroundSubtractor: gocv.NewBackgroundSubtractorMOG2WithParams(cfg.History, cfg.VarThreshold, cfg.DetectShadows),
	}
}

// SubtractBackground updates the background estimate with the frame and stores
// the resulting foreground mask in Mask.
//
// Arguments:
//   - frame: The cropped frame to process.
//
// Returns:
//   - error: An error if the frame is empty or the subtractor fails.
func (m *BackgroundModel) SubtractBackground(frame gocv.Mat) error {
	if frame.Empty() {
		return errors.Wrap(ErrEmptyRegion, "empty frame")
	}
	if err := m.BackgroundSubtractor.Apply(frame, &m.Mask); err != nil {
		return errors.Wrap(err, "background subtraction failed")
	}
	return nil
}

// ForegroundMask returns the mask used for counting: Mask itself, or the
// shadow-free Threshold when shadow detection is on.
func (m *BackgroundModel) ForegroundMask() gocv.Mat {
	if !m.Config.DetectShadows {
		return m.Mask
	}
	// Shadows are 127 and foreground is 255, keep only the latter.
	gocv.Threshold(m.Mask, &m.Threshold, shadowValue, 255, gocv.ThresholdBinary)
	return m.Threshold
}

// Apply runs background subtraction on the frame and returns the foreground percentage.
//
// Arguments:
//   - frame: The cropped frame to process.
//
// Returns:
//   - float64: The percentage of pixels that are foreground (0..100).
//   - error: An error if subtraction fails or the frame has no area.
func (m *BackgroundModel) Apply(frame gocv.Mat) (float64, error) {
	if err := m.SubtractBackground(frame); err != nil {
		return 0, err
	}
	return ForegroundRatio(m.ForegroundMask())
}

// Close releases all OpenCV native resources used by the model.
func (m *BackgroundModel) Close() {
	m.Mask.Close()
	m.Threshold.Close()
	m.BackgroundSubtractor.Close()
}

// ForegroundRatio computes the percentage of non-zero pixels in a single channel mask.
//
// Arguments:
//   - mask: The foreground mask.
//
// Returns:
//   - float64: count(non-zero) / (rows*cols) * 100.
//   - error: ErrEmptyRegion for a zero-area mask.
func ForegroundRatio(mask gocv.Mat) (float64, error) {
	total := mask.Rows() * mask.Cols()
	if mask.Empty() || total == 0 {
		return 0, ErrEmptyRegion
	}
	return float64(gocv.CountNonZero(mask)) / float64(total) * 100, nil
}
