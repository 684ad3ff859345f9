package roi

import (
	"image"

	"github.com/nvr-ai/go-slides/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Surface shows a frame and reports the pointer events of one selection.
type Surface interface {
	Select(frame gocv.Mat) ([]Event, error)
}

// StaticSurface replays a preset rectangle, for headless runs.
type StaticSurface struct {
	ROI ROI
}

// Select returns a press on the top-left corner and a release on the bottom-right one.
func (s StaticSurface) Select(gocv.Mat) ([]Event, error) {
	return []Event{
		{Kind: Press, Point: s.ROI.TopLeft},
		{Kind: Release, Point: s.ROI.BottomRight},
	}, nil
}

// WindowSurface lets the user drag a rectangle in an OpenCV window. SPACE or
// ENTER confirms; 'c' or ESC cancels.
type WindowSurface struct {
	Title string
}

// Select opens the window and blocks until the user confirms or cancels.
func (s WindowSurface) Select(frame gocv.Mat) ([]Event, error) {
	if frame.Empty() {
		return nil, errors.New("cannot select on an empty frame")
	}

	window := gocv.NewWindow(s.Title)
	defer window.Close()

	rect := window.SelectROI(frame)
	if rect.Empty() {
		return []Event{{Kind: Cancel}}, nil
	}
	return []Event{
		{Kind: Press, Point: rect.Min},
		{Kind: Drag, Point: rect.Max},
		{Kind: Release, Point: rect.Max},
	}, nil
}

// Selector resizes a probe frame to the display width and folds the
// surface's events into the ROI.
type Selector struct {
	Surface      Surface
	DisplayWidth int
}

// Select runs one selection on the probe frame.
//
// Arguments:
//   - frame: The full resolution probe frame.
//
// Returns:
//   - ROI: The rectangle in the resized coordinate space.
//   - error: ErrSelectionCancelled, ErrSelectionIncomplete, ErrDegenerateROI or a resize error.
func (s *Selector) Select(frame gocv.Mat) (ROI, error) {
	resized, err := images.ResizeToWidth(frame, s.DisplayWidth)
	if err != nil {
		return ROI{}, errors.Wrap(err, "resize probe frame")
	}
	defer resized.Close()

	events, err := s.Surface.Select(resized)
	if err != nil {
		return ROI{}, errors.Wrap(err, "roi surface")
	}
	return FromEvents(events, image.Rect(0, 0, resized.Cols(), resized.Rows()))
}
