// Package roi - This file contains the region of interest type applied to
// every sampled frame of a video.
package roi

import (
	"fmt"
	"image"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrSelectionCancelled is returned when the user aborts the selection.
	ErrSelectionCancelled = errors.New("roi selection cancelled")
	// ErrSelectionIncomplete is returned when the event stream ends before a release.
	ErrSelectionIncomplete = errors.New("roi selection incomplete")
	// ErrDegenerateROI is returned for a rectangle with zero width or height.
	ErrDegenerateROI = errors.New("roi has zero area")
)

// ROI is a rectangle in the coordinate space of the frame resized to the
// display width. BottomRight is exclusive.
type ROI struct {
	TopLeft     image.Point `json:"top_left" yaml:"top_left"`
	BottomRight image.Point `json:"bottom_right" yaml:"bottom_right"`
}

// FromPoints builds a normalized ROI from two opposite corners given in any order.
func FromPoints(a, b image.Point) ROI {
	return ROI{TopLeft: a, BottomRight: b}.Normalize()
}

// Normalize orders the corners so TopLeft <= BottomRight component-wise.
func (r ROI) Normalize() ROI {
	rect := r.Rectangle()
	return ROI{TopLeft: rect.Min, BottomRight: rect.Max}
}

// Clamp restricts both corners to the given bounds.
func (r ROI) Clamp(bounds image.Rectangle) ROI {
	return ROI{
		TopLeft:     clampPoint(r.TopLeft, bounds),
		BottomRight: clampPoint(r.BottomRight, bounds),
	}
}

// Rectangle returns the canonical rectangle spanned by the corners.
func (r ROI) Rectangle() image.Rectangle {
	return image.Rectangle{Min: r.TopLeft, Max: r.BottomRight}.Canon()
}

// Empty reports whether the rectangle has zero width or height.
func (r ROI) Empty() bool {
	return r.Rectangle().Empty()
}

// String returns the ROI in the same x1,y1,x2,y2 form Parse accepts.
func (r ROI) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.TopLeft.X, r.TopLeft.Y, r.BottomRight.X, r.BottomRight.Y)
}

// Resolve normalizes the ROI, clamps it to the frame bounds and rejects a
// zero-area result, which would make the foreground ratio undefined.
//
// Arguments:
//   - r: The raw rectangle as selected.
//   - bounds: The bounds of the resized frame.
//
// Returns:
//   - ROI: The usable rectangle.
//   - error: ErrDegenerateROI if nothing of the rectangle remains.
func Resolve(r ROI, bounds image.Rectangle) (ROI, error) {
	resolved := r.Normalize().Clamp(bounds)
	if resolved.Empty() {
		return ROI{}, errors.Wrapf(ErrDegenerateROI, "%s within %v", r, bounds)
	}
	return resolved, nil
}

// Parse parses "x1,y1,x2,y2". The corners may be given in any order.
//
// Arguments:
//   - s: The rectangle description.
//
// Returns:
//   - ROI: The normalized rectangle.
//   - error: An error if s is not four integers.
func Parse(s string) (ROI, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return ROI{}, errors.Errorf("roi %q: want x1,y1,x2,y2", s)
	}

	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return ROI{}, errors.Wrapf(err, "roi %q", s)
		}
		v[i] = n
	}
	return FromPoints(image.Pt(v[0], v[1]), image.Pt(v[2], v[3])), nil
}

func clampPoint(p image.Point, bounds image.Rectangle) image.Point {
	return image.Pt(clamp(p.X, bounds.Min.X, bounds.Max.X), clamp(p.Y, bounds.Min.Y, bounds.Max.Y))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
