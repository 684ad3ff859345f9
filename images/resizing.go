package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ScaledSize returns the size of an image resized to width, preserving the
// aspect ratio. The height is truncated like OpenCV callers usually do.
//
// Arguments:
//   - size: The source size (X = width, Y = height).
//   - width: The target width in pixels.
//
// Returns:
//   - image.Point: The target size.
func ScaledSize(size image.Point, width int) image.Point {
	if size.X <= 0 {
		return image.Point{}
	}
	ratio := float64(width) / float64(size.X)
	return image.Pt(width, int(float64(size.Y)*ratio))
}

// ResizeToWidth resizes a frame to the given width, preserving its aspect ratio.
//
// Arguments:
//   - src: The frame to resize.
//   - width: The target width in pixels.
//
// Returns:
//   - gocv.Mat: A new Mat owned by the caller.
//   - error: An error if the frame is empty or the width is not positive.
//
// @example
// small, err := ResizeToWidth(frame, 600)
// defer small.Close()
func ResizeToWidth(src gocv.Mat, width int) (gocv.Mat, error) {
	if src.Empty() {
		return gocv.NewMat(), errors.New("cannot resize an empty frame")
	}
	if width <= 0 {
		return gocv.NewMat(), errors.Errorf("invalid width: %d", width)
	}

	size := ScaledSize(image.Pt(src.Cols(), src.Rows()), width)
	if size == image.Pt(src.Cols(), src.Rows()) {
		return src.Clone(), nil
	}

	dst := gocv.NewMat()
	// INTER_AREA avoids moire on the downscale, which MOG2 would read as motion.
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationArea)
	return dst, nil
}

// Crop copies the given rectangle out of the frame. The rectangle is clipped
// to the frame bounds first.
//
// Arguments:
//   - src: The frame to crop.
//   - rect: The region to keep, in the frame's coordinate space.
//
// Returns:
//   - gocv.Mat: A continuous copy of the region, owned by the caller.
//   - error: ErrEmptyRegion when the clipped rectangle has no area.
func Crop(src gocv.Mat, rect image.Rectangle) (gocv.Mat, error) {
	clipped := rect.Canon().Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	if clipped.Empty() {
		return gocv.NewMat(), errors.Wrapf(ErrEmptyRegion, "crop %v outside %dx%d frame", rect, src.Cols(), src.Rows())
	}

	region := src.Region(clipped)
	defer region.Close()

	return region.Clone(), nil
}
