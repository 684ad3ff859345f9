// Package images - Image format definitions for persisted captures.
package images

import (
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ImageFormat represents supported capture image formats.
type ImageFormat string

// ImageFormat constants
const (
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
)

// ParseFormat parses a format name such as "png", "jpg" or "jpeg".
//
// Arguments:
//   - s: The format name, case insensitive.
//
// Returns:
//   - ImageFormat: The parsed format.
//   - error: An error if the format is not supported.
func ParseFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return "", errors.Errorf("unsupported image format: %q (must be png or jpeg)", s)
	}
}

// Ext returns the file extension used for the format, including the dot.
func (f ImageFormat) Ext() string {
	return string(f.FileExt())
}

// FileExt returns the gocv encoder extension for the format.
func (f ImageFormat) FileExt() gocv.FileExt {
	if f == FormatJPEG {
		return gocv.JPEGFileExt
	}
	return gocv.PNGFileExt
}

// Encode encodes a frame in the format.
//
// Arguments:
//   - mat: The frame to encode.
//
// Returns:
//   - []byte: The encoded bytes.
//   - error: An error if the frame is empty or encoding fails.
func (f ImageFormat) Encode(mat gocv.Mat) ([]byte, error) {
	if mat.Empty() {
		return nil, errors.New("cannot encode an empty frame")
	}
	buf, err := gocv.IMEncode(f.FileExt(), mat)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", f)
	}
	defer buf.Close()

	// GetBytes aliases native memory, copy before the buffer is released.
	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
