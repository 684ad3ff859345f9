// Package capture - This file contains the capture sink that persists the
// full resolution frames chosen by the stability controller.
package capture

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvr-ai/go-slides/images"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ErrOutputNotEmpty is returned when the output directory already holds files
// and the policy forbids clearing it.
var ErrOutputNotEmpty = errors.New("output directory is not empty")

// Capture is a frame chosen for the document.
type Capture struct {
	// Ordinal is the 0-based position of the capture in the document.
	Ordinal int
	// Minutes is the video timestamp in minutes, rounded to two decimals.
	Minutes float64
	// Image is the full resolution, uncropped frame. It is owned by the caller
	// of Sink.Write and only valid during that call.
	Image gocv.Mat
}

// New builds a capture from a timestamp in seconds.
func New(ordinal int, seconds float64, img gocv.Mat) Capture {
	return Capture{Ordinal: ordinal, Minutes: RoundMinutes(seconds), Image: img}
}

// Sink receives captures in increasing ordinal order.
type Sink interface {
	Write(c Capture) error
}

// RoundMinutes converts seconds to minutes rounded to two decimals.
func RoundMinutes(seconds float64) float64 {
	return math.Round(seconds/60*100) / 100
}

// FormatMinutes prints minutes the way file names expect them: shortest
// representation, always with a decimal point ("0.75", "1.0", "12.5").
func FormatMinutes(minutes float64) string {
	s := strconv.FormatFloat(minutes, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FileName returns the file name for a capture, e.g. "000_0.75.png".
func FileName(ordinal int, minutes float64, format images.ImageFormat) string {
	return fmt.Sprintf("%03d_%s%s", ordinal, FormatMinutes(minutes), format.Ext())
}

// OutputDir returns the per-video directory under root, named after the
// video file without its extension.
func OutputDir(root, videoPath string) string {
	return filepath.Join(root, BaseName(videoPath))
}

// BaseName returns the video file name without directory and extension.
func BaseName(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Policy controls what happens to an existing output directory.
type Policy int

const (
	// PolicyFailIfNotEmpty refuses to write into a directory that has entries.
	PolicyFailIfNotEmpty Policy = iota
	// PolicyClear removes the directory and everything in it first.
	PolicyClear
)

// String returns the policy name.
func (p Policy) String() string {
	if p == PolicyClear {
		return "clear"
	}
	return "fail-if-not-empty"
}

// PrepareDir makes dir ready to receive captures according to the policy.
//
// Arguments:
//   - dir: The per-video output directory.
//   - policy: What to do when dir already has entries.
//
// Returns:
//   - error: ErrOutputNotEmpty, or a filesystem error.
func PrepareDir(dir string, policy Policy) error {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return errors.Wrapf(err, "read output directory %s", dir)
	case len(entries) > 0 && policy == PolicyFailIfNotEmpty:
		return errors.Wrapf(ErrOutputNotEmpty, "%s has %d entries", dir, len(entries))
	case len(entries) > 0:
		if err := os.RemoveAll(dir); err != nil {
			return errors.Wrapf(err, "clear output directory %s", dir)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create output directory %s", dir)
	}
	return nil
}

// DirectorySink writes each capture as an image file into one directory.
type DirectorySink struct {
	Dir    string
	Format images.ImageFormat
	logger *zap.Logger
	files  []string
	last   int
}

// NewDirectorySink prepares dir and returns a sink writing into it.
//
// Arguments:
//   - dir: The per-video output directory.
//   - format: The image format of the files.
//   - policy: The existing directory policy.
//   - logger: Logger for saved files.
//
// Returns:
//   - *DirectorySink: The sink.
//   - error: An error if the directory cannot be prepared.
func NewDirectorySink(dir string, format images.ImageFormat, policy Policy, logger *zap.Logger) (*DirectorySink, error) {
	if err := PrepareDir(dir, policy); err != nil {
		return nil, err
	}
	logger.Info("initialized output folder", zap.String("dir", dir), zap.Stringer("policy", policy))
	return &DirectorySink{Dir: dir, Format: format, logger: logger, last: -1}, nil
}

// Write encodes the capture and writes it. Encoding in memory and writing
// with os.WriteFile keeps non-ASCII paths working on every platform.
func (s *DirectorySink) Write(c Capture) error {
	if c.Ordinal <= s.last {
		return errors.Errorf("capture ordinal %d after %d", c.Ordinal, s.last)
	}

	data, err := s.Format.Encode(c.Image)
	if err != nil {
		return errors.Wrapf(err, "capture %d", c.Ordinal)
	}

	path := filepath.Join(s.Dir, FileName(c.Ordinal, c.Minutes, s.Format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write capture %d", c.Ordinal)
	}

	s.last = c.Ordinal
	s.files = append(s.files, path)
	s.logger.Info("saving capture", zap.String("path", path), zap.Int("ordinal", c.Ordinal), zap.Float64("minutes", c.Minutes))
	return nil
}

// Files returns the written paths in ordinal order.
func (s *DirectorySink) Files() []string {
	return append([]string(nil), s.files...)
}

// Discard removes the directory and everything written to it, for a video
// that did not complete.
func (s *DirectorySink) Discard() error {
	s.files = nil
	if err := os.RemoveAll(s.Dir); err != nil {
		return errors.Wrapf(err, "discard %s", s.Dir)
	}
	return nil
}
