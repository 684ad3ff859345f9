package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-slides/images"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gocv.io/x/gocv"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		name    string
		ordinal int
		seconds float64
		format  images.ImageFormat
		want    string
	}{
		{name: "fractional", ordinal: 0, seconds: 45, format: images.FormatPNG, want: "000_0.75.png"},
		{name: "whole minute", ordinal: 3, seconds: 60, format: images.FormatPNG, want: "003_1.0.png"},
		{name: "start", ordinal: 0, seconds: 0, format: images.FormatPNG, want: "000_0.0.png"},
		{name: "rounded", ordinal: 12, seconds: 100.0 / 3, format: images.FormatJPEG, want: "012_0.56.jpg"},
		{name: "long video", ordinal: 1234, seconds: 750, format: images.FormatPNG, want: "1234_12.5.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.ordinal, RoundMinutes(tt.seconds), tt.format))
		})
	}
}

func TestOutputDir(t *testing.T) {
	assert.Equal(t, filepath.Join("output", "lecture 01"), OutputDir("output", "/videos/lecture 01.mp4"))
	assert.Equal(t, "talk.final", BaseName("talk.final.mkv"))
}

func TestPrepareDir(t *testing.T) {
	t.Run("creates missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "a", "b")
		require.NoError(t, PrepareDir(dir, PolicyFailIfNotEmpty))
		assert.DirExists(t, dir)
	})

	t.Run("empty existing is fine", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, PrepareDir(dir, PolicyFailIfNotEmpty))
	})

	t.Run("non-empty fails", func(t *testing.T) {
		dir := t.TempDir()
		stale := filepath.Join(dir, "000_0.0.png")
		require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

		err := PrepareDir(dir, PolicyFailIfNotEmpty)
		assert.True(t, errors.Is(err, ErrOutputNotEmpty))
		assert.FileExists(t, stale)
	})

	t.Run("non-empty cleared", func(t *testing.T) {
		dir := t.TempDir()
		stale := filepath.Join(dir, "000_0.0.png")
		require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))

		require.NoError(t, PrepareDir(dir, PolicyClear))
		assert.NoFileExists(t, stale)
		assert.DirExists(t, dir)
	})
}

func TestDirectorySink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "lecture")
	sink, err := NewDirectorySink(dir, images.FormatPNG, PolicyFailIfNotEmpty, zaptest.NewLogger(t))
	require.NoError(t, err)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 48, 64, gocv.MatTypeCV8UC3)
	defer frame.Close()

	require.NoError(t, sink.Write(New(0, 45, frame)))
	require.NoError(t, sink.Write(New(1, 90, frame)))

	want := []string{filepath.Join(dir, "000_0.75.png"), filepath.Join(dir, "001_1.5.png")}
	assert.Equal(t, want, sink.Files())

	written := gocv.IMRead(want[0], gocv.IMReadColor)
	defer written.Close()
	assert.Equal(t, 64, written.Cols())
	assert.Equal(t, 48, written.Rows())

	// Ordinals must keep increasing.
	assert.Error(t, sink.Write(New(1, 100, frame)))

	require.NoError(t, sink.Discard())
	assert.NoDirExists(t, dir)
	assert.Empty(t, sink.Files())
}

func TestDirectorySinkEmptyFrame(t *testing.T) {
	sink, err := NewDirectorySink(t.TempDir(), images.FormatPNG, PolicyClear, zaptest.NewLogger(t))
	require.NoError(t, err)

	empty := gocv.NewMat()
	defer empty.Close()

	assert.Error(t, sink.Write(New(0, 0, empty)))
	assert.Empty(t, sink.Files())
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "clear", PolicyClear.String())
	assert.Equal(t, "fail-if-not-empty", PolicyFailIfNotEmpty.String())
}
