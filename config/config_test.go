package config

import (
	"flag"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-slides/capture"
	"github.com/nvr-ai/go-slides/images"
	"github.com/nvr-ai/go-slides/roi"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDerivesFromRate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 3, cfg.Warmup)
	assert.Equal(t, 45, cfg.History)
	assert.Equal(t, images.BackgroundConfig{History: 45, VarThreshold: 16}, cfg.Background())
	assert.Equal(t, 0.1, cfg.Thresholds().MinPercent)
	assert.Equal(t, 3.0, cfg.Thresholds().MaxPercent)
	assert.Equal(t, 3, cfg.Thresholds().WarmupFrames)
	assert.Equal(t, images.FormatPNG, cfg.Format())
	assert.Equal(t, capture.PolicyFailIfNotEmpty, cfg.Policy())

	_, ok := cfg.Region()
	assert.False(t, ok)
}

func TestLoadLayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: 5\nmin_percent: 0.2\noutput_dir: /tmp/slides\n"), 0o644))

	t.Setenv("SLIDES_MIN_PERCENT", "0.5")
	t.Setenv("SLIDES_OVERWRITE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	// YAML overrides defaults, the environment overrides YAML.
	assert.Equal(t, 5, cfg.SampleRate)
	assert.Equal(t, 0.5, cfg.MinPercent)
	assert.Equal(t, "/tmp/slides", cfg.OutputDir)
	assert.True(t, cfg.Overwrite)
	assert.Equal(t, 3.0, cfg.MaxPercent)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.Warmup)
	assert.Equal(t, 75, cfg.History)
	assert.Equal(t, capture.PolicyClear, cfg.Policy())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: [1, 2\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	t.Setenv("SLIDES_SAMPLE_RATE", "fast")
	_, err = Load("")
	assert.Error(t, err)
}

func TestOverrideAppliesOnlySetFlags(t *testing.T) {
	t.Setenv("SLIDES_MAX_PERCENT", "4")
	cfg, err := Load("")
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	Default().BindFlags(fs)
	fs.String("video", "", "not a config flag")
	require.NoError(t, fs.Parse([]string{"-rate", "6", "-roi", "10,20,300,200", "-video", "a.mp4"}))

	require.NoError(t, cfg.Override(fs))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 6, cfg.SampleRate)
	assert.Equal(t, 4.0, cfg.MaxPercent, "unset flags keep the environment value")
	assert.Equal(t, 6, cfg.Warmup)

	r, ok := cfg.Region()
	require.True(t, ok)
	assert.Equal(t, roi.FromPoints(image.Pt(10, 20), image.Pt(300, 200)), r)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero rate", mutate: func(c *Config) { c.SampleRate = 0 }},
		{name: "zero var threshold", mutate: func(c *Config) { c.VarThreshold = 0 }},
		{name: "min above max", mutate: func(c *Config) { c.MinPercent = 5 }},
		{name: "zero width", mutate: func(c *Config) { c.DisplayWidth = 0 }},
		{name: "negative probe", mutate: func(c *Config) { c.ProbeAt = -1 }},
		{name: "negative page width", mutate: func(c *Config) { c.PageWidth = -1 }},
		{name: "no output", mutate: func(c *Config) { c.OutputDir = "" }},
		{name: "bad format", mutate: func(c *Config) { c.ImageFormat = "gif" }},
		{name: "bad roi", mutate: func(c *Config) { c.ROI = "1,2,3" }},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestValidateKeepsExplicitZeroWarmup(t *testing.T) {
	cfg := Default()
	cfg.Warmup = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.Warmup)
}
