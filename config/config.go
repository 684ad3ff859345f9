// Package config holds every tunable of a slide extraction run.
//
// Values are layered in this order, each layer overriding the previous one:
// built-in defaults, an optional YAML file, SLIDES_* environment variables and
// finally command line flags.
package config

import (
	"flag"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/nvr-ai/go-slides/capture"
	"github.com/nvr-ai/go-slides/controller"
	"github.com/nvr-ai/go-slides/images"
	"github.com/nvr-ai/go-slides/roi"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SLIDES_"

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full run configuration.
type Config struct {
	// SampleRate is the number of frames sampled per second of video.
	SampleRate int `yaml:"sample_rate" env:"SAMPLE_RATE"`
	// Warmup is the number of sampled frames that never produce a capture.
	// A negative value means "one second of samples".
	Warmup int `yaml:"warmup" env:"WARMUP"`
	// History is the MOG2 history length. Zero or less means fifteen seconds of samples.
	History       int     `yaml:"history" env:"HISTORY"`
	VarThreshold  float64 `yaml:"var_threshold" env:"VAR_THRESHOLD"`
	DetectShadows bool    `yaml:"detect_shadows" env:"DETECT_SHADOWS"`
	MinPercent    float64 `yaml:"min_percent" env:"MIN_PERCENT"`
	MaxPercent    float64 `yaml:"max_percent" env:"MAX_PERCENT"`

	// DisplayWidth is the width frames are resized to before ROI selection and detection.
	DisplayWidth int `yaml:"display_width" env:"DISPLAY_WIDTH"`
	// ProbeAt is the video time in seconds of the frame shown for ROI selection.
	ProbeAt float64 `yaml:"probe_at" env:"PROBE_AT"`
	// ROI is a preset "x1,y1,x2,y2" rectangle. Empty means interactive selection.
	ROI string `yaml:"roi" env:"ROI"`

	OutputDir   string `yaml:"output_dir" env:"OUTPUT_DIR"`
	DocumentDir string `yaml:"document_dir" env:"DOCUMENT_DIR"`
	ImageFormat string `yaml:"image_format" env:"IMAGE_FORMAT"`
	Overwrite   bool   `yaml:"overwrite" env:"OVERWRITE"`
	// PageWidth downscales wider captures before PDF assembly. Zero keeps full resolution.
	PageWidth int `yaml:"page_width" env:"PAGE_WIDTH"`

	MetricsFile string `yaml:"metrics_file" env:"METRICS_FILE"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SampleRate:   3,
		Warmup:       -1,
		History:      0,
		VarThreshold: 16,
		MinPercent:   0.1,
		MaxPercent:   3,
		DisplayWidth: 600,
		ProbeAt:      45,
		OutputDir:    "./output",
		DocumentDir:  ".",
		ImageFormat:  string(images.FormatPNG),
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// Load builds a configuration from the defaults, the YAML file at path (when
// path is not empty) and the environment.
//
// Arguments:
//   - path: Optional YAML file.
//
// Returns:
//   - *Config: The loaded configuration, not yet validated.
//   - error: An error if the file cannot be read or a value cannot be parsed.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	return cfg, nil
}

// BindFlags registers one flag per field on fs, using the current values as defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.SampleRate, "rate", c.SampleRate, "Frames sampled per second of video")
	fs.IntVar(&c.Warmup, "warmup", c.Warmup, "Warm-up frames without captures (negative: one second)")
	fs.IntVar(&c.History, "history", c.History, "Background model history (0: fifteen seconds)")
	fs.Float64Var(&c.VarThreshold, "var-threshold", c.VarThreshold, "Background model variance threshold")
	fs.BoolVar(&c.DetectShadows, "shadows", c.DetectShadows, "Detect and ignore shadows")
	fs.Float64Var(&c.MinPercent, "min-percent", c.MinPercent, "Foreground percentage below which the scene is stable")
	fs.Float64Var(&c.MaxPercent, "max-percent", c.MaxPercent, "Foreground percentage at which the scene is changing again")
	fs.IntVar(&c.DisplayWidth, "width", c.DisplayWidth, "Width frames are resized to for selection and detection")
	fs.Float64Var(&c.ProbeAt, "probe-at", c.ProbeAt, "Video time in seconds of the ROI selection frame")
	fs.StringVar(&c.ROI, "roi", c.ROI, "Preset region x1,y1,x2,y2 (skips the selection window)")
	fs.StringVar(&c.OutputDir, "output", c.OutputDir, "Root directory for captured slides")
	fs.StringVar(&c.DocumentDir, "pdf-dir", c.DocumentDir, "Directory for the generated PDF files")
	fs.StringVar(&c.ImageFormat, "format", c.ImageFormat, "Capture image format (png, jpg)")
	fs.BoolVar(&c.Overwrite, "overwrite", c.Overwrite, "Clear existing output directories")
	fs.IntVar(&c.PageWidth, "page-width", c.PageWidth, "Downscale wider slides before PDF assembly (0: off)")
	fs.StringVar(&c.MetricsFile, "metrics-file", c.MetricsFile, "Write prometheus metrics to this textfile")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format (console, json)")
}

// Override copies every flag explicitly set on fs onto c. Flags that c does
// not bind are ignored.
//
// Arguments:
//   - fs: A parsed flag set.
//
// Returns:
//   - error: An error if a flag value does not parse.
func (c *Config) Override(fs *flag.FlagSet) error {
	bound := flag.NewFlagSet("override", flag.ContinueOnError)
	c.BindFlags(bound)

	var err error
	fs.Visit(func(f *flag.Flag) {
		if err != nil || bound.Lookup(f.Name) == nil {
			return
		}
		if setErr := bound.Set(f.Name, f.Value.String()); setErr != nil {
			err = errors.Wrapf(setErr, "flag -%s", f.Name)
		}
	})
	return err
}

// Validate checks every value and fills the derived defaults.
//
// Returns:
//   - error: ErrInvalidConfig wrapped with the offending field.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "sample rate must be > 0, got %d", c.SampleRate)
	}
	if c.Warmup < 0 {
		c.Warmup = c.SampleRate
	}
	if c.History <= 0 {
		c.History = c.SampleRate * 15
	}
	if c.VarThreshold <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "variance threshold must be > 0, got %v", c.VarThreshold)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.DisplayWidth <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "display width must be > 0, got %d", c.DisplayWidth)
	}
	if c.ProbeAt < 0 {
		return errors.Wrapf(ErrInvalidConfig, "probe time must be >= 0, got %v", c.ProbeAt)
	}
	if c.PageWidth < 0 {
		return errors.Wrapf(ErrInvalidConfig, "page width must be >= 0, got %d", c.PageWidth)
	}
	if c.OutputDir == "" {
		return errors.Wrap(ErrInvalidConfig, "output directory is required")
	}
	if c.DocumentDir == "" {
		c.DocumentDir = "."
	}
	if _, err := images.ParseFormat(c.ImageFormat); err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	if c.ROI != "" {
		if _, err := roi.Parse(c.ROI); err != nil {
			return errors.Wrap(ErrInvalidConfig, err.Error())
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unknown log format %q", c.LogFormat)
	}
	return nil
}

// Thresholds returns the stability detector settings.
func (c *Config) Thresholds() controller.ThresholdConfig {
	return controller.ThresholdConfig{
		MinPercent:   c.MinPercent,
		MaxPercent:   c.MaxPercent,
		WarmupFrames: c.Warmup,
	}
}

// Background returns the background model settings.
func (c *Config) Background() images.BackgroundConfig {
	return images.BackgroundConfig{
		History:       c.History,
		VarThreshold:  c.VarThreshold,
		DetectShadows: c.DetectShadows,
	}
}

// Format returns the capture image format. Call Validate first.
func (c *Config) Format() images.ImageFormat {
	format, _ := images.ParseFormat(c.ImageFormat)
	return format
}

// Policy returns the output directory policy.
func (c *Config) Policy() capture.Policy {
	if c.Overwrite {
		return capture.PolicyClear
	}
	return capture.PolicyFailIfNotEmpty
}

// Region returns the preset ROI, or false when selection is interactive.
func (c *Config) Region() (roi.ROI, bool) {
	if c.ROI == "" {
		return roi.ROI{}, false
	}
	r, err := roi.Parse(c.ROI)
	if err != nil {
		return roi.ROI{}, false
	}
	return r, true
}
