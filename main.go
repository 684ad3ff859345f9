package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nvr-ai/go-slides/config"
	"github.com/nvr-ai/go-slides/logging"
	"github.com/nvr-ai/go-slides/metrics"
	"github.com/nvr-ai/go-slides/pipeline"
	"github.com/nvr-ai/go-slides/roi"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// windowTitle is the title of the ROI selection window.
const windowTitle = "Select the slide area (SPACE/ENTER to confirm, c/ESC to cancel)"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses args, processes the videos and returns the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("go-slides", flag.ContinueOnError)
	var (
		configPath string
		videoPath  string
		dirPath    string
	)
	fs.StringVar(&configPath, "config", "", "Optional YAML configuration file")
	fs.StringVar(&videoPath, "video", "", "Path to a single video file")
	fs.StringVar(&dirPath, "dir", "", "Directory of videos to convert")
	config.Default().BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(configPath, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 2
	}
	defer logger.Sync()

	paths, err := inputVideos(videoPath, dirPath, fs.Args(), logger)
	if err != nil {
		logger.Error("invalid input", zap.Error(err))
		return 2
	}
	if len(paths) == 0 {
		logger.Warn("no videos to process")
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	batch := pipeline.NewBatch(cfg, surface(cfg), m, logger)

	logger.Info("starting slide extraction",
		zap.String("run_id", batch.RunID),
		zap.Int("videos", len(paths)),
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Int("warmup", cfg.Warmup),
		zap.Int("history", cfg.History),
		zap.Float64("min_percent", cfg.MinPercent),
		zap.Float64("max_percent", cfg.MaxPercent),
		zap.String("output", cfg.OutputDir),
	)

	results := batch.Run(ctx, paths)

	failed := 0
	for _, r := range results {
		if r.Outcome == metrics.OutcomeFailed {
			failed++
		}
		logger.Info("video done",
			zap.String("video", r.Path),
			zap.String("outcome", r.Outcome),
			zap.Int("captures", r.Captures),
			zap.String("document", r.Document),
		)
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", zap.Error(err))
		}
	}

	if ctx.Err() != nil {
		logger.Warn("interrupted", zap.Int("completed", len(results)), zap.Int("total", len(paths)))
		return 130
	}
	if failed > 0 {
		return 1
	}
	return 0
}

// loadConfig layers defaults, the YAML file, the environment and the flags
// explicitly set on the command line.
func loadConfig(path string, fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Override(fs); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// surface returns the headless preset surface when a ROI is configured, and
// the interactive window otherwise.
func surface(cfg *config.Config) roi.Surface {
	if r, ok := cfg.Region(); ok {
		return roi.StaticSurface{ROI: r}
	}
	return roi.WindowSurface{Title: windowTitle}
}

// inputVideos resolves the -video, -dir and positional arguments to a list of
// video paths.
func inputVideos(videoPath, dirPath string, extra []string, logger *zap.Logger) ([]string, error) {
	if videoPath == "" && dirPath == "" && len(extra) == 0 {
		return nil, errors.New("specify -video, -dir or video paths")
	}

	var paths []string
	for _, p := range append([]string{videoPath}, extra...) {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "video %s", p)
		}
		if info.IsDir() {
			return nil, errors.Errorf("%s is a directory, use -dir", p)
		}
		paths = append(paths, p)
	}

	if dirPath != "" {
		found, err := pipeline.DiscoverVideos(dirPath, logger)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}
