package pipeline

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-slides/capture"
	"github.com/nvr-ai/go-slides/config"
	"github.com/nvr-ai/go-slides/controller"
	"github.com/nvr-ai/go-slides/document"
	"github.com/nvr-ai/go-slides/images"
	"github.com/nvr-ai/go-slides/metrics"
	"github.com/nvr-ai/go-slides/profiler"
	"github.com/nvr-ai/go-slides/roi"
	"github.com/nvr-ai/go-slides/video"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Extensions accepted by DiscoverVideos without a MIME lookup.
var videoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".webm", ".m4v", ".wmv", ".flv", ".mpg", ".mpeg"}

// VideoResult is the outcome of one video in a batch.
type VideoResult struct {
	Path     string
	Dir      string
	Document string
	Frames   int
	Captures int
	Outcome  string
	Err      error
}

// Batch processes videos one after another. Every video gets its own
// background model, controller and output directory.
type Batch struct {
	Config    *config.Config
	Open      video.Opener
	Surface   roi.Surface
	Assembler *document.Assembler
	Metrics   *metrics.Metrics
	NewModel  func(images.BackgroundConfig) Model
	RunID     string

	logger *zap.Logger
}

// NewBatch creates a batch reading videos with gocv.
//
// Arguments:
//   - cfg: A validated configuration.
//   - surface: The ROI selection surface.
//   - m: Metrics collectors.
//   - logger: The base logger. Every line carries the run id.
//
// Returns:
//   - *Batch: The batch.
func NewBatch(cfg *config.Config, surface roi.Surface, m *metrics.Metrics, logger *zap.Logger) *Batch {
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	return &Batch{
		Config:    cfg,
		Open:      video.OpenCapture,
		Surface:   surface,
		Assembler: document.NewAssembler(cfg.PageWidth, logger),
		Metrics:   m,
		NewModel: func(bc images.BackgroundConfig) Model {
			return images.NewBackgroundModel(bc)
		},
		RunID:  runID,
		logger: logger,
	}
}

// Run processes every path in order. A failing video is logged and recorded
// in its result; the next video still runs. Cancelling ctx stops the batch.
//
// Arguments:
//   - ctx: Cancels the current video between frames and ends the batch.
//   - paths: The videos to process.
//
// Returns:
//   - []VideoResult: One result per video that was started.
func (b *Batch) Run(ctx context.Context, paths []string) []VideoResult {
	results := make([]VideoResult, 0, len(paths))

	for _, path := range paths {
		if ctx.Err() != nil {
			b.logger.Warn("batch cancelled", zap.Int("remaining", len(paths)-len(results)))
			break
		}

		start := time.Now()
		result, err := b.ProcessVideo(ctx, path)
		if err != nil {
			result.Err = err
			result.Outcome = classify(err)
		}
		b.Metrics.ObserveVideo(result.Outcome, time.Since(start).Seconds())

		log := b.logger.With(zap.String("video", path))
		switch {
		case err == nil:
		case result.Outcome == metrics.OutcomeSkipped:
			log.Info("video skipped", zap.Error(err))
		default:
			log.Error("video failed", zap.Error(err))
		}
		results = append(results, result)
	}

	return results
}

// ProcessVideo extracts the slides of one video and assembles its document.
//
// Arguments:
//   - ctx: Checked between frames.
//   - path: The video file.
//
// Returns:
//   - VideoResult: What was produced.
//   - error: The reason the video did not complete. A video without captures
//     is not an error.
func (b *Batch) ProcessVideo(ctx context.Context, path string) (VideoResult, error) {
	cfg := b.Config
	log := b.logger.With(zap.String("video", path))
	result := VideoResult{Path: path}
	rate := float64(cfg.SampleRate)

	region, err := b.selectRegion(path, log)
	if err != nil {
		return result, err
	}
	log.Info("roi selected", zap.Stringer("roi", region))

	sampler, err := video.Open(path, rate, b.Open, log)
	if err != nil {
		return result, err
	}
	defer sampler.Close()

	ctrl, err := controller.New(cfg.Thresholds())
	if err != nil {
		return result, err
	}
	model := b.NewModel(cfg.Background())
	defer model.Close()

	result.Dir = capture.OutputDir(cfg.OutputDir, path)
	sink, err := capture.NewDirectorySink(result.Dir, cfg.Format(), cfg.Policy(), log)
	if err != nil {
		return result, err
	}

	prof := profiler.New(0)
	extractor := &Extractor{
		DisplayWidth: cfg.DisplayWidth,
		Model:        model,
		Controller:   ctrl,
		Metrics:      b.Metrics,
		Profiler:     prof,
		Logger:       log,
	}

	summary, err := extractor.Extract(ctx, sampler, region, sink)
	result.Frames = summary.Frames
	if err != nil {
		if discardErr := sink.Discard(); discardErr != nil {
			log.Warn("failed to discard partial output", zap.Error(discardErr))
		}
		result.Dir = ""
		return result, errors.Wrap(err, "extraction aborted")
	}
	result.Captures = summary.Captures()

	fields := append([]zap.Field{
		zap.Int("frames", summary.Frames),
		zap.Int("captures", summary.Captures()),
		zap.Duration("elapsed", summary.Duration),
	}, prof.Fields()...)
	log.Info("extraction finished", fields...)

	files, err := capture.LoadFiles(result.Dir)
	if err != nil {
		return result, err
	}

	if err := os.MkdirAll(cfg.DocumentDir, 0o755); err != nil {
		return result, errors.Wrapf(err, "create document dir %s", cfg.DocumentDir)
	}
	out := document.Path(cfg.DocumentDir, path)
	err = b.Assembler.Assemble(ctx, capture.Paths(files), out)
	if errors.Is(err, document.ErrEmptyCaptureSet) {
		log.Warn("no slides captured, skipping document")
		result.Outcome = metrics.OutcomeEmpty
		return result, nil
	}
	if err != nil {
		return result, err
	}

	result.Document = out
	result.Outcome = metrics.OutcomeProcessed
	return result, nil
}

// selectRegion opens the video, takes the probe frame and runs the ROI selection on it.
func (b *Batch) selectRegion(path string, log *zap.Logger) (roi.ROI, error) {
	sampler, err := video.Open(path, float64(b.Config.SampleRate), b.Open, log)
	if err != nil {
		return roi.ROI{}, err
	}
	defer sampler.Close()

	log.Info("probing video", zap.Float64("at", b.Config.ProbeAt), zap.Int("total_frames", sampler.FrameCount()), zap.Int("sample_rate", b.Config.SampleRate))

	probe, err := video.Probe(sampler, b.Config.ProbeAt)
	if err != nil {
		return roi.ROI{}, errors.Wrap(err, "probe frame")
	}
	defer probe.Close()

	selector := &roi.Selector{Surface: b.Surface, DisplayWidth: b.Config.DisplayWidth}
	return selector.Select(probe.Image)
}

// classify maps a ProcessVideo error to a metrics outcome.
func classify(err error) string {
	switch {
	case errors.Is(err, roi.ErrSelectionCancelled),
		errors.Is(err, roi.ErrSelectionIncomplete),
		errors.Is(err, roi.ErrDegenerateROI),
		errors.Is(err, capture.ErrOutputNotEmpty):
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeFailed
	}
}

// DiscoverVideos lists the video files directly inside dir, sorted by name.
// A file is a video when its extension is a known video extension or its
// MIME type is video/*. Other files are logged and skipped.
//
// Arguments:
//   - dir: The directory to scan.
//   - logger: Logger for skipped files.
//
// Returns:
//   - []string: The video paths.
//   - error: An error if dir cannot be read.
func DiscoverVideos(dir string, logger *zap.Logger) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read video dir %s", dir)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !IsVideo(path) {
			logger.Info("skipping non-video file", zap.String("path", path))
			continue
		}
		paths = append(paths, path)
	}

	slices.Sort(paths)
	return paths, nil
}

// IsVideo reports whether path names a video file by its extension.
func IsVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	if slices.Contains(videoExtensions, ext) {
		return true
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "video/")
}
