// Package pipeline - This file contains the per-frame detection loop that turns
// a sampled video into captures.
//
// ┌──────────────┐   ┌────────────────┐   ┌──────────┐   ┌────────────┐   ┌──────┐
// │ FrameSample  │──>│ Resize + Crop  │──>│  MOG2    │──>│ Controller │──>│ Sink │
// └──────────────┘   └────────────────┘   └──────────┘   └────────────┘   └──────┘
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/nvr-ai/go-slides/capture"
	"github.com/nvr-ai/go-slides/controller"
	"github.com/nvr-ai/go-slides/images"
	"github.com/nvr-ai/go-slides/metrics"
	"github.com/nvr-ai/go-slides/profiler"
	"github.com/nvr-ai/go-slides/roi"
	"github.com/nvr-ai/go-slides/video"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Model turns a cropped frame into a foreground percentage.
// *images.BackgroundModel implements it.
type Model interface {
	Apply(frame gocv.Mat) (float64, error)
	Close()
}

// Frames is a pull-based sequence of samples ending with io.EOF.
// *video.Sampler implements it.
type Frames interface {
	Next() (video.FrameSample, error)
}

// Summary describes one completed detection run.
type Summary struct {
	// Frames is the number of samples processed.
	Frames int
	// Minutes holds the capture timestamps in minutes, indexed by ordinal.
	Minutes []float64
	// Duration is the wall time of the run.
	Duration time.Duration
}

// Captures returns the number of captures.
func (s Summary) Captures() int {
	return len(s.Minutes)
}

// Extractor runs one video through the background model and the stability
// controller. An Extractor serves a single video.
type Extractor struct {
	DisplayWidth int
	Model        Model
	Controller   *controller.Controller
	Metrics      *metrics.Metrics
	Profiler     *profiler.Profiler
	Logger       *zap.Logger
}

// Extract pulls every frame, crops it to region and writes the captures to sink.
//
// Arguments:
//   - ctx: Checked between frames.
//   - frames: The sample sequence.
//   - region: The ROI in the display width coordinate space.
//   - sink: Receives the full resolution captures.
//
// Returns:
//   - Summary: Frames processed and capture timestamps.
//   - error: ctx.Err() when cancelled, or the first frame, model or sink error.
func (e *Extractor) Extract(ctx context.Context, frames Frames, region roi.ROI, sink capture.Sink) (Summary, error) {
	start := time.Now()
	summary := Summary{}

	for {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}

		sample, err := frames.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, errors.Wrap(err, "read frame")
		}

		err = e.process(sample, region, sink, &summary)
		sample.Close()
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, err
		}
	}

	summary.Duration = time.Since(start)
	return summary, nil
}

// process runs one sample through the chain.
func (e *Extractor) process(sample video.FrameSample, region roi.ROI, sink capture.Sink, summary *Summary) error {
	done := e.Profiler.StartOperation(profiler.OperationFrame)
	ratio, err := e.foreground(sample.Image, region)
	done()
	if err != nil {
		return errors.Wrapf(err, "frame %d at %.3fs", sample.Index, sample.Timestamp)
	}

	summary.Frames++
	e.Metrics.FramesSampledTotal.Inc()

	d := e.Controller.Decide(ratio)
	if d.State == controller.WarmingUp {
		return nil
	}

	e.Profiler.RecordMetric(profiler.MetricForeRatio, ratio)
	e.Metrics.ForegroundRatio.Observe(ratio)

	if d.Rearmed {
		e.Logger.Debug("scene changing", zap.Int("frame", d.Frame), zap.Float64("ratio", ratio))
	}
	if !d.Capture {
		return nil
	}

	c := capture.New(d.Ordinal, sample.Timestamp, sample.Image)
	if err := sink.Write(c); err != nil {
		return errors.Wrap(err, "write capture")
	}
	summary.Minutes = append(summary.Minutes, c.Minutes)
	e.Metrics.CapturesTotal.Inc()
	e.Logger.Debug("scene stable",
		zap.Int("frame", d.Frame),
		zap.Int("ordinal", d.Ordinal),
		zap.Float64("minutes", c.Minutes),
		zap.Float64("ratio", ratio),
		zap.String("checksum", images.ComputeMatChecksum(sample.Image)),
	)
	return nil
}

// foreground resizes the frame to the display width, crops the ROI and
// applies the background model.
func (e *Extractor) foreground(frame gocv.Mat, region roi.ROI) (float64, error) {
	resized, err := images.ResizeToWidth(frame, e.DisplayWidth)
	if err != nil {
		return 0, err
	}
	defer resized.Close()

	cropped, err := images.Crop(resized, region.Rectangle())
	if err != nil {
		return 0, err
	}
	defer cropped.Close()

	return e.Model.Apply(cropped)
}
