// Package metrics exposes prometheus collectors for slide extraction runs.
//
// The collectors live on a private registry so a batch can be written out as a
// node exporter textfile when the run ends.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Video outcomes used as the "outcome" label of VideosTotal.
const (
	OutcomeProcessed = "processed"
	OutcomeEmpty     = "empty"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	Registry *prometheus.Registry

	FramesSampledTotal prometheus.Counter
	CapturesTotal      prometheus.Counter
	VideosTotal        *prometheus.CounterVec
	ForegroundRatio    prometheus.Histogram
	VideoDuration      prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		FramesSampledTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "slides_frames_sampled_total",
			Help: "Total number of sampled frames run through the background model",
		}),
		CapturesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "slides_captures_total",
			Help: "Total number of slides captured",
		}),
		VideosTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slides_videos_total",
			Help: "Total number of videos handled, by outcome",
		}, []string{"outcome"}),
		ForegroundRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "slides_foreground_ratio_percent",
			Help:    "Foreground percentage of each sampled frame after warm-up",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 3, 10, 30, 100},
		}),
		VideoDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "slides_video_processing_duration_seconds",
			Help:    "Wall time spent extracting slides from one video",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
	}
}

// ObserveVideo records the outcome of one video.
func (m *Metrics) ObserveVideo(outcome string, seconds float64) {
	m.VideosTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		m.VideoDuration.Observe(seconds)
	}
}

// WriteTextfile writes every collected metric to path in the text exposition
// format read by the node exporter textfile collector.
//
// Arguments:
//   - path: The destination file.
//
// Returns:
//   - error: An error if gathering or writing fails.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
