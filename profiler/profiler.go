package profiler

import (
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Names of the trackers recorded by the extraction loop.
const (
	OperationFrame  = "frame_processing"
	MetricForeRatio = "foreground_ratio"
)

// MetricTracker tracks statistics for a custom metric.
type MetricTracker struct {
	name   string
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker tracks operation timing statistics.
type TimeTracker struct {
	name      string
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// MetricStats is a snapshot of a MetricTracker.
type MetricStats struct {
	Avg     float64
	Min     float64
	Max     float64
	Count   int64
	Samples int
}

// OperationStats is a snapshot of a TimeTracker.
type OperationStats struct {
	Avg   time.Duration
	Min   time.Duration
	Max   time.Duration
	Total time.Duration
	Count int64
}

// Profiler records operation timings and metric values for one video.
//
// Averages are computed over the last maxSamples values, while Min, Max and
// Count cover every recorded value. It is safe for concurrent use.
type Profiler struct {
	mu             sync.Mutex
	startTime      time.Time
	maxSamples     int
	customMetrics  map[string]*MetricTracker
	operationTimes map[string]*TimeTracker
}

// New creates a profiler.
//
// Arguments:
// - maxSamples: The window used for averages (default: 600)
//
// Returns:
// - A profiler with its clock started
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = 600
	}
	return &Profiler{
		startTime:      time.Now(),
		maxSamples:     maxSamples,
		customMetrics:  make(map[string]*MetricTracker),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (p *Profiler) RecordMetric(name string, value float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{
			name:   name,
			values: make([]float64, 0, p.maxSamples),
			min:    value,
			max:    value,
		}
		p.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	tracker.sum += value
	if len(tracker.values) > p.maxSamples {
		// Remove oldest sample
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}
	tracker.count++

	if value < tracker.min {
		tracker.min = value
	}
	if value > tracker.max {
		tracker.max = value
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.RecordOperation(name, time.Since(start))
	}
}

// RecordOperation records the completion time of an operation.
func (p *Profiler) RecordOperation(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		p.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		tracker.durations = tracker.durations[1:]
	}
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Metric returns a snapshot of the named metric.
func (p *Profiler) Metric(name string) (MetricStats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.customMetrics[name]
	if !ok || len(tracker.values) == 0 {
		return MetricStats{}, false
	}
	return MetricStats{
		Avg:     tracker.sum / float64(len(tracker.values)),
		Min:     tracker.min,
		Max:     tracker.max,
		Count:   tracker.count,
		Samples: len(tracker.values),
	}, true
}

// Operation returns a snapshot of the named operation. Total covers every
// recorded duration.
func (p *Profiler) Operation(name string) (OperationStats, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, ok := p.operationTimes[name]
	if !ok || len(tracker.durations) == 0 {
		return OperationStats{}, false
	}
	var window time.Duration
	for _, d := range tracker.durations {
		window += d
	}
	return OperationStats{
		Avg:   window / time.Duration(len(tracker.durations)),
		Min:   tracker.minTime,
		Max:   tracker.maxTime,
		Total: tracker.totalTime,
		Count: tracker.count,
	}, true
}

// Uptime returns the time since the profiler was created.
func (p *Profiler) Uptime() time.Duration {
	return time.Since(p.startTime)
}

// Fields summarizes every tracker as zap fields for a single log line.
func (p *Profiler) Fields() []zap.Field {
	p.mu.Lock()
	metricNames := make([]string, 0, len(p.customMetrics))
	for name := range p.customMetrics {
		metricNames = append(metricNames, name)
	}
	opNames := make([]string, 0, len(p.operationTimes))
	for name := range p.operationTimes {
		opNames = append(opNames, name)
	}
	p.mu.Unlock()

	sort.Strings(metricNames)
	sort.Strings(opNames)

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	fields := []zap.Field{
		zap.Duration("uptime", p.Uptime().Truncate(time.Millisecond)),
		zap.String("heap_alloc", formatBytes(mem.HeapAlloc)),
	}
	for _, name := range opNames {
		if s, ok := p.Operation(name); ok {
			fields = append(fields, zap.String(name, fmt.Sprintf("avg=%v min=%v max=%v count=%d",
				s.Avg.Truncate(time.Microsecond), s.Min.Truncate(time.Microsecond),
				s.Max.Truncate(time.Microsecond), s.Count)))
		}
	}
	for _, name := range metricNames {
		if s, ok := p.Metric(name); ok {
			fields = append(fields, zap.String(name, fmt.Sprintf("avg=%.3f min=%.3f max=%.3f samples=%d",
				s.Avg, s.Min, s.Max, s.Samples)))
		}
	}
	return fields
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
