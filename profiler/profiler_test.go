package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMetric(t *testing.T) {
	p := New(3)

	for _, v := range []float64{10, 1, 2, 3} {
		p.RecordMetric(MetricForeRatio, v)
	}

	s, ok := p.Metric(MetricForeRatio)
	require.True(t, ok)
	// The average only covers the last three values.
	assert.InDelta(t, 2.0, s.Avg, 1e-9)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 10.0, s.Max)
	assert.Equal(t, int64(4), s.Count)
	assert.Equal(t, 3, s.Samples)

	_, ok = p.Metric("missing")
	assert.False(t, ok)
}

func TestRecordOperation(t *testing.T) {
	p := New(2)

	p.RecordOperation(OperationFrame, 10*time.Millisecond)
	p.RecordOperation(OperationFrame, 2*time.Millisecond)
	p.RecordOperation(OperationFrame, 4*time.Millisecond)

	s, ok := p.Operation(OperationFrame)
	require.True(t, ok)
	assert.Equal(t, 3*time.Millisecond, s.Avg)
	assert.Equal(t, 2*time.Millisecond, s.Min)
	assert.Equal(t, 10*time.Millisecond, s.Max)
	assert.Equal(t, 16*time.Millisecond, s.Total)
	assert.Equal(t, int64(3), s.Count)
}

func TestStartOperation(t *testing.T) {
	p := New(0)

	done := p.StartOperation("sleep")
	time.Sleep(time.Millisecond)
	done()

	s, ok := p.Operation("sleep")
	require.True(t, ok)
	assert.GreaterOrEqual(t, s.Min, time.Millisecond)
	assert.Equal(t, int64(1), s.Count)
}

func TestFields(t *testing.T) {
	p := New(10)
	p.RecordMetric(MetricForeRatio, 0.5)
	p.RecordOperation(OperationFrame, time.Millisecond)

	keys := make([]string, 0)
	for _, f := range p.Fields() {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"uptime", "heap_alloc", OperationFrame, MetricForeRatio}, keys)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
