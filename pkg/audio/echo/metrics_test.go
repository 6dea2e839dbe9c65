package echo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func verdictCounts(t *testing.T, met *metricdata.Metrics) map[string]int64 {
	t.Helper()

	sum, ok := met.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", met.Data)

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("verdict"))
		counts[v.AsString()] += dp.Value
	}
	return counts
}

func TestNilMetricsRecordsNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordDetection(context.Background(), VerdictEcho, time.Millisecond)
		m.queueDelta(context.Background(), 1)
	})
}

func TestRecordDetection(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordDetection(ctx, VerdictEcho, 2*time.Millisecond)
	m.RecordDetection(ctx, VerdictEcho, 3*time.Millisecond)
	m.RecordDetection(ctx, VerdictRealSpeech, time.Millisecond)

	rm := collect(t, reader)

	total := findMetric(rm, "echo_guard.detection.total")
	require.NotNil(t, total)
	counts := verdictCounts(t, total)
	assert.Equal(t, int64(2), counts["echo"])
	assert.Equal(t, int64(1), counts["real_speech"])

	duration := findMetric(rm, "echo_guard.detection.duration")
	require.NotNil(t, duration)
	hist, ok := duration.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
	assert.InDelta(t, 0.006, hist.DataPoints[0].Sum, 1e-9)
}

func TestWorkerRecordsMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	w, _ := newTestWorker(t, WithMetrics(m))

	tone := sine(2048, 440, 0.5)
	for _, secondary := range [][]float32{tone, make([]float32, 2048)} {
		ch, err := w.Submit(context.Background(), tone, secondary)
		require.NoError(t, err)
		<-ch
	}
	w.Close()

	rm := collect(t, reader)

	counts := verdictCounts(t, findMetric(rm, "echo_guard.detection.total"))
	assert.Equal(t, int64(1), counts["echo"])
	assert.Equal(t, int64(1), counts["real_speech"])

	depth := findMetric(rm, "echo_guard.worker.queue_depth")
	require.NotNil(t, depth)
	sum, ok := depth.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value)
}
