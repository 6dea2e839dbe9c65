package echo

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for detection metrics
const meterName = "github.com/RyanBlaney/echo-guard/pkg/audio/echo"

// detectionBuckets are histogram boundaries in seconds sized for FFT-bound work
var detectionBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// Metrics holds the OpenTelemetry instruments for detection.
// A nil *Metrics records nothing.
type Metrics struct {
	// DetectionDuration tracks time spent inside one Detect call
	DetectionDuration metric.Float64Histogram

	// Detections counts results by attribute.String("verdict", ...)
	Detections metric.Int64Counter

	// QueueDepth tracks jobs submitted to a Worker and not yet finished
	QueueDepth metric.Int64UpDownCounter
}

// NewMetrics creates the instruments on the given provider
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DetectionDuration, err = m.Float64Histogram("echo_guard.detection.duration",
		metric.WithDescription("Latency of a single echo detection."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(detectionBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("echo_guard.detection.total",
		metric.WithDescription("Total echo detections by verdict."),
	); err != nil {
		return nil, err
	}
	if met.QueueDepth, err = m.Int64UpDownCounter("echo_guard.worker.queue_depth",
		metric.WithDescription("Detections submitted to the worker and not yet completed."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordDetection records one finished detection
func (m *Metrics) RecordDetection(ctx context.Context, verdict Verdict, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DetectionDuration.Record(ctx, elapsed.Seconds())
	m.Detections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("verdict", string(verdict))),
	)
}

func (m *Metrics) queueDelta(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.QueueDepth.Add(ctx, delta)
}
