package extractors

import (
	"math"
)

// LagAlignment scans a bounded lag window and reports the strongest raw
// cross-correlation between two sample buffers.
type LagAlignment struct {
	SampleRateHz float64
}

// NewLagAlignment creates a lag scanner for buffers at sampleRate
func NewLagAlignment(sampleRate int) *LagAlignment {
	return &LagAlignment{SampleRateHz: float64(sampleRate)}
}

// AlignmentResult contains the alignment results
type AlignmentResult struct {
	// Magnitude is the largest |mean(a[i]*b[i+lag])| over the scanned lags.
	// It is not normalized by signal energy.
	Magnitude     float64 `json:"magnitude"`
	LagSamples    int     `json:"lag_samples"`    // lag of b relative to a at the maximum
	OffsetSeconds float64 `json:"offset_seconds"` // LagSamples in seconds
	LagsScanned   int     `json:"lags_scanned"`
}

// Align scans lags in [-L/4, L/4) where L = min(len(a), len(b)).
// Only the first L samples of each buffer take part.
func (la *LagAlignment) Align(a, b []float32) *AlignmentResult {
	result := &AlignmentResult{}

	n := min(len(a), len(b))
	if n == 0 {
		return result
	}

	maxLag := n / 4
	for lag := -maxLag; lag < maxLag; lag++ {
		result.LagsScanned++

		corr := math.Abs(la.computeCorrelation(a[:n], b[:n], lag))
		if corr > result.Magnitude {
			result.Magnitude = corr
			result.LagSamples = lag
		}
	}

	if la.SampleRateHz > 0 {
		result.OffsetSeconds = float64(result.LagSamples) / la.SampleRateHz
	}

	return result
}

// computeCorrelation averages a[i]*b[i+lag] over every i where both indices
// are in range. Both slices must have the same length.
func (la *LagAlignment) computeCorrelation(a, b []float32, lag int) float64 {
	n := len(a)

	start, end := 0, n
	if lag >= 0 {
		end = n - lag
	} else {
		start = -lag
	}

	if end <= start {
		return 0
	}

	sum := 0.0
	for i := start; i < end; i++ {
		sum += float64(a[i]) * float64(b[i+lag])
	}

	return sum / float64(end-start)
}

// CrossCorrelationMagnitude is the bounded cross-correlation magnitude of a and b.
// It is always >= 0 and is 0 when either buffer is empty.
func CrossCorrelationMagnitude(a, b []float32) float64 {
	return NewLagAlignment(0).Align(a, b).Magnitude
}
