package fingerprint

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
)

// SimilarityResult holds the three stream-to-stream metrics used by echo scoring
type SimilarityResult struct {
	Correlation        float64 `json:"correlation"`         // Pearson on MFCC vectors
	SpectralSimilarity float64 `json:"spectral_similarity"` // cosine on mel bands
	TemporalAlignment  float64 `json:"temporal_alignment"`  // bounded cross-correlation magnitude

	// Alignment carries the lag detail behind TemporalAlignment
	Alignment *extractors.AlignmentResult `json:"alignment,omitempty"`
}

// Comparer compares the features and raw buffers of two streams
type Comparer struct {
	aligner *extractors.LagAlignment
}

// NewComparer creates a comparer for buffers at sampleRate
func NewComparer(sampleRate int) *Comparer {
	return &Comparer{aligner: extractors.NewLagAlignment(sampleRate)}
}

// Compare computes every similarity metric. Missing MFCC or mel vectors yield 0
// for the corresponding metric.
func (c *Comparer) Compare(primary, secondary *extractors.AudioFeatures, primaryPCM, secondaryPCM []float32) *SimilarityResult {
	result := &SimilarityResult{}

	if primary.HasMFCC() && secondary.HasMFCC() {
		result.Correlation = PearsonCorrelation(primary.MFCC, secondary.MFCC)
	}

	if primary.HasMelBands() && secondary.HasMelBands() {
		result.SpectralSimilarity = CosineSimilarity(primary.MelBands, secondary.MelBands)
	}

	result.Alignment = c.aligner.Align(primaryPCM, secondaryPCM)
	result.TemporalAlignment = result.Alignment.Magnitude

	return result
}

// PearsonCorrelation returns the linear correlation of a and b, or 0 when the
// lengths differ, either is empty, or either has zero variance.
func PearsonCorrelation(a, b []float64) float64 {
	// a single point has no variance either
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}

	if stat.Variance(a, nil) == 0 || stat.Variance(b, nil) == 0 {
		return 0
	}

	return stat.Correlation(a, b, nil)
}

// CosineSimilarity returns a·b / (|a||b|), or 0 when the lengths differ,
// either is empty, or either has zero norm.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	denominator := floats.Norm(a, 2) * floats.Norm(b, 2)
	if denominator == 0 {
		return 0
	}

	return floats.Dot(a, b) / denominator
}
