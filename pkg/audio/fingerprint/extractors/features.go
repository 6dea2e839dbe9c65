package extractors

import (
	"math"
)

// AudioFeatures is everything extracted from one sample buffer.
// Values are built once by FeatureExtractor.Extract and never mutated.
type AudioFeatures struct {
	// MFCC has MFCCCoefficients entries, or is nil when the buffer was too short to transform
	MFCC []float64 `json:"mfcc,omitempty"`

	// MelBands has MelBandCount entries, or is nil when the buffer was too short to transform
	MelBands []float64 `json:"mel_bands,omitempty"`

	Statistical StatisticalFeatures `json:"statistical"`
	Spectral    SpectralFeatures    `json:"spectral"`

	SampleCount int `json:"sample_count"`
}

// HasMFCC reports whether an MFCC vector was produced
func (f *AudioFeatures) HasMFCC() bool {
	return f != nil && f.MFCC != nil
}

// HasMelBands reports whether mel bands were produced
func (f *AudioFeatures) HasMelBands() bool {
	return f != nil && f.MelBands != nil
}

// StatisticalFeatures contains time and frequency domain summary statistics
type StatisticalFeatures struct {
	RMSEnergy         float64 `json:"rms_energy"`
	ZeroCrossingRate  float64 `json:"zero_crossing_rate"`
	SpectralCentroid  float64 `json:"spectral_centroid"`  // Brightness - center of spectral mass (Hz)
	SpectralRolloff   float64 `json:"spectral_rolloff"`   // 85% cumulative magnitude frequency (Hz)
	SpectralBandwidth float64 `json:"spectral_bandwidth"` // Spread around centroid (Hz)
}

// SpectralFeatures holds the raw spectrum of the buffer.
// SpectralFlux is measured across adjacent bins of this one spectrum.
type SpectralFeatures struct {
	MagnitudeSpectrum []float64 `json:"magnitude_spectrum"`
	PhaseSpectrum     []float64 `json:"phase_spectrum"`
	SpectralFlux      float64   `json:"spectral_flux"`
}

// calculateZeroCrossingRate computes zero crossing rate for a signal frame
// WHY: ZCR is a simple measure of signal noisiness and frequency content
func calculateZeroCrossingRate(pcm []float32) float64 {
	if len(pcm) <= 1 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(pcm); i++ {
		if (pcm[i-1] >= 0 && pcm[i] < 0) || (pcm[i-1] < 0 && pcm[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(pcm)-1)
}

// calculateRMSEnergy computes root-mean-square energy
func calculateRMSEnergy(pcm []float32) float64 {
	if len(pcm) == 0 {
		return 0
	}
	sum := 0.0
	for _, sample := range pcm {
		s := float64(sample)
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(pcm)))
}
