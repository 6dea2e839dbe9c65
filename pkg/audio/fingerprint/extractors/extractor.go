package extractors

import (
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/analyzers"
	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// FeatureExtractor builds AudioFeatures from raw sample buffers.
// It holds only read-only configuration and is safe for concurrent use.
type FeatureExtractor struct {
	analyzer *analyzers.SpectralAnalyzer
	mfcc     *MFCCExtractor
	logger   logging.Logger
}

// NewFeatureExtractor creates an extractor at the given sample rate
func NewFeatureExtractor(sampleRate int, mode MFCCMode) *FeatureExtractor {
	analyzer := analyzers.NewSpectralAnalyzer(sampleRate)
	return &FeatureExtractor{
		analyzer: analyzer,
		mfcc:     NewMFCCExtractor(analyzer, mode),
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
			"mfcc_mode": string(mode),
		}),
	}
}

// Analyzer exposes the underlying spectral analyzer
func (fe *FeatureExtractor) Analyzer() *analyzers.SpectralAnalyzer {
	return fe.analyzer
}

// Extract computes every feature of pcm in one pass and returns the finished value.
// Buffers shorter than two samples have no spectrum, so MFCC and mel bands are left nil.
func (fe *FeatureExtractor) Extract(pcm []float32) *AudioFeatures {
	logger := fe.logger.WithFields(logging.Fields{
		"function":      "Extract",
		"signal_length": len(pcm),
	})

	spectrum := fe.analyzer.ComputeSpectrum(pcm)
	frame := fe.analyzer.ExtractFrameFeatures(spectrum.Magnitude)

	features := &AudioFeatures{
		Statistical: StatisticalFeatures{
			RMSEnergy:         calculateRMSEnergy(pcm),
			ZeroCrossingRate:  calculateZeroCrossingRate(pcm),
			SpectralCentroid:  frame.SpectralCentroid,
			SpectralRolloff:   frame.SpectralRolloff,
			SpectralBandwidth: frame.SpectralBandwidth,
		},
		Spectral: SpectralFeatures{
			MagnitudeSpectrum: spectrum.Magnitude,
			PhaseSpectrum:     spectrum.Phase,
			SpectralFlux:      frame.SpectralFlux,
		},
		SampleCount: len(pcm),
	}

	if spectrum.FFTSize < 2 {
		logger.Warn("Buffer too short for spectral analysis, skipping MFCC and mel bands")
		return features
	}

	features.MFCC = fe.mfcc.Extract(pcm)
	features.MelBands = ExtractMelBands(spectrum.Magnitude)

	logger.Debug("Feature extraction completed", logging.Fields{
		"fft_size":          spectrum.FFTSize,
		"rms_energy":        features.Statistical.RMSEnergy,
		"spectral_centroid": features.Statistical.SpectralCentroid,
	})

	return features
}
