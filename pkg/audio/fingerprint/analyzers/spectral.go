package analyzers

import (
	"math"
	"math/bits"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// RolloffThreshold is the fraction of total magnitude below the rolloff frequency
const RolloffThreshold = 0.85

// SpectralAnalyzer provides core FFT and spectral analysis functionality
type SpectralAnalyzer struct {
	sampleRate int
	logger     logging.Logger
}

// SpectrumFrame is the positive half of a single power-of-two FFT.
// len(Magnitude) == len(Phase) == FFTSize/2.
type SpectrumFrame struct {
	Magnitude  []float64 `json:"magnitude"`
	Phase      []float64 `json:"phase"`
	FFTSize    int       `json:"fft_size"`
	SampleRate int       `json:"sample_rate"`
}

// SpectrogramResult holds the result of STFT analysis
type SpectrogramResult struct {
	Magnitude  [][]float64 `json:"magnitude"` // Time x Frequency magnitude matrix
	TimeFrames int         `json:"time_frames"`
	FreqBins   int         `json:"freq_bins"`
	WindowSize int         `json:"window_size"`
	HopSize    int         `json:"hop_size"`
	SampleRate int         `json:"sample_rate"`
}

// FrequencyDomainFeatures holds basic frequency domain characteristics
type FrequencyDomainFeatures struct {
	SpectralCentroid  float64 `json:"spectral_centroid"`
	SpectralRolloff   float64 `json:"spectral_rolloff"`
	SpectralBandwidth float64 `json:"spectral_bandwidth"`
	SpectralFlux      float64 `json:"spectral_flux"`
}

// NewSpectralAnalyzer creates a new spectral analyzer
func NewSpectralAnalyzer(sampleRate int) *SpectralAnalyzer {
	return &SpectralAnalyzer{
		sampleRate: sampleRate,
		logger: logging.WithFields(logging.Fields{
			"component":   "spectral_analyzer",
			"sample_rate": sampleRate,
		}),
	}
}

// SampleRate returns the configured sample rate in Hz
func (sa *SpectralAnalyzer) SampleRate() int {
	return sa.sampleRate
}

// LargestPowerOfTwo returns the largest power of two not exceeding n, or 0 for n < 1
func LargestPowerOfTwo(n int) int {
	if n < 1 {
		return 0
	}
	return 1 << (bits.Len(uint(n)) - 1)
}

// ComputeSpectrum runs a forward real FFT over the largest power-of-two prefix
// of samples. Samples beyond that prefix are discarded, not zero-padded.
// Fewer than two samples yield an empty frame.
func (sa *SpectralAnalyzer) ComputeSpectrum(samples []float32) *SpectrumFrame {
	fftSize := LargestPowerOfTwo(len(samples))
	if fftSize < 2 {
		return &SpectrumFrame{
			Magnitude:  []float64{},
			Phase:      []float64{},
			FFTSize:    fftSize,
			SampleRate: sa.sampleRate,
		}
	}

	x := make([]float64, fftSize)
	for i := range fftSize {
		x[i] = float64(samples[i])
	}

	return sa.spectrumOf(x)
}

// spectrumOf transforms x, whose length must already be a power of two
func (sa *SpectralAnalyzer) spectrumOf(x []float64) *SpectrumFrame {
	coeffs := fft.FFTReal(x)

	bins := len(x) / 2
	frame := &SpectrumFrame{
		Magnitude:  make([]float64, bins),
		Phase:      make([]float64, bins),
		FFTSize:    len(x),
		SampleRate: sa.sampleRate,
	}

	for k := range bins {
		re, im := real(coeffs[k]), imag(coeffs[k])
		frame.Magnitude[k] = math.Sqrt(re*re + im*im)
		frame.Phase[k] = math.Atan2(im, re)
	}

	return frame
}

// ComputeSpectrogram computes a Hann-windowed STFT. Each frame holds
// windowSize/2 magnitude bins; windowSize must be a power of two.
func (sa *SpectralAnalyzer) ComputeSpectrogram(samples []float32, windowSize, hopSize int) *SpectrogramResult {
	result := &SpectrogramResult{
		WindowSize: windowSize,
		HopSize:    hopSize,
		FreqBins:   windowSize / 2,
		SampleRate: sa.sampleRate,
	}

	if windowSize < 2 || hopSize < 1 || LargestPowerOfTwo(windowSize) != windowSize || len(samples) < windowSize {
		sa.logger.Debug("Skipping spectrogram for short or invalid input", logging.Fields{
			"function":      "ComputeSpectrogram",
			"signal_length": len(samples),
			"window_size":   windowSize,
			"hop_size":      hopSize,
		})
		return result
	}

	for start := 0; start+windowSize <= len(samples); start += hopSize {
		frame := make([]float64, windowSize)
		for i := range windowSize {
			frame[i] = float64(samples[start+i])
		}
		window.Hann(frame)
		result.Magnitude = append(result.Magnitude, sa.spectrumOf(frame).Magnitude)
	}
	result.TimeFrames = len(result.Magnitude)

	return result
}

// ExtractFrameFeatures extracts frequency domain features from a single magnitude spectrum
func (sa *SpectralAnalyzer) ExtractFrameFeatures(magnitude []float64) *FrequencyDomainFeatures {
	centroid := sa.SpectralCentroid(magnitude)
	return &FrequencyDomainFeatures{
		SpectralCentroid:  centroid,
		SpectralRolloff:   sa.SpectralRolloff(magnitude),
		SpectralBandwidth: sa.spectralBandwidth(magnitude, centroid),
		SpectralFlux:      SpectralFlux(magnitude),
	}
}

// BinFrequency returns the frequency of bin k for a spectrum with numBins bins
func (sa *SpectralAnalyzer) BinFrequency(k, numBins int) float64 {
	if numBins == 0 {
		return 0
	}
	return float64(k) * float64(sa.sampleRate) / float64(2*numBins)
}

// SpectralCentroid computes the magnitude-weighted mean frequency
func (sa *SpectralAnalyzer) SpectralCentroid(magnitude []float64) float64 {
	numerator := 0.0
	denominator := 0.0

	for k, mag := range magnitude {
		numerator += sa.BinFrequency(k, len(magnitude)) * mag
		denominator += mag
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

// SpectralRolloff returns the lowest bin frequency at which the cumulative
// magnitude reaches RolloffThreshold of the total
func (sa *SpectralAnalyzer) SpectralRolloff(magnitude []float64) float64 {
	if len(magnitude) == 0 {
		return 0
	}

	total := 0.0
	for _, mag := range magnitude {
		total += mag
	}

	target := RolloffThreshold * total
	cumulative := 0.0

	for k, mag := range magnitude {
		cumulative += mag
		if cumulative >= target {
			return sa.BinFrequency(k, len(magnitude))
		}
	}

	// only reachable through rounding in the running sum
	return float64(sa.sampleRate) / 2
}

// SpectralBandwidth computes the magnitude-weighted spread around the centroid
func (sa *SpectralAnalyzer) SpectralBandwidth(magnitude []float64) float64 {
	return sa.spectralBandwidth(magnitude, sa.SpectralCentroid(magnitude))
}

func (sa *SpectralAnalyzer) spectralBandwidth(magnitude []float64, centroid float64) float64 {
	numerator := 0.0
	denominator := 0.0

	for k, mag := range magnitude {
		diff := sa.BinFrequency(k, len(magnitude)) - centroid
		numerator += diff * diff * mag
		denominator += mag
	}

	if denominator == 0 {
		return 0
	}

	return math.Sqrt(numerator / denominator)
}

// SpectralFlux measures change between adjacent frequency bins of one spectrum:
// the RMS of bin-to-bin magnitude differences.
func SpectralFlux(magnitude []float64) float64 {
	if len(magnitude) <= 1 {
		return 0
	}

	sum := 0.0
	for k := 1; k < len(magnitude); k++ {
		diff := magnitude[k] - magnitude[k-1]
		sum += diff * diff
	}

	return math.Sqrt(sum / float64(len(magnitude)-1))
}

// SpectralFluxOverTime computes the conventional frame-to-frame flux
// (positive changes only) across a spectrogram
func (sa *SpectralAnalyzer) SpectralFluxOverTime(spectrogram *SpectrogramResult) []float64 {
	if spectrogram == nil || spectrogram.TimeFrames < 2 {
		return nil
	}

	flux := make([]float64, spectrogram.TimeFrames-1)

	for t := 1; t < spectrogram.TimeFrames; t++ {
		sum := 0.0
		for f := 0; f < spectrogram.FreqBins; f++ {
			diff := spectrogram.Magnitude[t][f] - spectrogram.Magnitude[t-1][f]
			if diff > 0 {
				sum += diff * diff
			}
		}
		flux[t-1] = math.Sqrt(sum)
	}

	return flux
}
