package analyzers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSampleRate = 16000

func sine(n int, freq, amplitude float64) []float32 {
	out := make([]float32, n)
	for i := range n {
		out[i] = float32(amplitude * math.Sin(2*math.Pi*freq*float64(i)/testSampleRate))
	}
	return out
}

func TestLargestPowerOfTwo(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 1023: 512, 1024: 1024, 1500: 1024}
	for n, want := range cases {
		assert.Equal(t, want, LargestPowerOfTwo(n), "n=%d", n)
	}
}

func TestComputeSpectrumBinCount(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)

	frame := sa.ComputeSpectrum(sine(1024, 1000, 0.5))
	assert.Equal(t, 1024, frame.FFTSize)
	assert.Len(t, frame.Magnitude, 512)
	assert.Len(t, frame.Phase, 512)
}

func TestComputeSpectrumTruncatesInsteadOfPadding(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)
	signal := sine(1500, 440, 0.3)

	full := sa.ComputeSpectrum(signal)
	prefix := sa.ComputeSpectrum(signal[:1024])

	require.Equal(t, 1024, full.FFTSize)
	assert.Equal(t, prefix.Magnitude, full.Magnitude)
	assert.Equal(t, prefix.Phase, full.Phase)
}

func TestComputeSpectrumDegenerate(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)

	for _, n := range []int{0, 1} {
		frame := sa.ComputeSpectrum(make([]float32, n))
		assert.Empty(t, frame.Magnitude)
		assert.Empty(t, frame.Phase)
	}
}

func TestPureToneFeatures(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)

	// bin 64 of a 1024-point transform at 16 kHz is exactly 1000 Hz
	frame := sa.ComputeSpectrum(sine(1024, 1000, 0.5))
	features := sa.ExtractFrameFeatures(frame.Magnitude)

	assert.InDelta(t, 1000.0, features.SpectralCentroid, 1.0)
	assert.InDelta(t, 1000.0, features.SpectralRolloff, 1e-9)
	assert.Less(t, features.SpectralBandwidth, 50.0)
	assert.Greater(t, features.SpectralFlux, 0.0)
}

func TestZeroSpectrumGuards(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)
	zeros := make([]float64, 512)

	assert.Zero(t, sa.SpectralCentroid(zeros))
	assert.Zero(t, sa.SpectralBandwidth(zeros))
	assert.Zero(t, sa.SpectralRolloff(zeros))
	assert.Zero(t, sa.SpectralRolloff(nil))
	assert.Zero(t, SpectralFlux(zeros))
}

func TestBinFrequency(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)

	assert.Equal(t, 0.0, sa.BinFrequency(0, 512))
	assert.Equal(t, 7984.375, sa.BinFrequency(511, 512))
	assert.Equal(t, 0.0, sa.BinFrequency(3, 0))
}

func TestSpectralFluxIsBinToBin(t *testing.T) {
	assert.InDelta(t, math.Sqrt(6), SpectralFlux([]float64{0, 3, 3, 0}), 1e-12)
	assert.Zero(t, SpectralFlux([]float64{4}))
	assert.Zero(t, SpectralFlux(nil))
}

func TestSpectrogramAndFluxOverTime(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)

	signal := append(make([]float32, 2048), sine(2048, 2000, 0.8)...)
	sgram := sa.ComputeSpectrogram(signal, 1024, 512)

	require.Equal(t, 7, sgram.TimeFrames)
	assert.Equal(t, 512, sgram.FreqBins)

	flux := sa.SpectralFluxOverTime(sgram)
	require.Len(t, flux, 6)
	assert.Zero(t, flux[0])
	assert.Greater(t, flux[3], 0.0)
}

func TestSpectrogramShortInput(t *testing.T) {
	sa := NewSpectralAnalyzer(testSampleRate)

	sgram := sa.ComputeSpectrogram(make([]float32, 100), 1024, 512)
	assert.Zero(t, sgram.TimeFrames)
	assert.Nil(t, sa.SpectralFluxOverTime(sgram))
}
