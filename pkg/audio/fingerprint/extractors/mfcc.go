package extractors

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/analyzers"
)

// MFCCCoefficients is the length of every MFCC vector
const MFCCCoefficients = 13

// MFCCMode selects how the MFCC vector is produced
type MFCCMode string

const (
	// MFCCPlaceholder emits [rms, zcr, centroid, 0.3, 0.4, ..., 1.2].
	// Downstream correlation thresholds were tuned against this vector.
	MFCCPlaceholder MFCCMode = "placeholder"

	// MFCCCepstral emits the first MFCCCoefficients cosine-transform
	// coefficients of the log mel-band energies.
	MFCCCepstral MFCCMode = "cepstral"
)

// logFloor keeps log() finite on silent bands
const logFloor = 1e-10

// ParseMFCCMode validates a configured mode name
func ParseMFCCMode(s string) (MFCCMode, error) {
	switch MFCCMode(s) {
	case MFCCPlaceholder, "":
		return MFCCPlaceholder, nil
	case MFCCCepstral:
		return MFCCCepstral, nil
	default:
		return "", fmt.Errorf("unknown mfcc mode %q (want %q or %q)", s, MFCCPlaceholder, MFCCCepstral)
	}
}

// MFCCExtractor produces fixed-length MFCC vectors. It is safe for
// concurrent use.
type MFCCExtractor struct {
	analyzer *analyzers.SpectralAnalyzer
	mode     MFCCMode

	// fourier.DCT keeps scratch space between calls, so each Extract
	// borrows its own transform.
	dcts sync.Pool
}

// NewMFCCExtractor creates an extractor for the given mode
func NewMFCCExtractor(analyzer *analyzers.SpectralAnalyzer, mode MFCCMode) *MFCCExtractor {
	e := &MFCCExtractor{
		analyzer: analyzer,
		mode:     mode,
	}
	e.dcts.New = func() any {
		return fourier.NewDCT(MelBandCount)
	}
	return e
}

// Mode returns the configured mode
func (e *MFCCExtractor) Mode() MFCCMode {
	return e.mode
}

// Extract computes the MFCC vector for pcm. It runs its own FFT rather than
// reusing a spectrum computed elsewhere.
func (e *MFCCExtractor) Extract(pcm []float32) []float64 {
	if e.mode == MFCCCepstral {
		return e.cepstral(pcm)
	}
	return e.placeholder(pcm)
}

func (e *MFCCExtractor) placeholder(pcm []float32) []float64 {
	mfcc := make([]float64, MFCCCoefficients)

	mfcc[0] = calculateRMSEnergy(pcm)
	mfcc[1] = calculateZeroCrossingRate(pcm)
	mfcc[2] = e.analyzer.SpectralCentroid(e.analyzer.ComputeSpectrum(pcm).Magnitude)

	for i := 3; i < MFCCCoefficients; i++ {
		mfcc[i] = float64(i) * 0.1
	}

	return mfcc
}

func (e *MFCCExtractor) cepstral(pcm []float32) []float64 {
	bands := ExtractMelBands(e.analyzer.ComputeSpectrum(pcm).Magnitude)

	logEnergies := make([]float64, len(bands))
	for i, b := range bands {
		logEnergies[i] = math.Log(b*b + logFloor)
	}

	dct := e.dcts.Get().(*fourier.DCT)
	defer e.dcts.Put(dct)

	coeffs := dct.Transform(nil, logEnergies)
	return coeffs[:MFCCCoefficients]
}
