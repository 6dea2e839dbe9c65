package echo

import (
	"math"
)

const (
	// realSpeechEchoCap bounds the echo score whenever real speech is detected
	realSpeechEchoCap = 0.3

	// nonSpeechRealFloor is the least real-speech score reported otherwise
	nonSpeechRealFloor = 0.2
)

// Fuser blends the classifier with the raw similarity metrics and applies the
// safety clamps. Real-speech protection always overrides echo aggressiveness.
type Fuser struct {
	config Config
}

// NewFuser creates a fuser from the thresholds and weights in cfg
func NewFuser(cfg Config) *Fuser {
	return &Fuser{config: cfg}
}

// Fuse produces the final result. It is total over its numeric inputs.
func (f *Fuser) Fuse(ml MLPrediction, correlation, spectralSimilarity, temporalAlignment float64) *EchoDetectionResult {
	cfg := f.config

	traditionalEcho := (correlation + spectralSimilarity + temporalAlignment) / 3
	traditionalReal := 1 - traditionalEcho

	combinedEcho := ml.EchoProbability*cfg.MLWeight + traditionalEcho*cfg.TraditionalWeight
	combinedReal := ml.RealSpeechProbability*cfg.MLWeight + traditionalReal*cfg.TraditionalWeight

	// anti-correlated streams can push the echo score negative
	safeEcho := math.Max(0, math.Min(combinedEcho, cfg.MaxEchoReduction))
	safeReal := math.Max(combinedReal, cfg.MinVoicePreservation)

	isEcho := safeEcho > cfg.EchoThreshold
	isRealSpeech := safeReal > cfg.RealSpeechThreshold

	var finalEcho, finalReal float64
	if isRealSpeech {
		finalEcho = math.Min(safeEcho, realSpeechEchoCap)
		finalReal = safeReal
	} else {
		finalEcho = safeEcho
		finalReal = math.Max(safeReal, nonSpeechRealFloor)
	}

	return &EchoDetectionResult{
		IsEcho:               isEcho,
		IsRealSpeech:         isRealSpeech,
		EchoConfidence:       finalEcho,
		RealSpeechConfidence: finalReal,
		OverallConfidence:    math.Max(finalEcho, finalReal),
		MLPrediction:         ml,
		Correlation:          correlation,
		SpectralSimilarity:   spectralSimilarity,
		TemporalAlignment:    temporalAlignment,
	}
}
