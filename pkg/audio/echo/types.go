package echo

import (
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint"
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
)

// MLPrediction is the rule-based classifier output
type MLPrediction struct {
	EchoProbability       float64 `json:"echo_probability"`
	RealSpeechProbability float64 `json:"real_speech_probability"`
	Confidence            float64 `json:"confidence"`
}

// EchoDetectionResult is the outcome of one detection call
type EchoDetectionResult struct {
	IsEcho               bool         `json:"is_echo"`
	IsRealSpeech         bool         `json:"is_real_speech"`
	EchoConfidence       float64      `json:"echo_confidence"`
	RealSpeechConfidence float64      `json:"real_speech_confidence"`
	OverallConfidence    float64      `json:"overall_confidence"`
	MLPrediction         MLPrediction `json:"ml_prediction"`

	// Raw similarity inputs, kept for observability
	Correlation        float64 `json:"correlation"`
	SpectralSimilarity float64 `json:"spectral_similarity"`
	TemporalAlignment  float64 `json:"temporal_alignment"`
}

// Verdict labels a result for metrics and reports
type Verdict string

const (
	VerdictEcho       Verdict = "echo"
	VerdictRealSpeech Verdict = "real_speech"
	VerdictUncertain  Verdict = "uncertain"
)

// Verdict collapses the two flags into one label. Real speech wins when both are set.
func (r *EchoDetectionResult) Verdict() Verdict {
	switch {
	case r.IsRealSpeech:
		return VerdictRealSpeech
	case r.IsEcho:
		return VerdictEcho
	default:
		return VerdictUncertain
	}
}

// Analysis is a detection result with the intermediate values behind it
type Analysis struct {
	Result     *EchoDetectionResult          `json:"result"`
	Primary    *extractors.AudioFeatures     `json:"primary"`
	Secondary  *extractors.AudioFeatures     `json:"secondary"`
	Similarity *fingerprint.SimilarityResult `json:"similarity"`

	// Frame-to-frame flux per stream, diagnostic only
	PrimaryFrameFlux   []float64 `json:"primary_frame_flux,omitempty"`
	SecondaryFrameFlux []float64 `json:"secondary_frame_flux,omitempty"`
}
