package echo

import (
	"math"
)

// FeatureCount is the length of the classifier input vector
const FeatureCount = 7

// Indices into the classifier input vector
const (
	featCorrelation = iota
	featSpectralSimilarity
	featTemporalAlignment
	featPrimaryRMS
	featSecondaryRMS
	featPrimaryCentroid
	featSecondaryCentroid
)

// Classifier scores a feature vector as echo or real speech with fixed additive rules
type Classifier struct{}

// NewClassifier creates a classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// FeatureVector packs the classifier inputs in their fixed order
func FeatureVector(correlation, spectralSimilarity, temporalAlignment, primaryRMS, secondaryRMS, primaryCentroid, secondaryCentroid float64) []float64 {
	return []float64{
		correlation,
		spectralSimilarity,
		temporalAlignment,
		primaryRMS,
		secondaryRMS,
		primaryCentroid,
		secondaryCentroid,
	}
}

// Predict applies the scoring rules. Vectors shorter than FeatureCount get a
// neutral 0.5/0.5 prediction with zero confidence. The centroid entries are
// carried but do not currently contribute to the score.
func (c *Classifier) Predict(features []float64) MLPrediction {
	if len(features) < FeatureCount {
		return MLPrediction{
			EchoProbability:       0.5,
			RealSpeechProbability: 0.5,
			Confidence:            0,
		}
	}

	echoScore, realScore := 0.0, 0.0

	correlation := features[featCorrelation]
	if correlation > 0.8 {
		echoScore += 0.4
	} else if correlation < 0.3 {
		realScore += 0.3
	}

	spectral := features[featSpectralSimilarity]
	if spectral > 0.9 {
		echoScore += 0.3
	} else if spectral < 0.5 {
		realScore += 0.3
	}

	if features[featTemporalAlignment] > 0.8 {
		echoScore += 0.2
	}

	if math.Abs(features[featPrimaryRMS]-features[featSecondaryRMS]) < 0.1 {
		echoScore += 0.1
	} else {
		realScore += 0.2
	}

	if total := echoScore + realScore; total > 0 {
		echoScore /= total
		realScore /= total
	}

	return MLPrediction{
		EchoProbability:       echoScore,
		RealSpeechProbability: realScore,
		Confidence:            math.Max(echoScore, realScore),
	}
}
