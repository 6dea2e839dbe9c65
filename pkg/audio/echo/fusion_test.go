package echo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuseStrongEcho(t *testing.T) {
	f := NewFuser(DefaultConfig())

	ml := MLPrediction{EchoProbability: 1, RealSpeechProbability: 0, Confidence: 1}
	r := f.Fuse(ml, 1, 1, 1)

	// combined echo 1.0 is clamped to the max reduction
	assert.True(t, r.IsEcho)
	assert.False(t, r.IsRealSpeech)
	assert.InDelta(t, 0.85, r.EchoConfidence, 1e-12)
	assert.InDelta(t, 0.2, r.RealSpeechConfidence, 1e-12)
	assert.InDelta(t, 0.85, r.OverallConfidence, 1e-12)
	assert.Equal(t, ml, r.MLPrediction)
	assert.Equal(t, 1.0, r.Correlation)
	assert.Equal(t, VerdictEcho, r.Verdict())
}

func TestFuseStrongRealSpeech(t *testing.T) {
	f := NewFuser(DefaultConfig())

	ml := MLPrediction{EchoProbability: 0, RealSpeechProbability: 1, Confidence: 1}
	r := f.Fuse(ml, 0, 0, 0)

	assert.False(t, r.IsEcho)
	assert.True(t, r.IsRealSpeech)
	assert.Zero(t, r.EchoConfidence)
	assert.InDelta(t, 1.0, r.RealSpeechConfidence, 1e-12)
	assert.InDelta(t, 1.0, r.OverallConfidence, 1e-12)
	assert.Equal(t, VerdictRealSpeech, r.Verdict())
}

func TestFuseUncertain(t *testing.T) {
	f := NewFuser(DefaultConfig())

	r := f.Fuse(MLPrediction{EchoProbability: 0.5, RealSpeechProbability: 0.5, Confidence: 0.5}, 0.5, 0.5, 0.5)

	// combined echo and real are both 0.5
	assert.False(t, r.IsEcho)
	assert.False(t, r.IsRealSpeech)
	assert.InDelta(t, 0.5, r.EchoConfidence, 1e-12)
	assert.InDelta(t, 0.5, r.RealSpeechConfidence, 1e-12)
	assert.Equal(t, VerdictUncertain, r.Verdict())
}

func TestFuseMinimumVoicePreservation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MLWeight = 1
	cfg.TraditionalWeight = 0
	f := NewFuser(cfg)

	r := f.Fuse(MLPrediction{EchoProbability: 0.6, RealSpeechProbability: 0.05}, 1, 1, 1)
	// 0.05 is lifted to the preservation floor, then to the non-speech floor
	assert.InDelta(t, 0.2, r.RealSpeechConfidence, 1e-12)
}

func TestFuseAntiCorrelatedStreams(t *testing.T) {
	f := NewFuser(DefaultConfig())

	r := f.Fuse(MLPrediction{EchoProbability: 0, RealSpeechProbability: 1, Confidence: 1}, -1, 0, 0)
	assert.Zero(t, r.EchoConfidence)
	assert.True(t, r.IsRealSpeech)
}

func TestFuseBoundsAndProtection(t *testing.T) {
	cfg := DefaultConfig()
	f := NewFuser(cfg)
	rng := rand.New(rand.NewSource(7))

	for range 5000 {
		echoP := rng.Float64()
		ml := MLPrediction{EchoProbability: echoP, RealSpeechProbability: 1 - echoP}
		ml.Confidence = max(ml.EchoProbability, ml.RealSpeechProbability)

		r := f.Fuse(ml, 2*rng.Float64()-1, rng.Float64(), rng.Float64())

		assert.GreaterOrEqual(t, r.EchoConfidence, 0.0)
		assert.LessOrEqual(t, r.EchoConfidence, cfg.MaxEchoReduction)
		assert.GreaterOrEqual(t, r.RealSpeechConfidence, cfg.MinVoicePreservation)
		assert.GreaterOrEqual(t, r.OverallConfidence, 0.0)
		assert.Equal(t, max(r.EchoConfidence, r.RealSpeechConfidence), r.OverallConfidence)

		if r.IsRealSpeech {
			assert.LessOrEqual(t, r.EchoConfidence, 0.3)
		}
	}
}
