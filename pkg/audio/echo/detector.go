package echo

import (
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint"
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// Detector decides whether a primary capture is an echo of a secondary
// reference. Detect is synchronous, deterministic and safe for concurrent use;
// the detector holds nothing but read-only configuration.
type Detector struct {
	config     Config
	extractor  *extractors.FeatureExtractor
	comparer   *fingerprint.Comparer
	classifier *Classifier
	fuser      *Fuser
	logger     logging.Logger
}

const detectorComponent = "echo_detector"

// DetectorOption customizes a Detector
type DetectorOption func(*Detector)

// WithLogger sets the logger used for debug tracing. Entries keep the
// detector's component field.
func WithLogger(logger logging.Logger) DetectorOption {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger.WithFields(logging.Fields{"component": detectorComponent})
		}
	}
}

// NewDetector creates a detector. The configuration is validated and copied.
func NewDetector(cfg Config, opts ...DetectorOption) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode, _ := extractors.ParseMFCCMode(string(cfg.MFCCMode))
	cfg.MFCCMode = mode

	d := &Detector{
		config:     cfg,
		extractor:  extractors.NewFeatureExtractor(cfg.SampleRate, mode),
		comparer:   fingerprint.NewComparer(cfg.SampleRate),
		classifier: NewClassifier(),
		fuser:      NewFuser(cfg),
		logger: logging.WithFields(logging.Fields{
			"component": detectorComponent,
		}),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Config returns a copy of the detector configuration
func (d *Detector) Config() Config {
	return d.config
}

// Detect runs the whole pipeline on two buffers of possibly different length.
// It never fails: degenerate input produces neutral metrics and still yields a result.
func (d *Detector) Detect(primary, secondary []float32) *EchoDetectionResult {
	return d.run(primary, secondary).Result
}

// Analyze is Detect plus the per-stream features, similarity detail and
// frame-level flux diagnostics
func (d *Detector) Analyze(primary, secondary []float32) *Analysis {
	analysis := d.run(primary, secondary)

	analyzer := d.extractor.Analyzer()
	analysis.PrimaryFrameFlux = analyzer.SpectralFluxOverTime(
		analyzer.ComputeSpectrogram(primary, d.config.WindowSize, d.config.HopSize))
	analysis.SecondaryFrameFlux = analyzer.SpectralFluxOverTime(
		analyzer.ComputeSpectrogram(secondary, d.config.WindowSize, d.config.HopSize))

	return analysis
}

func (d *Detector) run(primary, secondary []float32) *Analysis {
	logger := d.logger.WithFields(logging.Fields{
		"function":         "Detect",
		"primary_length":   len(primary),
		"secondary_length": len(secondary),
	})

	primaryFeatures := d.extractor.Extract(primary)
	secondaryFeatures := d.extractor.Extract(secondary)

	similarity := d.comparer.Compare(primaryFeatures, secondaryFeatures, primary, secondary)

	prediction := d.classifier.Predict(FeatureVector(
		similarity.Correlation,
		similarity.SpectralSimilarity,
		similarity.TemporalAlignment,
		primaryFeatures.Statistical.RMSEnergy,
		secondaryFeatures.Statistical.RMSEnergy,
		primaryFeatures.Statistical.SpectralCentroid,
		secondaryFeatures.Statistical.SpectralCentroid,
	))

	result := d.fuser.Fuse(prediction,
		similarity.Correlation,
		similarity.SpectralSimilarity,
		similarity.TemporalAlignment,
	)

	logger.Debug("Echo detection completed", logging.Fields{
		"correlation":         similarity.Correlation,
		"spectral_similarity": similarity.SpectralSimilarity,
		"temporal_alignment":  similarity.TemporalAlignment,
		"echo_confidence":     result.EchoConfidence,
		"real_confidence":     result.RealSpeechConfidence,
		"verdict":             string(result.Verdict()),
	})

	return &Analysis{
		Result:     result,
		Primary:    primaryFeatures,
		Secondary:  secondaryFeatures,
		Similarity: similarity,
	}
}
