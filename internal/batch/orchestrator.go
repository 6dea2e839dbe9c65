package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/echo-guard/pkg/audio"
	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// LoadFunc reads a recording as mono samples at sampleRate
type LoadFunc func(path string, sampleRate int) ([]float32, error)

// PairResult is the outcome of one manifest pair
type PairResult struct {
	Name      string                    `json:"name" yaml:"name"`
	Primary   string                    `json:"primary" yaml:"primary"`
	Secondary string                    `json:"secondary" yaml:"secondary"`
	Result    *echo.EchoDetectionResult `json:"result,omitempty" yaml:"result,omitempty"`
	Elapsed   time.Duration             `json:"elapsed" yaml:"elapsed"`
	Error     error                     `json:"-" yaml:"-"`
	ErrorText string                    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is the full output of a batch run
type Report struct {
	Results       []*PairResult `json:"results" yaml:"results"`
	Summary       *Summary      `json:"summary" yaml:"summary"`
	StartTime     time.Time     `json:"start_time" yaml:"start_time"`
	EndTime       time.Time     `json:"end_time" yaml:"end_time"`
	TotalDuration time.Duration `json:"total_duration" yaml:"total_duration"`
}

// Orchestrator runs every pair of a manifest through a shared echo worker
type Orchestrator struct {
	worker         *echo.Worker
	sampleRate     int
	maxConcurrency int
	load           LoadFunc
	logger         logging.Logger
}

// OrchestratorOption customizes an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLoader replaces WAV loading
func WithLoader(load LoadFunc) OrchestratorOption {
	return func(o *Orchestrator) {
		if load != nil {
			o.load = load
		}
	}
}

const orchestratorComponent = "batch_orchestrator"

// WithLogger sets the orchestrator logger. Entries keep the orchestrator's
// component field.
func WithLogger(logger logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger.WithFields(logging.Fields{"component": orchestratorComponent})
		}
	}
}

// NewOrchestrator creates a batch orchestrator. At most maxConcurrency pairs
// are loaded and in flight at once.
func NewOrchestrator(worker *echo.Worker, sampleRate, maxConcurrency int, opts ...OrchestratorOption) *Orchestrator {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	o := &Orchestrator{
		worker:         worker,
		sampleRate:     sampleRate,
		maxConcurrency: maxConcurrency,
		load:           audio.LoadWAV,
		logger: logging.WithFields(logging.Fields{
			"component": orchestratorComponent,
		}),
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Run processes every pair. A pair that fails to load is reported in its
// PairResult; only cancellation of ctx aborts the run.
func (o *Orchestrator) Run(ctx context.Context, manifest *Manifest) (*Report, error) {
	startTime := time.Now()

	o.logger.Info("Starting batch run", logging.Fields{
		"pairs":           len(manifest.Pairs),
		"max_concurrency": o.maxConcurrency,
	})

	results := make([]*PairResult, len(manifest.Pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrency)

	for i, pair := range manifest.Pairs {
		g.Go(func() error {
			result, err := o.runPair(gctx, pair)
			results[i] = result
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch run aborted: %w", err)
	}

	endTime := time.Now()
	report := &Report{
		Results:       results,
		Summary:       Summarize(results),
		StartTime:     startTime,
		EndTime:       endTime,
		TotalDuration: endTime.Sub(startTime),
	}

	o.logger.Info("Batch run completed", logging.Fields{
		"total_duration_s": report.TotalDuration.Seconds(),
		"echo":             report.Summary.Echo,
		"real_speech":      report.Summary.RealSpeech,
		"uncertain":        report.Summary.Uncertain,
		"failed":           report.Summary.Failed,
	})

	return report, nil
}

// runPair returns an error only when ctx is done; pair failures live in the result
func (o *Orchestrator) runPair(ctx context.Context, pair Pair) (*PairResult, error) {
	result := &PairResult{
		Name:      pair.Name,
		Primary:   pair.Primary,
		Secondary: pair.Secondary,
	}

	logger := o.logger.WithFields(logging.Fields{
		"pair": pair.Name,
	})

	fail := func(err error) (*PairResult, error) {
		result.Error = err
		result.ErrorText = err.Error()
		logger.Error(err, "Pair failed")
		return result, nil
	}

	primary, err := o.load(pair.Primary, o.sampleRate)
	if err != nil {
		return fail(fmt.Errorf("failed to load primary: %w", err))
	}

	secondary, err := o.load(pair.Secondary, o.sampleRate)
	if err != nil {
		return fail(fmt.Errorf("failed to load secondary: %w", err))
	}

	outcomes, err := o.worker.Submit(ctx, primary, secondary)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return fail(fmt.Errorf("failed to submit detection: %w", err))
	}

	select {
	case outcome := <-outcomes:
		result.Result = outcome.Result
		result.Elapsed = outcome.Elapsed
	case <-ctx.Done():
		return result, ctx.Err()
	}

	logger.Debug("Pair completed", logging.Fields{
		"verdict":         string(result.Result.Verdict()),
		"echo_confidence": result.Result.EchoConfidence,
		"elapsed_ms":      result.Elapsed.Milliseconds(),
	})

	return result, nil
}
