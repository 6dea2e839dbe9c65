package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/RyanBlaney/echo-guard/configs"
	"github.com/RyanBlaney/echo-guard/internal/batch"
	"github.com/RyanBlaney/echo-guard/internal/telemetry"
	"github.com/RyanBlaney/echo-guard/internal/zaplog"
	"github.com/RyanBlaney/echo-guard/pkg/audio"
	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
	"github.com/RyanBlaney/latency-benchmark-common/logging"
)

// Version is reported as the service version on exported metrics
var Version = "dev"

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	PrimaryFile   string
	SecondaryFile string
	ManifestFile  string
	OutputFile    string
	OutputFormat  string
	Detailed      bool
	Concurrency   int

	// Runtime context
	Logger logging.Logger
	Config *configs.Config

	// MetricsWriter receives stdout exporter output. Default: os.Stderr.
	MetricsWriter io.Writer
}

// EchoGuardApp handles the application lifecycle
type EchoGuardApp struct {
	ctx      *Context
	config   *configs.Config
	detector *echo.Detector
	worker   *echo.Worker
	metrics  *telemetry.Provider
	logger   logging.Logger
	stdout   io.Writer
}

// NewEchoGuardApp loads configuration and starts the detection worker.
// Call Close when done.
func NewEchoGuardApp(ctx *Context) (*EchoGuardApp, error) {
	config := ctx.Config
	if config == nil {
		loaded, err := configs.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		config = loaded
	}

	mergeContext(config, ctx)

	if err := configs.ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	ctx.Config = config

	logger := zaplog.Install(config.LogFormat, config.LogLevel, config.Verbose)
	ctx.Logger = logger

	detectionConfig, err := config.DetectionConfig()
	if err != nil {
		return nil, err
	}

	detector, err := echo.NewDetector(detectionConfig, echo.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	provider, err := telemetry.NewProvider(context.Background(), telemetry.Config{
		Exporter:       config.Metrics.Exporter,
		Listen:         config.Metrics.Listen,
		Writer:         ctx.MetricsWriter,
		ServiceVersion: Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start metrics exporter: %w", err)
	}

	metrics, err := echo.NewMetrics(provider.MeterProvider())
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	worker := echo.NewWorker(detector,
		echo.WithQueueSize(config.Worker.QueueSize),
		echo.WithMetrics(metrics),
		echo.WithWorkerLogger(logger),
	)

	logger.Debug("Echo guard application initialized", logging.Fields{
		"output_format": config.OutputFormat,
		"sample_rate":   detectionConfig.SampleRate,
		"mfcc_mode":     string(detectionConfig.MFCCMode),
		"queue_size":    config.Worker.QueueSize,
		"metrics":       config.Metrics.Exporter,
	})

	return &EchoGuardApp{
		ctx:      ctx,
		config:   config,
		detector: detector,
		worker:   worker,
		metrics:  provider,
		logger:   logger,
		stdout:   os.Stdout,
	}, nil
}

// Close drains the worker, then flushes and stops the metrics exporter
func (app *EchoGuardApp) Close() {
	app.worker.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.metrics.Shutdown(ctx); err != nil {
		app.logger.Error(err, "Failed to shut down metrics exporter")
	}
}

// RunDetect compares the primary and secondary files and prints the result
func (app *EchoGuardApp) RunDetect(ctx context.Context) error {
	if app.ctx.PrimaryFile == "" || app.ctx.SecondaryFile == "" {
		return fmt.Errorf("both primary and secondary files are required")
	}

	sampleRate := app.config.Audio.SampleRate

	primary, err := audio.LoadWAV(app.ctx.PrimaryFile, sampleRate)
	if err != nil {
		return fmt.Errorf("failed to load primary: %w", err)
	}
	secondary, err := audio.LoadWAV(app.ctx.SecondaryFile, sampleRate)
	if err != nil {
		return fmt.Errorf("failed to load secondary: %w", err)
	}

	app.logger.Debug("Submitting detection", logging.Fields{
		"primary_samples":   len(primary),
		"secondary_samples": len(secondary),
	})

	outcomes, err := app.worker.Submit(ctx, primary, secondary)
	if err != nil {
		return fmt.Errorf("failed to submit detection: %w", err)
	}

	var outcome echo.Outcome
	select {
	case outcome = <-outcomes:
	case <-ctx.Done():
		return ctx.Err()
	}

	report := &DetectReport{
		Primary:   app.ctx.PrimaryFile,
		Secondary: app.ctx.SecondaryFile,
		Verdict:   outcome.Result.Verdict(),
		Result:    outcome.Result,
		ElapsedMs: float64(outcome.Elapsed.Microseconds()) / 1000,
		Timestamp: time.Now(),
	}

	if app.config.Output.Detailed {
		report.Details = newDetectDetails(app.detector.Analyze(primary, secondary))
	}

	return app.outputResults(report)
}

// RunBatch runs every pair of the manifest and prints per-pair results and a summary
func (app *EchoGuardApp) RunBatch(ctx context.Context) error {
	manifest, err := batch.LoadManifest(app.ctx.ManifestFile)
	if err != nil {
		return err
	}

	orchestrator := batch.NewOrchestrator(app.worker,
		app.config.Audio.SampleRate,
		app.config.Batch.MaxConcurrency,
		batch.WithLogger(app.logger),
	)

	report, err := orchestrator.Run(ctx, manifest)
	if err != nil {
		return err
	}

	if err := app.outputResults(report); err != nil {
		return err
	}

	if report.Summary.Failed == report.Summary.Total {
		return fmt.Errorf("all %d pairs failed", report.Summary.Total)
	}

	return nil
}

// RunConfig prints the effective configuration
func (app *EchoGuardApp) RunConfig() error {
	return app.outputResults(app.config)
}

// mergeContext applies CLI arguments on top of loaded configuration
func mergeContext(config *configs.Config, ctx *Context) {
	if ctx.OutputFormat != "" {
		config.OutputFormat = ctx.OutputFormat
	}
	if ctx.Detailed {
		config.Output.Detailed = true
	}
	if ctx.Concurrency > 0 {
		config.Batch.MaxConcurrency = ctx.Concurrency
	}
	// escape codes only make sense on a terminal
	if ctx.OutputFile != "" || !isTerminal(os.Stdout) {
		config.Output.Colors = false
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// outputResults formats data and writes it to the output file or stdout
func (app *EchoGuardApp) outputResults(data any) error {
	formatter := NewFormatter(app.config.OutputFormat, app.config.Output)

	formatted, err := formatter.Format(data, true)
	if err != nil {
		return fmt.Errorf("failed to format output data: %w", err)
	}
	if n := len(formatted); n > 0 && formatted[n-1] != '\n' {
		formatted = append(formatted, '\n')
	}

	if app.ctx.OutputFile != "" {
		return app.writeToFile(formatted)
	}

	_, err = app.stdout.Write(formatted)
	return err
}

// writeToFile writes data to the specified output file
func (app *EchoGuardApp) writeToFile(data []byte) error {
	dir := filepath.Dir(app.ctx.OutputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(app.ctx.OutputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"size_bytes":  len(data),
	})

	return nil
}
