// Package telemetry sets up the OpenTelemetry meter provider that receives
// detection metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

// Exporter names accepted in configuration
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

// DefaultListenAddr is where the prometheus exporter serves /metrics
const DefaultListenAddr = ":9464"

// Config configures the meter provider
type Config struct {
	// Exporter is one of ExporterNone, ExporterStdout or ExporterPrometheus.
	// Empty means none.
	Exporter string

	// Listen is the address of the /metrics endpoint for the prometheus exporter
	Listen string

	// Writer receives stdout exporter output. Default: os.Stderr.
	Writer io.Writer

	ServiceName    string
	ServiceVersion string
}

// Provider owns the meter provider and, for prometheus, the HTTP endpoint.
type Provider struct {
	meterProvider metric.MeterProvider
	sdkProvider   *sdkmetric.MeterProvider
	server        *http.Server
	listener      net.Listener
	logger        logging.Logger
}

// ValidateExporter reports whether name is a known exporter
func ValidateExporter(name string) error {
	switch name {
	case "", ExporterNone, ExporterStdout, ExporterPrometheus:
		return nil
	default:
		return fmt.Errorf("unknown metrics exporter %q (want %s, %s or %s)",
			name, ExporterNone, ExporterStdout, ExporterPrometheus)
	}
}

// NewProvider builds the meter provider for cfg and registers it as the
// global OTel meter provider. With no exporter it returns a no-op provider
// and leaves the global untouched. Call Shutdown to flush and stop exporting.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := ValidateExporter(cfg.Exporter); err != nil {
		return nil, err
	}

	p := &Provider{
		meterProvider: noop.NewMeterProvider(),
		logger: logging.WithFields(logging.Fields{
			"component": "telemetry",
			"exporter":  cfg.Exporter,
		}),
	}

	if cfg.Exporter == "" || cfg.Exporter == ExporterNone {
		return p, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "echo-guard"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build telemetry resource: %w", err)
	}

	var reader sdkmetric.Reader
	switch cfg.Exporter {
	case ExporterStdout:
		reader, err = newStdoutReader(cfg)
	case ExporterPrometheus:
		reader, err = p.startPrometheus(cfg)
	}
	if err != nil {
		return nil, err
	}

	p.sdkProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	p.meterProvider = p.sdkProvider
	otel.SetMeterProvider(p.sdkProvider)

	p.logger.Debug("Meter provider initialized", logging.Fields{
		"listen": p.Addr(),
	})

	return p, nil
}

func newStdoutReader(cfg Config) (sdkmetric.Reader, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	exp, err := stdoutmetric.New(
		stdoutmetric.WithWriter(w),
		stdoutmetric.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
	}

	// runs are short; Shutdown performs the final export
	return sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(time.Minute)), nil
}

func (p *Provider) startPrometheus(cfg Config) (sdkmetric.Reader, error) {
	registry := prometheus.NewRegistry()

	exp, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	addr := cfg.Listen
	if addr == "" {
		addr = DefaultListenAddr
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	p.listener = listener
	p.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := p.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error(err, "Metrics endpoint stopped")
		}
	}()

	return exp, nil
}

// MeterProvider returns the provider instruments should be created from
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}

// Addr returns the /metrics listen address, or "" when nothing is served
func (p *Provider) Addr() string {
	if p.listener == nil {
		return ""
	}
	return p.listener.Addr().String()
}

// Shutdown flushes pending metrics and stops the endpoint
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error

	if p.sdkProvider != nil {
		if err := p.sdkProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down meter provider: %w", err))
		}
	}

	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop metrics endpoint: %w", err))
		}
	}

	return errors.Join(errs...)
}
