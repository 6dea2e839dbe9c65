package app

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/tidwall/pretty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/RyanBlaney/echo-guard/configs"
	"github.com/RyanBlaney/echo-guard/internal/batch"
	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
	"github.com/RyanBlaney/echo-guard/pkg/audio/fingerprint/extractors"
)

// Terminal colors for table output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBold   = "\033[1m"
)

// DetectReport is the printable result of a single detection
type DetectReport struct {
	Primary   string                    `json:"primary" yaml:"primary"`
	Secondary string                    `json:"secondary" yaml:"secondary"`
	Verdict   echo.Verdict              `json:"verdict" yaml:"verdict"`
	Result    *echo.EchoDetectionResult `json:"result" yaml:"result"`
	ElapsedMs float64                   `json:"elapsed_ms" yaml:"elapsed_ms"`
	Details   *DetectDetails            `json:"details,omitempty" yaml:"details,omitempty"`
	Timestamp time.Time                 `json:"timestamp" yaml:"timestamp"`
}

// DetectDetails is the diagnostic part of a detailed detection report.
// Raw spectra are left out.
type DetectDetails struct {
	Primary            StreamDetails               `json:"primary" yaml:"primary"`
	Secondary          StreamDetails               `json:"secondary" yaml:"secondary"`
	Alignment          *extractors.AlignmentResult `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	PrimaryFrameFlux   []float64                   `json:"primary_frame_flux,omitempty" yaml:"primary_frame_flux,omitempty"`
	SecondaryFrameFlux []float64                   `json:"secondary_frame_flux,omitempty" yaml:"secondary_frame_flux,omitempty"`
}

// StreamDetails summarizes the features of one input
type StreamDetails struct {
	SampleCount  int                            `json:"sample_count" yaml:"sample_count"`
	Statistical  extractors.StatisticalFeatures `json:"statistical" yaml:"statistical"`
	SpectralFlux float64                        `json:"spectral_flux" yaml:"spectral_flux"`
	MFCC         []float64                      `json:"mfcc,omitempty" yaml:"mfcc,omitempty"`
}

func newDetectDetails(a *echo.Analysis) *DetectDetails {
	if a == nil {
		return nil
	}

	stream := func(f *extractors.AudioFeatures) StreamDetails {
		return StreamDetails{
			SampleCount:  f.SampleCount,
			Statistical:  f.Statistical,
			SpectralFlux: f.Spectral.SpectralFlux,
			MFCC:         f.MFCC,
		}
	}

	return &DetectDetails{
		Primary:            stream(a.Primary),
		Secondary:          stream(a.Secondary),
		Alignment:          a.Similarity.Alignment,
		PrimaryFrameFlux:   a.PrimaryFrameFlux,
		SecondaryFrameFlux: a.SecondaryFrameFlux,
	}
}

// NewFormatter returns the formatter for format, falling back to table
func NewFormatter(format string, out configs.OutputConfig) output.Formatter {
	switch format {
	case "json":
		if out.Colors {
			return output.NewPipelineFormatter(&output.JSONFormatter{}, &jsonColorizer{})
		}
		return &output.JSONFormatter{}
	case "yaml":
		return &output.YAMLFormatter{}
	case "csv":
		return &CSVFormatter{Precision: out.Precision}
	default:
		return &TableFormatter{Precision: out.Precision, Colors: out.Colors}
	}
}

// jsonColorizer highlights JSON produced by an earlier pipeline stage
type jsonColorizer struct{}

func (c *jsonColorizer) Format(data any, _ bool) ([]byte, error) {
	raw, ok := data.([]byte)
	if !ok {
		return nil, fmt.Errorf("json colorizer expects encoded json, got %T", data)
	}
	return pretty.Color(raw, nil), nil
}

func formatNum(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

// CSVFormatter writes one record per detection. Configuration is written as
// key,value records.
type CSVFormatter struct {
	Precision int
}

var csvHeader = []string{
	"name",
	"primary",
	"secondary",
	"verdict",
	"echo_confidence",
	"real_speech_confidence",
	"overall_confidence",
	"correlation",
	"spectral_similarity",
	"temporal_alignment",
	"ml_echo_probability",
	"ml_real_speech_probability",
	"elapsed_ms",
	"error",
}

func (f *CSVFormatter) Format(data any, _ bool) ([]byte, error) {
	var records [][]string

	switch v := data.(type) {
	case *DetectReport:
		records = append(records, csvHeader,
			f.record("", v.Primary, v.Secondary, v.Result, v.ElapsedMs, ""))
	case *batch.Report:
		records = append(records, csvHeader)
		for _, pr := range v.Results {
			records = append(records, f.record(pr.Name, pr.Primary, pr.Secondary,
				pr.Result, float64(pr.Elapsed.Microseconds())/1000, pr.ErrorText))
		}
	case *configs.Config:
		flat := output.ConvertToStringMap(output.ExtractFlattenedData(v, ""))
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		records = append(records, []string{"key", "value"})
		for _, k := range keys {
			records = append(records, []string{k, flat[k]})
		}
	default:
		return nil, fmt.Errorf("csv output not supported for %T", data)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("failed to write CSV record: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *CSVFormatter) record(name, primary, secondary string, res *echo.EchoDetectionResult, elapsedMs float64, errText string) []string {
	if res == nil {
		return []string{name, primary, secondary, "", "", "", "", "", "", "", "", "", "", errText}
	}

	num := func(v float64) string { return formatNum(v, f.Precision) }
	return []string{
		name,
		primary,
		secondary,
		string(res.Verdict()),
		num(res.EchoConfidence),
		num(res.RealSpeechConfidence),
		num(res.OverallConfidence),
		num(res.Correlation),
		num(res.SpectralSimilarity),
		num(res.TemporalAlignment),
		num(res.MLPrediction.EchoProbability),
		num(res.MLPrediction.RealSpeechProbability),
		num(elapsedMs),
		errText,
	}
}

// TableFormatter renders aligned human-readable tables
type TableFormatter struct {
	Precision int
	Colors    bool
}

var titleCaser = cases.Title(language.English)

// label turns a snake_case key into a title
func label(key string) string {
	return titleCaser.String(strings.ReplaceAll(key, "_", " "))
}

// table aligns cells with tabwriter and colors whole lines afterwards, so
// escape codes never count toward column widths
type table struct {
	buf    bytes.Buffer
	w      *tabwriter.Writer
	line   int
	colors map[int]string
}

func newTable() *table {
	t := &table{colors: make(map[int]string)}
	t.w = tabwriter.NewWriter(&t.buf, 0, 0, 2, ' ', 0)
	return t
}

// add writes one line of tab-separated cells, colored when color is set
func (t *table) add(color string, cells ...string) {
	if color != "" {
		t.colors[t.line] = color
	}
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
	t.line++
}

func (t *table) render(colors bool) ([]byte, error) {
	if err := t.w.Flush(); err != nil {
		return nil, err
	}
	if !colors || len(t.colors) == 0 {
		return t.buf.Bytes(), nil
	}

	lines := strings.Split(t.buf.String(), "\n")
	for i, color := range t.colors {
		if i < len(lines) {
			lines[i] = color + lines[i] + ColorReset
		}
	}
	return []byte(strings.Join(lines, "\n")), nil
}

func (f *TableFormatter) Format(data any, _ bool) ([]byte, error) {
	t := newTable()

	switch v := data.(type) {
	case *DetectReport:
		f.writeDetect(t, v)
	case *batch.Report:
		f.writeBatch(t, v)
	case *configs.Config:
		f.writeConfig(t, v)
	default:
		return nil, fmt.Errorf("table output not supported for %T", data)
	}

	return t.render(f.Colors)
}

func (f *TableFormatter) num(v float64) string {
	return formatNum(v, f.Precision)
}

func verdictColor(v echo.Verdict) string {
	switch v {
	case echo.VerdictEcho:
		return ColorRed
	case echo.VerdictRealSpeech:
		return ColorGreen
	default:
		return ColorYellow
	}
}

func (f *TableFormatter) header(t *table, title string) {
	t.add(ColorBold, title)
	t.add("", strings.Repeat("=", len(title)))
}

func (f *TableFormatter) row(t *table, key string, value any) {
	t.add("", label(key)+":", output.ConvertValueToString(value))
}

func (f *TableFormatter) writeDetect(t *table, r *DetectReport) {
	res := r.Result

	f.header(t, "Echo Detection")
	f.row(t, "primary", r.Primary)
	f.row(t, "secondary", r.Secondary)
	t.add(verdictColor(r.Verdict), "Verdict:", label(string(r.Verdict)))
	f.row(t, "echo_confidence", f.num(res.EchoConfidence))
	f.row(t, "real_speech_confidence", f.num(res.RealSpeechConfidence))
	f.row(t, "overall_confidence", f.num(res.OverallConfidence))
	f.row(t, "correlation", f.num(res.Correlation))
	f.row(t, "spectral_similarity", f.num(res.SpectralSimilarity))
	f.row(t, "temporal_alignment", f.num(res.TemporalAlignment))
	f.row(t, "ml_echo_probability", f.num(res.MLPrediction.EchoProbability))
	f.row(t, "ml_real_speech_probability", f.num(res.MLPrediction.RealSpeechProbability))
	f.row(t, "elapsed_ms", f.num(r.ElapsedMs))

	if d := r.Details; d != nil {
		t.add("")
		f.header(t, "Details")
		t.add("", "", "Primary", "Secondary")
		t.add("", "Samples:", fmt.Sprint(d.Primary.SampleCount), fmt.Sprint(d.Secondary.SampleCount))
		t.add("", "RMS Energy:", f.num(d.Primary.Statistical.RMSEnergy), f.num(d.Secondary.Statistical.RMSEnergy))
		t.add("", "Zero Crossing Rate:", f.num(d.Primary.Statistical.ZeroCrossingRate), f.num(d.Secondary.Statistical.ZeroCrossingRate))
		t.add("", "Spectral Centroid (Hz):", f.num(d.Primary.Statistical.SpectralCentroid), f.num(d.Secondary.Statistical.SpectralCentroid))
		t.add("", "Spectral Rolloff (Hz):", f.num(d.Primary.Statistical.SpectralRolloff), f.num(d.Secondary.Statistical.SpectralRolloff))
		t.add("", "Spectral Bandwidth (Hz):", f.num(d.Primary.Statistical.SpectralBandwidth), f.num(d.Secondary.Statistical.SpectralBandwidth))
		t.add("", "Spectral Flux:", f.num(d.Primary.SpectralFlux), f.num(d.Secondary.SpectralFlux))
		t.add("", "Frames:", fmt.Sprint(len(d.PrimaryFrameFlux)+1), fmt.Sprint(len(d.SecondaryFrameFlux)+1))
		if d.Alignment != nil {
			t.add("", "Best Lag:",
				fmt.Sprintf("%d samples (%ss)", d.Alignment.LagSamples, f.num(d.Alignment.OffsetSeconds)), "")
		}
	}
}

func (f *TableFormatter) writeBatch(t *table, r *batch.Report) {
	f.header(t, "Batch Results")
	t.add("", "Name", "Verdict", "Echo", "Real Speech", "Overall", "Time (ms)")
	for _, pr := range r.Results {
		if pr.Result == nil {
			t.add(ColorRed, pr.Name, "Failed: "+pr.ErrorText, "-", "-", "-", "-")
			continue
		}
		v := pr.Result.Verdict()
		t.add(verdictColor(v),
			pr.Name,
			label(string(v)),
			f.num(pr.Result.EchoConfidence),
			f.num(pr.Result.RealSpeechConfidence),
			f.num(pr.Result.OverallConfidence),
			f.num(float64(pr.Elapsed.Microseconds())/1000),
		)
	}

	s := r.Summary
	t.add("")
	f.header(t, "Summary")
	f.row(t, "total", s.Total)
	f.row(t, "echo", s.Echo)
	f.row(t, "real_speech", s.RealSpeech)
	f.row(t, "uncertain", s.Uncertain)
	f.row(t, "failed", s.Failed)
	f.row(t, "echo_rate", output.FormatPercentage(s.EchoRate))
	f.row(t, "real_speech_rate", output.FormatPercentage(s.RealSpeechRate))
	f.row(t, "total_duration", output.FormatDuration(r.TotalDuration))

	t.add("")
	t.add("", "Score", "Mean", "Median", "P95", "Min", "Max", "Std Dev")
	for _, st := range []struct {
		name  string
		stats *batch.Stats
	}{
		{"overall_confidence", s.OverallConfidence},
		{"echo_confidence", s.EchoConfidence},
		{"real_speech_confidence", s.RealSpeechConfidence},
		{"detection_time_ms", s.DetectionTimeMs},
	} {
		t.add("", label(st.name),
			f.num(st.stats.Mean), f.num(st.stats.Median), f.num(st.stats.P95),
			f.num(st.stats.Min), f.num(st.stats.Max), f.num(st.stats.StdDev))
	}
}

func (f *TableFormatter) writeConfig(t *table, c *configs.Config) {
	f.header(t, "Application")
	f.row(t, "log_level", c.LogLevel)
	f.row(t, "log_format", c.LogFormat)
	f.row(t, "output_format", c.OutputFormat)
	f.row(t, "verbose", c.Verbose)

	t.add("")
	f.header(t, "Audio")
	f.row(t, "sample_rate", c.Audio.SampleRate)
	f.row(t, "window_size", c.Audio.WindowSize)
	f.row(t, "hop_size", c.Audio.HopSize)

	t.add("")
	f.header(t, "Detection")
	f.row(t, "echo_threshold", c.Detection.EchoThreshold)
	f.row(t, "real_speech_threshold", c.Detection.RealSpeechThreshold)
	f.row(t, "min_voice_preservation", c.Detection.MinVoicePreservation)
	f.row(t, "max_echo_reduction", c.Detection.MaxEchoReduction)
	f.row(t, "ml_weight", c.Detection.MLWeight)
	f.row(t, "traditional_weight", c.Detection.TraditionalWeight)
	f.row(t, "mfcc_mode", c.Detection.MFCCMode)

	t.add("")
	f.header(t, "Execution")
	f.row(t, "worker_queue_size", c.Worker.QueueSize)
	f.row(t, "batch_max_concurrency", c.Batch.MaxConcurrency)
	f.row(t, "output_precision", c.Output.Precision)
	f.row(t, "output_detailed", c.Output.Detailed)

	t.add("")
	f.header(t, "Metrics")
	f.row(t, "exporter", c.Metrics.Exporter)
	f.row(t, "listen", c.Metrics.Listen)
}
