package batch

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/RyanBlaney/echo-guard/pkg/audio/echo"
)

// Stats represents statistical measures of one score across a batch
type Stats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95" yaml:"p95"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Count  int     `json:"count" yaml:"count"`
}

// Summary aggregates the results of a batch run
type Summary struct {
	Total      int `json:"total" yaml:"total"`
	Echo       int `json:"echo" yaml:"echo"`
	RealSpeech int `json:"real_speech" yaml:"real_speech"`
	Uncertain  int `json:"uncertain" yaml:"uncertain"`
	Failed     int `json:"failed" yaml:"failed"`

	// Rates are over successful pairs
	EchoRate       float64 `json:"echo_rate" yaml:"echo_rate"`
	RealSpeechRate float64 `json:"real_speech_rate" yaml:"real_speech_rate"`

	OverallConfidence    *Stats `json:"overall_confidence" yaml:"overall_confidence"`
	EchoConfidence       *Stats `json:"echo_confidence" yaml:"echo_confidence"`
	RealSpeechConfidence *Stats `json:"real_speech_confidence" yaml:"real_speech_confidence"`
	DetectionTimeMs      *Stats `json:"detection_time_ms" yaml:"detection_time_ms"`
}

// Summarize computes verdict counts and score statistics for results
func Summarize(results []*PairResult) *Summary {
	summary := &Summary{Total: len(results)}

	var overall, echoConf, realConf, elapsed []float64
	for _, r := range results {
		if r.Error != nil || r.Result == nil {
			summary.Failed++
			continue
		}

		switch r.Result.Verdict() {
		case echo.VerdictEcho:
			summary.Echo++
		case echo.VerdictRealSpeech:
			summary.RealSpeech++
		default:
			summary.Uncertain++
		}

		overall = append(overall, r.Result.OverallConfidence)
		echoConf = append(echoConf, r.Result.EchoConfidence)
		realConf = append(realConf, r.Result.RealSpeechConfidence)
		elapsed = append(elapsed, float64(r.Elapsed.Microseconds())/1000)
	}

	if succeeded := summary.Total - summary.Failed; succeeded > 0 {
		summary.EchoRate = float64(summary.Echo) / float64(succeeded)
		summary.RealSpeechRate = float64(summary.RealSpeech) / float64(succeeded)
	}

	summary.OverallConfidence = calculateStats(overall)
	summary.EchoConfidence = calculateStats(echoConf)
	summary.RealSpeechConfidence = calculateStats(realConf)
	summary.DetectionTimeMs = calculateStats(elapsed)

	return summary
}

// calculateStats calculates statistical measures for a dataset
func calculateStats(data []float64) *Stats {
	if len(data) == 0 {
		return &Stats{Count: 0}
	}

	sortedData := slices.Clone(data)
	slices.Sort(sortedData)

	mean, stdDev := stat.PopMeanStdDev(data, nil)

	stats := &Stats{
		Count:  len(data),
		Min:    sortedData[0],
		Max:    sortedData[len(sortedData)-1],
		Median: percentile(sortedData, 50),
		P95:    percentile(sortedData, 95),
		Mean:   mean,
		StdDev: stdDev,
	}

	return sanitizeStats(stats)
}

// sanitizeStats replaces infinite and NaN values so reports always serialize
func sanitizeStats(stats *Stats) *Stats {
	for _, v := range []*float64{&stats.Mean, &stats.Median, &stats.P95, &stats.Min, &stats.Max, &stats.StdDev} {
		if math.IsInf(*v, 0) || math.IsNaN(*v) {
			*v = 0
		}
	}
	return stats
}

// percentile calculates the specified percentile of sorted data with linear interpolation
func percentile(sortedData []float64, p float64) float64 {
	if len(sortedData) == 0 {
		return 0
	}

	if len(sortedData) == 1 {
		return sortedData[0]
	}

	index := (p / 100.0) * float64(len(sortedData)-1)

	// If index is not an integer, interpolate
	if index != math.Trunc(index) {
		lower := int(math.Floor(index))
		upper := int(math.Ceil(index))

		if upper >= len(sortedData) {
			return sortedData[len(sortedData)-1]
		}

		weight := index - float64(lower)
		return sortedData[lower]*(1-weight) + sortedData[upper]*weight
	}

	return sortedData[int(index)]
}
