package extractors

// MelBandCount is the fixed number of bands produced by ExtractMelBands
const MelBandCount = 26

// ExtractMelBands collapses a magnitude spectrum into MelBandCount equal-width
// bands, each the mean of its bins. Bins past MelBandCount*(M/MelBandCount)
// are dropped. Bands with no bins (M < MelBandCount) are 0.
func ExtractMelBands(magnitude []float64) []float64 {
	bands := make([]float64, MelBandCount)
	binsPerBand := len(magnitude) / MelBandCount

	for i := range MelBandCount {
		start := i * binsPerBand
		end := min(start+binsPerBand, len(magnitude))
		if start >= end {
			continue
		}

		sum := 0.0
		for _, mag := range magnitude[start:end] {
			sum += mag
		}
		bands[i] = sum / float64(end-start)
	}

	return bands
}
