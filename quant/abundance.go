package quant

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/proteomisc/proteomisc/diann"
	"github.com/proteomisc/proteomisc/organism"
)

// NormalizedAbundances returns the log2 intensities of one organism's
// proteins in a sample, normalized to the sample's HeLa median. Since HeLa
// is spiked at constant concentration across all HEY runs, dividing by its
// median cancels per-run loading differences. Returns nil when the sample
// has no valid rows for the organism.
func NormalizedAbundances(t *diann.Table, org organism.Label) []float64 {
	values := organismIntensities(t, org)
	if len(values) == 0 {
		return nil
	}

	reference := helaMedian(t)

	out := make([]float64, 0, len(values))
	for _, v := range values {
		normalized := math.Log2(v / reference)
		if math.IsNaN(normalized) || math.IsInf(normalized, 0) {
			continue
		}
		out = append(out, normalized)
	}
	return out
}

// helaMedian is the normalization reference for a sample. Samples without
// HeLa rows fall back to 1.0, leaving intensities un-normalized rather than
// failing the whole chart.
func helaMedian(t *diann.Table) float64 {
	hela := organismIntensities(t, organism.HeLa)
	if len(hela) == 0 {
		return 1.0
	}
	median, err := stats.Median(hela)
	if err != nil || median <= 0 {
		return 1.0
	}
	return median
}

// organismIntensities collects the valid positive primary intensities of
// all rows with the given label.
func organismIntensities(t *diann.Table, org organism.Label) []float64 {
	var out []float64
	for _, row := range t.Rows {
		if row.Organism != org {
			continue
		}
		v := row.Intensities[0]
		if !v.Valid || v.Float64 <= 0 {
			continue
		}
		out = append(out, v.Float64)
	}
	return out
}
