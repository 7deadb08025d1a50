package quant

import (
	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"github.com/proteomisc/proteomisc/organism"
)

// SummaryRow is one line of the exported per-pair, per-organism ratio
// summary. Field tags drive the TSV export.
type SummaryRow struct {
	Mix      string  `csv:"mix"`
	Pair     string  `csv:"pair"`
	Organism string  `csv:"organism"`
	N        int     `csv:"n_consensus"`
	Mean     float64 `csv:"mean_log2_ratio"`
	Median   float64 `csv:"median_log2_ratio"`
	StdDev   float64 `csv:"stddev_log2_ratio"`
	Expected float64 `csv:"expected_log2_ratio"`
}

// Summarize flattens ratio distributions into one summary row per pair and
// organism, in display order. Pairs contribute a row only for organisms with
// at least one consensus ratio.
func Summarize(pairRatios []PairRatios) ([]SummaryRow, error) {
	var rows []SummaryRow

	for _, pr := range pairRatios {
		for _, org := range organism.Organisms {
			ratios := pr.ByOrganism[org]
			if len(ratios) == 0 {
				continue
			}

			median, err := stats.Median(ratios)
			if err != nil {
				return nil, pfx.Err(err)
			}

			rows = append(rows, SummaryRow{
				Mix:      pr.Pair.Mix,
				Pair:     pr.Label,
				Organism: string(org),
				N:        len(ratios),
				Mean:     stat.Mean(ratios, nil),
				Median:   median,
				StdDev:   stdDevOrZero(ratios),
				Expected: ExpectedLog2Ratio[org],
			})
		}
	}

	if len(rows) == 0 {
		return nil, &EmptyResultError{Msg: "no ratio statistics to summarize"}
	}
	return rows, nil
}

// stdDevOrZero avoids gonum's NaN for single-element samples.
func stdDevOrZero(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}
