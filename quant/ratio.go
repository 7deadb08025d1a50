// Package quant computes the per-organism intensity statistics behind the
// QC charts: consensus-protein log2 ratios for matched sample pairs,
// protein-ID counts, and HeLa-normalized abundances.
package quant

import (
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/proteomisc/proteomisc/diann"
	"github.com/proteomisc/proteomisc/organism"
	"github.com/proteomisc/proteomisc/pairing"
)

// EmptyResultError reports that a computation had no rows to work with, e.g.
// no consensus proteins in any pair. It surfaces to API callers as a 4xx
// response.
type EmptyResultError struct {
	Msg string
}

func (e *EmptyResultError) Error() string {
	return e.Msg
}

// ExpectedLog2Ratio is the theoretical low/high ratio per organism given the
// HEY mix composition: HeLa is constant across conditions, E. coli goes from
// 100 to 25 units (log2(25/100) = -2), yeast from 75 to 150 (log2(150/75) = +1).
var ExpectedLog2Ratio = map[organism.Label]float64{
	organism.HeLa:  0,
	organism.EColi: -2,
	organism.Yeast: 1,
}

// PairRatios holds the full log2 ratio distributions of one sample pair,
// bucketed by organism. Arrays are kept whole (not summarized) because the
// box-plot renderer needs the distribution.
type PairRatios struct {
	Pair       pairing.Pair
	Label      string
	ByOrganism map[organism.Label][]float64
}

// Consensus returns the identifiers present with valid (non-missing,
// strictly positive) primary intensity in both tables, sorted. Only these
// proteins contribute to ratio statistics; proteins missing from either side
// would otherwise dilute the ratio distribution toward zero.
func Consensus(low, high *diann.Table) []string {
	lowValid := low.ValidIntensities()
	highValid := high.ValidIntensities()

	ids := make([]string, 0, len(lowValid))
	for id := range lowValid {
		if _, ok := highValid[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RatiosByOrganism computes log2(low/high) for every consensus protein and
// groups the results by organism. Non-finite ratios are discarded. Rows
// classified as Unknown do not contribute.
func RatiosByOrganism(low, high *diann.Table) map[organism.Label][]float64 {
	lowValid := low.ValidIntensities()
	highValid := high.ValidIntensities()
	labels := low.OrganismOf()

	out := make(map[organism.Label][]float64, len(organism.Organisms))
	for _, id := range Consensus(low, high) {
		label := labels[id]
		if label == organism.Unknown || label == "" {
			continue
		}
		ratio := math.Log2(lowValid[id] / highValid[id])
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			continue
		}
		out[label] = append(out[label], ratio)
	}
	return out
}

// ComparePairs computes ratio distributions for every resolved pair whose
// tables are present in the given map (keyed by SourceFile). Pairs with a
// missing table are skipped. An EmptyResultError is returned when no pair
// yields any classified consensus protein.
func ComparePairs(tables map[string]*diann.Table, pairs []pairing.Pair) ([]PairRatios, error) {
	var out []PairRatios
	any := false

	for _, pair := range pairs {
		low, okLow := tables[pair.Low]
		high, okHigh := tables[pair.High]
		if !okLow || !okHigh {
			continue
		}

		pr := PairRatios{
			Pair:       pair,
			Label:      fmt.Sprintf("%s vs %s", runKey(low), runKey(high)),
			ByOrganism: RatiosByOrganism(low, high),
		}
		for _, ratios := range pr.ByOrganism {
			if len(ratios) > 0 {
				any = true
			}
		}
		out = append(out, pr)
	}

	if !any {
		return nil, &EmptyResultError{Msg: "no consensus proteins found in any sample pair"}
	}
	return out, nil
}

// CountsByOrganism tallies the classified protein rows of a table. Unknown
// rows are excluded from the count chart.
func CountsByOrganism(t *diann.Table) map[organism.Label]int {
	out := make(map[organism.Label]int, len(organism.Organisms))
	for _, row := range t.Rows {
		if row.Organism == organism.Unknown || row.Organism == "" {
			continue
		}
		out[row.Organism]++
	}
	return out
}

var digitsPattern = regexp.MustCompile(`\d+`)

// RunNumber extracts the first integer embedded in the table's primary
// intensity column, which by convention carries the instrument run number.
// Tables without one sort first.
func RunNumber(t *diann.Table) int {
	m := digitsPattern.FindString(diann.Stem(t.PrimaryColumn()))
	if m == "" {
		return 0
	}
	var n int
	fmt.Sscanf(m, "%d", &n)
	return n
}

// runKey is the short per-sample label used on chart axes: the run number
// when the primary column has one, otherwise the sample name.
func runKey(t *diann.Table) string {
	if m := digitsPattern.FindString(diann.Stem(t.PrimaryColumn())); m != "" {
		return m
	}
	return t.SourceFile
}

// SortTables orders tables by run number, then name, for stable chart axes.
func SortTables(tables []*diann.Table) {
	sort.Slice(tables, func(i, j int) bool {
		ni, nj := RunNumber(tables[i]), RunNumber(tables[j])
		if ni != nj {
			return ni < nj
		}
		return tables[i].SourceFile < tables[j].SourceFile
	})
}
