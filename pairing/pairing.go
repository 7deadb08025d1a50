// Package pairing groups uploaded sample files into low/high concentration
// pairs based on tokens embedded in their filenames.
//
// HEY-mix QC runs come in two conditions that differ only in the E. coli and
// yeast spike-in amounts: the low condition is acquired as E25 (or Y150) and
// the high condition as E100 (or Y75). Instrument operators encode the
// condition token and a mix identifier in the report filename, e.g.
// "report.pg_matrix_E25_30_4_440960_600". Files sharing a mix identifier
// across the two conditions form a pair.
package pairing

import (
	"regexp"
	"sort"
)

// Condition tokens appear with optional "-" or "_" separators and any case.
// The low pattern is checked first; a file matching neither is ignored.
var (
	lowPattern  = regexp.MustCompile(`(?i)E[-_]?25|Y[-_]?150`)
	highPattern = regexp.MustCompile(`(?i)E[-_]?100|Y[-_]?75`)
	mixPattern  = regexp.MustCompile(`(?i)(?:E[-_]?(?:25|100)|Y[-_]?(?:150|75))[-_](.*)`)
)

// Pair associates the two files of one mix: Low is the lower-concentration
// condition (E25/Y150), High the higher one (E100/Y75).
type Pair struct {
	Mix  string
	Low  string
	High string
}

// PairingError reports that no valid matched sample pair could be formed
// from the given filenames. It surfaces to API callers as a 4xx response.
type PairingError struct {
	Msg string
}

func (e *PairingError) Error() string {
	return e.Msg
}

// MixIdentifier extracts the filename substring following the condition
// token. It returns "" when the name carries no recognizable mix suffix.
func MixIdentifier(name string) string {
	m := mixPattern.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsLowCondition reports whether the filename carries a low-concentration
// condition token. Low takes precedence: a name matching both patterns is
// treated as low.
func IsLowCondition(name string) bool {
	return lowPattern.MatchString(name)
}

// IsHighCondition reports whether the filename carries a high-concentration
// condition token and no low token.
func IsHighCondition(name string) bool {
	return !lowPattern.MatchString(name) && highPattern.MatchString(name)
}

// Resolve groups filenames into condition pairs. Pairing is strict when mix
// identifiers are present: files sharing a suffix are paired, and files
// whose group lacks the opposite condition (or that duplicate an occupied
// slot) are returned as singlets. When no filename carries a usable suffix,
// Resolve falls back to pairing the sorted low list against the sorted high
// list by index.
//
// Filenames matching neither condition token are ignored entirely. A
// PairingError is returned when no pair can be formed.
func Resolve(names []string) ([]Pair, []string, error) {
	var lows, highs []string
	for _, name := range names {
		switch {
		case IsLowCondition(name):
			lows = append(lows, name)
		case IsHighCondition(name):
			highs = append(highs, name)
		}
	}
	sort.Strings(lows)
	sort.Strings(highs)

	type slot struct {
		low  string
		high string
	}

	groups := make(map[string]*slot)
	var singlets []string

	place := func(name string, isLow bool) {
		mix := MixIdentifier(name)
		if mix == "" {
			singlets = append(singlets, name)
			return
		}
		g := groups[mix]
		if g == nil {
			g = &slot{}
			groups[mix] = g
		}
		if isLow {
			if g.low != "" {
				singlets = append(singlets, name)
				return
			}
			g.low = name
		} else {
			if g.high != "" {
				singlets = append(singlets, name)
				return
			}
			g.high = name
		}
	}

	for _, name := range lows {
		place(name, true)
	}
	for _, name := range highs {
		place(name, false)
	}

	var pairs []Pair
	for mix, g := range groups {
		if g.low != "" && g.high != "" {
			pairs = append(pairs, Pair{Mix: mix, Low: g.low, High: g.high})
			continue
		}
		// Group lacks one of the two expected conditions.
		if g.low != "" {
			singlets = append(singlets, g.low)
		}
		if g.high != "" {
			singlets = append(singlets, g.high)
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Mix < pairs[j].Mix })

	if len(pairs) == 0 && len(lows) > 0 && len(highs) > 0 {
		// No suffix matches at all; pair by sorted index instead.
		n := len(lows)
		if len(highs) < n {
			n = len(highs)
		}
		pairs = pairs[:0]
		singlets = nil
		for i := 0; i < n; i++ {
			pairs = append(pairs, Pair{Low: lows[i], High: highs[i]})
		}
		singlets = append(singlets, lows[n:]...)
		singlets = append(singlets, highs[n:]...)
	}

	if len(pairs) == 0 {
		return nil, singlets, &PairingError{Msg: "no valid matched sample pair found"}
	}

	sort.Strings(singlets)
	return pairs, singlets, nil
}
