// Package organism labels protein identifiers with their source organism.
//
// HEY-mix QC samples contain proteins from exactly three organisms (HeLa
// human cells, E. coli, and yeast), and every downstream statistic is
// bucketed by that label. Classification is a pure function of the
// identifier string: ordered case-insensitive substring rules, first match
// wins.
package organism

import "strings"

// Label names one of the organisms that may contribute proteins to a sample.
type Label string

const (
	HeLa    Label = "HeLa"
	EColi   Label = "E.coli"
	Yeast   Label = "Yeast"
	Unknown Label = "Unknown"
)

// Organisms lists the labels that participate in HEY-mix statistics, in
// display order. Unknown is deliberately excluded: unclassified rows never
// contribute to counts or ratios.
var Organisms = []Label{HeLa, EColi, Yeast}

// Rule maps marker substrings to an organism label. Markers must be
// uppercase; identifiers are uppercased before comparison.
type Rule struct {
	Label   Label
	Markers []string
}

// DefaultRules covers the identifier conventions seen in UniProt-style
// protein names and DIA-NN protein groups. The Shigella markers are grouped
// with E. coli because the organisms are indistinguishable at the proteome
// level for QC purposes.
var DefaultRules = []Rule{
	{Label: HeLa, Markers: []string{"HUMAN", "HOMO_SAPIENS"}},
	{Label: EColi, Markers: []string{
		"ECOLI", "ECOL", "ECO2", "ECO5", "ECO7",
		"SHIF", "SHIB", "SHIS", "ESCHERICHIA",
	}},
	{Label: Yeast, Markers: []string{"YEAST", "SACCHAROMYCES", "CEREVISIAE"}},
}

// Matcher applies an ordered rule set. Rules are evaluated in order and the
// first rule with a matching marker wins, so overlapping marker sets behave
// deterministically.
type Matcher struct {
	rules []Rule
}

func NewMatcher(rules []Rule) *Matcher {
	return &Matcher{rules: rules}
}

// Classify returns the label for the given protein identifier. An empty or
// unrecognized identifier yields Unknown.
func (m *Matcher) Classify(identifier string) Label {
	if identifier == "" {
		return Unknown
	}

	upper := strings.ToUpper(identifier)
	for _, rule := range m.rules {
		for _, marker := range rule.Markers {
			if strings.Contains(upper, marker) {
				return rule.Label
			}
		}
	}

	return Unknown
}

var defaultMatcher = NewMatcher(DefaultRules)

// Classify labels an identifier using the default rule set.
func Classify(identifier string) Label {
	return defaultMatcher.Classify(identifier)
}
