// Package diann parses DIA-NN protein-group matrix reports into typed,
// in-memory tables. A report is a tab-separated file with one row per
// protein group, an identifier column, and one intensity column per
// instrument raw file.
package diann

import (
	"path/filepath"
	"strings"

	"gopkg.in/guregu/null.v3"

	"github.com/proteomisc/proteomisc/organism"
)

// Table is one parsed protein-group matrix.
type Table struct {
	// SourceFile is the base name of the originating report, without
	// directory or extension. It is the cache key for the table.
	SourceFile string

	// ProteinColumn is the header of the column the identifiers came from.
	ProteinColumn string

	// IntensityColumns holds the headers of the per-sample intensity
	// columns, in file order. The first one is the primary column used for
	// ratio statistics.
	IntensityColumns []string

	Rows []Row
}

// Row is a single protein group. Intensities are aligned with the table's
// IntensityColumns; missing or unparseable cells are invalid nulls.
type Row struct {
	Identifier  string
	Organism    organism.Label
	Intensities []null.Float
}

// PrimaryColumn returns the header of the first intensity column.
func (t *Table) PrimaryColumn() string {
	return t.IntensityColumns[0]
}

// ValidIntensities maps each identifier to its primary-column intensity,
// restricted to rows where that intensity is present and strictly positive.
// When an identifier occurs more than once, the first occurrence wins.
func (t *Table) ValidIntensities() map[string]float64 {
	out := make(map[string]float64, len(t.Rows))
	for _, row := range t.Rows {
		v := row.Intensities[0]
		if !v.Valid || v.Float64 <= 0 {
			continue
		}
		if _, seen := out[row.Identifier]; seen {
			continue
		}
		out[row.Identifier] = v.Float64
	}
	return out
}

// OrganismOf maps each identifier to its label, first occurrence winning.
func (t *Table) OrganismOf() map[string]organism.Label {
	out := make(map[string]organism.Label, len(t.Rows))
	for _, row := range t.Rows {
		if _, seen := out[row.Identifier]; seen {
			continue
		}
		out[row.Identifier] = row.Organism
	}
	return out
}

// Stem strips the directory, a possible compression extension, and the file
// extension from a report filename, mirroring how sample names appear in
// instrument worklists: "runs/report.pg_matrix_E25_mix1.tsv.gz" becomes
// "report.pg_matrix_E25_mix1".
func Stem(filename string) string {
	base := filepath.Base(filename)
	for _, compressed := range []string{".gz", ".xz", ".bz2", ".zip", ".z"} {
		if strings.EqualFold(filepath.Ext(base), compressed) {
			base = strings.TrimSuffix(base, filepath.Ext(base))
			break
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
