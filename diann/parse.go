package diann

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"

	"github.com/proteomisc/proteomisc"
	"github.com/proteomisc/proteomisc/organism"
)

// ParseError reports an input file that could not be interpreted as a DIA-NN
// protein-group matrix. It surfaces to API callers as a 4xx response.
type ParseError struct {
	File   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

// DIA-NN emits different identifier columns depending on version and
// settings; prefer the most human-readable one available.
var proteinColumnPreference = []string{"Protein.Names", "Protein.Group", "Protein.Ids"}

// Parse reads a protein-group matrix from r. The filename is used for the
// table's SourceFile and for error messages; pass the name as uploaded.
//
// A table must have an identifier column and at least one per-sample
// intensity column (headers containing ".raw"); otherwise a ParseError is
// returned. Intensity cells that are empty or non-numeric become invalid
// nulls rather than failing the parse.
func Parse(r io.Reader, filename string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{File: filename, Reason: "file is empty"}
	}

	delim := proteomisc.DetermineDelimiter(bytes.NewReader(data))

	csvr := csv.NewReader(bytes.NewReader(data))
	csvr.Comma = delim
	csvr.LazyQuotes = true
	csvr.FieldsPerRecord = -1

	header, err := csvr.Read()
	if err != nil {
		return nil, &ParseError{File: filename, Reason: fmt.Sprintf("cannot read header: %v", err)}
	}

	protIdx := proteinColumnIndex(header)
	if protIdx < 0 {
		return nil, &ParseError{File: filename, Reason: "no protein identifier column found"}
	}

	var intensityIdx []int
	var intensityCols []string
	for i, col := range header {
		if i == protIdx {
			continue
		}
		if strings.Contains(strings.ToLower(col), ".raw") {
			intensityIdx = append(intensityIdx, i)
			intensityCols = append(intensityCols, col)
		}
	}
	if len(intensityIdx) == 0 {
		return nil, &ParseError{File: filename, Reason: "no per-sample intensity columns (.raw) found"}
	}

	table := &Table{
		SourceFile:       Stem(filename),
		ProteinColumn:    header[protIdx],
		IntensityColumns: intensityCols,
	}

	for {
		record, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{File: filename, Reason: fmt.Sprintf("malformed row: %v", err)}
		}
		if protIdx >= len(record) {
			continue
		}

		row := Row{
			Identifier:  record[protIdx],
			Organism:    organism.Classify(record[protIdx]),
			Intensities: make([]null.Float, len(intensityIdx)),
		}
		for j, idx := range intensityIdx {
			row.Intensities[j] = parseIntensity(record, idx)
		}

		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func proteinColumnIndex(header []string) int {
	for _, preferred := range proteinColumnPreference {
		for i, col := range header {
			if col == preferred {
				return i
			}
		}
	}

	// Fall back to anything that looks like a protein column.
	for i, col := range header {
		if strings.Contains(strings.ToLower(col), "protein") {
			return i
		}
	}

	return -1
}

func parseIntensity(record []string, idx int) null.Float {
	if idx >= len(record) {
		return null.NewFloat(0, false)
	}

	cell := strings.TrimSpace(record[idx])
	if cell == "" {
		return null.NewFloat(0, false)
	}

	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return null.NewFloat(0, false)
	}

	return null.FloatFrom(v)
}
