// Package mzml reads mzML mass-spectrometry instrument files. Only the
// pieces the QC charts need are decoded: per-spectrum CV params (MS level,
// retention time, total ion current) and, when an instrument omits the TIC
// param, the binary intensity arrays it can be recomputed from.
package mzml

import (
	"errors"
)

// Run holds the spectra of one parsed mzML file.
type Run struct {
	spectra []spectrum
}

// TICPoint is one sample of the MS1 total-ion-current trace.
type TICPoint struct {
	// RetentionTime in seconds.
	RetentionTime float64
	Intensity     float64
}

var (
	// ErrInvalidScanIndex means a spectrum index out of range was supplied.
	ErrInvalidScanIndex = errors.New("mzml: invalid scan index")
	// ErrNoSpectra means the file contained no spectrum elements.
	ErrNoSpectra = errors.New("mzml: no spectra found")
)

// ParseError reports a document that could not be decoded as mzML, e.g. a
// truncated upload. It surfaces to API callers as a 4xx response.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "mzml: " + e.Reason
}

// CV accessions used by this reader
// (http://www.peptideatlas.org/tmp/mzML1.1.0.html).
const (
	cvMSLevel         = "MS:1000511"
	cvRetentionTime   = "MS:1000016"
	cvTotalIonCurrent = "MS:1000285"
	cvIntensityArray  = "MS:1000515"
	cvMzArray         = "MS:1000514"
	cvZlibCompression = "MS:1000574"
	cv64Bit           = "MS:1000523"

	// Unit accessions for retention time in minutes.
	uoMinute = "UO:0000031"
	msMinute = "MS:1000038"
)

type spectrum struct {
	Index               int                 `xml:"index,attr"`
	ID                  string              `xml:"id,attr"`
	DefaultArrayLength  int64               `xml:"defaultArrayLength,attr"`
	CvPar               []cvParam           `xml:"cvParam"`
	ScanList            scanList            `xml:"scanList"`
	BinaryDataArrayList binaryDataArrayList `xml:"binaryDataArrayList"`
}

type scanList struct {
	Scan []scan `xml:"scan"`
}

type scan struct {
	CvPar []cvParam `xml:"cvParam"`
}

type binaryDataArrayList struct {
	BinaryDataArray []binaryDataArray `xml:"binaryDataArray"`
}

type binaryDataArray struct {
	CvPar  []cvParam `xml:"cvParam"`
	Binary string    `xml:"binary"`
}

type cvParam struct {
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
}

func findCvParam(params []cvParam, accession string) (cvParam, bool) {
	for _, p := range params {
		if p.Accession == accession {
			return p, true
		}
	}
	return cvParam{}, false
}
