package mzml

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/carbocation/pfx"
	"golang.org/x/net/html/charset"
)

// Read parses an mzML document from r. Spectra are decoded one element at a
// time, so wrappers like indexedmzML and all metadata sections are skipped
// without being held in memory.
func Read(r io.Reader) (*Run, error) {
	d := xml.NewDecoder(r)
	d.CharsetReader = charset.NewReaderLabel

	var run Run
	for {
		t, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Reason: err.Error()}
		}

		start, ok := t.(xml.StartElement)
		if !ok || start.Name.Local != "spectrum" {
			continue
		}

		var spec spectrum
		if err := d.DecodeElement(&spec, &start); err != nil {
			return nil, &ParseError{Reason: err.Error()}
		}
		run.spectra = append(run.spectra, spec)
	}

	if len(run.spectra) == 0 {
		return nil, ErrNoSpectra
	}
	return &run, nil
}

// NumSpectra returns the number of spectra in the run.
func (f *Run) NumSpectra() int {
	return len(f.spectra)
}

// MSLevel returns the MS level of a spectrum. Spectra without the CV param
// are assumed to be MS1.
func (f *Run) MSLevel(scanIndex int) (int, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpectra() {
		return 0, ErrInvalidScanIndex
	}

	if p, ok := findCvParam(f.spectra[scanIndex].CvPar, cvMSLevel); ok {
		level, err := strconv.ParseInt(p.Value, 10, 64)
		return int(level), err
	}
	return 1, nil
}

// RetentionTime returns the retention time of a spectrum in seconds, or -1
// when the spectrum carries none.
func (f *Run) RetentionTime(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpectra() {
		return 0, ErrInvalidScanIndex
	}

	for _, scan := range f.spectra[scanIndex].ScanList.Scan {
		if p, ok := findCvParam(scan.CvPar, cvRetentionTime); ok {
			rt, err := strconv.ParseFloat(p.Value, 64)
			if p.UnitAccession == uoMinute || p.UnitAccession == msMinute {
				rt *= 60
			}
			return rt, err
		}
	}
	return -1, nil
}

// TotalIonCurrent returns the summed ion intensity of a spectrum. Most
// instruments record it as a CV param; when absent it is recomputed from the
// spectrum's binary intensity array. Returns NaN when neither is available.
func (f *Run) TotalIonCurrent(scanIndex int) (float64, error) {
	if scanIndex < 0 || scanIndex >= f.NumSpectra() {
		return 0, ErrInvalidScanIndex
	}

	if p, ok := findCvParam(f.spectra[scanIndex].CvPar, cvTotalIonCurrent); ok {
		return strconv.ParseFloat(p.Value, 64)
	}

	intensities, err := f.intensityArray(scanIndex)
	if err != nil {
		return 0, err
	}
	if intensities == nil {
		return math.NaN(), nil
	}

	sum := 0.0
	for _, v := range intensities {
		sum += v
	}
	return sum, nil
}

// TICChromatogram assembles the MS1 total-ion-current trace of the run,
// sorted by retention time. Spectra without a usable TIC are skipped.
func (f *Run) TICChromatogram() ([]TICPoint, error) {
	points := make([]TICPoint, 0, f.NumSpectra())

	for i := range f.spectra {
		level, err := f.MSLevel(i)
		if err != nil {
			return nil, pfx.Err(err)
		}
		if level != 1 {
			continue
		}

		tic, err := f.TotalIonCurrent(i)
		if err != nil {
			return nil, pfx.Err(err)
		}
		if math.IsNaN(tic) {
			continue
		}

		rt, err := f.RetentionTime(i)
		if err != nil {
			return nil, pfx.Err(err)
		}

		points = append(points, TICPoint{RetentionTime: rt, Intensity: tic})
	}

	sort.Slice(points, func(i, j int) bool { return points[i].RetentionTime < points[j].RetentionTime })
	return points, nil
}

// intensityArray decodes the binary intensity array of a spectrum, or nil
// when the spectrum has none.
func (f *Run) intensityArray(scanIndex int) ([]float64, error) {
	for _, array := range f.spectra[scanIndex].BinaryDataArrayList.BinaryDataArray {
		if _, ok := findCvParam(array.CvPar, cvIntensityArray); !ok {
			continue
		}

		data, err := base64.StdEncoding.DecodeString(array.Binary)
		if err != nil {
			return nil, pfx.Err(err)
		}

		if _, compressed := findCvParam(array.CvPar, cvZlibCompression); compressed {
			z, err := zlib.NewReader(bytes.NewReader(data))
			if err != nil {
				return nil, pfx.Err(err)
			}
			data, err = io.ReadAll(z)
			z.Close()
			if err != nil {
				return nil, pfx.Err(err)
			}
		}

		_, bits64 := findCvParam(array.CvPar, cv64Bit)
		return decodeFloats(data, bits64), nil
	}
	return nil, nil
}

func decodeFloats(data []byte, bits64 bool) []float64 {
	if bits64 {
		out := make([]float64, len(data)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
		}
		return out
	}

	out := make([]float64, len(data)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return out
}
