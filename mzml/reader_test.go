package mzml

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// testDocument builds a three-spectrum indexedmzML document: an MS1 scan
// with an explicit TIC, an MS2 scan (must be excluded from the trace), and
// an MS1 scan without a TIC param whose value has to be recomputed from its
// 64-bit binary intensity array.
func testDocument() string {
	intensities := []float64{1.5, 2.5, 6.0}
	raw := make([]byte, 8*len(intensities))
	for i, v := range intensities {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<indexedmzML xmlns="http://psi.hupo.org/ms/mzml">
 <mzML>
  <run id="qc_run">
   <spectrumList count="3">
    <spectrum index="0" id="scan=1" defaultArrayLength="0">
     <cvParam accession="MS:1000511" name="ms level" value="1"/>
     <cvParam accession="MS:1000285" name="total ion current" value="1000"/>
     <scanList count="1">
      <scan>
       <cvParam accession="MS:1000016" name="scan start time" value="0.5" unitAccession="UO:0000031"/>
      </scan>
     </scanList>
    </spectrum>
    <spectrum index="1" id="scan=2" defaultArrayLength="0">
     <cvParam accession="MS:1000511" name="ms level" value="2"/>
     <cvParam accession="MS:1000285" name="total ion current" value="99"/>
     <scanList count="1">
      <scan>
       <cvParam accession="MS:1000016" name="scan start time" value="31" unitAccession="UO:0000010"/>
      </scan>
     </scanList>
    </spectrum>
    <spectrum index="2" id="scan=3" defaultArrayLength="3">
     <cvParam accession="MS:1000511" name="ms level" value="1"/>
     <scanList count="1">
      <scan>
       <cvParam accession="MS:1000016" name="scan start time" value="32" unitAccession="UO:0000010"/>
      </scan>
     </scanList>
     <binaryDataArrayList count="1">
      <binaryDataArray encodedLength="%d">
       <cvParam accession="MS:1000515" name="intensity array"/>
       <cvParam accession="MS:1000523" name="64-bit float"/>
       <binary>%s</binary>
      </binaryDataArray>
     </binaryDataArrayList>
    </spectrum>
   </spectrumList>
  </run>
 </mzML>
</indexedmzML>`, len(encoded), encoded)
}

func TestRead(t *testing.T) {
	f, err := Read(strings.NewReader(testDocument()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if n := f.NumSpectra(); n != 3 {
		t.Fatalf("NumSpectra = %d, want 3", n)
	}

	level, err := f.MSLevel(1)
	if err != nil || level != 2 {
		t.Errorf("MSLevel(1) = %d, %v; want 2", level, err)
	}
	if _, err := f.MSLevel(3); err != ErrInvalidScanIndex {
		t.Errorf("MSLevel(3) error = %v, want ErrInvalidScanIndex", err)
	}

	// Minutes convert to seconds.
	rt, err := f.RetentionTime(0)
	if err != nil || rt != 30 {
		t.Errorf("RetentionTime(0) = %v, %v; want 30", rt, err)
	}

	tic, err := f.TotalIonCurrent(0)
	if err != nil || tic != 1000 {
		t.Errorf("TotalIonCurrent(0) = %v, %v; want 1000", tic, err)
	}

	// No TIC param: recomputed from the binary intensity array.
	tic, err = f.TotalIonCurrent(2)
	if err != nil || tic != 10 {
		t.Errorf("TotalIonCurrent(2) = %v, %v; want 10", tic, err)
	}
}

func TestTICChromatogram(t *testing.T) {
	f, err := Read(strings.NewReader(testDocument()))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	points, err := f.TICChromatogram()
	if err != nil {
		t.Fatalf("TICChromatogram: %v", err)
	}

	// The MS2 spectrum must not appear in the trace.
	want := []TICPoint{
		{RetentionTime: 30, Intensity: 1000},
		{RetentionTime: 32, Intensity: 10},
	}
	if diff := cmp.Diff(want, points); diff != "" {
		t.Errorf("chromatogram mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTruncated(t *testing.T) {
	var parseErr *ParseError
	_, err := Read(strings.NewReader(`<?xml version="1.0"?><mzML xmlns="http://psi.hupo.org/ms/mzml"><run><spectrumList><spectrum index="0"`))
	if !errors.As(err, &parseErr) {
		t.Errorf("truncated document: %v, want ParseError", err)
	}
}

func TestReadNoSpectra(t *testing.T) {
	_, err := Read(strings.NewReader(`<?xml version="1.0"?><mzML xmlns="http://psi.hupo.org/ms/mzml"><run id="empty"/></mzML>`))
	if err != ErrNoSpectra {
		t.Errorf("Read empty run: %v, want ErrNoSpectra", err)
	}
}
