package main

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/proteomisc/proteomisc/cache"
	"github.com/proteomisc/proteomisc/diann"
	"github.com/proteomisc/proteomisc/mzml"
)

const lowReport = `Protein.Names	run_440960_E25.raw
ALBU_HUMAN	100
ACEA_ECOLI	25
ADH1_YEAST	150
`

const highReport = `Protein.Names	run_440961_E100.raw
ALBU_HUMAN	100
ACEA_ECOLI	100
ADH1_YEAST	75
`

const sampleMzML = `<?xml version="1.0" encoding="UTF-8"?>
<mzML xmlns="http://psi.hupo.org/ms/mzml" version="1.1.0">
  <run id="r1">
    <spectrumList count="2">
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
        <cvParam accession="MS:1000511" name="ms level" value="1"/>
        <cvParam accession="MS:1000285" name="total ion current" value="2000"/>
        <scanList count="1">
          <scan>
            <cvParam accession="MS:1000016" name="scan start time" value="1.0" unitAccession="UO:0000031"/>
          </scan>
        </scanList>
      </spectrum>
    </spectrumList>
  </run>
</mzML>
`

func newTestServer() http.Handler {
	g := &Global{
		Site:           "msppweb-test",
		log:            log.New(io.Discard, "", 0),
		MaxUploadBytes: 32 << 20,
		tables:         cache.NewStore[*diann.Table](),
		runs:           cache.NewStore[*mzml.Run](),
	}
	return router(g)
}

func upload(t *testing.T, srv http.Handler, target string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func uploadReports(t *testing.T, srv http.Handler) {
	t.Helper()

	rec := upload(t, srv, "/api/upload", map[string]string{
		"report.pg_matrix_E25_mix1.tsv":  lowReport,
		"report.pg_matrix_E100_mix1.tsv": highReport,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func decodeImage(t *testing.T, rec *httptest.ResponseRecorder) []byte {
	t.Helper()

	var resp struct {
		Image string `json:"image"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("image body: %v", err)
	}
	img, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		t.Fatalf("image base64: %v", err)
	}
	return img
}

func TestHealth(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("status %q", resp.Status)
	}
}

func TestPlotWithoutUploads(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/plot/bar-chart", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "please upload files first" {
		t.Errorf("error %q", msg)
	}
}

func TestUploadAndPlot(t *testing.T) {
	srv := newTestServer()
	uploadReports(t, srv)

	// The removed "pattern" grouping key is still accepted and ignored.
	body := strings.NewReader(`{"width":600,"height":600,"pattern":"mix"}`)
	req := httptest.NewRequest("POST", "/api/plot/sample-comparison", body)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	img := decodeImage(t, rec)
	cfg, err := png.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 600 || cfg.Height != 600 {
		t.Errorf("image %dx%d, want 600x600", cfg.Width, cfg.Height)
	}
}

func TestPlotThumbnail(t *testing.T) {
	srv := newTestServer()
	uploadReports(t, srv)

	req := httptest.NewRequest("POST", "/api/plot/bar-chart?thumb=1", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(decodeImage(t, rec)))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != thumbWidth {
		t.Errorf("thumbnail width %d, want %d", cfg.Width, thumbWidth)
	}
}

func TestPlotUnknownChart(t *testing.T) {
	srv := newTestServer()
	uploadReports(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/plot/volcano", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "volcano") {
		t.Errorf("error %q", msg)
	}
}

func TestUploadMalformed(t *testing.T) {
	srv := newTestServer()

	rec := upload(t, srv, "/api/upload", map[string]string{
		"junk.tsv": "foo\tbar\n1\t2\n",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "protein") {
		t.Errorf("error %q", msg)
	}
}

func TestUploadTruncatedMzML(t *testing.T) {
	srv := newTestServer()

	rec := upload(t, srv, "/api/upload/mzml", map[string]string{
		"broken.mzML": `<?xml version="1.0"?><mzML xmlns="http://psi.hupo.org/ms/mzml"><run><spectrumList><spectrum index="0"`,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if msg := decodeError(t, rec); !strings.Contains(msg, "broken.mzML") {
		t.Errorf("error %q", msg)
	}
}

func TestUploadMzMLAndPlotTIC(t *testing.T) {
	srv := newTestServer()

	rec := upload(t, srv, "/api/upload/mzml", map[string]string{
		"run_440960.mzML": sampleMzML,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/plot/tic", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("plot status %d: %s", rec.Code, rec.Body.String())
	}
	if img := decodeImage(t, rec); len(img) == 0 {
		t.Error("empty image")
	}
}

func TestListAndClearFiles(t *testing.T) {
	srv := newTestServer()
	uploadReports(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/files", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}

	var listing struct {
		TSV []struct {
			Name   string `json:"name"`
			Digest string `json:"digest"`
		} `json:"tsv"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.TSV) != 2 {
		t.Fatalf("listed %d tsv files, want 2", len(listing.TSV))
	}
	if listing.TSV[0].Digest == "" {
		t.Error("missing digest")
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/files", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/plot/bar-chart", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("plot after clear: status %d", rec.Code)
	}
}

func TestExportChart(t *testing.T) {
	srv := newTestServer()
	uploadReports(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/export/bar-chart", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type %q", ct)
	}
	if _, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes())); err != nil {
		t.Errorf("body is not a PNG: %v", err)
	}
}

func TestExportAll(t *testing.T) {
	srv := newTestServer()
	uploadReports(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("POST", "/api/export/all", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatal(err)
	}

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"bar-chart.png", "sample-comparison.png", "abundance.png"} {
		if !names[want] {
			t.Errorf("archive missing %s", want)
		}
	}
	// No mzML uploads, so the TIC chart is skipped.
	if names["tic.png"] {
		t.Error("archive unexpectedly contains tic.png")
	}
}

func TestExportSummary(t *testing.T) {
	srv := newTestServer()
	uploadReports(t, srv)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest("GET", "/api/export/summary", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	if !strings.Contains(body, "mean_log2_ratio") {
		t.Errorf("missing header in %q", body)
	}

	// One consensus protein per organism in the fixture, at exactly the
	// expected ratios: n=1, mean=median=-2, stddev=0, expected=-2.
	if !strings.Contains(body, "E.coli\t1\t-2\t-2\t0\t-2") {
		t.Errorf("missing E.coli summary row in %q", body)
	}
	if !strings.Contains(body, "Yeast\t1\t1\t1\t0\t1") {
		t.Errorf("missing Yeast summary row in %q", body)
	}
}
