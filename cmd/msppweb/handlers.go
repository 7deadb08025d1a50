package main

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/gorilla/mux"
	"github.com/minio/blake2b-simd"

	"github.com/proteomisc/proteomisc"
	"github.com/proteomisc/proteomisc/chart"
	"github.com/proteomisc/proteomisc/diann"
	"github.com/proteomisc/proteomisc/mzml"
	"github.com/proteomisc/proteomisc/organism"
	"github.com/proteomisc/proteomisc/pairing"
	"github.com/proteomisc/proteomisc/quant"
)

// Width of the inline preview variant requested with ?thumb=1.
const thumbWidth = 480

var chartNames = []string{"bar-chart", "sample-comparison", "abundance", "tic"}

func (h *handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Status    string `json:"status"`
		TSVFiles  int    `json:"tsv_files"`
		MzMLFiles int    `json:"mzml_files"`
	}{"ok", h.tables.Len(), h.runs.Len()})
}

func (h *handler) UploadTables(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		JSONError(h, w, r, fmt.Errorf("no files in upload"), http.StatusBadRequest)
		return
	}

	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			JSONError(h, w, r, err, http.StatusBadRequest)
			return
		}

		table, err := diann.Parse(bytes.NewReader(data), fh.Filename)
		if err != nil {
			JSONError(h, w, r, err, statusFor(err))
			return
		}

		h.tables.Put(table.SourceFile, table, digest(data))
	}

	writeJSON(w, struct {
		Files []string `json:"files"`
	}{h.tables.Names()})
}

func (h *handler) UploadRuns(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		JSONError(h, w, r, fmt.Errorf("no files in upload"), http.StatusBadRequest)
		return
	}

	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			JSONError(h, w, r, err, http.StatusBadRequest)
			return
		}

		run, err := mzml.Read(bytes.NewReader(data))
		if err != nil {
			JSONError(h, w, r, fmt.Errorf("%s: %w", fh.Filename, err), statusFor(err))
			return
		}

		h.runs.Put(diann.Stem(fh.Filename), run, digest(data))
	}

	writeJSON(w, struct {
		Files []string `json:"files"`
	}{h.runs.Names()})
}

type fileEntry struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
}

func (h *handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		TSV  []fileEntry `json:"tsv"`
		MzML []fileEntry `json:"mzml"`
	}{
		fileEntries(h.tables.Names(), h.tables.Digests()),
		fileEntries(h.runs.Names(), h.runs.Digests()),
	})
}

func (h *handler) ClearFiles(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("type") {
	case "":
		h.tables.Clear()
		h.runs.Clear()
	case "tsv":
		h.tables.Clear()
	case "mzml":
		h.runs.Clear()
	default:
		JSONError(h, w, r, fmt.Errorf("unknown file type %q", r.URL.Query().Get("type")), http.StatusBadRequest)
		return
	}

	writeJSON(w, struct {
		Status string `json:"status"`
	}{"cleared"})
}

func (h *handler) Plot(w http.ResponseWriter, r *http.Request) {
	size, err := parsePlotRequest(r)
	if err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	img, err := h.renderChart(mux.Vars(r)["chart"], size)
	if err != nil {
		JSONError(h, w, r, err, statusFor(err))
		return
	}

	if r.URL.Query().Get("thumb") == "1" {
		if img, err = chart.Thumbnail(img, thumbWidth); err != nil {
			JSONError(h, w, r, err)
			return
		}
	}

	writeJSON(w, struct {
		Image string `json:"image"`
	}{base64.StdEncoding.EncodeToString(img)})
}

func (h *handler) ExportChart(w http.ResponseWriter, r *http.Request) {
	size, err := parsePlotRequest(r)
	if err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	name := mux.Vars(r)["chart"]
	img, err := h.renderChart(name, size)
	if err != nil {
		JSONError(h, w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.png"`, name))
	w.Write(img)
}

func (h *handler) ExportAll(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	rendered := 0
	for _, name := range chartNames {
		img, err := h.renderChart(name, chart.Size{})
		if err != nil {
			// Charts whose inputs are absent are skipped rather than
			// failing the whole archive.
			if statusFor(err) == http.StatusBadRequest {
				h.log.Println("skipping", name, "in archive:", err)
				continue
			}
			JSONError(h, w, r, err)
			return
		}

		f, err := zw.Create(name + ".png")
		if err != nil {
			JSONError(h, w, r, err)
			return
		}
		if _, err := f.Write(img); err != nil {
			JSONError(h, w, r, err)
			return
		}
		rendered++
	}

	if rendered == 0 {
		zw.Close()
		JSONError(h, w, r, errNoUploads, http.StatusBadRequest)
		return
	}
	if err := zw.Close(); err != nil {
		JSONError(h, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="msqc_charts.zip"`)
	w.Write(buf.Bytes())
}

func (h *handler) ExportSummary(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tables.Snapshot()
	if len(snapshot) == 0 {
		JSONError(h, w, r, errNoUploads, http.StatusBadRequest)
		return
	}

	pairs, _, err := pairing.Resolve(h.tables.Names())
	if err != nil {
		JSONError(h, w, r, err, statusFor(err))
		return
	}

	ratios, err := quant.ComparePairs(snapshot, pairs)
	if err != nil {
		JSONError(h, w, r, err, statusFor(err))
		return
	}

	rows, err := quant.Summarize(ratios)
	if err != nil {
		JSONError(h, w, r, err, statusFor(err))
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = '\t'
	if err := gocsv.MarshalCSV(&rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		JSONError(h, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/tab-separated-values")
	w.Header().Set("Content-Disposition", `attachment; filename="ratio_summary.tsv"`)
	w.Write(buf.Bytes())
}

func (h *handler) renderChart(name string, size chart.Size) ([]byte, error) {
	switch name {
	case "bar-chart":
		return h.barChart(size)
	case "sample-comparison":
		return h.sampleComparison(size)
	case "abundance":
		return h.abundance(size)
	case "tic":
		return h.ticTrace(size)
	}

	return nil, fmt.Errorf("%w: %q", errUnknownChart, name)
}

func (h *handler) barChart(size chart.Size) ([]byte, error) {
	tables := h.sortedTables()
	if len(tables) == 0 {
		return nil, errNoUploads
	}

	samples := make([]chart.SampleCounts, 0, len(tables))
	for _, t := range tables {
		samples = append(samples, chart.SampleCounts{
			Sample: t.SourceFile,
			Counts: quant.CountsByOrganism(t),
		})
	}

	return chart.ProteinCounts(samples, size)
}

func (h *handler) sampleComparison(size chart.Size) ([]byte, error) {
	snapshot := h.tables.Snapshot()
	if len(snapshot) == 0 {
		return nil, errNoUploads
	}

	names := h.tables.Names()
	pairs, singlets, err := pairing.Resolve(names)
	if err != nil {
		return nil, err
	}
	if len(singlets) > 0 {
		h.log.Println("unpaired samples:", strings.Join(singlets, ", "))
	}
	h.warnFewReplicates(names)

	ratios, err := quant.ComparePairs(snapshot, pairs)
	if err != nil {
		return nil, err
	}

	panels := make([]chart.BoxPanel, 0, len(organism.Organisms))
	for _, org := range organism.Organisms {
		c := chart.OrganismColor(org)
		panel := chart.BoxPanel{
			Title:        fmt.Sprintf("%s Log2 Ratio", org),
			Color:        chart.Color{R: c.R, G: c.G, B: c.B},
			Reference:    quant.ExpectedLog2Ratio[org],
			HasReference: true,
		}
		for _, pr := range ratios {
			panel.Series = append(panel.Series, chart.BoxSeries{
				Label:  pr.Label,
				Values: pr.ByOrganism[org],
			})
		}
		panels = append(panels, panel)
	}

	return chart.BoxPlot("Intensity Ratio Comparison by Run", panels, size)
}

func (h *handler) abundance(size chart.Size) ([]byte, error) {
	tables := h.sortedTables()
	if len(tables) == 0 {
		return nil, errNoUploads
	}

	// HeLa itself is the normalization reference, so only the spiked
	// organisms get a panel.
	panels := make([]chart.BoxPanel, 0, 2)
	for _, org := range []organism.Label{organism.EColi, organism.Yeast} {
		c := chart.OrganismColor(org)
		panel := chart.BoxPanel{
			Title: fmt.Sprintf("%s Normalized Abundance", org),
			Color: chart.Color{R: c.R, G: c.G, B: c.B},
		}
		for _, t := range tables {
			panel.Series = append(panel.Series, chart.BoxSeries{
				Label:  t.SourceFile,
				Values: quant.NormalizedAbundances(t, org),
			})
		}
		panels = append(panels, panel)
	}

	return chart.BoxPlot("HeLa-Normalized Log2 Abundance", panels, size)
}

func (h *handler) ticTrace(size chart.Size) ([]byte, error) {
	snapshot := h.runs.Snapshot()
	if len(snapshot) == 0 {
		return nil, errNoUploads
	}

	series := make([]chart.TICSeries, 0, len(snapshot))
	for _, name := range h.runs.Names() {
		points, err := snapshot[name].TICChromatogram()
		if err != nil {
			return nil, err
		}

		s := chart.TICSeries{Name: name}
		for _, p := range points {
			s.Times = append(s.Times, p.RetentionTime)
			s.Intensities = append(s.Intensities, p.Intensity)
		}
		series = append(series, s)
	}

	return chart.TICTrace(series, size)
}

func (h *handler) sortedTables() []*diann.Table {
	snapshot := h.tables.Snapshot()

	tables := make([]*diann.Table, 0, len(snapshot))
	for _, t := range snapshot {
		tables = append(tables, t)
	}
	quant.SortTables(tables)
	return tables
}

// Three bioreplicates per condition is the lab's QC standard. Fewer still
// plots, but gets flagged in the server log.
func (h *handler) warnFewReplicates(names []string) {
	var lows, highs int
	for _, name := range names {
		switch {
		case pairing.IsLowCondition(name):
			lows++
		case pairing.IsHighCondition(name):
			highs++
		}
	}

	if lows > 0 && lows < 3 {
		h.log.Printf("only %d low-condition sample(s) uploaded; 3 bioreplicates recommended", lows)
	}
	if highs > 0 && highs < 3 {
		h.log.Printf("only %d high-condition sample(s) uploaded; 3 bioreplicates recommended", highs)
	}
}

// parsePlotRequest decodes the optional JSON body of a plot or export
// request. Unknown fields, like the retired "pattern" grouping key, are
// accepted and ignored.
func parsePlotRequest(r *http.Request) (chart.Size, error) {
	var size chart.Size
	if r.Body == nil {
		return size, nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return size, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return size, nil
	}

	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return size, fmt.Errorf("malformed request body: %v", err)
	}

	size.Width = req.Width
	size.Height = req.Height
	return size, nil
}

// readUpload yields the decompressed bytes of one multipart file.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := proteomisc.MaybeDecompressReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fh.Filename, err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", fh.Filename, err)
	}
	return data, nil
}

// digest is the hex blake2b-256 of the uploaded bytes, so clients can tell
// whether a re-upload actually changed a cached file.
func digest(data []byte) string {
	h, err := blake2b.New(&blake2b.Config{Size: 32})
	if err != nil {
		return ""
	}
	if _, err := h.Write(data); err != nil {
		return ""
	}

	return hex.EncodeToString(h.Sum(nil))
}

func fileEntries(names []string, digests map[string]string) []fileEntry {
	out := make([]fileEntry, 0, len(names))
	for _, name := range names {
		out = append(out, fileEntry{Name: name, Digest: digests[name]})
	}
	return out
}
