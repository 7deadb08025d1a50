package chart

import (
	"bytes"
	"fmt"

	"github.com/carbocation/pfx"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// DefaultTICSize fits a full-gradient chromatogram trace.
var DefaultTICSize = Size{Width: 1200, Height: 500}

// TICSeries is the total-ion-current trace of one instrument run.
type TICSeries struct {
	Name        string
	Times       []float64
	Intensities []float64
}

// Fixed series palette; runs cycle through it so re-rendering the same
// uploads always colors them identically.
var ticPalette = []drawing.Color{
	{R: 0x9b, G: 0x59, B: 0xb6, A: 0xff},
	{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff},
	{R: 0x16, G: 0xa0, B: 0x85, A: 0xff},
	{R: 0x29, G: 0x80, B: 0xb9, A: 0xff},
	{R: 0xc0, G: 0x39, B: 0x2c, A: 0xff},
}

// TICTrace renders the MS1 total-ion-current chromatogram of one or more
// runs as a line chart. Series with fewer than two points are skipped; if
// nothing remains, a placeholder is returned.
func TICTrace(series []TICSeries, size Size) ([]byte, error) {
	size = size.or(DefaultTICSize)

	var plotted []gochart.Series
	for i, s := range series {
		if len(s.Times) < 2 || len(s.Times) != len(s.Intensities) {
			continue
		}
		plotted = append(plotted, gochart.ContinuousSeries{
			Name:    s.Name,
			XValues: s.Times,
			YValues: s.Intensities,
			Style: gochart.Style{
				StrokeColor: ticPalette[i%len(ticPalette)],
				StrokeWidth: 1.5,
			},
		})
	}
	if len(plotted) == 0 {
		return Placeholder("no MS1 spectra with a total ion current", size)
	}

	graph := gochart.Chart{
		Title:  "MS1 Total Ion Current",
		Width:  size.Width,
		Height: size.Height,
		XAxis: gochart.XAxis{
			Name: "Retention time (s)",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: gochart.YAxis{
			Name: "Total ion current",
		},
		Series: plotted,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	// Render to a byte buffer
	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(gochart.PNG, buffer); err != nil {
		return nil, pfx.Err(err)
	}
	return buffer.Bytes(), nil
}
