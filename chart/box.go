package chart

import (
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/gg"
	"github.com/montanaflynn/stats"
)

// DefaultBoxSize fits three stacked organism panels.
var DefaultBoxSize = Size{Width: 1400, Height: 1200}

// BoxSeries is one box of a panel: a labeled value distribution, e.g. the
// log2 ratios of one sample pair.
type BoxSeries struct {
	Label  string
	Values []float64
}

// BoxPanel is one horizontal band of a box-plot figure, typically one
// organism. Reference draws a dashed expected-value line when HasReference
// is set.
type BoxPanel struct {
	Title        string
	Color        Color
	Reference    float64
	HasReference bool
	Series       []BoxSeries
}

// Color mirrors color.RGBA; declared locally so callers building panels
// don't need to import image/color alongside this package.
type Color struct {
	R, G, B uint8
}

// BoxPlot renders stacked box-plot panels. Panels whose series are all
// empty render an inline "no data" note instead of boxes; the figure only
// fails when it cannot be encoded.
func BoxPlot(title string, panels []BoxPanel, size Size) ([]byte, error) {
	size = size.or(DefaultBoxSize)
	if len(panels) == 0 {
		return Placeholder("no data to plot", size)
	}

	ctx := newCanvas(size)
	ctx.SetRGB(0, 0, 0)
	drawCenteredString(ctx, title, float64(size.Width)/2, 16)

	panelH := (float64(size.Height) - 30) / float64(len(panels))
	for i, panel := range panels {
		top := 30 + float64(i)*panelH
		drawPanel(ctx, panel, top, panelH, float64(size.Width))
	}

	return encodeContext(ctx)
}

func drawPanel(ctx *gg.Context, panel BoxPanel, top, height, width float64) {
	const (
		marginLeft   = 80.0
		marginRight  = 30.0
		titleSpace   = 24.0
		labelSpace   = 40.0
	)

	ctx.SetRGB(0, 0, 0)
	drawCenteredString(ctx, panel.Title, width/2, top+titleSpace/2)

	var nonEmpty []BoxSeries
	for _, s := range panel.Series {
		if len(s.Values) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		ctx.SetRGB255(0x7f, 0x8c, 0x8d)
		drawCenteredString(ctx, fmt.Sprintf("No %s data", panel.Title), width/2, top+height/2)
		return
	}

	// Y range covers all values plus the reference line, with padding.
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range nonEmpty {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if panel.HasReference {
		lo = math.Min(lo, panel.Reference)
		hi = math.Max(hi, panel.Reference)
	}
	if hi == lo {
		hi, lo = hi+1, lo-1
	}
	pad := (hi - lo) * 0.1
	hi, lo = hi+pad, lo-pad

	plotTop := top + titleSpace
	plotH := height - titleSpace - labelSpace
	plotW := width - marginLeft - marginRight
	yFor := func(v float64) float64 {
		return plotTop + (hi-v)/(hi-lo)*plotH
	}

	// Panel frame and zero-context ticks.
	ctx.SetRGBA(0, 0, 0, 0.4)
	ctx.DrawRectangle(marginLeft, plotTop, plotW, plotH)
	ctx.Stroke()
	for _, tick := range []float64{lo + pad, (hi + lo) / 2, hi - pad} {
		ctx.SetRGB(0, 0, 0)
		ctx.DrawStringAnchored(fmt.Sprintf("%.2f", tick), marginLeft-8, yFor(tick), 1, 0.35)
	}

	if panel.HasReference {
		y := yFor(panel.Reference)
		ctx.SetRGBA255(int(referenceColor.R), int(referenceColor.G), int(referenceColor.B), 255)
		ctx.SetDash(6, 4)
		ctx.DrawLine(marginLeft, y, marginLeft+plotW, y)
		ctx.Stroke()
		ctx.SetDash()
		ctx.DrawStringAnchored(fmt.Sprintf("expected %.1f", panel.Reference), marginLeft+plotW-4, y-8, 1, 0)
	}

	slot := plotW / float64(len(nonEmpty))
	boxW := math.Min(slot*0.5, 80)

	for i, s := range nonEmpty {
		centerX := marginLeft + (float64(i)+0.5)*slot
		drawBox(ctx, s, panel, centerX, boxW, yFor)

		ctx.SetRGB(0, 0, 0)
		drawCenteredString(ctx, shorten(s.Label, 20), centerX, plotTop+plotH+16)
	}
}

func drawBox(ctx *gg.Context, s BoxSeries, panel BoxPanel, centerX, boxW float64, yFor func(float64) float64) {
	q1, median, q3 := quartilesOf(s.Values)
	iqr := q3 - q1
	loWhisker, hiWhisker := whiskers(s.Values, q1-1.5*iqr, q3+1.5*iqr)

	// Whisker line and caps.
	ctx.SetRGBA(0, 0, 0, 0.8)
	ctx.DrawLine(centerX, yFor(loWhisker), centerX, yFor(q1))
	ctx.DrawLine(centerX, yFor(q3), centerX, yFor(hiWhisker))
	ctx.DrawLine(centerX-boxW/4, yFor(loWhisker), centerX+boxW/4, yFor(loWhisker))
	ctx.DrawLine(centerX-boxW/4, yFor(hiWhisker), centerX+boxW/4, yFor(hiWhisker))
	ctx.Stroke()

	// Interquartile box.
	ctx.SetRGBA255(int(panel.Color.R), int(panel.Color.G), int(panel.Color.B), 180)
	ctx.DrawRectangle(centerX-boxW/2, yFor(q3), boxW, yFor(q1)-yFor(q3))
	ctx.Fill()
	ctx.SetRGBA(0, 0, 0, 0.8)
	ctx.DrawRectangle(centerX-boxW/2, yFor(q3), boxW, yFor(q1)-yFor(q3))
	ctx.Stroke()

	// Median line and value label.
	ctx.SetRGB255(0x2c, 0x3e, 0x50)
	ctx.SetLineWidth(2.5)
	ctx.DrawLine(centerX-boxW/2, yFor(median), centerX+boxW/2, yFor(median))
	ctx.Stroke()
	ctx.SetLineWidth(1)
	ctx.DrawStringAnchored(fmt.Sprintf("%.2f", median), centerX, yFor(median)-8, 0.5, 0)

	// Outliers beyond the whiskers.
	ctx.SetRGBA255(int(panel.Color.R), int(panel.Color.G), int(panel.Color.B), 110)
	for _, v := range s.Values {
		if v < loWhisker || v > hiWhisker {
			ctx.DrawCircle(centerX, yFor(v), 2.5)
			ctx.Fill()
		}
	}
}

// quartilesOf computes box geometry, degrading gracefully for tiny
// samples where quartiles are not meaningful.
func quartilesOf(values []float64) (q1, median, q3 float64) {
	median, _ = stats.Median(values)

	if len(values) < 4 {
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		return sorted[0], median, sorted[len(sorted)-1]
	}

	q, err := stats.Quartile(values)
	if err != nil {
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		return sorted[0], median, sorted[len(sorted)-1]
	}
	return q.Q1, q.Q2, q.Q3
}

// whiskers clamps the whisker fences to the most extreme observed values
// inside them.
func whiskers(values []float64, loFence, hiFence float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v >= loFence && v < lo {
			lo = v
		}
		if v <= hiFence && v > hi {
			hi = v
		}
	}
	if math.IsInf(lo, 1) || math.IsInf(hi, -1) {
		// All values are outliers relative to the fences; fall back to the
		// raw extremes so the whiskers stay drawable.
		for _, v := range values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return lo, hi
}
