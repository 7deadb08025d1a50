package chart

import (
	"fmt"
	"math"

	"github.com/proteomisc/proteomisc/organism"
)

// DefaultBarSize fits roughly ten labeled sample bars.
var DefaultBarSize = Size{Width: 1200, Height: 700}

// SampleCounts is one bar of the protein-ID chart: the classified row count
// of a sample, by organism.
type SampleCounts struct {
	Sample string
	Counts map[organism.Label]int
}

// ProteinCounts renders the stacked per-sample protein-ID count chart.
// Samples with no classified rows still occupy a slot so runs can be
// compared positionally. An empty sample list yields a placeholder.
func ProteinCounts(samples []SampleCounts, size Size) ([]byte, error) {
	size = size.or(DefaultBarSize)
	if len(samples) == 0 {
		return Placeholder("no classified proteins to plot", size)
	}

	maxTotal := 0
	for _, s := range samples {
		total := 0
		for _, org := range organism.Organisms {
			total += s.Counts[org]
		}
		if total > maxTotal {
			maxTotal = total
		}
	}
	if maxTotal == 0 {
		return Placeholder("no classified proteins to plot", size)
	}

	const (
		marginLeft   = 80.0
		marginRight  = 30.0
		marginTop    = 50.0
		marginBottom = 70.0
	)

	ctx := newCanvas(size)
	plotW := float64(size.Width) - marginLeft - marginRight
	plotH := float64(size.Height) - marginTop - marginBottom
	baseY := marginTop + plotH

	ctx.SetRGB(0, 0, 0)
	drawCenteredString(ctx, "Protein ID Counts by Organism", float64(size.Width)/2, marginTop/2)

	// Y axis with gridlines at a round step.
	yMax := float64(maxTotal) * 1.05
	step := niceStep(yMax, 6)
	scaleY := plotH / yMax
	for tick := 0.0; tick <= yMax; tick += step {
		y := baseY - tick*scaleY
		ctx.SetRGBA(0, 0, 0, 0.15)
		ctx.DrawLine(marginLeft, y, marginLeft+plotW, y)
		ctx.Stroke()
		ctx.SetRGB(0, 0, 0)
		ctx.DrawStringAnchored(fmt.Sprintf("%.0f", tick), marginLeft-8, y, 1, 0.35)
	}

	slot := plotW / float64(len(samples))
	barW := slot * 0.7

	for i, s := range samples {
		x := marginLeft + float64(i)*slot + (slot-barW)/2
		y := baseY

		for _, org := range organism.Organisms {
			count := s.Counts[org]
			if count == 0 {
				continue
			}
			h := float64(count) * scaleY

			c := OrganismColor(org)
			ctx.SetRGBA255(int(c.R), int(c.G), int(c.B), 220)
			ctx.DrawRectangle(x, y-h, barW, h)
			ctx.Fill()

			// Segment count label
			ctx.SetRGB(1, 1, 1)
			drawCenteredString(ctx, fmt.Sprintf("%d", count), x+barW/2, y-h/2)

			y -= h
		}

		ctx.SetRGB(0, 0, 0)
		drawCenteredString(ctx, shorten(s.Sample, 28), x+barW/2, baseY+18)
	}

	// Legend, top right.
	legendX := marginLeft + plotW - 110
	legendY := marginTop + 10.0
	for _, org := range organism.Organisms {
		c := OrganismColor(org)
		ctx.SetRGBA255(int(c.R), int(c.G), int(c.B), 255)
		ctx.DrawRectangle(legendX, legendY-7, 14, 14)
		ctx.Fill()
		ctx.SetRGB(0, 0, 0)
		ctx.DrawStringAnchored(string(org), legendX+20, legendY, 0, 0.35)
		legendY += 18
	}

	// Axes.
	ctx.SetRGB(0, 0, 0)
	ctx.DrawLine(marginLeft, marginTop, marginLeft, baseY)
	ctx.DrawLine(marginLeft, baseY, marginLeft+plotW, baseY)
	ctx.Stroke()

	return encodeContext(ctx)
}

// niceStep picks a 1/2/5-style tick interval yielding at most maxTicks.
func niceStep(span float64, maxTicks int) float64 {
	raw := span / float64(maxTicks)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, mult := range []float64{1, 2, 5, 10} {
		if mag*mult >= raw {
			return mag * mult
		}
	}
	return mag * 10
}

// shorten keeps the trailing runes of long labels; the distinguishing run
// and condition tokens sit at the end of sample names.
func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return "…" + string(runes[len(runes)-max+1:])
}
