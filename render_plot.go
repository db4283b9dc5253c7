package qcgraph

import (
	"bytes"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

const (
	printChartWidth  = 16 * vg.Centimeter
	printChartHeight = 10 * vg.Centimeter
)

// ChartRenderer turns a chart point set into an image for print and export.
type ChartRenderer interface {
	RenderLJ(chart LJChart, title string) ([]byte, error)
	RenderYouden(chart YoudenChart, title string) ([]byte, error)
}

type plotRenderer struct {
	width  vg.Length
	height vg.Length
}

func NewPlotRenderer() ChartRenderer {
	return &plotRenderer{width: printChartWidth, height: printChartHeight}
}

var curveColors = map[CurveID]color.RGBA{
	CurveLJQc1:       {R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	CurveLJQc2:       {R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	CurveLJQc3:       {R: 0x94, G: 0x67, B: 0xbd, A: 0xff},
	CurveLJQc4:       {R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	CurveLJQc1SubPt:  {R: 0x1f, G: 0x77, B: 0xb4, A: 0x80},
	CurveLJQc2SubPt:  {R: 0x2c, G: 0xa0, B: 0x2c, A: 0x80},
	CurveLJQc3SubPt:  {R: 0x94, G: 0x67, B: 0xbd, A: 0x80},
	CurveLJQc4SubPt:  {R: 0xff, G: 0x7f, B: 0x0e, A: 0x80},
	CurveLJNoCalc:    {R: 0x99, G: 0x99, B: 0x99, A: 0xff},
	CurveYoudenHist:  {R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	CurveYoudenToday: {R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
	CurveYoudenNoCal: {R: 0x99, G: 0x99, B: 0x99, A: 0xff},
}

var referenceLineColors = map[float64]color.RGBA{
	0: {R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	1: {R: 0xbb, G: 0xbb, B: 0xbb, A: 0xff},
	2: {R: 0xff, G: 0xa5, B: 0x00, A: 0xff},
	3: {R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
}

func (r *plotRenderer) RenderLJ(chart LJChart, title string) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Day"
	if chart.Mode == XAxisByCount {
		p.X.Label.Text = "Count"
	}
	p.Y.Label.Text = "SD"
	p.Y.Min, p.Y.Max = -ClampLimit, ClampLimit

	addHorizontalReferenceLines(p)
	if err := addSeries(p, chart.ChartSet); err != nil {
		return nil, err
	}
	return r.encode(p)
}

func (r *plotRenderer) RenderYouden(chart YoudenChart, title string) ([]byte, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (SD)"
	p.Y.Label.Text = "Y (SD)"
	p.X.Min, p.X.Max = -ClampLimit, ClampLimit
	p.Y.Min, p.Y.Max = -ClampLimit, ClampLimit

	addHorizontalReferenceLines(p)
	for _, k := range []float64{-3, -2, -1, 0, 1, 2, 3} {
		line, err := plotter.NewLine(plotter.XYs{{X: k, Y: -ClampLimit}, {X: k, Y: ClampLimit}})
		if err != nil {
			return nil, errors.Wrap(err, MsgRenderChartFailed)
		}
		styleReferenceLine(&line.LineStyle, k)
		p.Add(line)
	}
	if err := addSeries(p, chart.ChartSet); err != nil {
		return nil, err
	}
	return r.encode(p)
}

func (r *plotRenderer) encode(p *plot.Plot) ([]byte, error) {
	writer, err := p.WriterTo(r.width, r.height, "png")
	if err != nil {
		return nil, errors.Wrap(err, MsgRenderChartFailed)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, MsgRenderChartFailed)
	}
	return buf.Bytes(), nil
}

func addHorizontalReferenceLines(p *plot.Plot) {
	for _, k := range []float64{-3, -2, -1, 0, 1, 2, 3} {
		level := k
		line := plotter.NewFunction(func(float64) float64 { return level })
		styleReferenceLine(&line.LineStyle, level)
		p.Add(line)
	}
}

func styleReferenceLine(style *draw.LineStyle, k float64) {
	if k < 0 {
		k = -k
	}
	style.Color = referenceLineColors[k]
	style.Width = vg.Points(0.5)
	if k == 1 {
		style.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
	}
}

// addSeries draws every non-empty series. Main LJ curves are connected by a line.
func addSeries(p *plot.Plot, set ChartSet) error {
	for _, series := range set.Series {
		if series.Len() == 0 {
			continue
		}
		xys := make(plotter.XYs, series.Len())
		for i, point := range series.Points {
			xys[i].X = point.X
			xys[i].Y = point.Y
		}

		if isMainCurve(series.ID) {
			line, err := plotter.NewLine(xys)
			if err != nil {
				return errors.Wrap(err, MsgRenderChartFailed)
			}
			line.LineStyle.Color = curveColors[series.ID]
			p.Add(line)
		}

		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return errors.Wrap(err, MsgRenderChartFailed)
		}
		symbols := series.Symbols
		curveColor := curveColors[series.ID]
		scatter.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{Color: curveColor, Radius: vg.Points(3), Shape: glyphOf(symbols[i])}
		}
		p.Add(scatter)
		p.Legend.Add(string(series.ID), scatter)
	}
	return nil
}

func isMainCurve(curveID CurveID) bool {
	for _, main := range ljMainCurves {
		if main == curveID {
			return true
		}
	}
	return false
}

func glyphOf(symbol SymbolStyle) draw.GlyphDrawer {
	switch symbol {
	case SymbolTriangle:
		return draw.TriangleGlyph{}
	case SymbolXCross:
		return draw.CrossGlyph{}
	default:
		return draw.CircleGlyph{}
	}
}
