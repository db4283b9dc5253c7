package qcgraph

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// RenderLJHTML writes an interactive preview of the LJ chart. Each point carries its
// result id as name, so the browser can post a GraphicPointSelected event back.
func RenderLJHTML(w io.Writer, chart LJChart, title string) error {
	xName := "Day"
	if chart.Mode == XAxisByCount {
		xName = "Count"
	}
	subtitle := ""
	if !chart.StartDate.IsZero() {
		subtitle = fmt.Sprintf("from %s", chart.StartDate.Format("2006-01-02"))
	}
	scatter := newPreviewScatter(title, subtitle, xName, "SD", false)
	addPreviewSeries(scatter, chart.ChartSet)
	return renderPreview(w, scatter)
}

func RenderYoudenHTML(w io.Writer, chart YoudenChart, title string) error {
	scatter := newPreviewScatter(title, "", "X (SD)", "Y (SD)", true)
	addPreviewSeries(scatter, chart.ChartSet)
	return renderPreview(w, scatter)
}

func newPreviewScatter(title, subtitle, xName, yName string, fixedX bool) *charts.Scatter {
	xAxis := opts.XAxis{Type: "value", Name: xName, NameLocation: "middle", NameGap: 25}
	if fixedX {
		xAxis.Min, xAxis.Max = -ClampLimit, ClampLimit
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "600px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Bottom: "0"}),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName, Min: -ClampLimit, Max: ClampLimit}),
	)
	return scatter
}

func addPreviewSeries(scatter *charts.Scatter, set ChartSet) {
	for _, series := range set.Series {
		data := make([]opts.ScatterData, series.Len())
		for i, point := range series.Points {
			data[i] = opts.ScatterData{
				Name:       fmt.Sprintf("%d", series.IDs[i]),
				Value:      []interface{}{point.X, point.Y},
				Symbol:     echartsSymbolOf(series.Symbols[i]),
				SymbolSize: 8,
			}
		}
		c := curveColors[series.ID]
		scatter.AddSeries(string(series.ID), data,
			charts.WithItemStyleOpts(opts.ItemStyle{Color: fmt.Sprintf("rgba(%d,%d,%d,%.2f)", c.R, c.G, c.B, float64(c.A)/0xff)}),
		)
	}
}

func echartsSymbolOf(symbol SymbolStyle) string {
	switch symbol {
	case SymbolTriangle:
		return "triangle"
	case SymbolXCross:
		return "path://M0,0 L10,10 M10,0 L0,10"
	default:
		return "circle"
	}
}

func renderPreview(w io.Writer, scatter *charts.Scatter) error {
	if err := scatter.Render(w); err != nil {
		return errors.Wrap(err, MsgRenderChartFailed)
	}
	return nil
}
