package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/airwrite/internal/stroke"
)

// ChartAssetsHost is where the generated HTML loads echarts from.
var ChartAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Chart writes an interactive HTML line chart of snap, one series per
// pen-down run. The chart y axis points up, so screen y is flipped against
// screenHeight to keep the drawing upright.
func Chart(w io.Writer, snap stroke.Snapshot, screenWidth, screenHeight float64) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "airwrite stroke", Theme: "dark", Width: "540px", Height: "960px", AssetsHost: ChartAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Stroke", Subtitle: fmt.Sprintf("revision=%d segments=%d", snap.Revision, len(snap.Segments))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: 0, Max: screenWidth, Name: "x (px)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: screenHeight, Name: "y (px, flipped)", NameLocation: "middle", NameGap: 40}),
	)

	for i, run := range Runs(snap.Segments) {
		data := make([]opts.LineData, 0, len(run))
		for _, pt := range run {
			data = append(data, opts.LineData{Value: []interface{}{pt.X, screenHeight - pt.Y}})
		}
		line.AddSeries(fmt.Sprintf("run %d", i+1), data,
			charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(len(run) == 1)}))
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
