// Package chart renders a video's interest signal as a standalone HTML page,
// with the saved segments and the scorer's suggestions shaded as mark areas.
package chart

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/trailcut/trailcut/internal/interest"
	"github.com/trailcut/trailcut/internal/segments"
)

const (
	segmentColor    = "rgba(46, 134, 222, 0.30)"
	suggestionColor = "rgba(255, 159, 67, 0.25)"
)

// Input is everything drawn on one chart.
type Input struct {
	Title     string
	Subtitle  string
	Duration  float64
	Levels    []interest.InterestPoint
	Segments  segments.Set
	Suggested segments.Set
	// AssetsHost overrides where the echarts script is loaded from; empty
	// uses the library default CDN.
	AssetsHost string
}

// Render writes the chart page to w.
func Render(w io.Writer, in Input) error {
	line := charts.NewLine()

	initOpts := opts.Initialization{
		PageTitle: in.Title,
		Width:     "100%",
		Height:    "360px",
	}
	if in.AssetsHost != "" {
		initOpts.AssetsHost = in.AssetsHost
	}

	lo, hi := levelRange(in.Levels)
	xMax := in.Duration
	if n := len(in.Levels); xMax <= 0 && n > 0 {
		xMax = in.Levels[n-1].Timestamp
	}

	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: in.Title, Subtitle: in.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (s)", Min: 0, Max: xMax}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Interest", Min: lo, Max: hi}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	data := make([]opts.LineData, 0, len(in.Levels))
	for _, p := range in.Levels {
		data = append(data, opts.LineData{Value: []interface{}{p.Timestamp, p.InterestLevel}})
	}

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
	}
	if areas := markAreas(in.Segments, "segment", lo, hi, segmentColor); len(areas) > 0 {
		seriesOpts = append(seriesOpts, charts.WithMarkAreaNameCoordItemOpts(areas...))
	}
	if areas := markAreas(in.Suggested, "suggested", lo, hi, suggestionColor); len(areas) > 0 {
		seriesOpts = append(seriesOpts, charts.WithMarkAreaNameCoordItemOpts(areas...))
	}
	line.AddSeries("interest", data, seriesOpts...)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func markAreas(set segments.Set, label string, lo, hi float64, color string) []opts.MarkAreaNameCoordItem {
	items := make([]opts.MarkAreaNameCoordItem, 0, len(set))
	for i, s := range set {
		items = append(items, opts.MarkAreaNameCoordItem{
			Name:        fmt.Sprintf("%s %d", label, i+1),
			Coordinate0: []interface{}{s.StartTime, lo},
			Coordinate1: []interface{}{s.EndTime, hi},
			ItemStyle:   &opts.ItemStyle{Color: color},
		})
	}
	return items
}

// levelRange pads the signal's range so shaded areas cover the whole plot.
// An empty or flat signal gets a unit range.
func levelRange(levels []interest.InterestPoint) (float64, float64) {
	if len(levels) == 0 {
		return 0, 1
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range levels {
		lo = math.Min(lo, p.InterestLevel)
		hi = math.Max(hi, p.InterestLevel)
	}
	if hi == lo {
		return lo - 0.5, hi + 0.5
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}
