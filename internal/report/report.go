// Package report renders optional, human-facing summaries of a finished
// import run: an HTML dashboard of per-segment traits and a PNG histogram
// of segment heights. Neither artifact is read back by the pipeline;
// both are purely for a person skimming the results.
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/treeimport/internal/descriptor"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Write renders report.html and height_histogram.png into dir from a
// project's segment trait rows.
func Write(dir string, project descriptor.Project) error {
	if err := writeHTML(filepath.Join(dir, "report.html"), project); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := writeHeightHistogram(filepath.Join(dir, "height_histogram.png"), project); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

func writeHTML(path string, project descriptor.Project) error {
	heights, trunkDiam, crownDiam := traitColumns(project)

	labels := make([]string, len(heights))
	heightBars := make([]opts.BarData, len(heights))
	for i, h := range heights {
		labels[i] = fmt.Sprintf("segment %d", i+1)
		heightBars[i] = opts.BarData{Value: h}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Segment Total Height", Subtitle: project.Name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("total_height", heightBars)

	scatterData := make([]opts.ScatterData, len(trunkDiam))
	for i := range trunkDiam {
		scatterData[i] = opts.ScatterData{Value: []interface{}{trunkDiam[i], crownDiam[i]}}
	}
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Trunk Diameter vs Crown Diameter"}),
	)
	scatter.AddSeries("segments", scatterData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	page := components.NewPage()
	page.AddCharts(bar, scatter)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func writeHeightHistogram(path string, project descriptor.Project) error {
	heights, _, _ := traitColumns(project)
	if len(heights) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Segment Total Height Distribution"
	p.X.Label.Text = "meters"
	p.Y.Label.Text = "segments"

	hist, err := plotter.NewHist(plotter.Values(heights), histBins(len(heights)))
	if err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	p.Add(hist)

	mean, stdDev := stat.MeanStdDev(heights, nil)
	p.Title.Text = fmt.Sprintf("Segment Total Height Distribution (mean=%.2fm, stddev=%.2fm)", mean, stdDev)

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func histBins(n int) int {
	if n < 4 {
		return n
	}
	if n > 32 {
		return 32
	}
	return n / 2
}

func traitColumns(project descriptor.Project) (heights, trunkDiam, crownDiam []float64) {
	width := len(project.SegmentInformation)
	if width == 0 {
		return nil, nil, nil
	}
	heightIdx := columnIndex(project.SegmentInformation, "total_height")
	trunkIdx := columnIndex(project.SegmentInformation, "trunk_diameter")
	crownIdx := columnIndex(project.SegmentInformation, "crown_diameter")

	count := len(project.SegmentValues) / width
	heights = make([]float64, 0, count)
	trunkDiam = make([]float64, 0, count)
	crownDiam = make([]float64, 0, count)
	for i := 0; i < count; i++ {
		row := project.SegmentValues[i*width : (i+1)*width]
		if heightIdx >= 0 {
			heights = append(heights, float64(row[heightIdx].Float32()))
		}
		if trunkIdx >= 0 {
			trunkDiam = append(trunkDiam, float64(row[trunkIdx].Float32()))
		}
		if crownIdx >= 0 {
			crownDiam = append(crownDiam, float64(row[crownIdx].Float32()))
		}
	}
	return heights, trunkDiam, crownDiam
}

func columnIndex(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}
