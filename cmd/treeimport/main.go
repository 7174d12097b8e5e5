// Command treeimport runs the offline LiDAR point-cloud import pipeline:
// it reads a LAS/LAZ file and writes a project folder (project.json, the
// IDF data files, statistics.json, and optionally report.html /
// height_histogram.png) ready for the interactive viewer to load.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/treeimport/internal/pipeline"
	"github.com/banshee-data/treeimport/internal/runhistory"
	"github.com/banshee-data/treeimport/internal/treeerr"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("treeimport", flag.ContinueOnError)
	input := fs.String("input", "", "path to the input LAS/LAZ file")
	output := fs.String("output", "", "path to the output project folder")
	threads := fs.Int("threads", 0, "worker thread count (0 = all cores, 1 is rejected)")
	noReport := fs.Bool("no-report", false, "skip writing report.html and height_histogram.png")
	debugSegments := fs.Bool("debug-segments", false, "dump an SVG of each slab's tracked footprints")

	settings := pipeline.DefaultSettings()
	segmentingSliceWidth := fs.Float64("segmenting-slice-width", float64(settings.SegmentingSliceWidth), "segmenter slab height, meters")
	segmentingMaxDistance := fs.Float64("segmenting-max-distance", float64(settings.SegmentingMaxDistance), "segmenter footprint merge distance, meters")
	calculationsSliceWidth := fs.Float64("calculations-slice-width", float64(settings.CalculationsSliceWidth), "per-segment analysis slab height, meters")
	neighborsMaxDistance := fs.Float64("neighbors-max-distance", float64(settings.NeighborsMaxDistance), "k-nearest-neighbor max distance, meters")
	trunkDiameterHeight := fs.Float64("trunk-diameter-height", float64(settings.TrunkDiameterHeight), "breast height for trunk diameter, meters")
	trunkDiameterRange := fs.Float64("trunk-diameter-range", float64(settings.TrunkDiameterRange), "slab thickness around breast height, meters")
	crownDiameterDifference := fs.Float64("crown-diameter-difference", float64(settings.CrownDiameterDifference), "trunk/crown area threshold padding, meters")
	lodSizeScale := fs.Float64("lod-size-scale", float64(settings.LODSizeScale), "LOD grid cell point-size multiplier (validated only; the octree applies a fixed 0.95)")
	fs.IntVar(&settings.MinSegmentSize, "min-segment-size", settings.MinSegmentSize, "drop finished segments smaller than this many points")
	fs.IntVar(&settings.NeighborsCount, "neighbors-count", settings.NeighborsCount, "k-nearest-neighbor count for per-point analysis")

	if err := fs.Parse(args); err != nil {
		return 1
	}
	settings.Threads = *threads
	settings.NoReport = *noReport
	settings.DebugSegments = *debugSegments
	settings.SegmentingSliceWidth = float32(*segmentingSliceWidth)
	settings.SegmentingMaxDistance = float32(*segmentingMaxDistance)
	settings.CalculationsSliceWidth = float32(*calculationsSliceWidth)
	settings.NeighborsMaxDistance = float32(*neighborsMaxDistance)
	settings.TrunkDiameterHeight = float32(*trunkDiameterHeight)
	settings.TrunkDiameterRange = float32(*trunkDiameterRange)
	settings.CrownDiameterDifference = float32(*crownDiameterDifference)
	settings.LODSizeScale = float32(*lodSizeScale)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "treeimport:", treeerr.ErrNoInputFile)
		return treeerr.ExitCode(treeerr.ErrNoInputFile)
	}
	if *output == "" {
		fmt.Fprintln(os.Stderr, "treeimport:", treeerr.ErrNoOutputFolder)
		return treeerr.ExitCode(treeerr.ErrNoOutputFolder)
	}

	history, historyErr := runhistory.Open(filepath.Join(os.TempDir(), "treeimport-history.sqlite"))
	var historyRun *runhistory.Run
	if historyErr != nil {
		fmt.Fprintln(os.Stderr, "treeimport: run history unavailable:", historyErr)
	} else {
		historyRun, historyErr = history.Begin(*input, *output, settings)
		if historyErr != nil {
			fmt.Fprintln(os.Stderr, "treeimport: run history unavailable:", historyErr)
		}
	}

	stats, err := pipeline.Run(*input, *output, settings, nil)

	if historyRun != nil {
		if finishErr := historyRun.Finish(stats.PointCount, stats.SegmentCount, stats.StageDurations, err); finishErr != nil {
			fmt.Fprintln(os.Stderr, "treeimport: run history unavailable:", finishErr)
		}
	}
	if history != nil {
		history.Close()
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "treeimport:", err)
		return treeerr.ExitCode(err)
	}

	fmt.Printf("treeimport: %d points, %d segments, %d octree nodes\n", stats.PointCount, stats.SegmentCount, stats.OutputNodeCount)
	return 0
}
