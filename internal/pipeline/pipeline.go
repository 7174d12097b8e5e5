package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/banshee-data/treeimport/internal/analyze"
	"github.com/banshee-data/treeimport/internal/descriptor"
	"github.com/banshee-data/treeimport/internal/lazdecode"
	"github.com/banshee-data/treeimport/internal/octree"
	"github.com/banshee-data/treeimport/internal/report"
	"github.com/banshee-data/treeimport/internal/segment"
	"github.com/banshee-data/treeimport/internal/slicestore"
	"github.com/banshee-data/treeimport/internal/treeerr"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var logger = log.New(os.Stderr, "[pipeline] ", log.LstdFlags)

// Stats is written to statistics.json alongside the rest of the output
// folder: point/segment counts and a duration per named stage.
type Stats struct {
	PointCount        int              `json:"point_count"`
	SegmentCount      int              `json:"segment_count"`
	StageDurations    map[string]int64 `json:"stage_durations_ms"`
	OutputNodeCount   int              `json:"output_node_count"`
	HeightPercentiles Percentiles      `json:"height_percentiles_m"`
}

// Percentiles summarizes a distribution of segment total heights at the
// p50/p85/p98 marks, the way internal/db/db.go summarizes sweep metrics.
type Percentiles struct {
	P50 float64 `json:"p50"`
	P85 float64 `json:"p85"`
	P98 float64 `json:"p98"`
}

// heightPercentiles computes Percentiles over a project's total_height
// column. stat.Quantile requires its input sorted ascending.
func heightPercentiles(project descriptor.Project) Percentiles {
	width := len(project.SegmentInformation)
	if width == 0 {
		return Percentiles{}
	}
	heightIdx := -1
	for i, name := range project.SegmentInformation {
		if name == "total_height" {
			heightIdx = i
			break
		}
	}
	if heightIdx < 0 {
		return Percentiles{}
	}
	rows := len(project.SegmentValues) / width
	heights := make([]float64, 0, rows)
	for i := 0; i < rows; i++ {
		heights = append(heights, float64(project.SegmentValues[i*width+heightIdx].Float32()))
	}
	if len(heights) == 0 {
		return Percentiles{}
	}
	sort.Float64s(heights)
	return Percentiles{
		P50: stat.Quantile(0.50, stat.Empirical, heights, nil),
		P85: stat.Quantile(0.85, stat.Empirical, heights, nil),
		P98: stat.Quantile(0.98, stat.Empirical, heights, nil),
	}
}

// Run executes one full import: decode, slice, segment, analyze, build the
// LOD octree, and write project.json + the IDFs + statistics.json into
// output. codec decodes compressed chunk bytes into raw point records; it
// may be nil when the input file's point data is uncompressed (laz item
// layer version 0), in which case lazdecode.SequentialDecompressor is used.
// A non-nil codec is required for any compressed (laz version 3 or 4)
// input, since the LASzip wire codec itself is an external collaborator
// this pipeline never implements.
func Run(input, output string, settings *Settings, codec lazdecode.ChunkDecompressor) (Stats, error) {
	stats := Stats{StageDurations: map[string]int64{}}

	if err := settings.Validate(); err != nil {
		return stats, err
	}
	threads := settings.Threads
	if threads == 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	if threads == 1 {
		return stats, fmt.Errorf("pipeline: %w", treeerr.ErrNotEnoughThreads)
	}

	if _, err := os.Stat(input); err != nil {
		return stats, fmt.Errorf("pipeline: input %s: %w", input, treeerr.ErrNoInputFile)
	}
	if output == "" {
		return stats, fmt.Errorf("pipeline: %w", treeerr.ErrNoOutputFolder)
	}
	if err := prepareOutputFolder(output); err != nil {
		return stats, err
	}
	logger.Printf("starting import: input=%s output=%s threads=%d", input, output, threads)

	f, err := os.Open(input)
	if err != nil {
		return stats, fmt.Errorf("pipeline: open %s: %w", input, treeerr.ErrNoInputFile)
	}
	defer f.Close()

	t0 := time.Now()
	header, err := lazdecode.ParseHeader(f)
	if err != nil {
		return stats, fmt.Errorf("pipeline: %w", err)
	}
	min, max, center := header.WorldBounds()

	var ranges []lazdecode.ChunkRange
	if header.LazVersion == 0 {
		if codec == nil {
			codec = lazdecode.SequentialDecompressor{}
		}
		ranges = lazdecode.SequentialChunks(header, header.PointDataOffset())
	} else {
		if codec == nil {
			return stats, fmt.Errorf("pipeline: compressed input needs an external codec: %w", treeerr.ErrUnsupportedVersion)
		}
		ranges, err = lazdecode.ReadChunkTable(f, header, header.PointDataOffset())
		if err != nil {
			return stats, fmt.Errorf("pipeline: %w", err)
		}
	}
	stats.StageDurations["header"] = time.Since(t0).Milliseconds()
	logger.Printf("[header] parsed, point_count=%d laz_version=%d", header.PointCount, header.LazVersion)

	spillDir, err := os.MkdirTemp("", "treeimport-spill-*")
	if err != nil {
		return stats, fmt.Errorf("pipeline: create spill dir: %w", err)
	}
	defer os.RemoveAll(spillDir)

	t0 = time.Now()
	store, err := slicestore.New(spillDir, min.Y, max.Y, settings.SegmentingSliceWidth)
	if err != nil {
		return stats, fmt.Errorf("pipeline: %w", err)
	}

	stream := lazdecode.NewStream(input, header, ranges, codec, threads, center)
	chunks, errc := stream.Run()
	for chunk := range chunks {
		for _, p := range chunk.Points {
			if err := store.Insert(p); err != nil {
				return stats, fmt.Errorf("pipeline: %w", err)
			}
			stats.PointCount++
		}
	}
	select {
	case err := <-errc:
		if err != nil {
			return stats, fmt.Errorf("pipeline: %w", treeerr.ErrInvalidFile)
		}
	default:
		// Stream.Run closes the output channel only after every worker has
		// returned, so a non-blocking read here never misses a reported error.
	}
	stats.StageDurations["decode_and_slice"] = time.Since(t0).Milliseconds()
	logger.Printf("[decode_and_slice] done, point_count=%d", stats.PointCount)

	t0 = time.Now()
	segmenter := segment.NewSegmenter(settings.SegmentingMaxDistance, settings.MinSegmentSize)
	if settings.DebugSegments {
		segmenter.DebugDir = filepath.Join(output, "debug")
	}
	segments, err := segmenter.Run(store)
	if err != nil {
		return stats, fmt.Errorf("pipeline: %w", err)
	}
	stats.StageDurations["segment"] = time.Since(t0).Milliseconds()
	stats.SegmentCount = len(segments)
	logger.Printf("[segment] done, segment_count=%d", stats.SegmentCount)

	t0 = time.Now()
	results := make([]analyze.Result, len(segments))
	opt := analyze.Options{
		SliceWidth:              settings.CalculationsSliceWidth,
		NeighborsCount:          settings.NeighborsCount,
		NeighborsMaxDistance:    settings.NeighborsMaxDistance,
		TrunkDiameterHeight:     settings.TrunkDiameterHeight,
		TrunkDiameterRange:      settings.TrunkDiameterRange,
		CrownDiameterDifference: settings.CrownDiameterDifference,
	}
	var g errgroup.Group
	g.SetLimit(threads)
	for i, seg := range segments {
		i, seg := i, seg
		segmentID := uint32(i + 1) // dense 1-based ids, matching descriptor.Project.Segment's row indexing
		g.Go(func() error {
			rng := rand.New(rand.NewSource(int64(segmentID)))
			results[i] = analyze.Analyze(seg.Points, segmentID, opt, rng)
			return nil
		})
	}
	_ = g.Wait() // Analyze never errors; this only awaits completion.
	stats.StageDurations["analyze"] = time.Since(t0).Milliseconds()
	logger.Printf("[analyze] done, segments=%d threads=%d", len(results), threads)

	t0 = time.Now()
	extent := max.Sub(min)
	size := extent.X
	if extent.Y > size {
		size = extent.Y
	}
	if extent.Z > size {
		size = extent.Z
	}
	if size <= 0 {
		size = 1
	}
	root := octree.NewRoot(min, size)
	segmentValues := make([]descriptor.Value, 0, len(results)*len(analyze.TraitColumns))
	for i, res := range results {
		segmentID := uint32(i + 1)
		for _, p := range res.Points {
			root.Insert(p, segmentID)
		}
		segmentValues = append(segmentValues, res.Traits.Flatten()...)
	}
	flat := octree.Flatten(root)
	stats.StageDurations["octree"] = time.Since(t0).Milliseconds()
	stats.OutputNodeCount = len(flat.Nodes)
	logger.Printf("[octree] flattened, node_count=%d depth=%d", stats.OutputNodeCount, flat.Depth)

	t0 = time.Now()
	writer, err := octree.CreateWriter(output, len(flat.Nodes))
	if err != nil {
		return stats, fmt.Errorf("pipeline: %w", err)
	}
	if err := writer.Save(flat.Nodes); err != nil {
		writer.Close()
		return stats, fmt.Errorf("pipeline: %w", err)
	}
	if err := writer.Close(); err != nil {
		return stats, fmt.Errorf("pipeline: %w", err)
	}
	stats.StageDurations["write_idf"] = time.Since(t0).Milliseconds()
	logger.Printf("[write_idf] done")

	project := descriptor.Project{
		Name:  filepath.Base(input),
		Depth: flat.Depth,
		Root:  flat.Root,
		Properties: []descriptor.Property{
			{StorageName: "slice", DisplayName: "Slice", Max: maxUint32},
			{StorageName: "height", DisplayName: "Height", Max: maxUint32},
			{StorageName: "curve", DisplayName: "Curve", Max: maxUint32},
			// inverse_height has no IDF of its own: a viewer derives it from
			// height.data via points.Unquantize(v) -> 1-v, the reverse of the
			// normalized height fraction already stored there.
			{StorageName: "height", DisplayName: "Inverse Height", Max: maxUint32},
		},
		SegmentInformation: analyze.TraitColumns,
		SegmentValues:      segmentValues,
	}
	if err := project.Save(filepath.Join(output, "project.json")); err != nil {
		return stats, fmt.Errorf("pipeline: %w", err)
	}

	stats.HeightPercentiles = heightPercentiles(project)
	if err := writeStatistics(output, stats); err != nil {
		return stats, fmt.Errorf("pipeline: %w", err)
	}

	if !settings.NoReport {
		if err := report.Write(output, project); err != nil {
			// Report artifacts are a convenience, not an output-folder
			// invariant (spec.md §6/§8); never fail the import over them.
			fmt.Fprintf(os.Stderr, "pipeline: report: %v\n", err)
		}
	}

	return stats, nil
}

const maxUint32 = 1<<32 - 1

// prepareOutputFolder creates output if absent, refuses a non-empty folder
// unless it already holds a prior project.json (in which case it's
// cleared), per spec.md §6.
func prepareOutputFolder(output string) error {
	info, err := os.Stat(output)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(output, 0o755); err != nil {
			return fmt.Errorf("pipeline: create output folder: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("pipeline: stat output folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("pipeline: %s: %w", output, treeerr.ErrOutputFolderIsFile)
	}

	entries, err := os.ReadDir(output)
	if err != nil {
		return fmt.Errorf("pipeline: read output folder: %w", err)
	}
	if len(entries) == 0 {
		return nil
	}

	hasProject := false
	for _, e := range entries {
		if e.Name() == "project.json" {
			hasProject = true
			break
		}
	}
	if !hasProject {
		return fmt.Errorf("pipeline: %s: %w", output, treeerr.ErrOutputFolderNotEmpty)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(output, e.Name())); err != nil {
			return fmt.Errorf("pipeline: clear output folder: %w", err)
		}
	}
	return nil
}

func writeStatistics(output string, stats Stats) error {
	path := filepath.Join(output, "statistics.json")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		return fmt.Errorf("encode statistics: %w", err)
	}
	return w.Flush()
}
