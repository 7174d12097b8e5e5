// Package pipeline wires the import stages described in spec.md §5 into
// a single Run call: decode, slice, segment, analyze, build the LOD
// octree, and write the IDF/project outputs.
package pipeline

import (
	"fmt"

	"github.com/banshee-data/treeimport/internal/treeerr"
)

// Settings configures one import run. Every field corresponds to a CLI
// flag in spec.md §6.
type Settings struct {
	// Threads bounds how many decode/analyze workers run concurrently.
	// 0 means one worker per available CPU (runtime.GOMAXPROCS); 1 is
	// rejected, since the importer refuses a single-threaded run.
	Threads int

	// MinSegmentSize drops finished segments with fewer points than this.
	MinSegmentSize int
	// SegmentingSliceWidth is the height of each horizontal slab the
	// Segmenter tracks footprints within (meters).
	SegmentingSliceWidth float32
	// SegmentingMaxDistance is the footprint absorption/merge threshold
	// (meters).
	SegmentingMaxDistance float32

	// CalculationsSliceWidth is the slab height used by the per-segment
	// analyzer's area profile (meters).
	CalculationsSliceWidth float32
	// NeighborsCount bounds how many neighbors the analyzer considers per
	// point for its covariance/eigen decomposition.
	NeighborsCount int
	// NeighborsMaxDistance caps how far a neighbor can be (meters).
	NeighborsMaxDistance float32
	// TrunkDiameterHeight is the height above ground (meters) the trunk
	// diameter is measured at (breast height; default 1.3m).
	TrunkDiameterHeight float32
	// TrunkDiameterRange is the thickness of the slab (meters) around
	// TrunkDiameterHeight sampled for the circle fit.
	TrunkDiameterRange float32
	// CrownDiameterDifference pads the trunk diameter (meters) to decide
	// the minimum area that counts as crown rather than trunk taper.
	CrownDiameterDifference float32

	// LODSizeScale is validated (it must be positive) but is not read by
	// the octree builder, which scales LOD grid cell point sizes by its
	// own fixed factor of 0.95.
	LODSizeScale float32

	// NoReport skips writing report.html / height_histogram.png.
	NoReport bool
	// DebugSegments dumps an SVG of each slab's tracked footprints.
	DebugSegments bool
}

// DefaultSettings returns the defaults spec.md §6 documents for the CLI.
func DefaultSettings() *Settings {
	return &Settings{
		Threads:                 4,
		MinSegmentSize:          100,
		SegmentingSliceWidth:    1.0,
		SegmentingMaxDistance:   1.0,
		CalculationsSliceWidth:  0.5,
		NeighborsCount:          31,
		NeighborsMaxDistance:    1.0,
		TrunkDiameterHeight:     1.3,
		TrunkDiameterRange:      0.2,
		CrownDiameterDifference: 0.5,
		LODSizeScale:            0.95,
	}
}

// Validate checks that every field is in its acceptable range.
func (s *Settings) Validate() error {
	if s.Threads < 0 || s.Threads == 1 {
		return fmt.Errorf("Threads must be 0 (all cores) or >= 2, got %d: %w", s.Threads, treeerr.ErrNotEnoughThreads)
	}
	if s.MinSegmentSize < 1 {
		return fmt.Errorf("MinSegmentSize must be positive, got %d", s.MinSegmentSize)
	}
	if s.SegmentingSliceWidth <= 0 {
		return fmt.Errorf("SegmentingSliceWidth must be positive, got %f", s.SegmentingSliceWidth)
	}
	if s.SegmentingMaxDistance < 0 {
		return fmt.Errorf("SegmentingMaxDistance must be non-negative, got %f", s.SegmentingMaxDistance)
	}
	if s.CalculationsSliceWidth <= 0 {
		return fmt.Errorf("CalculationsSliceWidth must be positive, got %f", s.CalculationsSliceWidth)
	}
	if s.NeighborsCount < 1 {
		return fmt.Errorf("NeighborsCount must be positive, got %d", s.NeighborsCount)
	}
	if s.NeighborsMaxDistance <= 0 {
		return fmt.Errorf("NeighborsMaxDistance must be positive, got %f", s.NeighborsMaxDistance)
	}
	if s.TrunkDiameterRange <= 0 {
		return fmt.Errorf("TrunkDiameterRange must be positive, got %f", s.TrunkDiameterRange)
	}
	if s.CrownDiameterDifference < 0 {
		return fmt.Errorf("CrownDiameterDifference must be non-negative, got %f", s.CrownDiameterDifference)
	}
	if s.LODSizeScale <= 0 {
		return fmt.Errorf("LODSizeScale must be positive, got %f", s.LODSizeScale)
	}
	return nil
}
