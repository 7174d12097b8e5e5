package octree

import (
	"fmt"
	"path/filepath"

	"github.com/banshee-data/treeimport/internal/idf"
	"github.com/banshee-data/treeimport/internal/points"
)

// Writer owns the five per-node Indexed Data Files a flattened tree is
// written into (spec.md §4.7.3). The slot count is fixed at creation
// time, one slot per flattened node.
type Writer struct {
	Points  *idf.File[points.RenderPoint]
	Slice   *idf.File[uint32]
	Curve   *idf.File[uint32]
	Height  *idf.File[uint32]
	Segment *idf.File[uint32]
}

// CreateWriter creates all five IDFs under dir, each sized for exactly
// nodeCount slots.
func CreateWriter(dir string, nodeCount int) (*Writer, error) {
	pointsFile, err := idf.Create(filepath.Join(dir, "points.data"), nodeCount, idf.RenderPointCodec)
	if err != nil {
		return nil, fmt.Errorf("octree: %w", err)
	}
	sliceFile, err := idf.Create(filepath.Join(dir, "slice.data"), nodeCount, idf.Uint32Codec)
	if err != nil {
		return nil, fmt.Errorf("octree: %w", err)
	}
	curveFile, err := idf.Create(filepath.Join(dir, "curve.data"), nodeCount, idf.Uint32Codec)
	if err != nil {
		return nil, fmt.Errorf("octree: %w", err)
	}
	heightFile, err := idf.Create(filepath.Join(dir, "height.data"), nodeCount, idf.Uint32Codec)
	if err != nil {
		return nil, fmt.Errorf("octree: %w", err)
	}
	segmentFile, err := idf.Create(filepath.Join(dir, "segment.data"), nodeCount, idf.Uint32Codec)
	if err != nil {
		return nil, fmt.Errorf("octree: %w", err)
	}
	return &Writer{Points: pointsFile, Slice: sliceFile, Curve: curveFile, Height: heightFile, Segment: segmentFile}, nil
}

// Save writes every flattened node's data to its slot. Nodes are
// independent IDF slots, so this can safely run across a worker pool.
func (w *Writer) Save(nodes []FlatNode) error {
	for _, n := range nodes {
		if err := w.Points.Save(int(n.Index), n.data.Render); err != nil {
			return err
		}
		if err := w.Slice.Save(int(n.Index), n.data.Slice); err != nil {
			return err
		}
		if err := w.Curve.Save(int(n.Index), n.data.Curve); err != nil {
			return err
		}
		if err := w.Height.Save(int(n.Index), n.data.Height); err != nil {
			return err
		}
		if err := w.Segment.Save(int(n.Index), n.data.Segment); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every underlying IDF handle, returning the first error
// encountered (if any) after attempting to close them all.
func (w *Writer) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{w.Points, w.Slice, w.Curve, w.Height, w.Segment} {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
