package octree

import "github.com/banshee-data/treeimport/internal/points"

// collection is one flattened node's point data across every output
// channel, kept in lock step (collection.Render[i] corresponds to
// Slice[i], Height[i], Curve[i] and Segment[i]).
type collection struct {
	Render  []points.RenderPoint
	Slice   []uint32
	Height  []uint32
	Curve   []uint32
	Segment []uint32
}

func collectionFromLeaf(pts []points.Attributed, segment uint32) collection {
	c := collection{
		Render:  make([]points.RenderPoint, len(pts)),
		Slice:   make([]uint32, len(pts)),
		Height:  make([]uint32, len(pts)),
		Curve:   make([]uint32, len(pts)),
		Segment: make([]uint32, len(pts)),
	}
	for i, p := range pts {
		c.Render[i] = p.Render
		c.Slice[i] = p.Slice
		c.Height[i] = p.Height
		c.Curve[i] = p.Curve
		c.Segment[i] = segment
	}
	return c
}
