package octree

import (
	"testing"

	"github.com/banshee-data/treeimport/internal/points"
	"github.com/stretchr/testify/require"
)

func TestFastSlerpIdenticalNormalsIsStable(t *testing.T) {
	n := points.Vec3{X: 0, Y: 1, Z: 0}
	got := fastSlerp(n, n, 0.5)
	require.InDelta(t, 0, got.X, 1e-3)
	require.InDelta(t, 1, got.Y, 1e-3)
	require.InDelta(t, 0, got.Z, 1e-3)
}

func TestGridAggregateMergesCoincidentCellPoints(t *testing.T) {
	child := collection{
		Render: []points.RenderPoint{
			{Position: points.Vec3{X: 0.1, Y: 0.1, Z: 0.1}, Normal: points.Vec3{Y: 1}, Size: 0.1},
			{Position: points.Vec3{X: 0.1, Y: 0.1, Z: 0.1}, Normal: points.Vec3{Y: 1}, Size: 0.1},
		},
		Slice:   []uint32{1, 1},
		Height:  []uint32{2, 2},
		Curve:   []uint32{3, 3},
		Segment: []uint32{9, 9},
	}
	out := gridAggregate([]collection{child}, points.Vec3{}, 1.0)
	require.Len(t, out.Render, 1, "both points land in the same grid cell and should merge")
	require.Equal(t, uint32(9), out.Segment[0])
}
