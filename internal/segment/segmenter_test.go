package segment

import (
	"testing"

	"github.com/banshee-data/treeimport/internal/points"
	"github.com/banshee-data/treeimport/internal/slicestore"
	"github.com/stretchr/testify/require"
)

func buildStore(t *testing.T, pts []points.Vec3) *slicestore.Store {
	t.Helper()
	store, err := slicestore.New(t.TempDir(), 0, 10, 1.0)
	require.NoError(t, err)
	for _, p := range pts {
		require.NoError(t, store.Insert(p))
	}
	return store
}

// A column of points at the same (x,z) across every slab should survive
// as a single segment carrying every point.
func TestSegmenterTracksVerticalColumn(t *testing.T) {
	var pts []points.Vec3
	for y := float32(0); y < 10; y++ {
		pts = append(pts, points.Vec3{X: 0, Y: y, Z: 0})
	}
	store := buildStore(t, pts)

	segs, err := NewSegmenter(0.5, 1).Run(store)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Len(t, segs[0].Points, len(pts))
}

// Two columns far enough apart never correspond and never merge, and
// should yield two distinct segments.
func TestSegmenterKeepsDistantColumnsSeparate(t *testing.T) {
	var pts []points.Vec3
	for y := float32(0); y < 10; y++ {
		pts = append(pts, points.Vec3{X: 0, Y: y, Z: 0})
		pts = append(pts, points.Vec3{X: 50, Y: y, Z: 50})
	}
	store := buildStore(t, pts)

	segs, err := NewSegmenter(0.5, 1).Run(store)
	require.NoError(t, err)
	require.Len(t, segs, 2)
}

// Segments below min_segment_size are dropped entirely.
func TestSegmenterDropsSmallSegments(t *testing.T) {
	pts := []points.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	store := buildStore(t, pts)

	segs, err := NewSegmenter(0.5, 100).Run(store)
	require.NoError(t, err)
	require.Empty(t, segs)
}

// When a previously active segment corresponds to more than one new
// footprint — a crown that was merged on an earlier slab separating back
// into two trunks — its carried points must be partitioned between the
// two destinations by nearest centroid, and only one destination keeps
// the original ID; the other starts a fresh one (spec.md §4.5.2, §8
// scenario 5).
func TestAdvanceSplitsMergedSegmentByNearestCentroid(t *testing.T) {
	big := PolygonFromPoints([]Vec2{{X: -1, Z: -1}, {X: 4, Z: -1}, {X: 1.5, Z: 3}}, 0)
	prev := activeSegment{
		id:       1,
		polygon:  &big,
		centroid: big.Centroid(),
		points: []points.Vec3{
			{X: 0.10, Y: 5, Z: 0}, {X: 0.15, Y: 5, Z: 0}, {X: 0.05, Y: 5, Z: 0},
			{X: 2.90, Y: 5, Z: 0}, {X: 2.95, Y: 5, Z: 0}, {X: 2.85, Y: 5, Z: 0},
		},
	}

	left := NewPolygon(Vec2{X: 0, Z: 0}, 1)
	right := NewPolygon(Vec2{X: 3, Z: 0}, 1)
	ts := &TreeSet{
		Polygons: []*Polygon{&left, &right},
		Members:  [][]Vec2{{{X: 0, Z: 0}}, {{X: 3, Z: 0}}},
		Indices:  [][]int{{0}, {1}},
	}
	slab := []points.Vec3{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}}

	nextID := uint32(1)
	next, finished := advance([]activeSegment{prev}, ts, slab, &nextID)

	require.Empty(t, finished, "a segment reaching two destinations is not finished, it splits")
	require.Len(t, next, 2)

	require.Equal(t, uint32(1), next[0].id, "the points split evenly, so the first destination keeps the ID")
	require.Len(t, next[0].points, 4)
	require.NotEqual(t, uint32(1), next[1].id, "the other split half must start a new identity")
	require.Len(t, next[1].points, 4)

	total := len(next[0].points) + len(next[1].points)
	require.Equal(t, len(prev.points)+len(slab), total, "no carried or new points may be lost across the split")
}

func TestSegmenterSortsByDescendingSize(t *testing.T) {
	var pts []points.Vec3
	for y := float32(0); y < 10; y++ {
		pts = append(pts, points.Vec3{X: 0, Y: y, Z: 0})
	}
	for y := float32(0); y < 3; y++ {
		pts = append(pts, points.Vec3{X: 50, Y: y, Z: 50})
	}
	store := buildStore(t, pts)

	segs, err := NewSegmenter(0.5, 1).Run(store)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	require.GreaterOrEqual(t, len(segs[0].Points), len(segs[1].Points))
}
