package segment

import (
	"fmt"
	"sort"

	"github.com/banshee-data/treeimport/internal/points"
	"github.com/banshee-data/treeimport/internal/slicestore"
)

// Segment is one finished tree segment: the union of every point that
// was ever absorbed into its footprint across the slabs it spanned.
type Segment struct {
	ID     uint32
	Points []points.Vec3
}

// Segmenter runs the top-down layer-by-layer algorithm of spec.md §4.5.
type Segmenter struct {
	maxDistance    float32
	minSegmentSize int
	nextID         uint32

	// DebugDir, when non-empty, makes Run write one SVG polygon overlay
	// per slab (slice_%04d.svg) into it via WriteDebugSVG.
	DebugDir string
}

// NewSegmenter configures the segmenter. maxDistance is the polygon
// absorption/merge threshold (segmenting_max_distance); minSegmentSize
// drops finished segments with fewer points than this (min_segment_size).
func NewSegmenter(maxDistance float32, minSegmentSize int) *Segmenter {
	return &Segmenter{maxDistance: maxDistance, minSegmentSize: minSegmentSize}
}

type activeSegment struct {
	id       uint32
	polygon  *Polygon
	centroid Vec2
	points   []points.Vec3
}

// Run consumes store one slab at a time from the top (highest Y) down,
// tracking footprints within each slab via NewTreeSet and carrying each
// footprint's identity down to the next slab by correspondence
// (spec.md §4.5.2). Correspondence is many-to-many: a new footprint may
// correspond to several active segments (a merge) and an active segment
// may correspond to several new footprints (a footprint that was merged
// earlier separating back out). When an active segment corresponds to
// more than one new footprint, its carried points are partitioned among
// them by nearest centroid — the point-location answer a Voronoi diagram
// of the corresponding centroids would give for each point — instead of
// being handed wholesale to a single winner, so a merged crown can split
// back into distinct trunks on a later slab (spec.md §8 scenario 5). The
// example corpus carries no Go Voronoi/Delaunay library, so this performs
// the equivalent point-location query directly rather than building one.
//
// An active segment that no footprint of the current slab continues is
// terminated immediately; any segments still active after the last slab are
// terminated too. Finished segments below minSegmentSize are dropped;
// the rest are returned sorted by descending point count (spec.md
// §4.5.3).
func (s *Segmenter) Run(store *slicestore.Store) ([]Segment, error) {
	var active []activeSegment
	var finished []Segment

	for top := 0; top < store.SlabCount(); top++ {
		slab, err := store.TakeSlabTopDown(top)
		if err != nil {
			return nil, fmt.Errorf("segment: slab %d: %w", top, err)
		}
		if len(slab) == 0 {
			finished = append(finished, terminateAll(active)...)
			active = nil
			continue
		}

		flat := make([]Vec2, len(slab))
		for i, p := range slab {
			flat[i] = Vec2{X: p.X, Z: p.Z}
		}
		ts := NewTreeSet(flat, s.maxDistance)
		if s.DebugDir != "" {
			if err := WriteDebugSVG(s.DebugDir, top, ts.Polygons); err != nil {
				return nil, fmt.Errorf("segment: slab %d debug svg: %w", top, err)
			}
		}

		var justFinished []Segment
		active, justFinished = advance(active, ts, slab, &s.nextID)
		finished = append(finished, justFinished...)
	}
	finished = append(finished, terminateAll(active)...)

	var kept []Segment
	for _, seg := range finished {
		if len(seg.Points) >= s.minSegmentSize {
			kept = append(kept, seg)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return len(kept[i].Points) > len(kept[j].Points) })
	return kept, nil
}

// advance matches one slab's TreeSet against the previous slab's active
// segments and returns the new active set plus any segment that found no
// continuation in this slab. Correspondence is many-to-many: an active
// segment may match more than one new footprint, in which case its
// carried points are partitioned among them by nearest centroid rather
// than handed wholesale to a single winner (see Run's doc comment).
// nextID is shared across slabs and bumped in place for every footprint
// that starts a fresh identity.
func advance(active []activeSegment, ts *TreeSet, slab []points.Vec3, nextID *uint32) ([]activeSegment, []Segment) {
	var finished []Segment

	centroids := make([]Vec2, len(ts.Polygons))
	for i, poly := range ts.Polygons {
		centroids[i] = poly.Centroid()
	}

	// corresponding[j] lists every new footprint active[j] corresponds to;
	// it may hold more than one entry when a previously-merged footprint
	// separates again.
	corresponding := make([][]int, len(active))
	for j := range active {
		for i, poly := range ts.Polygons {
			if corresponds(active[j], *poly, centroids[i]) {
				corresponding[j] = append(corresponding[j], i)
			}
		}
	}

	carried := make([][]points.Vec3, len(ts.Polygons))
	contributed := make([]map[int]int, len(active))
	for j, seg := range active {
		dests := corresponding[j]
		if len(dests) == 0 {
			finished = append(finished, Segment{ID: seg.id, Points: seg.points})
			continue
		}
		contributed[j] = make(map[int]int, len(dests))
		if len(dests) == 1 {
			i := dests[0]
			carried[i] = append(carried[i], seg.points...)
			contributed[j][i] = len(seg.points)
			continue
		}
		for _, p := range seg.points {
			pv := Vec2{X: p.X, Z: p.Z}
			best := dests[0]
			bestDist := pv.Sub(centroids[best]).Length()
			for _, i := range dests[1:] {
				if d := pv.Sub(centroids[i]).Length(); d < bestDist {
					bestDist = d
					best = i
				}
			}
			carried[best] = append(carried[best], p)
			contributed[j][best]++
		}
	}

	// Each active segment's identity passes to whichever destination
	// absorbed the most of its own points; any other destination it also
	// reaches (a genuine split) starts a fresh identity, since an ID can
	// only continue into one successor.
	winnerID := make([]uint32, len(ts.Polygons))
	winnerCount := make([]int, len(ts.Polygons))
	hasWinner := make([]bool, len(ts.Polygons))
	for j, seg := range active {
		dests := corresponding[j]
		if len(dests) == 0 {
			continue
		}
		best, bestCount := dests[0], contributed[j][dests[0]]
		for _, i := range dests[1:] {
			if n := contributed[j][i]; n > bestCount {
				best, bestCount = i, n
			}
		}
		if !hasWinner[best] || bestCount > winnerCount[best] {
			hasWinner[best] = true
			winnerCount[best] = bestCount
			winnerID[best] = seg.id
		}
	}

	next := make([]activeSegment, len(ts.Polygons))
	for i, poly := range ts.Polygons {
		members := make([]points.Vec3, len(ts.Indices[i]))
		for k, idx := range ts.Indices[i] {
			members[k] = slab[idx]
		}
		id := winnerID[i]
		if !hasWinner[i] {
			*nextID++
			id = *nextID
		}
		next[i] = activeSegment{
			id:       id,
			polygon:  poly,
			centroid: centroids[i],
			points:   append(carried[i], members...),
		}
	}
	return next, finished
}

func terminateAll(active []activeSegment) []Segment {
	out := make([]Segment, len(active))
	for i, seg := range active {
		out[i] = Segment{ID: seg.id, Points: seg.points}
	}
	return out
}

// corresponds decides whether a new slab's footprint continues prev: its
// centroid must land inside prev's polygon, or vice versa, or the two
// rings must overlap outright. Any of the three is evidence the same
// tree trunk/crown passes through both slabs at this height.
func corresponds(prev activeSegment, poly Polygon, centroid Vec2) bool {
	return prev.polygon.ContainsPoint(centroid) ||
		poly.ContainsPoint(prev.centroid) ||
		prev.polygon.Intersects(poly)
}
