package segment

// TreeSet tracks the set of disjoint convex footprints growing within a
// single slab, per spec.md §4.5.1:
//  1. For each point, find a polygon whose Distance(point) <= maxDistance.
//  2. If more than one matches, pick the nearest.
//  3. If none match, seed a new polygon at the point.
//  4. Otherwise insert the point into the matching polygon.
//  5. After all points are placed, merge any polygons whose rings
//     intersect, then drop polygons that are small enough to be fully
//     contained (by centroid) inside another.
type TreeSet struct {
	Polygons []*Polygon
	// Members parallels Polygons: Members[i] holds the points assigned to
	// Polygons[i], needed downstream by the segmenter to size a segment.
	Members [][]Vec2
	// Indices parallels Members: Indices[i][k] is the position of
	// Members[i][k] in the slice NewTreeSet was built from, so callers can
	// recover the original (3D) point a footprint absorbed.
	Indices [][]int
}

// NewTreeSet builds the footprint set for one slab's points.
func NewTreeSet(pts []Vec2, maxDistance float32) *TreeSet {
	ts := &TreeSet{}
	for i, p := range pts {
		ts.absorb(p, i, maxDistance)
	}
	ts.mergeIntersecting(maxDistance)
	ts.dropContained(maxDistance)
	return ts
}

func (ts *TreeSet) absorb(p Vec2, idx int, maxDistance float32) {
	best := -1
	bestDist := maxDistance
	for i, poly := range ts.Polygons {
		d := poly.Distance(p)
		if d <= maxDistance && d <= bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 {
		np := NewPolygon(p, maxDistance)
		ts.Polygons = append(ts.Polygons, &np)
		ts.Members = append(ts.Members, []Vec2{p})
		ts.Indices = append(ts.Indices, []int{idx})
		return
	}
	ts.Polygons[best].Insert(p, maxDistance)
	ts.Members[best] = append(ts.Members[best], p)
	ts.Indices[best] = append(ts.Indices[best], idx)
}

// mergeIntersecting repeatedly unions pairs of intersecting polygons
// until no pair intersects, inserting the second ring's vertices into the
// first so the merged footprint stays convex (the reference's
// Tree::merge), and concatenating the two member lists.
func (ts *TreeSet) mergeIntersecting(maxDistance float32) {
	for {
		mergedAny := false
		for i := 0; i < len(ts.Polygons); i++ {
			for j := i + 1; j < len(ts.Polygons); j++ {
				if !ts.Polygons[i].Intersects(*ts.Polygons[j]) {
					continue
				}
				merged := append(append([]Vec2{}, ts.Members[i]...), ts.Members[j]...)
				mergedIdx := append(append([]int{}, ts.Indices[i]...), ts.Indices[j]...)
				for _, v := range ts.Polygons[j].Points {
					ts.Polygons[i].Insert(v, maxDistance)
				}
				ts.Members[i] = merged
				ts.Indices[i] = mergedIdx
				ts.Polygons = append(ts.Polygons[:j], ts.Polygons[j+1:]...)
				ts.Members = append(ts.Members[:j], ts.Members[j+1:]...)
				ts.Indices = append(ts.Indices[:j], ts.Indices[j+1:]...)
				mergedAny = true
				break
			}
			if mergedAny {
				break
			}
		}
		if !mergedAny {
			return
		}
	}
}

// dropContained removes any polygon whose centroid falls inside another,
// larger polygon — a footprint fully swallowed by its neighbor during
// growth rather than genuinely merged — and any polygon too small to be
// a plausible crown footprint on its own, with area below
// (maxDistance/2)^2 (spec.md §4.5.1 step 5).
func (ts *TreeSet) dropContained(maxDistance float32) {
	minArea := (maxDistance / 2) * (maxDistance / 2)
	keep := make([]bool, len(ts.Polygons))
	for i := range keep {
		keep[i] = true
	}
	for i, poly := range ts.Polygons {
		if poly.Area() < minArea {
			keep[i] = false
			continue
		}
		for j, other := range ts.Polygons {
			if i == j || !keep[i] || !keep[j] {
				continue
			}
			if other.Area() > poly.Area() && other.ContainsPoint(poly.Centroid()) {
				keep[i] = false
			}
		}
	}
	var polys []*Polygon
	var members [][]Vec2
	var indices [][]int
	for i, k := range keep {
		if k {
			polys = append(polys, ts.Polygons[i])
			members = append(members, ts.Members[i])
			indices = append(indices, ts.Indices[i])
		}
	}
	ts.Polygons = polys
	ts.Members = members
	ts.Indices = indices
}
