// Package segment implements the top-down layer-by-layer polygonal
// tree-footprint segmentation described in spec.md §4.5, grounded on
// original_source/importer/src/segment.rs.
package segment

import "math"

// Vec2 is a 2D point in the horizontal (x, z) plane.
type Vec2 struct{ X, Z float32 }

func (v Vec2) Sub(o Vec2) Vec2    { return Vec2{v.X - o.X, v.Z - o.Z} }
func (v Vec2) Add(o Vec2) Vec2    { return Vec2{v.X + o.X, v.Z + o.Z} }
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Z * s} }
func (v Vec2) Dot(o Vec2) float32 { return v.X*o.X + v.Z*o.Z }
func (v Vec2) Length() float32    { return float32(math.Sqrt(float64(v.Dot(v)))) }

func (v Vec2) Normalized() Vec2 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

func minVec2(a, b Vec2) Vec2 { return Vec2{min32(a.X, b.X), min32(a.Z, b.Z)} }
func maxVec2(a, b Vec2) Vec2 { return Vec2{max32(a.X, b.X), max32(a.Z, b.Z)} }
func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Polygon is a convex 2D footprint: a CCW vertex ring plus its AABB
// inflated by maxDistance on each side (spec.md §4.5.1 step 2).
type Polygon struct {
	Points []Vec2
	Min    Vec2
	Max    Vec2
}

// NewPolygon seeds a small triangle of side 0.1 at p, per spec.md §4.5.1
// step 3 ("If none: seed a new polygon").
func NewPolygon(p Vec2, maxDistance float32) Polygon {
	return Polygon{
		Points: []Vec2{p, {p.X + 0.1, p.Z}, {p.X, p.Z + 0.1}},
		Min:    Vec2{p.X - maxDistance, p.Z - maxDistance},
		Max:    Vec2{p.X + maxDistance + 0.1, p.Z + maxDistance + 0.1},
	}
}

// PolygonFromPoints builds a polygon directly from a point list, taken as
// the ring in the order given (no hull is computed). One or two points are
// padded into a non-zero-area triangle the same way the reference's
// Tree::from_points does; zero points give a polygon with no vertices and
// an empty (inverted) AABB.
func PolygonFromPoints(pts []Vec2, maxDistance float32) Polygon {
	switch len(pts) {
	case 0:
		return Polygon{Min: Vec2{X: math.MaxFloat32, Z: math.MaxFloat32}, Max: Vec2{X: -math.MaxFloat32, Z: -math.MaxFloat32}}
	case 1:
		pts = append(pts, Vec2{pts[0].X + 0.1, pts[0].Z}, Vec2{pts[0].X, pts[0].Z + 0.1})
	case 2:
		diff := pts[1].Sub(pts[0])
		perp := Vec2{-diff.Z, diff.X}.Normalized().Scale(0.1)
		pts = append(pts, pts[0].Add(perp))
	}
	mn, mx := pts[0], pts[0]
	for _, p := range pts[1:] {
		mn = minVec2(mn, p)
		mx = maxVec2(mx, p)
	}
	return Polygon{
		Points: pts,
		Min:    Vec2{mn.X - maxDistance, mn.Z - maxDistance},
		Max:    Vec2{mx.X + maxDistance, mx.Z + maxDistance},
	}
}

// Distance returns the signed outward distance of p from the polygon:
// the max, over every edge, of the outward-normal dot product with
// p-edge_start. A point with Distance <= 0 is inside (or on the
// boundary). Points outside the inflated AABB short-circuit to
// math.MaxFloat32.
func (t Polygon) Distance(p Vec2) float32 {
	if p.X < t.Min.X || p.X >= t.Max.X || p.Z < t.Min.Z || p.Z >= t.Max.Z {
		return math.MaxFloat32
	}
	best := float32(-math.MaxFloat32)
	n := len(t.Points)
	for i := 0; i < n; i++ {
		a := t.Points[i]
		b := t.Points[(i+1)%n]
		dir := b.Sub(a)
		out := Vec2{dir.Z, -dir.X}.Normalized()
		diff := p.Sub(a)
		dist := out.Dot(diff)
		if dist > best {
			best = dist
		}
	}
	return best
}

func outside(a, b, p Vec2) bool {
	dir := b.Sub(a)
	out := Vec2{dir.Z, -dir.X}.Normalized()
	return out.Dot(p.Sub(a)) > 0
}

// Insert adds p to the polygon, replacing the contiguous arc of edges
// for which p is outward with the single vertex p — the convexity-
// preserving insertion of spec.md §4.5.1 step 3. If p is not outward of
// any edge (already inside), Insert is a no-op.
func (t *Polygon) Insert(p Vec2, maxDistance float32) {
	n := len(t.Points)
	outsideEdge := make([]bool, n)
	anyOutside := false
	for i := 0; i < n; i++ {
		outsideEdge[i] = outside(t.Points[i], t.Points[(i+1)%n], p)
		anyOutside = anyOutside || outsideEdge[i]
	}
	if !anyOutside {
		return
	}

	start := -1
	for i := 0; i < n; i++ {
		prev := (i - 1 + n) % n
		if outsideEdge[i] && !outsideEdge[prev] {
			start = i
			break
		}
	}

	if start == -1 {
		// Every edge is outward: p sees the whole polygon from outside it
		// (a degenerate seed, or p far from a tiny ring). Reseed around p.
		t.Points = []Vec2{p, {p.X + 0.1, p.Z}, {p.X, p.Z + 0.1}}
	} else {
		end := start
		for outsideEdge[end] {
			end = (end + 1) % n
			if end == start {
				break
			}
		}
		if end == start {
			t.Points = []Vec2{p, {p.X + 0.1, p.Z}, {p.X, p.Z + 0.1}}
		} else {
			next := make([]Vec2, 0, n+1)
			for i := end; ; i = (i + 1) % n {
				next = append(next, t.Points[i])
				if i == start {
					break
				}
			}
			next = append(next, p)
			t.Points = next
		}
	}

	t.Min = minVec2(t.Min, Vec2{p.X - maxDistance, p.Z - maxDistance})
	t.Max = maxVec2(t.Max, Vec2{p.X + maxDistance, p.Z + maxDistance})
}

// Intersects reports whether t and o's edges are not fully separated by
// an oriented-edge separating axis test (spec.md §4.5.1 step 4).
func (t Polygon) Intersects(o Polygon) bool {
	if t.Max.X < o.Min.X || o.Max.X < t.Min.X || t.Max.Z < o.Min.Z || o.Max.Z < t.Min.Z {
		return false
	}
	separated := func(ring, other []Vec2) bool {
		n := len(ring)
		for i := 0; i < n; i++ {
			a := ring[i]
			b := ring[(i+1)%n]
			dir := b.Sub(a)
			out := Vec2{dir.Z, -dir.X}.Normalized()
			allOutside := true
			for _, p := range other {
				if p.Sub(a).Dot(out) < 0 {
					allOutside = false
					break
				}
			}
			if allOutside {
				return true
			}
		}
		return false
	}
	return !(separated(t.Points, o.Points) || separated(o.Points, t.Points))
}

// Area returns the polygon's 2D area via the shoelace formula.
func (t Polygon) Area() float32 {
	n := len(t.Points)
	if n < 3 {
		return 0
	}
	var sum float32
	for i := 0; i < n; i++ {
		a := t.Points[i]
		b := t.Points[(i+1)%n]
		sum += a.X*b.Z - b.X*a.Z
	}
	if sum < 0 {
		sum = -sum
	}
	return sum / 2
}

// Centroid returns the mean of the polygon's vertices (not the
// area-weighted centroid — this matches the reference's tree_positions,
// which averages vertex positions directly).
func (t Polygon) Centroid() Vec2 {
	var c Vec2
	for _, p := range t.Points {
		c = c.Add(p)
	}
	return c.Scale(1 / float32(len(t.Points)))
}

// ContainsPoint reports whether p lies inside (or on the boundary of) t.
func (t Polygon) ContainsPoint(p Vec2) bool {
	return t.Distance(p) <= 0
}
