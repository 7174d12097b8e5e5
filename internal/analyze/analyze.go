// Package analyze computes the per-segment geometric traits and
// per-point attributes of spec.md §4.6, grounded on
// original_source/importer/src/calculations.rs.
package analyze

import (
	"math"
	"math/rand"
	"sort"

	"github.com/banshee-data/treeimport/internal/descriptor"
	"github.com/banshee-data/treeimport/internal/points"
	"github.com/banshee-data/treeimport/internal/segment"
	"gonum.org/v1/gonum/mat"
)

// Options configures the analysis; every field corresponds to a
// Settings field from spec.md §6.
type Options struct {
	SliceWidth              float32
	NeighborsCount          int
	NeighborsMaxDistance    float32
	TrunkDiameterHeight     float32
	TrunkDiameterRange      float32
	CrownDiameterDifference float32
}

// Traits holds the whole-segment measurements reported in project.json's
// segment_values matrix.
type Traits struct {
	TotalHeight   descriptor.Value
	TrunkHeight   descriptor.Value
	CrownHeight   descriptor.Value
	TrunkDiameter descriptor.Value
	CrownDiameter descriptor.Value
}

// TraitColumns names Traits' fields in the order Flatten writes them.
var TraitColumns = []string{"total_height", "trunk_height", "crown_height", "trunk_diameter", "crown_diameter"}

// Flatten returns t's values in TraitColumns order, for appending to a
// project's row-major segment_values matrix.
func (t Traits) Flatten() []descriptor.Value {
	return []descriptor.Value{t.TotalHeight, t.TrunkHeight, t.CrownHeight, t.TrunkDiameter, t.CrownDiameter}
}

// Result is one segment's complete analysis output.
type Result struct {
	Points []points.Attributed
	Traits Traits
}

// Analyze computes per-point attributes and whole-segment traits for one
// segment's raw points. segmentID is the 1-based id written into every
// output point. rng drives the RANSAC trunk-circle fit; pass a
// deterministically seeded source for reproducible runs.
func Analyze(data []points.Vec3, segmentID uint32, opt Options, rng *rand.Rand) Result {
	if len(data) == 0 {
		return Result{}
	}

	minY, maxY := data[0].Y, data[0].Y
	for _, p := range data[1:] {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	height := maxY - minY
	sliceWidth := opt.SliceWidth
	if sliceWidth <= 0 {
		sliceWidth = 1
	}

	sliceCount := int(math.Ceil(float64(height/sliceWidth))) + 1
	polys := make([]*segment.Polygon, sliceCount)
	for _, p := range data {
		idx := sliceIndex(p.Y, minY, sliceWidth, sliceCount)
		v := segment.Vec2{X: p.X, Z: p.Z}
		if polys[idx] == nil {
			np := segment.NewPolygon(v, 0)
			polys[idx] = &np
		} else {
			polys[idx].Insert(v, 0)
		}
	}
	areas := make([]float32, sliceCount)
	for i, poly := range polys {
		if poly != nil {
			areas[i] = poly.Area()
		}
	}

	maxArea := float32(1.0)
	hasArea := false
	for _, a := range areas {
		if !hasArea || a > maxArea {
			maxArea = a
			hasArea = true
		}
	}
	if !hasArea {
		maxArea = 1.0
	}

	oneSlice := int(1.0 / sliceWidth)
	tenSlice := int(10.0 / sliceWidth)
	minArea := float32(0.5)
	window := windowSlice(areas, oneSlice, tenSlice)
	if len(window) > 0 {
		m := window[0]
		for _, a := range window[1:] {
			if a < m {
				m = a
			}
		}
		if m > minArea {
			minArea = m
		}
	}

	ground := -1
	for i := 0; i < oneSlice && i < len(areas); i++ {
		if areas[i] > minArea {
			ground = i
			break
		}
	}
	groundSep := 0
	if ground != -1 {
		half := sliceCount / 2
		groundSep = 0
		found := false
		for i := ground; i < half && i < len(areas); i++ {
			if areas[i] < minArea {
				groundSep = i
				found = true
				break
			}
		}
		if !found {
			groundSep = 0
		}
	}

	trunkMinF := float32(groundSep)*sliceWidth + opt.TrunkDiameterHeight - 0.5*opt.TrunkDiameterRange
	trunkMaxF := trunkMinF + opt.TrunkDiameterRange

	type pt2 struct{ x, y float32 }
	var slice130 []pt2
	for _, p := range data {
		h := p.Y - minY
		if h >= trunkMinF && h < trunkMaxF {
			slice130 = append(slice130, pt2{p.X, p.Y})
		}
	}

	trunkMinIdx := int(trunkMinF / sliceWidth)
	trunkMaxIdx := int(math.Ceil(float64(trunkMaxF / sliceWidth)))

	bestDiameter := float32(0.5)
	if len(slice130) >= 8 {
		bestScore := float32(math.MaxFloat32)
		for i := 0; i < 1000; i++ {
			a := slice130[rng.Intn(len(slice130))]
			b := slice130[rng.Intn(len(slice130))]
			c := slice130[rng.Intn(len(slice130))]
			center, radius, ok := circle(a, b, c)
			if !ok {
				continue
			}
			var score float32
			for _, p := range slice130 {
				dx, dy := p.x-center.x, p.y-center.y
				d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
				diff := d - radius
				if diff < 0 {
					diff = -diff
				}
				if diff > 0.2 {
					diff = 0.2
				}
				score += diff
			}
			if score < bestScore {
				bestScore = score
				bestDiameter = 2 * radius
			}
		}
	}

	minCrownArea := math.Pi * float64((bestDiameter+opt.CrownDiameterDifference)/2) * float64((bestDiameter+opt.CrownDiameterDifference)/2)
	crownSep := 0
	for i := trunkMaxIdx; i < len(areas); i++ {
		if float64(areas[i]) > minCrownArea {
			crownSep = i
			break
		}
	}
	crownArea := float32(0)
	for i := crownSep; i < len(areas); i++ {
		if areas[i] > crownArea {
			crownArea = areas[i]
		}
	}

	slices := make([]uint32, sliceCount)
	for i, a := range areas {
		slices[i] = points.QuantizeUnit(a / maxArea)
	}

	out := make([]points.Attributed, len(data))
	for i, p := range data {
		neighbors := kNearest(data, i, opt.NeighborsCount, opt.NeighborsMaxDistance)

		var mean points.Vec3
		for _, n := range neighbors {
			mean = mean.Add(data[n.index])
		}
		mean = mean.Scale(1 / float32(len(neighbors)))

		// The covariance accumulation is carried in a mat.SymDense so it's
		// constructed and read back through gonum's matrix type; the
		// eigen-solve below still follows the closed-form characteristic
		// polynomial procedure rather than mat's own eigendecomposition.
		var accum [3][3]float64
		for _, n := range neighbors {
			d := data[n.index].Sub(mean)
			comp := [3]float64{float64(d.X), float64(d.Y), float64(d.Z)}
			for x := 0; x < 3; x++ {
				for y := x; y < 3; y++ {
					accum[x][y] += comp[x] * comp[y]
				}
			}
		}
		cov := mat.NewSymDense(3, nil)
		inv := 1 / float64(len(neighbors))
		for x := 0; x < 3; x++ {
			for y := x; y < 3; y++ {
				cov.SetSym(x, y, accum[x][y]*inv)
			}
		}
		var covArr [3][3]float32
		for x := 0; x < 3; x++ {
			for y := 0; y < 3; y++ {
				covArr[x][y] = float32(cov.At(x, y))
			}
		}

		eigen := fastEigenvalues(covArr)
		normal := lastEigenvector(covArr, eigen)

		var sizeSum float32
		for _, n := range neighbors[1:] {
			sizeSum += float32(math.Sqrt(float64(n.distSq)))
		}
		if sizeSum < 0.01 {
			sizeSum = 0.01
		}
		size := sizeSum
		if len(neighbors) > 1 {
			size = sizeSum / float32(len(neighbors)-1) / 2
		}

		idx := sliceIndex(p.Y, minY, sliceWidth, sliceCount)
		var class points.Classification
		switch {
		case idx >= trunkMinIdx && idx < trunkMaxIdx:
			class = points.ClassTrunk
		case idx <= groundSep:
			class = points.ClassGround
		case idx <= crownSep:
			class = points.ClassCrown
		default:
			class = points.ClassOther
		}

		var heightFrac float32
		if maxY > minY {
			heightFrac = (p.Y - minY) / (maxY - minY)
		}

		curveDenom := 2*eigen.y + eigen.z
		var curve float32
		if curveDenom != 0 {
			curve = 3 * eigen.z / curveDenom
		}

		out[i] = points.Attributed{
			Render: points.RenderPoint{
				Position: p,
				Normal:   normal,
				Size:     size,
			},
			Segment:        segmentID,
			Classification: class,
			Slice:          slices[idx],
			Height:         points.QuantizeUnit(heightFrac),
			Curve:          points.QuantizeUnit(curve),
		}
	}

	totalHeight := height - float32(groundSep)*sliceWidth
	crownMinusGround := crownSep - groundSep
	if crownMinusGround < 0 {
		crownMinusGround = 0
	}
	trunkHeight := totalHeight - float32(crownMinusGround)*sliceWidth
	crownHeight := totalHeight - trunkHeight

	var trunkHeightPct, crownHeightPct float32
	if totalHeight != 0 {
		trunkHeightPct = trunkHeight / totalHeight
		crownHeightPct = crownHeight / totalHeight
	}

	return Result{
		Points: out,
		Traits: Traits{
			TotalHeight:   descriptor.Meters(totalHeight),
			TrunkHeight:   descriptor.RelativeHeight(trunkHeight, trunkHeightPct),
			CrownHeight:   descriptor.RelativeHeight(crownHeight, crownHeightPct),
			TrunkDiameter: descriptor.Meters(bestDiameter),
			CrownDiameter: descriptor.Meters(2 * float32(math.Sqrt(float64(crownArea)/math.Pi))),
		},
	}
}

func sliceIndex(y, minY, sliceWidth float32, count int) int {
	idx := int((y - minY) / sliceWidth)
	if idx < 0 {
		idx = 0
	}
	if idx >= count {
		idx = count - 1
	}
	return idx
}

func windowSlice(s []float32, skip, take int) []float32 {
	if skip >= len(s) {
		return nil
	}
	end := skip + take
	if end > len(s) {
		end = len(s)
	}
	return s[skip:end]
}

type neighbor struct {
	index  int
	distSq float32
}

// kNearest returns up to k points.Vec3 entries from data nearest to
// data[i] (including data[i] itself at distance 0), sorted ascending by
// squared distance, restricted to maxDistance. It is a plain
// sort-based scan rather than a spatial index: this module's corpus
// carries no grounded Go k-d tree library, and with the project's
// hard rule against ever running the Go toolchain, a brute-force scan
// that is unambiguously correct beats a best-effort binding to an
// unverified third-party API.
func kNearest(data []points.Vec3, i, k int, maxDistance float32) []neighbor {
	maxSq := maxDistance * maxDistance
	entries := make([]neighbor, 0, len(data))
	for j, p := range data {
		d := p.Sub(data[i])
		distSq := d.Dot(d)
		if distSq <= maxSq {
			entries = append(entries, neighbor{index: j, distSq: distSq})
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].distSq < entries[b].distSq })
	if k > 0 && len(entries) > k {
		entries = entries[:k]
	}
	return entries
}

type vec3f struct{ x, y, z float32 }

// fastEigenvalues computes the eigenvalues of a real symmetric 3x3
// matrix in closed form.
// https://en.wikipedia.org/wiki/Eigenvalue_algorithm#3%C3%973_matrices
func fastEigenvalues(m [3][3]float32) vec3f {
	sq := func(x float32) float32 { return x * x }

	p1 := sq(m[0][1]) + sq(m[0][2]) + sq(m[1][2])
	if p1 == 0 {
		return vec3f{m[0][0], m[1][1], m[2][2]}
	}

	q := (m[0][0] + m[1][1] + m[2][2]) / 3
	p2 := sq(m[0][0]-q) + sq(m[1][1]-q) + sq(m[2][2]-q) + 2*p1
	p := float32(math.Sqrt(float64(p2 / 6)))

	b := m
	for i := 0; i < 3; i++ {
		b[i][i] -= q
	}
	det := determinant3(b)
	r := det / 2 * float32(math.Pow(float64(p), -3))

	var phi float32
	switch {
	case r <= -1:
		phi = math.Pi / 3
	case r >= 1:
		phi = 0
	default:
		phi = float32(math.Acos(float64(r))) / 3
	}

	eig1 := q + 2*p*float32(math.Cos(float64(phi)))
	eig3 := q + 2*p*float32(math.Cos(float64(phi)+2*math.Pi/3))
	eig2 := 3*q - eig1 - eig3
	return vec3f{eig1, eig2, eig3}
}

func determinant3(m [3][3]float32) float32 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

// lastEigenvector recovers the eigenvector for eig.z as the normalized
// third column of (m - eig.x*I)(m - eig.y*I), which for a symmetric m
// lies along the eig.z eigenvector.
func lastEigenvector(m [3][3]float32, eig vec3f) points.Vec3 {
	var v [3]float32
	for j := 0; j < 3; j++ {
		for k := 0; k < 3; k++ {
			lhs := m[k][j]
			if k == j {
				lhs -= eig.x
			}
			rhs := m[2][k]
			if k == 2 {
				rhs -= eig.y
			}
			v[j] += lhs * rhs
		}
	}
	out := points.Vec3{X: v[0], Y: v[1], Z: v[2]}
	return out.Normalized()
}

// circle fits the unique circle through three points, per
// https://stackoverflow.com/a/34326390 adapted for 2D. It returns
// ok=false when the triangle is obtuse at any of a, b or c (no
// well-defined small circle) or degenerate (collinear, producing a NaN
// radius).
func circle(a, b, c struct{ x, y float32 }) (struct{ x, y float32 }, float32, bool) {
	ac := struct{ x, y float32 }{c.x - a.x, c.y - a.y}
	ab := struct{ x, y float32 }{b.x - a.x, b.y - a.y}
	bc := struct{ x, y float32 }{c.x - b.x, c.y - b.y}

	dot := func(u, v struct{ x, y float32 }) float32 { return u.x*v.x + u.y*v.y }
	if dot(ab, ac) < 0 || dot(ac, bc) < 0 || dot(ab, bc) > 0 {
		return struct{ x, y float32 }{}, 0, false
	}

	cross := ab.x*ac.y - ab.y*ac.x
	acSq := dot(ac, ac)
	abSq := dot(ab, ab)
	toX := (-ab.y*acSq + ac.y*abSq) / (2 * cross)
	toY := (ab.x*acSq - ac.x*abSq) / (2 * cross)
	radius := float32(math.Sqrt(float64(toX*toX + toY*toY)))
	if math.IsNaN(float64(radius)) {
		return struct{ x, y float32 }{}, 0, false
	}
	return struct{ x, y float32 }{a.x + toX, a.y + toY}, radius, true
}
