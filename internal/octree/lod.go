package octree

import (
	"math"

	"github.com/banshee-data/treeimport/internal/points"
)

const (
	gridSize   = 64
	pointScale = 0.95
)

type cell struct {
	count     int
	position  points.Vec3
	normal    points.Vec3
	totalArea float32
	slice     uint32
	height    uint32
	curve     uint32
	segment   uint32
}

// gridAggregate downsamples a branch's children into one representative
// point cloud by binning into a 64^3 grid spanning [corner, corner+size)
// and area-weighting each cell's normal via fast spherical linear
// interpolation (spec.md §4.7.2).
func gridAggregate(children []collection, corner points.Vec3, size float32) collection {
	grid := make([]cell, gridSize*gridSize*gridSize)
	scale := float32(gridSize) / size

	for _, c := range children {
		for i, p := range c.Render {
			diff := p.Position.Sub(corner).Scale(scale)
			gx := clampGrid(diff.X)
			gy := clampGrid(diff.Y)
			gz := clampGrid(diff.Z)
			idx := gx + gy*gridSize + gz*gridSize*gridSize

			cell := &grid[idx]
			cell.position = cell.position.Add(p.Position)
			area := p.Size * p.Size
			weight := area / (cell.totalArea + area)
			cell.normal = fastSlerp(cell.normal, p.Normal, weight)
			cell.totalArea += area
			cell.count++

			cell.slice = c.Slice[i]
			cell.height = c.Height[i]
			cell.curve = c.Curve[i]
			cell.segment = c.Segment[i]
		}
	}

	var out collection
	for _, c := range grid {
		if c.count == 0 {
			continue
		}
		out.Render = append(out.Render, points.RenderPoint{
			Position: c.position.Scale(1 / float32(c.count)),
			Normal:   c.normal,
			Size:     pointScale * float32(math.Sqrt(float64(c.totalArea))),
		})
		out.Slice = append(out.Slice, c.slice)
		out.Height = append(out.Height, c.height)
		out.Curve = append(out.Curve, c.curve)
		out.Segment = append(out.Segment, c.segment)
	}
	return out
}

func clampGrid(v float32) int {
	g := int(v)
	if g < 0 {
		g = 0
	}
	if g >= gridSize {
		g = gridSize - 1
	}
	return g
}

func approximateTheta(dist float32) float32 {
	const linearScale = 0.95
	const quadraticScale = 0.1
	return linearScale*dist + quadraticScale*dist*dist
}

// fastSlerp blends two (near-)unit normals by percent without a trig
// call per axis, using a small-angle approximation of the true slerp
// angle (level_of_detail.rs's fast_spherical_linear_interpolation).
func fastSlerp(start, end points.Vec3, percent float32) points.Vec3 {
	const sameDirectionThreshold = 0.999

	overlap := start.Dot(end)
	if abs32(overlap) >= sameDirectionThreshold {
		return start
	}
	endFlip := float32(1)
	if overlap < 0 {
		endFlip = -1
	}

	difference := end.Scale(endFlip).Sub(start)
	dist := difference.Length()
	theta := approximateTheta(dist)
	centerLength := float32(math.Sqrt(float64(1 - dist*dist/4)))

	t := (theta*float32(math.Tan(float64(percent-0.5)))*centerLength/dist) + 0.5
	res := start.Add(difference.Scale(t))
	return res.Normalized()
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
