package analyze

import (
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/treeimport/internal/points"
	"github.com/stretchr/testify/require"
)

func cylinderPoints(radius float32, minY, maxY, step float32) []points.Vec3 {
	var pts []points.Vec3
	for y := minY; y <= maxY; y += step {
		for a := 0; a < 8; a++ {
			angle := float32(a) * 0.785398
			pts = append(pts, points.Vec3{
				X: radius * cos32(angle),
				Y: y,
				Z: radius * sin32(angle),
			})
		}
	}
	return pts
}

func cos32(x float32) float32 { return float32(math.Cos(float64(x))) }
func sin32(x float32) float32 { return float32(math.Sin(float64(x))) }

func TestAnalyzeEmptyInput(t *testing.T) {
	res := Analyze(nil, 1, defaultOptions(), rand.New(rand.NewSource(1)))
	require.Empty(t, res.Points)
}

func TestAnalyzeProducesOnePointAttributePerInput(t *testing.T) {
	pts := cylinderPoints(0.3, 0, 5, 0.5)
	res := Analyze(pts, 42, defaultOptions(), rand.New(rand.NewSource(1)))
	require.Len(t, res.Points, len(pts))
	for _, p := range res.Points {
		require.Equal(t, uint32(42), p.Segment)
	}
}

func TestAnalyzeTotalHeightMatchesInputExtent(t *testing.T) {
	pts := []points.Vec3{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 10, Z: 0},
		{X: 1, Y: 5, Z: 0},
	}
	res := Analyze(pts, 1, defaultOptions(), rand.New(rand.NewSource(1)))
	require.Equal(t, "10.00m", res.Traits.TotalHeight.String())
}

func TestCircleFitsKnownCircle(t *testing.T) {
	type p2 = struct{ x, y float32 }
	a := p2{1, 0}
	b := p2{0, 1}
	c := p2{-1, 0}
	center, radius, ok := circle(a, b, c)
	require.True(t, ok)
	require.InDelta(t, 0, center.x, 1e-4)
	require.InDelta(t, 0, center.y, 1e-4)
	require.InDelta(t, 1, radius, 1e-4)
}

func TestCircleRejectsObtuseConfiguration(t *testing.T) {
	type p2 = struct{ x, y float32 }
	_, _, ok := circle(p2{0, 0}, p2{1, 0}, p2{2, 0})
	require.False(t, ok)
}

func TestFastEigenvaluesDiagonalMatrix(t *testing.T) {
	m := [3][3]float32{{3, 0, 0}, {0, 1, 0}, {0, 0, 2}}
	eig := fastEigenvalues(m)
	require.InDelta(t, 3, eig.x, 1e-4)
	require.InDelta(t, 1, eig.y, 1e-4)
	require.InDelta(t, 2, eig.z, 1e-4)
}

func defaultOptions() Options {
	return Options{
		SliceWidth:              1.0,
		NeighborsCount:          8,
		NeighborsMaxDistance:    2.0,
		TrunkDiameterHeight:     1.3,
		TrunkDiameterRange:      0.2,
		CrownDiameterDifference: 0.1,
	}
}
