package segment

import "testing"

func TestPolygonInsertGrowsHull(t *testing.T) {
	p := NewPolygon(Vec2{X: 0, Z: 0}, 1.0)
	p.Insert(Vec2{X: 5, Z: 0}, 1.0)
	p.Insert(Vec2{X: 0, Z: 5}, 1.0)
	p.Insert(Vec2{X: 5, Z: 5}, 1.0)

	for _, corner := range []Vec2{{0, 0}, {5, 0}, {0, 5}, {5, 5}} {
		if p.Distance(corner) > 1e-3 {
			t.Fatalf("corner %v not inside grown hull (distance %v)", corner, p.Distance(corner))
		}
	}
	if p.Area() <= 0 {
		t.Fatalf("expected positive area, got %v", p.Area())
	}
}

func TestPolygonDistanceInsideIsNonPositive(t *testing.T) {
	p := NewPolygon(Vec2{X: 0, Z: 0}, 1.0)
	if d := p.Distance(Vec2{X: 0, Z: 0}); d > 0 {
		t.Fatalf("seed point should be inside its own polygon, got distance %v", d)
	}
}

func TestPolygonFromPointsDegenerateSingle(t *testing.T) {
	p := PolygonFromPoints([]Vec2{{1, 1}}, 0)
	if len(p.Points) != 3 {
		t.Fatalf("expected padded triangle, got %d points", len(p.Points))
	}
}

func TestPolygonIntersectsSeparated(t *testing.T) {
	a := NewPolygon(Vec2{X: 0, Z: 0}, 0)
	b := NewPolygon(Vec2{X: 100, Z: 100}, 0)
	if a.Intersects(b) {
		t.Fatal("widely separated polygons should not intersect")
	}
}

func TestPolygonIntersectsOverlapping(t *testing.T) {
	a := PolygonFromPoints([]Vec2{{0, 0}, {4, 0}, {4, 4}, {0, 4}}, 0)
	b := PolygonFromPoints([]Vec2{{2, 2}, {6, 2}, {6, 6}, {2, 6}}, 0)
	if !a.Intersects(b) {
		t.Fatal("overlapping squares should intersect")
	}
}
