package segment

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

// WriteDebugSVG dumps one slab's tracked footprints as a flat SVG polygon
// overlay, grounded on original_source/importer/src/segment.rs's
// Tree::save_svg/TreeSet::save. Each polygon is filled with a random
// color so adjacent footprints are visually distinguishable; this is a
// debugging aid, not a stable output format, so no color seed is fixed.
func WriteDebugSVG(dir string, slabIndex int, polygons []*Polygon) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("segment: create debug dir: %w", err)
	}

	var minX, minZ, maxX, maxZ float32
	first := true
	for _, poly := range polygons {
		for _, p := range poly.Points {
			if first {
				minX, maxX, minZ, maxZ = p.X, p.X, p.Z, p.Z
				first = false
				continue
			}
			minX, maxX = minOf(minX, p.X), maxOf(maxX, p.X)
			minZ, maxZ = minOf(minZ, p.Z), maxOf(maxZ, p.Z)
		}
	}
	width, height := (maxX-minX)*10+20, (maxZ-minZ)*10+20

	path := filepath.Join(dir, fmt.Sprintf("slice_%04d.svg", slabIndex))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("segment: create %s: %w", path, err)
	}
	defer f.Close()

	fmt.Fprintf(f, "<svg viewBox=\"0 0 %g %g\" xmlns=\"http://www.w3.org/2000/svg\" width=\"%g\" height=\"%g\">\n", width, height, width, height)
	for _, poly := range polygons {
		fmt.Fprint(f, "  <polygon points=\"")
		for _, p := range poly.Points {
			fmt.Fprintf(f, "%g,%g ", (p.X-minX)*10+10, (p.Z-minZ)*10+10)
		}
		fmt.Fprintf(f, "\" fill=\"rgb(%d, %d, %d)\"/>\n", rand.Intn(256), rand.Intn(256), rand.Intn(256))
	}
	fmt.Fprint(f, "</svg>\n")
	return nil
}

func minOf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxOf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
