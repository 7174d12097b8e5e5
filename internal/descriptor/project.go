package descriptor

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/banshee-data/treeimport/internal/points"
)

// NodeTree is one flattened octree node as written to project.json: its
// world position and cube size, its dense post-order index (spec.md
// §4.7.2), and its children (nil for a leaf).
type NodeTree struct {
	Position points.Vec3 `json:"position"`
	Size     float32     `json:"size"`
	Index    uint32      `json:"index"`
	Children []*NodeTree `json:"children,omitempty"`
}

// Property describes one octree-leaf-encoded scalar channel (slice,
// height or curve) available for coloring points in a viewer.
type Property struct {
	StorageName string `json:"storage_name"`
	DisplayName string `json:"display_name"`
	Max         uint32 `json:"max"`
}

// Project is the complete project.json document.
type Project struct {
	Name string   `json:"name"`
	Depth uint32  `json:"depth"`
	Root  NodeTree `json:"root"`

	Properties []Property `json:"properties"`

	// SegmentInformation names each column of SegmentValues, in order.
	SegmentInformation []string `json:"segment_information"`
	// SegmentValues is row-major: row i (0-based) holds segment i+1's
	// values, one per SegmentInformation column. len must be a multiple
	// of len(SegmentInformation).
	SegmentValues []Value `json:"segment_values"`
}

// Empty returns the placeholder project a viewer shows before any import
// has completed.
func Empty() Project {
	return Project{
		Name:       "No Project loaded",
		Root:       NodeTree{},
		Properties: []Property{{StorageName: "none", DisplayName: "None", Max: 1}},
	}
}

// Segment returns the trait row for the given 1-based segment index.
func (p Project) Segment(index uint32) ([]Value, error) {
	if index == 0 {
		return nil, fmt.Errorf("descriptor: segment index must be 1-based, got 0")
	}
	width := len(p.SegmentInformation)
	if width == 0 {
		return nil, fmt.Errorf("descriptor: project has no segment_information columns")
	}
	offset := (int(index) - 1) * width
	if offset+width > len(p.SegmentValues) {
		return nil, fmt.Errorf("descriptor: segment %d out of range", index)
	}
	return p.SegmentValues[offset : offset+width], nil
}

// Save writes p as project.json at path, truncating any existing file.
func (p Project) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("descriptor: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		return fmt.Errorf("descriptor: encode project: %w", err)
	}
	return w.Flush()
}

// Load reads a project.json document from path.
func Load(path string) (Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return Project{}, fmt.Errorf("descriptor: open %s: %w", path, err)
	}
	defer f.Close()

	var p Project
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&p); err != nil {
		return Project{}, fmt.Errorf("descriptor: decode %s: %w", path, err)
	}
	return p, nil
}
