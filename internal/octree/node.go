// Package octree builds the disk-backed level-of-detail octree of
// spec.md §4.7, grounded on original_source/importer/src/tree.rs and
// level_of_detail.rs.
package octree

import "github.com/banshee-data/treeimport/internal/points"

// MaxLeafSize is the point count at which a leaf is promoted to a
// branch, unless it has already reached the terminal cube size.
const MaxLeafSize = 1 << 15

// TerminalSize is the cube side length at or below which a leaf is never
// split further, regardless of how many (or how mismatched) points land
// in it.
const TerminalSize = 0.1

// Node is one octree cell: either a branch with up to 8 children or a
// leaf holding points that all belong to the same segment.
type Node struct {
	Corner points.Vec3
	Size   float32

	leaf     bool
	segment  uint32
	leafPts  []points.Attributed
	Children [8]*Node
}

// NewRoot creates the root branch node covering [corner, corner+size)^3.
func NewRoot(corner points.Vec3, size float32) *Node {
	return &Node{Corner: corner, Size: size}
}

func newLeaf(corner points.Vec3, size float32, segment uint32) *Node {
	return &Node{Corner: corner, Size: size, leaf: true, segment: segment}
}

// Insert adds p, which belongs to segment, into the tree.
func (n *Node) Insert(p points.Attributed, segment uint32) {
	if !n.leaf {
		insertIntoChildren(&n.Children, p, n.Corner, n.Size, segment)
		return
	}

	switch {
	case len(n.leafPts) < MaxLeafSize && n.segment == segment:
		n.leafPts = append(n.leafPts, p)
	case n.Size > TerminalSize:
		existing := n.leafPts
		existingSegment := n.segment
		n.leaf = false
		n.leafPts = nil
		for _, ep := range existing {
			insertIntoChildren(&n.Children, ep, n.Corner, n.Size, existingSegment)
		}
		insertIntoChildren(&n.Children, p, n.Corner, n.Size, segment)
	default:
		// Terminal leaf at capacity or holding a different segment: the
		// cube cannot shrink further, so it stays a leaf and keeps growing
		// past MaxLeafSize rather than dropping the point (spec.md §4.7.1).
		n.leafPts = append(n.leafPts, p)
	}
}

func insertIntoChildren(children *[8]*Node, p points.Attributed, corner points.Vec3, size float32, segment uint32) {
	index := 0
	half := size / 2
	pos := p.Render.Position
	if pos.X >= corner.X+half {
		index |= 1
	}
	if pos.Y >= corner.Y+half {
		index |= 2
	}
	if pos.Z >= corner.Z+half {
		index |= 4
	}

	child := children[index]
	if child == nil {
		childCorner := corner
		if index&1 != 0 {
			childCorner.X += half
		}
		if index&2 != 0 {
			childCorner.Y += half
		}
		if index&4 != 0 {
			childCorner.Z += half
		}
		child = newLeaf(childCorner, half, segment)
		children[index] = child
	}
	child.Insert(p, segment)
}
