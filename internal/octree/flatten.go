package octree

import (
	"context"
	"sync/atomic"

	"github.com/banshee-data/treeimport/internal/descriptor"
	"golang.org/x/sync/errgroup"
)

// FlatNode is one node of the flattened, densely-indexed tree, ready to
// be written to the IDF output files at its Index slot.
type FlatNode struct {
	Index uint32
	data  collection
}

// FlattenResult is the complete output of Flatten: every node in
// post-order dense-index order, plus the NodeTree shape written to
// project.json.
type FlattenResult struct {
	Nodes []FlatNode
	Root  descriptor.NodeTree
	Depth uint32
}

// Flatten walks root bottom-up, assigning each node a dense post-order
// index as its subtree finishes and aggregating branch point clouds via
// the LOD grid (spec.md §4.7.2). Sibling subtrees are processed
// concurrently with golang.org/x/sync/errgroup: the reference
// implementation joins sibling results with a spin-yield loop over an
// AtomicCell, which has no well-behaved Go equivalent, so this uses
// structured concurrency instead (spec.md §9).
func Flatten(root *Node) FlattenResult {
	total := countNodes(root)
	nodes := make([]FlatNode, total)
	var next atomic.Uint32

	tree, depth := flattenNode(context.Background(), root, nodes, &next)
	return FlattenResult{Nodes: nodes, Root: tree, Depth: depth}
}

func countNodes(n *Node) int {
	if n.leaf {
		return 1
	}
	total := 1
	for _, c := range n.Children {
		if c != nil {
			total += countNodes(c)
		}
	}
	return total
}

func flattenNode(ctx context.Context, n *Node, nodes []FlatNode, next *atomic.Uint32) (descriptor.NodeTree, uint32) {
	var data collection
	var children []*descriptor.NodeTree
	var depth uint32

	if n.leaf {
		data = collectionFromLeaf(n.leafPts, n.segment)
		depth = 1
	} else {
		children = make([]*descriptor.NodeTree, 8)
		childTrees := make([]descriptor.NodeTree, 8)
		childLevels := make([]uint32, 8)
		present := make([]bool, 8)

		g, gctx := errgroup.WithContext(ctx)
		for i, c := range n.Children {
			if c == nil {
				continue
			}
			i, c := i, c
			present[i] = true
			g.Go(func() error {
				ct, level := flattenNode(gctx, c, nodes, next)
				childTrees[i] = ct
				childLevels[i] = level
				return nil
			})
		}
		_ = g.Wait() // children never return an error; this only awaits completion.

		childData := make([]collection, 0, 8)
		for i := 0; i < 8; i++ {
			if !present[i] {
				continue
			}
			ct := childTrees[i]
			children[i] = &ct
			if childLevels[i]+1 > depth {
				depth = childLevels[i] + 1
			}
			childData = append(childData, nodes[ct.Index].data)
		}
		data = gridAggregate(childData, n.Corner, n.Size)
	}

	index := next.Add(1) - 1
	nodes[index] = FlatNode{Index: index, data: data}

	return descriptor.NodeTree{
		Position: n.Corner,
		Size:     n.Size,
		Index:    index,
		Children: children,
	}, depth
}
