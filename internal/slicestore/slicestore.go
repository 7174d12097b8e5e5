// Package slicestore partitions incoming points into horizontal Y-axis
// slabs and accumulates each slab's points via the Spill Cache. It is
// single-threaded, per spec.md §5: the importer dedicates one goroutine
// to feeding it so the underlying cache's LRU bookkeeping never races.
package slicestore

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/treeimport/internal/points"
	"github.com/banshee-data/treeimport/internal/spillcache"
)

func encodeVec3(dst []byte, v points.Vec3) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v.Z))
}

func decodeVec3(src []byte) points.Vec3 {
	return points.Vec3{
		X: math.Float32frombits(binary.LittleEndian.Uint32(src[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(src[4:8])),
		Z: math.Float32frombits(binary.LittleEndian.Uint32(src[8:12])),
	}
}

// Store holds one Spill-Cache entry per horizontal slab.
type Store struct {
	cache     *spillcache.Cache[points.Vec3]
	slabs     []spillcache.Key
	minY      float32
	slabWidth float32
}

// New partitions [minY, maxY] into slabs of width slabWidth (default
// 1.0m) and allocates one cache entry per slab up front.
func New(spillDir string, minY, maxY, slabWidth float32) (*Store, error) {
	cache, err := spillcache.New[points.Vec3](spillDir, 12, encodeVec3, decodeVec3)
	if err != nil {
		return nil, fmt.Errorf("slicestore: %w", err)
	}
	count := int((maxY-minY)/slabWidth) + 1
	slabs := make([]spillcache.Key, count)
	for i := range slabs {
		slabs[i] = cache.NewEntry()
	}
	return &Store{cache: cache, slabs: slabs, minY: minY, slabWidth: slabWidth}, nil
}

// SlabIndex returns which slab y falls into, clamped to the valid range.
func (s *Store) SlabIndex(y float32) int {
	idx := int((y - s.minY) / s.slabWidth)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.slabs) {
		idx = len(s.slabs) - 1
	}
	return idx
}

// Insert pushes p into the slab owning its Y coordinate.
func (s *Store) Insert(p points.Vec3) error {
	idx := s.SlabIndex(p.Y)
	return s.cache.Push(s.slabs[idx], p)
}

// SlabCount returns the number of slabs, top slab (highest Y) first when
// iterated in reverse.
func (s *Store) SlabCount() int { return len(s.slabs) }

// TakeSlabTopDown removes and drains slab i, counting from the top
// (index 0 == highest Y) to the bottom. The Segmenter calls this exactly
// once per slab in descending-Y order, never reloading a slab twice.
func (s *Store) TakeSlabTopDown(fromTop int) ([]points.Vec3, error) {
	idx := len(s.slabs) - 1 - fromTop
	h, err := s.cache.Take(s.slabs[idx])
	if err != nil {
		return nil, fmt.Errorf("slicestore: take slab %d: %w", idx, err)
	}
	return h.Drain()
}
