package slicestore

import (
	"testing"

	"github.com/banshee-data/treeimport/internal/points"
	"github.com/stretchr/testify/require"
)

func TestInsertAndTakeTopDown(t *testing.T) {
	s, err := New(t.TempDir(), 0, 3, 1.0)
	require.NoError(t, err)
	require.Equal(t, 4, s.SlabCount())

	require.NoError(t, s.Insert(points.Vec3{Y: 0.5}))
	require.NoError(t, s.Insert(points.Vec3{Y: 2.9}))
	require.NoError(t, s.Insert(points.Vec3{Y: 2.1}))

	// Slab 0 from the top is [3,4) and empty; the 2.x points sit in [2,3).
	top, err := s.TakeSlabTopDown(1)
	require.NoError(t, err)
	require.Len(t, top, 2)

	bottom, err := s.TakeSlabTopDown(3)
	require.NoError(t, err)
	require.Len(t, bottom, 1)
}
