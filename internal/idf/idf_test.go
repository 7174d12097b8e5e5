package idf

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u32.data")
	f, err := Create[uint32](path, 4, Uint32Codec)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Save(2, []uint32{1, 2, 3}))
	got, err := f.Read(2)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3}, got)
}

func TestOverwriteLastWriteWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u32.data")
	f, err := Create[uint32](path, 2, Uint32Codec)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Save(0, []uint32{9, 9, 9}))
	require.NoError(t, f.Save(0, []uint32{1}))

	got, err := f.Read(0)
	require.NoError(t, err)
	require.Equal(t, []uint32{1}, got)
}

func TestUnwrittenSlotFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u32.data")
	f, err := Create[uint32](path, 2, Uint32Codec)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Read(1)
	require.Error(t, err)
}

func TestEmptySliceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "u32.data")
	f, err := Create[uint32](path, 1, Uint32Codec)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Save(0, nil))
	got, err := f.Read(0)
	require.NoError(t, err)
	require.Empty(t, got)
}
