package spillcache

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeU32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func decodeU32(src []byte) uint32    { return binary.LittleEndian.Uint32(src) }

func TestPushDrainOrder(t *testing.T) {
	c, err := New[uint32](t.TempDir(), 4, encodeU32, decodeU32)
	require.NoError(t, err)

	k := c.NewEntry()
	for i := uint32(0); i < 10; i++ {
		require.NoError(t, c.Push(k, i))
	}
	h, err := c.Take(k)
	require.NoError(t, err)
	require.Equal(t, 10, h.Len())

	got, err := h.Drain()
	require.NoError(t, err)
	want := []uint32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	require.Equal(t, want, got)
}

func TestEvictionPreservesOrderAcrossSpill(t *testing.T) {
	c, err := New[uint32](t.TempDir(), 4, encodeU32, decodeU32)
	require.NoError(t, err)

	keys := make([]Key, 0, maxActive+5)
	for i := 0; i < maxActive+5; i++ {
		keys = append(keys, c.NewEntry())
	}
	// Push enough values per key to force eviction of older keys.
	for round := 0; round < 3; round++ {
		for i, k := range keys {
			require.NoError(t, c.Push(k, uint32(i*100+round)))
		}
	}

	for i, k := range keys {
		h, err := c.Take(k)
		require.NoError(t, err)
		got, err := h.Drain()
		require.NoError(t, err)
		want := []uint32{uint32(i*100 + 0), uint32(i*100 + 1), uint32(i*100 + 2)}
		require.Equal(t, want, got)
	}
}

func TestTakeUntouchedKeyIsEmpty(t *testing.T) {
	c, err := New[uint32](t.TempDir(), 4, encodeU32, decodeU32)
	require.NoError(t, err)
	k := c.NewEntry()
	h, err := c.Take(k)
	require.NoError(t, err)
	require.Equal(t, 0, h.Len())
	got, err := h.Drain()
	require.NoError(t, err)
	require.Empty(t, got)
}
