package lazdecode

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func putF64(buf []byte, offset int, v float64) {
	binary.LittleEndian.PutUint64(buf[offset:offset+8], math.Float64bits(v))
}

func fakeLASHeader(pointCount uint32, pointFormat uint8, recLen uint16) []byte {
	buf := make([]byte, quickHeaderSize)
	binary.LittleEndian.PutUint16(buf[94:96], quickHeaderSize) // header size
	binary.LittleEndian.PutUint32(buf[96:100], quickHeaderSize)
	buf[104] = pointFormat
	binary.LittleEndian.PutUint16(buf[105:107], recLen)
	binary.LittleEndian.PutUint32(buf[107:111], pointCount)

	putF64(buf, 131, 0.01)
	putF64(buf, 139, 0.01)
	putF64(buf, 147, 0.01)
	putF64(buf, 155, 0)
	putF64(buf, 163, 0)
	putF64(buf, 171, 0)

	putF64(buf, 179, 10) // max_x
	putF64(buf, 187, 0)  // min_x
	putF64(buf, 195, 20) // max_y
	putF64(buf, 203, 0)  // min_y
	putF64(buf, 211, 5)  // max_z
	putF64(buf, 219, 0)  // min_z
	return buf
}

func TestParseHeaderUncompressed(t *testing.T) {
	buf := fakeLASHeader(1000, 0, 20)
	h, err := ParseHeader(bytes.NewReader(buf))
	require.NoError(t, err)
	require.Equal(t, uint64(1000), h.PointCount)
	require.Equal(t, uint16(20), h.PointRecordLength)
	require.Equal(t, 0.01, h.Scale[0])
}

func TestWorldBoundsAxisRemap(t *testing.T) {
	buf := fakeLASHeader(1, 0, 20)
	h, err := ParseHeader(bytes.NewReader(buf))
	require.NoError(t, err)

	min, max, _ := h.WorldBounds()
	// las (x,y,z) in [0,10]x[0,20]x[0,5] remaps to (x, z, -y):
	// x in [0,10], y(=z) in [0,5], z(=-y) in [-20,0].
	require.InDelta(t, 10, max.X-min.X, 1e-4)
	require.InDelta(t, 5, max.Y-min.Y, 1e-4)
	require.InDelta(t, 20, max.Z-min.Z, 1e-4)
}
