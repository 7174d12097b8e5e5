package idf

import (
	"encoding/binary"
	"math"

	"github.com/banshee-data/treeimport/internal/points"
)

// Uint32Codec is the Codec for the slice/curve/height/segment IDFs.
var Uint32Codec = Codec[uint32]{
	Size: 4,
	Encode: func(dst []byte, v uint32) {
		binary.LittleEndian.PutUint32(dst, v)
	},
	Decode: func(src []byte) uint32 {
		return binary.LittleEndian.Uint32(src)
	},
}

// RenderPointCodec is the Codec for points.data: position (3×f32) +
// normal (3×f32) + size (f32), 28 bytes per point.
var RenderPointCodec = Codec[points.RenderPoint]{
	Size: 28,
	Encode: func(dst []byte, v points.RenderPoint) {
		putF32(dst[0:4], v.Position.X)
		putF32(dst[4:8], v.Position.Y)
		putF32(dst[8:12], v.Position.Z)
		putF32(dst[12:16], v.Normal.X)
		putF32(dst[16:20], v.Normal.Y)
		putF32(dst[20:24], v.Normal.Z)
		putF32(dst[24:28], v.Size)
	},
	Decode: func(src []byte) points.RenderPoint {
		return points.RenderPoint{
			Position: points.Vec3{X: getF32(src[0:4]), Y: getF32(src[4:8]), Z: getF32(src[8:12])},
			Normal:   points.Vec3{X: getF32(src[12:16]), Y: getF32(src[16:20]), Z: getF32(src[20:24])},
			Size:     getF32(src[24:28]),
		}
	},
}

func putF32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

func getF32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}
