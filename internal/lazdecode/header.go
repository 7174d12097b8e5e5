// Package lazdecode streams points out of a compressed LAS/LAZ file. The
// wire-format codec itself (LASzip's arithmetic-coded point layers) is
// treated as an external collaborator per spec.md §1/§6: this package
// parses the plain LAS header and chunk table, and defines the
// ChunkDecompressor interface any codec implementation must satisfy to
// plug into the streaming pipeline below.
package lazdecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/treeimport/internal/points"
	"github.com/banshee-data/treeimport/internal/treeerr"
)

func readF64(buf []byte, offset int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[offset : offset+8]))
}

// Header holds the subset of the LAS header and LASzip VLR the importer
// needs: scale/offset for decoding the 12-byte (x,y,z) prefix, the
// pre-recenter bounding box, the authoritative point count, and the
// chunk table describing independent compressed byte ranges.
type Header struct {
	PointFormat       uint8
	PointRecordLength uint16
	PointCount        uint64
	Scale             [3]float64
	Offset            [3]float64
	Min               [3]float64 // las-frame (x, y, z), before axis remap
	Max               [3]float64
	LazVersion        uint8 // 0 for uncompressed input; compressed input is accepted only with item versions 3 and 4

	offsetToPointData uint32
	headerSize        uint16
}

// ChunkRange names one independently decodable byte span of the
// compressed point stream, with the point count it's supposed to yield.
type ChunkRange struct {
	Offset     int64
	PointCount int
}

const quickHeaderSize = 375 // LAS 1.4 fixed header length; the fields we read all fall within it.

// ParseHeader reads the fixed LAS header from r and validates the codec
// version. r must support Seek because the point-count field is
// sometimes only trustworthy from the extended (LAS 1.4) count, the way
// the reference implementation falls back to offset 247 as an explicit
// workaround for legacy writers.
func ParseHeader(r io.ReadSeeker) (Header, error) {
	buf := make([]byte, quickHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, fmt.Errorf("lazdecode: read header: %w", treeerr.ErrTruncated)
	}

	var h Header
	h.headerSize = binary.LittleEndian.Uint16(buf[94:96])
	h.offsetToPointData = binary.LittleEndian.Uint32(buf[96:100])
	h.PointFormat = buf[104] & 0x7f // high bit marks compressed (LAZ) point data
	compressed := buf[104]&0x80 != 0
	h.PointRecordLength = binary.LittleEndian.Uint16(buf[105:107])
	h.PointCount = uint64(binary.LittleEndian.Uint32(buf[107:111]))

	h.Scale[0] = readF64(buf, 131)
	h.Scale[1] = readF64(buf, 139)
	h.Scale[2] = readF64(buf, 147)
	h.Offset[0] = readF64(buf, 155)
	h.Offset[1] = readF64(buf, 163)
	h.Offset[2] = readF64(buf, 171)

	maxX := readF64(buf, 179)
	minX := readF64(buf, 187)
	maxY := readF64(buf, 195)
	minY := readF64(buf, 203)
	maxZ := readF64(buf, 211)
	minZ := readF64(buf, 219)
	h.Min = [3]float64{minX, minY, minZ}
	h.Max = [3]float64{maxX, maxY, maxZ}

	if h.PointCount == 0 {
		if _, err := r.Seek(247, io.SeekStart); err != nil {
			return Header{}, fmt.Errorf("lazdecode: seek extended count: %w", err)
		}
		var cbuf [4]byte
		if _, err := io.ReadFull(r, cbuf[:]); err != nil {
			return Header{}, fmt.Errorf("lazdecode: read extended count: %w", treeerr.ErrTruncated)
		}
		h.PointCount = uint64(binary.LittleEndian.Uint32(cbuf[:]))
	}

	if compressed {
		version, err := readLaszipVersion(r, &h)
		if err != nil {
			return Header{}, err
		}
		h.LazVersion = version
		if version != 3 && version != 4 {
			return Header{}, fmt.Errorf("lazdecode: laz item version %d: %w", version, treeerr.ErrUnsupportedVersion)
		}
	}

	if h.PointRecordLength < 12 {
		return Header{}, fmt.Errorf("lazdecode: point record length %d too small: %w", h.PointRecordLength, treeerr.ErrCorruptHeader)
	}

	return h, nil
}

// readLaszipVersion seeks to the LASzip VLR (immediately following the
// public header block, per the LAS VLR convention) and reads the item
// layer version byte. The VLR's full item table is the external codec's
// concern; we only need the version to validate support.
func readLaszipVersion(r io.ReadSeeker, h *Header) (uint8, error) {
	if _, err := r.Seek(int64(h.headerSize), io.SeekStart); err != nil {
		return 0, fmt.Errorf("lazdecode: seek VLRs: %w", err)
	}
	var vlrHeader [54]byte
	if _, err := io.ReadFull(r, vlrHeader[:]); err != nil {
		return 0, fmt.Errorf("lazdecode: read laszip VLR header: %w", treeerr.ErrTruncated)
	}
	recordLen := binary.LittleEndian.Uint16(vlrHeader[20:22])
	body := make([]byte, recordLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, fmt.Errorf("lazdecode: read laszip VLR body: %w", treeerr.ErrTruncated)
	}
	if len(body) < 34 {
		return 0, fmt.Errorf("lazdecode: laszip VLR too short: %w", treeerr.ErrCorruptHeader)
	}
	// laszip VLR: compressor(u16) coder(u16) version major/minor/revision(u8 u8 u16) options(u32) chunk_size(u32)
	// number_of_special_evlrs(i64) offset_to_special_evlrs(i64),
	// followed by num_items(u16) then per-item (type u16, size u16, version u16).
	numItems := binary.LittleEndian.Uint16(body[32:34])
	if numItems == 0 || len(body) < 34+6 {
		return 0, fmt.Errorf("lazdecode: laszip VLR missing items: %w", treeerr.ErrCorruptHeader)
	}
	firstItemVersion := binary.LittleEndian.Uint16(body[34+4 : 34+6])
	return uint8(firstItemVersion), nil
}

// WorldBounds returns Min/Max remapped into the internal Y-up frame and
// recentered on their own midpoint, the way spec.md §3/§4.3 require.
func (h Header) WorldBounds() (min, max points.Vec3, center points.Vec3) {
	lasMin := points.Remap(float32(h.Min[0]), float32(h.Min[1]), float32(h.Min[2]))
	lasMax := points.Remap(float32(h.Max[0]), float32(h.Max[1]), float32(h.Max[2]))
	// Remapping (x, y, z) -> (x, z, -y) flips the Y extent, so min/max of
	// the remapped box must be re-sorted per axis.
	min = points.Vec3{
		X: minf(lasMin.X, lasMax.X),
		Y: minf(lasMin.Y, lasMax.Y),
		Z: minf(lasMin.Z, lasMax.Z),
	}
	max = points.Vec3{
		X: maxf(lasMin.X, lasMax.X),
		Y: maxf(lasMin.Y, lasMax.Y),
		Z: maxf(lasMin.Z, lasMax.Z),
	}
	center = points.Vec3{X: (min.X + max.X) / 2, Y: (min.Y + max.Y) / 2, Z: (min.Z + max.Z) / 2}
	min = min.Sub(center)
	max = max.Sub(center)
	return min, max, center
}

// PointDataOffset returns the byte offset of the first point record,
// which callers need to build chunk ranges.
func (h Header) PointDataOffset() int64 { return int64(h.offsetToPointData) }

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
