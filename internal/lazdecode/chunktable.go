package lazdecode

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/banshee-data/treeimport/internal/treeerr"
)

// DefaultChunkSize is the number of points per chunk SequentialChunks
// uses to split uncompressed point data, which has no chunk table.
// ReadChunkTable does not use it: a compressed file with no recorded
// table is read as a single chunk.
const DefaultChunkSize = 50000

// ReadChunkTable builds the list of independently decodable byte ranges.
// For the compressed layered layer the chunk table lives at the offset
// recorded just before the point data (LASzip convention: an int64 byte
// offset to the table, followed by the table itself). For the
// uncompressed sequential layer there is no chunk table; callers should
// use SequentialChunks instead.
func ReadChunkTable(r io.ReadSeeker, h Header, pointDataOffset int64) ([]ChunkRange, error) {
	if _, err := r.Seek(pointDataOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("lazdecode: seek point data: %w", err)
	}
	var offsetBuf [8]byte
	if _, err := io.ReadFull(r, offsetBuf[:]); err != nil {
		return nil, fmt.Errorf("lazdecode: read chunk table offset: %w", treeerr.ErrTruncated)
	}
	tableOffset := int64(binary.LittleEndian.Uint64(offsetBuf[:]))
	firstChunkStart := pointDataOffset + 8
	if tableOffset <= 0 {
		// No table recorded (legacy writer): fall back to one chunk
		// covering the whole remaining stream, the safest conservative
		// interpretation the importer can make without the codec.
		return []ChunkRange{{Offset: firstChunkStart, PointCount: int(h.PointCount)}}, nil
	}

	if _, err := r.Seek(tableOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("lazdecode: seek chunk table: %w", err)
	}
	var tableHeader [8]byte
	if _, err := io.ReadFull(r, tableHeader[:]); err != nil {
		return nil, fmt.Errorf("lazdecode: read chunk table header: %w", treeerr.ErrTruncated)
	}
	numChunks := binary.LittleEndian.Uint32(tableHeader[4:8])

	ranges := make([]ChunkRange, 0, numChunks)
	cursor := firstChunkStart
	remaining := int(h.PointCount)
	for i := uint32(0); i < numChunks; i++ {
		var entry [8]byte
		if _, err := io.ReadFull(r, entry[:]); err != nil {
			return nil, fmt.Errorf("lazdecode: read chunk table entry %d: %w", i, treeerr.ErrTruncated)
		}
		byteCount := int64(binary.LittleEndian.Uint32(entry[0:4]))
		pointCount := int(binary.LittleEndian.Uint32(entry[4:8]))
		if pointCount > remaining {
			pointCount = remaining
		}
		ranges = append(ranges, ChunkRange{Offset: cursor, PointCount: pointCount})
		cursor += byteCount
		remaining -= pointCount
	}
	return ranges, nil
}

// SequentialChunks splits the uncompressed sequential point array
// (plain uncompressed LAS, LazVersion 0) into
// fixed-size chunks of DefaultChunkSize points so decoding can still be
// parallelized across a worker pool even though there's no real
// compression boundary to exploit.
func SequentialChunks(h Header, pointDataOffset int64) []ChunkRange {
	total := int(h.PointCount)
	var ranges []ChunkRange
	recLen := int64(h.PointRecordLength)
	for start := 0; start < total; start += DefaultChunkSize {
		n := DefaultChunkSize
		if start+n > total {
			n = total - start
		}
		ranges = append(ranges, ChunkRange{
			Offset:     pointDataOffset + int64(start)*recLen,
			PointCount: n,
		})
	}
	return ranges
}
