package lazdecode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/banshee-data/treeimport/internal/points"
)

// ChunkDecompressor is the external codec boundary named in spec.md §1:
// given the raw compressed (or, for the sequential layer, raw
// uncompressed) bytes of one chunk, it must return exactly
// pointCount*pointLength bytes of decoded fixed-record point data with
// the 12-byte (i32 x, i32 y, i32 z) prefix spec.md §6 requires. A real
// LASzip layered decompressor implements this; SequentialDecompressor
// below is the trivial implementation for the uncompressed layer.
type ChunkDecompressor interface {
	DecompressChunk(raw []byte, pointCount, pointLength int) ([]byte, error)
}

// SequentialDecompressor implements ChunkDecompressor for uncompressed
// point data (LazVersion 0): the bytes are already raw fixed-length point
// records. Compressed input with item versions 1 or 2 is rejected by
// ParseHeader and is not handled here.
type SequentialDecompressor struct{}

func (SequentialDecompressor) DecompressChunk(raw []byte, pointCount, pointLength int) ([]byte, error) {
	want := pointCount * pointLength
	if len(raw) < want {
		return nil, fmt.Errorf("lazdecode: sequential chunk short read: have %d want %d", len(raw), want)
	}
	return raw[:want], nil
}

// PointChunk is one decoded batch of world-space points, already
// axis-remapped and recentered.
type PointChunk struct {
	Points []points.Vec3
}

// Stream drives the decoder worker pool: it reads each chunk's raw bytes
// from path (one *os.File per worker, matching the reference's
// for_each_init-a-fresh-handle-per-task pattern), decompresses it via
// codec, converts the (x,y,z) int32 prefix to world-space float32 using
// header scale/offset/center, and emits PointChunk values on a channel
// of capacity 4 — callers read until the channel closes.
type Stream struct {
	path    string
	header  Header
	ranges  []ChunkRange
	codec   ChunkDecompressor
	workers int
	center  points.Vec3
}

// NewStream prepares a decoder over path. workers must be >= 2 (the
// importer rejects a thread count of 1 at the top level; see
// internal/pipeline).
func NewStream(path string, header Header, ranges []ChunkRange, codec ChunkDecompressor, workers int, center points.Vec3) *Stream {
	if workers < 1 {
		workers = 1
	}
	return &Stream{path: path, header: header, ranges: ranges, codec: codec, workers: workers, center: center}
}

const channelCapacity = 4

// Run decodes every chunk in parallel across s.workers goroutines and
// sends decoded PointChunk values, in no particular order (the Slice
// Store doesn't care about chunk arrival order), on the returned
// channel. The channel has capacity 4, so a slow consumer applies
// back-pressure all the way into the worker pool, bounding how far
// ahead decoding can run. A chunk that fails to decode is skipped and its
// worker goes on with the remaining chunks; only the first error (decode
// or opening a worker's file handle) is delivered on the error channel,
// which has capacity 1, so reporting it never blocks.
func (s *Stream) Run() (<-chan PointChunk, <-chan error) {
	out := make(chan PointChunk, channelCapacity)
	errc := make(chan error, 1)

	go func() {
		defer close(out)

		jobs := make(chan ChunkRange)
		var wg sync.WaitGroup
		var reportOnce sync.Once
		reportErr := func(err error) {
			reportOnce.Do(func() { errc <- err })
		}

		for w := 0; w < s.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f, err := os.Open(s.path)
				if err != nil {
					reportErr(fmt.Errorf("lazdecode: open worker handle: %w", err))
					return
				}
				defer f.Close()

				for ch := range jobs {
					chunk, err := s.decodeOne(f, ch)
					if err != nil {
						reportErr(err)
						continue
					}
					out <- chunk
				}
			}()
		}

		for _, r := range s.ranges {
			jobs <- r
		}
		close(jobs)
		wg.Wait()
	}()

	return out, errc
}

func (s *Stream) decodeOne(f *os.File, r ChunkRange) (PointChunk, error) {
	raw := make([]byte, r.PointCount*int(s.header.PointRecordLength))
	if _, err := f.ReadAt(raw, r.Offset); err != nil && err != io.EOF {
		return PointChunk{}, fmt.Errorf("lazdecode: read chunk at %d: %w", r.Offset, err)
	}
	decoded, err := s.codec.DecompressChunk(raw, r.PointCount, int(s.header.PointRecordLength))
	if err != nil {
		return PointChunk{}, fmt.Errorf("lazdecode: decompress chunk: %w", err)
	}

	pts := make([]points.Vec3, 0, r.PointCount)
	recLen := int(s.header.PointRecordLength)
	for i := 0; i < r.PointCount; i++ {
		off := i * recLen
		if off+12 > len(decoded) {
			break // PointCountMismatch: trust the header's count, keep what decoded cleanly.
		}
		xi := int32(binary.LittleEndian.Uint32(decoded[off : off+4]))
		yi := int32(binary.LittleEndian.Uint32(decoded[off+4 : off+8]))
		zi := int32(binary.LittleEndian.Uint32(decoded[off+8 : off+12]))

		x := s.header.Offset[0] + float64(xi)*s.header.Scale[0]
		y := s.header.Offset[1] + float64(yi)*s.header.Scale[1]
		z := s.header.Offset[2] + float64(zi)*s.header.Scale[2]

		world := points.Remap(float32(x), float32(y), float32(z)).Sub(s.center)
		pts = append(pts, world)
	}
	return PointChunk{Points: pts}, nil
}
