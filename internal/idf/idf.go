// Package idf implements the Indexed Data File: a fixed-slot,
// append-only random-access binary store of variable-length typed
// arrays. One IDF holds exactly one named property (points, slice,
// curve, height or segment) across every octree node, addressed by the
// node's flat index.
//
// Layout (all little-endian, host float representation):
//
//	[ (offset uint64, count uint64) × N ][ payload ]
//
// offset=0, count=0 means "unwritten". Once written, offset >= 16*N and
// offset+count*sizeof(T) <= file length. There is no checksum; integrity
// of the file depends on the pipeline completing.
package idf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/banshee-data/treeimport/internal/treeerr"
)

const slotSize = 16 // one (offset uint64, count uint64) pair

// Codec describes how to turn a slice of T to and from bytes. Every IDF
// element type is fixed-size, so Size is constant for a given Codec.
type Codec[T any] struct {
	Size   int
	Encode func(dst []byte, v T)
	Decode func(src []byte) T
}

// File is a single Indexed Data File parametrized by element type T.
type File[T any] struct {
	mu    sync.Mutex
	f     *os.File
	codec Codec[T]
	slots int
}

// Create reserves a new IDF with room for `slots` slot-table entries and
// truncates it to 16*slots bytes of zeroed header. The caller owns path's
// directory; an existing file at path is truncated and its content
// discarded (callers clear the output folder up front, per §6).
func Create[T any](path string, slots int, codec Codec[T]) (*File[T], error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("idf: create %s: %w", path, err)
	}
	if err := f.Truncate(int64(slots) * slotSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("idf: reserve slot table %s: %w", path, err)
	}
	return &File[T]{f: f, codec: codec, slots: slots}, nil
}

// Open reopens an existing IDF for reading (and further Save calls, since
// a single *File[T] owns exclusive write access to its handle).
func Open[T any](path string, slots int, codec Codec[T]) (*File[T], error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("idf: open %s: %w", path, err)
	}
	return &File[T]{f: f, codec: codec, slots: slots}, nil
}

// Close releases the underlying file handle.
func (idf *File[T]) Close() error { return idf.f.Close() }

// Save appends data at the end of the file and writes (offset, len(data))
// into slot idx, overwriting any prior slot value. Previously-appended
// blocks for that slot become garbage and are never reclaimed. Save
// requires exclusive access to the file; concurrent Save calls on the
// same *File[T] serialize through idf.mu, matching the "each IDF is
// mutated only under the writer lock" rule in spec.md §5.
func (idf *File[T]) Save(idx int, data []T) error {
	if idx < 0 || idx >= idf.slots {
		return fmt.Errorf("idf: slot %d out of range [0,%d)", idx, idf.slots)
	}
	idf.mu.Lock()
	defer idf.mu.Unlock()

	offset, err := idf.f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("idf: seek end: %w", err)
	}
	if len(data) > 0 {
		buf := make([]byte, idf.codec.Size*len(data))
		for i, v := range data {
			idf.codec.Encode(buf[i*idf.codec.Size:(i+1)*idf.codec.Size], v)
		}
		if _, err := idf.f.Write(buf); err != nil {
			return fmt.Errorf("idf: write payload: %w", err)
		}
	}

	var slot [slotSize]byte
	binary.LittleEndian.PutUint64(slot[0:8], uint64(offset))
	binary.LittleEndian.PutUint64(slot[8:16], uint64(len(data)))
	if _, err := idf.f.WriteAt(slot[:], int64(idx)*slotSize); err != nil {
		return fmt.Errorf("idf: write slot table entry %d: %w", idx, err)
	}
	return nil
}

// Read reads back the slice stored at slot idx. Safe to call concurrently
// with other Read calls (and with in-flight Save calls on disjoint
// slots) as long as the file isn't being truncated underneath it.
func (idf *File[T]) Read(idx int) ([]T, error) {
	if idx < 0 || idx >= idf.slots {
		return nil, fmt.Errorf("idf: slot %d out of range [0,%d)", idx, idf.slots)
	}
	var slot [slotSize]byte
	if _, err := idf.f.ReadAt(slot[:], int64(idx)*slotSize); err != nil {
		return nil, fmt.Errorf("idf: read slot table entry %d: %w", idx, err)
	}
	offset := binary.LittleEndian.Uint64(slot[0:8])
	count := binary.LittleEndian.Uint64(slot[8:16])
	if offset == 0 && count == 0 {
		return nil, fmt.Errorf("idf: slot %d: %w", idx, treeerr.ErrNotWritten)
	}

	buf := make([]byte, int(count)*idf.codec.Size)
	if count > 0 {
		if _, err := idf.f.ReadAt(buf, int64(offset)); err != nil {
			return nil, fmt.Errorf("idf: read payload for slot %d: %w", idx, err)
		}
	}
	out := make([]T, count)
	for i := range out {
		out[i] = idf.codec.Decode(buf[i*idf.codec.Size : (i+1)*idf.codec.Size])
	}
	return out, nil
}
