// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package mmio provides a growable, byte-addressable window over a file
// (component C2, Mapped Region). On real files it is backed by an actual
// mmap(2) mapping (see map_unix.go); on filesystem facades that cannot
// hand out a real file descriptor — notably the in-memory test double —
// it falls back to re-reading the file's bytes on every access (see
// backend.go), the same trade-off the teacher makes in
// tenant/dcache/file_other.go.
package mmio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/colpart/tstable/vfs"
)

// backend is the platform/file-specific half of a Region: how the bytes
// are obtained and how the mapping grows.
type backend interface {
	// bytes returns the current mapped window.
	bytes() []byte
	// remap grows the mapping to cover at least n bytes, rounded up to
	// whatever unit the backend uses (a page for real mmap, nothing for
	// the buffered fallback). It never shrinks.
	remap(n int64) error
	// close releases the backend's resources.
	close() error
	// fileSize stats the backing file's current on-disk length.
	fileSize() (int64, error)
}

// Region is a byte window over a file that can grow on demand to track
// writer appends.
type Region struct {
	path    string
	backend backend
}

// Of opens path through f and maps an initial window covering the file's
// current length.
func Of(f vfs.FS, path string) (*Region, error) {
	file, err := f.OpenRead(path)
	if err != nil {
		return nil, err
	}
	size, err := file.Size()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmio: stat %s: %w", path, err)
	}

	b, err := newBackend(file, f.PageSize(), size)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mmio: map %s: %w", path, err)
	}
	return &Region{path: path, backend: b}, nil
}

// Len returns the number of bytes currently mapped.
func (r *Region) Len() int { return len(r.backend.bytes()) }

// TrackFileSize remaps the region to cover at least newSize bytes. It
// never shrinks an existing mapping (spec.md §4.2).
func (r *Region) TrackFileSize(newSize int64) error {
	if int64(r.Len()) >= newSize {
		return nil
	}
	if err := r.backend.remap(newSize); err != nil {
		return fmt.Errorf("mmio: track size of %s: %w", r.path, err)
	}
	return nil
}

// Grow re-stats the backing file and remaps to cover its current
// on-disk length, for callers (the partition opener) that don't
// otherwise know how many bytes a writer's append added.
func (r *Region) Grow() error {
	sz, err := r.backend.fileSize()
	if err != nil {
		return fmt.Errorf("mmio: stat %s: %w", r.path, err)
	}
	return r.TrackFileSize(sz)
}

// Close releases the region's backing file handle and mapping.
func (r *Region) Close() error { return r.backend.close() }

func (r *Region) slice(off int64, n int) []byte {
	buf := r.backend.bytes()
	if off < 0 || n < 0 || off+int64(n) > int64(len(buf)) {
		panic(fmt.Sprintf("mmio: out-of-range read at %s[%d:%d] (len %d)", r.path, off, off+int64(n), len(buf)))
	}
	return buf[off : off+int64(n)]
}

func (r *Region) GetByte(off int64) byte   { return r.slice(off, 1)[0] }
func (r *Region) GetBool(off int64) bool   { return r.GetByte(off) != 0 }
func (r *Region) GetShort(off int64) int16 { return int16(binary.LittleEndian.Uint16(r.slice(off, 2))) }
func (r *Region) GetInt(off int64) int32   { return int32(binary.LittleEndian.Uint32(r.slice(off, 4))) }
func (r *Region) GetLong(off int64) int64  { return int64(binary.LittleEndian.Uint64(r.slice(off, 8))) }

func (r *Region) GetFloat(off int64) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(r.slice(off, 4)))
}

func (r *Region) GetDouble(off int64) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(r.slice(off, 8)))
}

// GetU64 reads an unsigned 64-bit value; used by the transaction-file
// sequence-lock protocol, which never treats these fields as signed.
func (r *Region) GetU64(off int64) uint64 {
	return binary.LittleEndian.Uint64(r.slice(off, 8))
}

// nullLen is the length prefix that marks a null STRING/BINARY payload.
const nullLen = -1

// BinarySequence is a flyweight view over a [int32 len][len bytes]
// payload. A nil Bytes (with Null true) represents the null sentinel.
type BinarySequence struct {
	Null  bool
	Bytes []byte
}

// GetBin reads the BINARY payload format at off: int32 length followed by
// length bytes, or length == -1 for null.
func (r *Region) GetBin(off int64) BinarySequence {
	n := r.GetInt(off)
	if n == nullLen {
		return BinarySequence{Null: true}
	}
	return BinarySequence{Bytes: r.slice(off+4, int(n))}
}

// CharSequence is a flyweight view over a [int32 charCount][charCount*2
// bytes UTF-16] payload.
type CharSequence struct {
	Null  bool
	units []byte // raw UTF-16LE bytes, decoded lazily by String
}

// GetStr reads the STRING payload format at off.
func (r *Region) GetStr(off int64) CharSequence {
	n := r.GetInt(off)
	if n == nullLen {
		return CharSequence{Null: true}
	}
	return CharSequence{units: r.slice(off+4, int(n)*2)}
}

// GetStr2 is an independent view of the same payload as GetStr, so two
// concurrent flyweights can coexist (spec.md §4.2: "needed when a
// predicate compares two strings from the same column").
func (r *Region) GetStr2(off int64) CharSequence { return r.GetStr(off) }

// Len returns the number of UTF-16 code units in the string, or -1 if
// null, without decoding the payload — mirrors the length-only accessor
// spec.md §4.8 calls out for STRING/BINARY columns.
func (c CharSequence) Len() int {
	if c.Null {
		return -1
	}
	return len(c.units) / 2
}

// String decodes the UTF-16LE payload to a Go string.
func (c CharSequence) String() string {
	if c.Null {
		return ""
	}
	u16 := make([]uint16, len(c.units)/2)
	for i := range u16 {
		u16[i] = binary.LittleEndian.Uint16(c.units[i*2:])
	}
	return decodeUTF16(u16)
}

// Len returns the byte length of the binary payload, or -1 if null.
func (b BinarySequence) Len() int {
	if b.Null {
		return -1
	}
	return len(b.Bytes)
}
