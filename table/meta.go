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

package table

import (
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/colpart/tstable/calendar"
	"github.com/colpart/tstable/coltype"
	"github.com/colpart/tstable/vfs"
)

// MetaFile, TxnFile, and TodoFile are the fixed names of the files at the
// table root (spec.md §6).
const (
	MetaFile = "_meta"
	TxnFile  = "_txi"
	TodoFile = "_todo"
)

// maxColumns guards against a corrupt column count turning into an
// out-of-memory allocation while parsing _meta.
const maxColumns = 1 << 16

// Column describes one column's stable name and type (component C4).
type Column struct {
	Name string
	Type coltype.Type
}

// Metadata is the parsed, immutable content of a table's _meta file
// (component C4): column count, names, types, the designated timestamp
// column, and the partitioning scheme.
type Metadata struct {
	Columns       []Column
	TimestampCol  int // -1 if there is no designated timestamp column
	Partitioning  calendar.Granularity
	byLowerName   map[string]int
}

// ColumnCount returns the number of columns.
func (m *Metadata) ColumnCount() int { return len(m.Columns) }

// ColumnIndex looks up a column by name, case-insensitively, returning
// (-1, false) if it is not present.
func (m *Metadata) ColumnIndex(name string) (int, bool) {
	i, ok := m.byLowerName[strings.ToLower(name)]
	if !ok {
		return -1, false
	}
	return i, true
}

// ColumnNames returns every declared column's lowercased name, sorted,
// so the order is stable across runs regardless of declaration order.
func (m *Metadata) ColumnNames() []string {
	names := maps.Keys(m.byLowerName)
	slices.Sort(names)
	return names
}

// _meta binary layout (writer-defined; fixed by this reader per
// spec.md §6 — see DESIGN.md for the rationale):
//
//	uint8  partitioning (0=None, 1=Year, 2=Month, 3=Day)
//	int32  designated timestamp column index, -1 if none
//	uint32 column count
//	for each column:
//	  uint16 nameLen
//	  []byte name (UTF-8, nameLen bytes)
//	  uint8  type tag (coltype.Type)
const metaFixedHeaderSize = 1 + 4 + 4

// readMetadata parses path (the table's _meta file) in full. The file is
// small and read once, so it is read directly rather than mapped.
func readMetadata(f vfs.FS, path string) (*Metadata, error) {
	file, err := f.OpenRead(path)
	if err != nil {
		return nil, &MissingFileError{Path: path, Err: err}
	}
	defer file.Close()

	size, err := file.Size()
	if err != nil {
		return nil, fmt.Errorf("table: stat %s: %w", path, err)
	}
	if size < metaFixedHeaderSize {
		return nil, &CorruptMetadataError{Path: path, Reason: "shorter than the fixed header"}
	}

	buf := make([]byte, size)
	if _, err := file.ReadAt(buf, 0); err != nil {
		return nil, fmt.Errorf("table: read %s: %w", path, err)
	}

	partitioning := calendar.Granularity(buf[0])
	if partitioning > calendar.Day {
		return nil, &CorruptMetadataError{Path: path, Reason: fmt.Sprintf("unknown partitioning scheme %d", buf[0])}
	}

	tsCol := int(int32(binary.LittleEndian.Uint32(buf[1:5])))
	count := binary.LittleEndian.Uint32(buf[5:9])
	if count > maxColumns {
		return nil, &CorruptMetadataError{Path: path, Reason: fmt.Sprintf("column count %d out of range", count)}
	}

	cols := make([]Column, 0, count)
	off := metaFixedHeaderSize
	for i := uint32(0); i < count; i++ {
		if off+2 > len(buf) {
			return nil, &CorruptMetadataError{Path: path, Reason: "truncated column name length"}
		}
		nameLen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if off+nameLen+1 > len(buf) {
			return nil, &CorruptMetadataError{Path: path, Reason: "truncated column entry"}
		}
		name := string(buf[off : off+nameLen])
		off += nameLen
		typ := coltype.Type(buf[off])
		off++
		cols = append(cols, Column{Name: name, Type: typ})
	}

	if tsCol >= len(cols) {
		return nil, &CorruptMetadataError{Path: path, Reason: fmt.Sprintf("designated timestamp column index %d out of range", tsCol)}
	}

	byLower := make(map[string]int, len(cols))
	for i, c := range cols {
		byLower[strings.ToLower(c.Name)] = i
	}

	return &Metadata{
		Columns:      cols,
		TimestampCol: tsCol,
		Partitioning: partitioning,
		byLowerName:  byLower,
	}, nil
}

// EncodeMetadata serializes md to the _meta binary layout. It exists so
// this package's own tests (and anything building fixtures for it) don't
// have to hand-encode the format documented above.
func EncodeMetadata(md *Metadata) []byte {
	var buf []byte
	buf = append(buf, byte(md.Partitioning))

	ts := make([]byte, 4)
	binary.LittleEndian.PutUint32(ts, uint32(int32(md.TimestampCol)))
	buf = append(buf, ts...)

	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(md.Columns)))
	buf = append(buf, count...)

	for _, c := range md.Columns {
		nameLen := make([]byte, 2)
		binary.LittleEndian.PutUint16(nameLen, uint16(len(c.Name)))
		buf = append(buf, nameLen...)
		buf = append(buf, c.Name...)
		buf = append(buf, byte(c.Type))
	}
	return buf
}
