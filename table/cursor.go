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
	"errors"
	"fmt"
	"time"

	"github.com/colpart/tstable/coltype"
	"github.com/colpart/tstable/mmio"
	"github.com/colpart/tstable/rowid"
)

// cursorState is the Record Cursor's position relative to the table
// (component C8).
type cursorState int

const (
	statePreFirst cursorState = iota
	stateInPartition
	stateExhausted
)

// ErrNoCurrentRecord is returned by accessors called before Next or after
// the cursor has been exhausted.
var ErrNoCurrentRecord = errors.New("table: cursor has no current record")

// Cursor walks a TableReader's rows in partition, then row, order. A
// Cursor is not safe for concurrent use; each goroutine should own its
// own Cursor over a shared TableReader (spec.md §8, "Concurrency").
type Cursor struct {
	r      *TableReader
	state  cursorState
	p      int   // current partition index
	local  int64 // current row index within partition p
	maxIdx int64 // partition p's row count (exclusive upper bound)
}

// NewCursor returns a cursor positioned before the first row.
func NewCursor(r *TableReader) *Cursor {
	return &Cursor{r: r, state: statePreFirst}
}

// ToTop resets the cursor to its initial, pre-first position.
func (c *Cursor) ToTop() {
	c.state = statePreFirst
	c.p, c.local, c.maxIdx = 0, 0, 0
}

// HasNext reports whether a call to Next would succeed, without moving
// the cursor.
func (c *Cursor) HasNext() bool {
	p, local, max := c.p, c.local, c.maxIdx
	if c.state == statePreFirst {
		p, local, max = 0, -1, 0
		if len(c.r.partitionSizes) > 0 {
			max = c.r.partitionSizes[0]
		}
	}
	for {
		if local+1 < max {
			return true
		}
		p++
		if p >= len(c.r.partitionSizes) {
			return false
		}
		if c.r.partitionSizes[p] > 0 {
			max = c.r.partitionSizes[p]
			local = -1
			continue
		}
		max = 0
		local = -1
	}
}

// Next advances the cursor to the next row, crossing a partition
// boundary if the current partition is exhausted (switchPartition). It
// returns false, leaving the cursor in the exhausted state, once every
// partition has been visited.
func (c *Cursor) Next() bool {
	if c.state == statePreFirst {
		if !c.switchPartition(0) {
			c.state = stateExhausted
			return false
		}
		return true
	}
	for {
		if c.state == stateExhausted {
			return false
		}
		if c.local+1 < c.maxIdx {
			c.local++
			c.state = stateInPartition
			return true
		}
		if !c.switchPartition(c.p + 1) {
			c.state = stateExhausted
			return false
		}
	}
}

// switchPartition moves the cursor to the first row of partition p,
// skipping empty partitions. It reports whether a nonempty partition was
// found at or after p.
func (c *Cursor) switchPartition(p int) bool {
	for ; p < len(c.r.partitionSizes); p++ {
		if c.r.partitionSizes[p] > 0 {
			c.p, c.local, c.maxIdx = p, 0, c.r.partitionSizes[p]
			c.state = stateInPartition
			return true
		}
	}
	return false
}

// RecordAt positions the cursor directly at id, for random access by a
// caller that already holds a row identifier (spec.md §5, "Random
// access").
func (c *Cursor) RecordAt(id rowid.ID) error {
	p := int(id.Partition())
	local := int64(id.Local())
	if p < 0 || p >= len(c.r.partitionSizes) {
		return fmt.Errorf("table: %s: partition %d out of range", id, p)
	}
	if local < 0 || local >= c.r.partitionSizes[p] {
		return fmt.Errorf("table: %s: row %d out of range for partition %d (size %d)", id, local, p, c.r.partitionSizes[p])
	}
	c.p, c.local, c.maxIdx = p, local, c.r.partitionSizes[p]
	c.state = stateInPartition
	return nil
}

// RowID returns the packed identifier of the current record.
func (c *Cursor) RowID() (rowid.ID, error) {
	if c.state != stateInPartition {
		return 0, ErrNoCurrentRecord
	}
	return rowid.Pack(uint32(c.p), uint32(c.local)), nil
}

func (c *Cursor) column(idx int) (*mmio.Region, *Metadata, error) {
	if c.state != stateInPartition {
		return nil, nil, ErrNoCurrentRecord
	}
	md := c.r.meta
	if idx < 0 || idx >= md.ColumnCount() {
		return nil, nil, fmt.Errorf("table: column index %d out of range", idx)
	}
	return c.r.columns[c.r.base(c.p)+2*idx], md, nil
}

func (c *Cursor) top(idx int) int64 {
	return c.r.columnTops[c.p*c.r.meta.ColumnCount()+idx]
}

// fixedOffset returns the byte offset of the current row's value within
// a fixed-width column's data file, and whether the row falls below the
// column's top (in which case it has no stored value: spec.md §4.6).
func (c *Cursor) fixedOffset(idx int, width int) (off int64, hasValue bool) {
	top := c.top(idx)
	if c.local < top {
		return 0, false
	}
	return (c.local - top) * int64(width), true
}

func (c *Cursor) checkType(idx int, want coltype.Type) error {
	if idx < 0 || idx >= c.r.meta.ColumnCount() {
		return fmt.Errorf("table: column index %d out of range", idx)
	}
	got := c.r.meta.Columns[idx].Type
	if got != want {
		return fmt.Errorf("table: column %q is %s, not %s", c.r.meta.Columns[idx].Name, got, want)
	}
	return nil
}

// GetByte reads a BYTE column. ok is false if the row predates the
// column's top (no stored value) or the region was never mapped (the
// partition has no data for this column at all).
func (c *Cursor) GetByte(idx int) (v byte, ok bool, err error) {
	if err := c.checkType(idx, coltype.Byte); err != nil {
		return 0, false, err
	}
	return readFixed(c, idx, 1, func(r *mmio.Region, off int64) byte { return r.GetByte(off) })
}

// GetBool reads a BOOLEAN column.
func (c *Cursor) GetBool(idx int) (v bool, ok bool, err error) {
	if err := c.checkType(idx, coltype.Boolean); err != nil {
		return false, false, err
	}
	return readFixed(c, idx, 1, func(r *mmio.Region, off int64) bool { return r.GetBool(off) })
}

// GetShort reads a SHORT column.
func (c *Cursor) GetShort(idx int) (v int16, ok bool, err error) {
	if err := c.checkType(idx, coltype.Short); err != nil {
		return 0, false, err
	}
	return readFixed(c, idx, 2, func(r *mmio.Region, off int64) int16 { return r.GetShort(off) })
}

// GetInt reads an INT column.
func (c *Cursor) GetInt(idx int) (v int32, ok bool, err error) {
	if err := c.checkType(idx, coltype.Int); err != nil {
		return 0, false, err
	}
	return readFixed(c, idx, 4, func(r *mmio.Region, off int64) int32 { return r.GetInt(off) })
}

// GetLong reads a LONG column.
func (c *Cursor) GetLong(idx int) (v int64, ok bool, err error) {
	if err := c.checkType(idx, coltype.Long); err != nil {
		return 0, false, err
	}
	return readFixed(c, idx, 8, func(r *mmio.Region, off int64) int64 { return r.GetLong(off) })
}

// GetFloat reads a FLOAT column.
func (c *Cursor) GetFloat(idx int) (v float32, ok bool, err error) {
	if err := c.checkType(idx, coltype.Float); err != nil {
		return 0, false, err
	}
	return readFixed(c, idx, 4, func(r *mmio.Region, off int64) float32 { return r.GetFloat(off) })
}

// GetDouble reads a DOUBLE column.
func (c *Cursor) GetDouble(idx int) (v float64, ok bool, err error) {
	if err := c.checkType(idx, coltype.Double); err != nil {
		return 0, false, err
	}
	return readFixed(c, idx, 8, func(r *mmio.Region, off int64) float64 { return r.GetDouble(off) })
}

// GetDate reads a DATE column (millisecond resolution, stored as a LONG
// of milliseconds since the epoch, matching QuestDB's on-disk DATE type).
func (c *Cursor) GetDate(idx int) (v time.Time, ok bool, err error) {
	if err := c.checkType(idx, coltype.Date); err != nil {
		return time.Time{}, false, err
	}
	ms, ok, err := readFixed(c, idx, 8, func(r *mmio.Region, off int64) int64 { return r.GetLong(off) })
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// GetTimestamp reads a TIMESTAMP column (microsecond resolution).
func (c *Cursor) GetTimestamp(idx int) (v time.Time, ok bool, err error) {
	if err := c.checkType(idx, coltype.Timestamp); err != nil {
		return time.Time{}, false, err
	}
	us, ok, err := readFixed(c, idx, 8, func(r *mmio.Region, off int64) int64 { return r.GetLong(off) })
	if err != nil || !ok {
		return time.Time{}, ok, err
	}
	return time.UnixMicro(us).UTC(), true, nil
}

// GetSymbol always reports no value: this reader resolves SYMBOL columns
// to null rather than materializing the dictionary-encoded ID (spec.md
// §4.9, "Open Question — symbol dictionaries").
func (c *Cursor) GetSymbol(idx int) (ok bool, err error) {
	if err := c.checkType(idx, coltype.Symbol); err != nil {
		return false, err
	}
	if _, _, err := c.column(idx); err != nil {
		return false, err
	}
	return false, nil
}

// GetStr reads a STRING column via its offset index.
func (c *Cursor) GetStr(idx int) (v mmio.CharSequence, ok bool, err error) {
	if err := c.checkType(idx, coltype.String); err != nil {
		return mmio.CharSequence{}, false, err
	}
	seq, ok, err := c.variableLength(idx)
	if err != nil || !ok {
		return mmio.CharSequence{}, ok, err
	}
	return seq.(mmio.CharSequence), true, nil
}

// GetBin reads a BINARY column via its offset index.
func (c *Cursor) GetBin(idx int) (v mmio.BinarySequence, ok bool, err error) {
	if err := c.checkType(idx, coltype.Binary); err != nil {
		return mmio.BinarySequence{}, false, err
	}
	seq, ok, err := c.variableLength(idx)
	if err != nil || !ok {
		return mmio.BinarySequence{}, ok, err
	}
	return seq.(mmio.BinarySequence), true, nil
}

func readFixed[T any](c *Cursor, idx, width int, read func(*mmio.Region, int64) T) (v T, ok bool, err error) {
	region, _, err := c.column(idx)
	if err != nil {
		return v, false, err
	}
	off, has := c.fixedOffset(idx, width)
	if !has || region == nil {
		return v, false, nil
	}
	return read(region, off), true, nil
}

func (c *Cursor) variableLength(idx int) (interface{}, bool, error) {
	if c.state != stateInPartition {
		return nil, false, ErrNoCurrentRecord
	}
	top := c.top(idx)
	if c.local < top {
		return nil, false, nil
	}
	base := c.r.base(c.p)
	dataRegion := c.r.columns[base+2*idx]
	indexRegion := c.r.columns[base+2*idx+1]
	if dataRegion == nil || indexRegion == nil {
		return nil, false, nil
	}
	entry := c.local - top
	payloadOff := indexRegion.GetLong(entry * 8)

	switch c.r.meta.Columns[idx].Type {
	case coltype.String:
		return dataRegion.GetStr(payloadOff), true, nil
	case coltype.Binary:
		return dataRegion.GetBin(payloadOff), true, nil
	default:
		return nil, false, fmt.Errorf("table: column %q is not variable-length", c.r.meta.Columns[idx].Name)
	}
}
