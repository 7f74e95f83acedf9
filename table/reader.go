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

// Package table implements the read-only cursor over a partitioned,
// column-oriented, append-only table (components C4, C6, C7, C8): table
// metadata, partition directory scanning, lazy per-partition column
// mapping, and the forward/random-access record cursor.
package table

import (
	"fmt"
	"time"

	"github.com/colpart/tstable/calendar"
	"github.com/colpart/tstable/mmio"
	"github.com/colpart/tstable/txn"
	"github.com/colpart/tstable/vfs"
)

// Logger is the sparse, boundary-only logging interface a TableReader
// accepts, mirroring tenant/dcache.Cache's optional Logger field in the
// teacher: Reload reports a writer rolling over to a new partition
// through it; Open does not log, and no per-row cursor operation ever
// logs.
type Logger interface {
	Printf(f string, args ...interface{})
}

// TableReader owns every mapped region and file handle it opens for one
// table; Close releases them all (spec.md §3, "Lifecycle").
type TableReader struct {
	// Logger, if non-nil, receives a line for each Reload that opens a
	// new partition. It may be set any time after construction.
	Logger Logger

	fs   vfs.FS
	root string // <root>/<table>
	meta *Metadata
	txn  *txn.View

	snapshot       txn.Snapshot
	partitionMin   time.Time
	partitionMinOK bool

	shift uint // K: base(p) = p << shift

	// Per-partition state, indexed by partition index p. columns is a
	// flat vector with 2*columnCount slots per partition at base(p);
	// columnTops is flat with columnCount slots per partition at
	// p*columnCount (it does not participate in the row-id stride).
	partitionSizes []int64
	columns        []*mmio.Region
	columnTops     []int64
}

// Open constructs a TableReader over root/table. It fails (releasing any
// partially acquired resources) if the table has a pending recovery
// marker, or if _meta/_txi are missing or corrupt (spec.md §7).
func Open(f vfs.FS, root, name string) (*TableReader, error) {
	tableRoot := vfs.Join(root, name)

	if f.Exists(vfs.Join(tableRoot, TodoFile)) {
		return nil, ErrPendingRecovery
	}

	meta, err := readMetadata(f, vfs.Join(tableRoot, MetaFile))
	if err != nil {
		return nil, err
	}

	view, err := txn.Open(f, vfs.Join(tableRoot, TxnFile))
	if err != nil {
		return nil, err
	}

	snap, _, err := view.Read()
	if err != nil {
		view.Close()
		return nil, fmt.Errorf("table: reading initial transaction snapshot: %w", err)
	}

	r := &TableReader{
		fs:    f,
		root:  tableRoot,
		meta:  meta,
		txn:   view,
		shift: columnStrideShift(meta.ColumnCount()),
	}
	r.snapshot = snap

	if meta.Partitioning == calendar.None {
		r.partitionMin = time.Time{}
		r.partitionMinOK = false
	} else {
		min, ok, err := scanPartitionMin(f, tableRoot, meta.Partitioning)
		if err != nil {
			view.Close()
			return nil, fmt.Errorf("table: scanning partitions: %w", err)
		}
		r.partitionMin, r.partitionMinOK = min, ok
	}

	count := partitionCount(meta.Partitioning, r.partitionMin, r.partitionMinOK, maxTimestamp(snap))
	r.growPartitionVector(count)

	for p := 0; p < count; p++ {
		if err := r.openPartition(p); err != nil {
			r.Close()
			return nil, err
		}
	}

	return r, nil
}

// maxTimestamp converts the transaction snapshot's raw 64-bit max
// timestamp into a time.Time. The unit (micro vs milliseconds) is a
// writer-contract detail; this reader treats it as microseconds since
// the Unix epoch, matching the teacher's date package convention
// (date.UnixMicro).
func maxTimestamp(s txn.Snapshot) time.Time {
	return time.UnixMicro(int64(s.MaxTimestamp)).UTC()
}

// Metadata returns the table's immutable metadata (component C4).
func (r *TableReader) Metadata() *Metadata { return r.meta }

// Stat is a point-in-time counter snapshot of a TableReader, for
// collaborators (e.g. a query planner) that just need sizing information
// without reaching into the reader's internals.
type Stat struct {
	Columns         int
	TimestampColumn int
	Rows            int64
	Partitions      int
}

// Stat summarizes the reader's current state as of its last Open/Reload.
func (r *TableReader) Stat() Stat {
	return Stat{
		Columns:         r.meta.ColumnCount(),
		TimestampColumn: r.meta.TimestampCol,
		Rows:            r.Size(),
		Partitions:      r.PartitionCount(),
	}
}

// PartitionCount returns the number of partitions currently known to
// this reader.
func (r *TableReader) PartitionCount() int { return len(r.partitionSizes) }

// Size returns the total row count: the sum of per-partition sizes
// (spec.md §8, property 2).
func (r *TableReader) Size() int64 {
	var n int64
	for _, sz := range r.partitionSizes {
		if sz > 0 {
			n += sz
		}
	}
	return n
}

// Close releases every file handle and mapped region this reader owns.
// It is idempotent.
func (r *TableReader) Close() error {
	var firstErr error
	for i, c := range r.columns {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.columns[i] = nil
	}
	if r.txn != nil {
		if err := r.txn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.txn = nil
	}
	return firstErr
}

func (r *TableReader) logf(f string, args ...interface{}) {
	if r.Logger != nil {
		r.Logger.Printf(f, args...)
	}
}

// base returns the flat-vector offset for partition p's column slots
// (spec.md §4.7, §9): p << K.
func (r *TableReader) base(p int) int { return p << r.shift }

// Reload pulls a fresh transaction snapshot and updates the reader's view
// of the table (spec.md §4.8). If the writer has started a new partition
// since the last Reload, the newly created partitions are opened; if the
// active (last) partition has simply grown, its mapped column regions are
// extended in place. Reload is a no-op (and returns false) if the
// transaction number hasn't changed.
func (r *TableReader) Reload() (changed bool, err error) {
	snap, changed, err := r.txn.Read()
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}
	r.snapshot = snap

	wantCount := partitionCount(r.meta.Partitioning, r.partitionMin, r.partitionMinOK, maxTimestamp(snap))
	haveCount := len(r.partitionSizes)

	if !r.partitionMinOK && r.meta.Partitioning != calendar.None {
		min, ok, serr := scanPartitionMin(r.fs, r.root, r.meta.Partitioning)
		if serr != nil {
			return false, fmt.Errorf("table: rescanning partitions: %w", serr)
		}
		r.partitionMin, r.partitionMinOK = min, ok
		wantCount = partitionCount(r.meta.Partitioning, r.partitionMin, r.partitionMinOK, maxTimestamp(snap))
	}

	if wantCount > haveCount {
		// The partition that used to be last is now sealed; re-stat it
		// once more in case the writer appended to it right before
		// rolling over to the new partition.
		if haveCount > 0 {
			if err := r.regrowPartitionColumns(haveCount - 1); err != nil {
				return false, err
			}
			if sz, serr := r.partitionRowCount(haveCount-1, r.partitionDir(haveCount-1)); serr == nil {
				r.partitionSizes[haveCount-1] = sz
			}
		}
		r.growPartitionVector(wantCount)
		for p := haveCount; p < wantCount; p++ {
			if err := r.openPartition(p); err != nil {
				return false, err
			}
		}
		r.logf("table: %s: reload opened %d new partition(s), now %d total", r.root, wantCount-haveCount, wantCount)
		return true, nil
	}

	if err := r.reloadLastPartition(snap); err != nil {
		return false, err
	}
	return true, nil
}

func (r *TableReader) growPartitionVector(count int) {
	if count <= len(r.partitionSizes) {
		return
	}
	grownSizes := make([]int64, count)
	copy(grownSizes, r.partitionSizes)
	for i := len(r.partitionSizes); i < count; i++ {
		grownSizes[i] = -1
	}
	r.partitionSizes = grownSizes

	slotsNeeded := r.base(count)
	grownCols := make([]*mmio.Region, slotsNeeded)
	copy(grownCols, r.columns)
	r.columns = grownCols

	topsNeeded := count * r.meta.ColumnCount()
	grownTops := make([]int64, topsNeeded)
	copy(grownTops, r.columnTops)
	r.columnTops = grownTops
}
