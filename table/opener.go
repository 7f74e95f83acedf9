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
	"fmt"

	"github.com/colpart/tstable/calendar"
	"github.com/colpart/tstable/mmio"
	"github.com/colpart/tstable/txn"
	"github.com/colpart/tstable/vfs"
)

const archiveFile = "_archive"

// partitionName returns the on-disk directory name for partition index p.
func (r *TableReader) partitionName(p int) string {
	if r.meta.Partitioning == calendar.None {
		return calendar.DefaultPartitionName
	}
	t := r.meta.Partitioning.Add(r.partitionMin, p)
	return r.meta.Partitioning.Format(t)
}

func (r *TableReader) partitionDir(p int) string {
	return vfs.Join(r.root, r.partitionName(p))
}

// columnStem returns the on-disk file stem a column uses within a
// partition directory; callers append ".d" for the value array, ".i"
// for the offset index of variable-length columns (spec.md §4.2), and
// ".top" for the column top.
func columnStem(name string) string { return name }

// isLastPartition reports whether p is the most recently created
// partition, the only one a concurrent writer may still be appending to.
func (r *TableReader) isLastPartition(p int) bool { return p == len(r.partitionSizes)-1 }

// openPartition maps every column that has on-disk data for partition p
// and determines the partition's current row count (component C7). The
// last partition, when it has no _archive marker, is the active, still
// growing tail and takes its row count from the transaction snapshot;
// any other partition without one fails with a MissingFileError.
func (r *TableReader) openPartition(p int) error {
	dir := r.partitionDir(p)

	rowCount, err := r.partitionRowCount(p, dir)
	if err != nil {
		return err
	}
	r.partitionSizes[p] = rowCount

	for c, col := range r.meta.Columns {
		top, err := readColumnTop(r.fs, vfs.Join(dir, columnStem(col.Name)+".top"))
		if err != nil {
			return err
		}
		r.columnTops[p*r.meta.ColumnCount()+c] = top

		if int64(top) >= rowCount {
			// Column has no data yet in this partition.
			continue
		}
		if err := r.openColumn(p, c, dir, col); err != nil {
			return err
		}
	}
	return nil
}

// partitionRowCount determines partition p's current row count. A
// partition directory that doesn't exist at all yields a zero-row
// partition with nothing mapped (spec.md §4.6/§4.7, invariant 1): this
// is a permitted calendar gap, not an error. Otherwise: a sealed
// partition's count comes from its _archive file; the live (last)
// partition's count is the transaction snapshot's transientRowCount
// alone — fixedRowCount + transientRowCount is the whole table's total
// (spec.md §4.5), not any one partition's (spec.md §4.7, invariant 2).
func (r *TableReader) partitionRowCount(p int, dir string) (int64, error) {
	if !r.fs.Exists(dir) {
		return 0, nil
	}
	archivePath := vfs.Join(dir, archiveFile)
	if r.fs.Exists(archivePath) {
		return readArchive(r.fs, archivePath)
	}
	if !r.isLastPartition(p) {
		return 0, &MissingFileError{Path: archivePath, Err: vfs.ErrNotExist}
	}
	return int64(r.snapshot.TransientRowCount), nil
}

// readArchive reads the sealed row count a writer records once it stops
// appending to a partition (spec.md §4.6).
func readArchive(f vfs.FS, path string) (int64, error) {
	region, err := mmio.Of(f, path)
	if err != nil {
		return 0, err
	}
	defer region.Close()
	if region.Len() < 8 {
		return 0, &CorruptArchiveError{Path: path, Size: int64(region.Len())}
	}
	return region.GetLong(0), nil
}

// readColumnTop reads the row index at which a column's data begins
// within a partition. A missing .top file means the column has covered
// every row in the partition since it was created (top 0).
func readColumnTop(f vfs.FS, path string) (int64, error) {
	if !f.Exists(path) {
		return 0, nil
	}
	region, err := mmio.Of(f, path)
	if err != nil {
		return 0, err
	}
	defer region.Close()
	if region.Len() < 8 {
		return 0, &CorruptArchiveError{Path: path, Size: int64(region.Len())}
	}
	return region.GetLong(0), nil
}

func (r *TableReader) openColumn(p, c int, dir string, col Column) error {
	base := r.base(p)
	dataPath := vfs.Join(dir, columnStem(col.Name)+".d")
	if !r.fs.Exists(dataPath) {
		// Top claims data exists but the file is absent: treat as no
		// data rather than failing the whole table open.
		return nil
	}
	dataRegion, err := mmio.Of(r.fs, dataPath)
	if err != nil {
		return fmt.Errorf("table: opening column %q in %s: %w", col.Name, dir, err)
	}
	r.columns[base+2*c] = dataRegion

	if !col.Type.IsVariableLength() {
		return nil
	}
	indexPath := vfs.Join(dir, columnStem(col.Name)+".i")
	if !r.fs.Exists(indexPath) {
		return fmt.Errorf("table: column %q in %s: %w", col.Name, dir, &MissingFileError{Path: indexPath, Err: vfs.ErrNotExist})
	}
	indexRegion, err := mmio.Of(r.fs, indexPath)
	if err != nil {
		return fmt.Errorf("table: opening index for column %q in %s: %w", col.Name, dir, err)
	}
	r.columns[base+2*c+1] = indexRegion
	return nil
}

// regrowPartitionColumns re-stats every mapped region belonging to
// partition p so growth in the backing files becomes visible without
// reopening them (component C7, spec.md §4.8).
func (r *TableReader) regrowPartitionColumns(p int) error {
	if p < 0 {
		return nil
	}
	base := r.base(p)
	columnCount := r.meta.ColumnCount()
	for c := 0; c < columnCount; c++ {
		for _, slot := range [2]int{base + 2*c, base + 2*c + 1} {
			if region := r.columns[slot]; region != nil {
				if err := region.Grow(); err != nil {
					return err
				}
			}
		}
		// A column that had no data yet may have crossed its top now
		// that the partition grew; pick it up on the next full Open
		// rather than here, matching the teacher's lazy-materialization
		// posture for newly added columns.
	}
	return nil
}

// reloadLastPartition regrows the currently active partition's columns
// and refreshes its row count from a fresh transaction snapshot.
func (r *TableReader) reloadLastPartition(snap txn.Snapshot) error {
	p := len(r.partitionSizes) - 1
	if p < 0 {
		return nil
	}
	if err := r.regrowPartitionColumns(p); err != nil {
		return err
	}
	r.partitionSizes[p] = int64(snap.TransientRowCount)
	return nil
}
