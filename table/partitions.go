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
	"math/bits"
	"time"

	"github.com/colpart/tstable/calendar"
	"github.com/colpart/tstable/vfs"
)

// scanPartitionMin enumerates root looking for the earliest directory
// name that parses under g's layout (component C6). Unparseable names
// are silently skipped — they may be internal artifacts (spec.md §4.6).
// ok is false if no directory parses, meaning partitionMin is
// conceptually +infinity and the table has zero partitions.
func scanPartitionMin(f vfs.FS, root string, g calendar.Granularity) (min time.Time, ok bool, err error) {
	entries, err := f.ReadDir(root)
	if err != nil {
		return time.Time{}, false, err
	}
	for _, e := range entries {
		if e.Kind != vfs.KindDir && e.Kind != vfs.KindSymlink {
			continue
		}
		t, perr := g.Parse(e.Name)
		if perr != nil {
			continue
		}
		if !ok || t.Before(min) {
			min, ok = t, true
		}
	}
	return min, ok, nil
}

// partitionCount computes the number of partitions from partitionMin and
// the transaction snapshot's max timestamp, per spec.md §4.6.
func partitionCount(g calendar.Granularity, min time.Time, minOK bool, maxTS time.Time) int {
	if g == calendar.None {
		return 1
	}
	if !minOK {
		return 0
	}
	return g.Between(min, maxTS) + 1
}

// columnStrideShift returns K = ceil(log2(columnCount*2)), the power-of-
// two shift used to compute base(p) = p << K (spec.md §4.7, §9).
func columnStrideShift(columnCount int) uint {
	slots := columnCount * 2
	if slots <= 1 {
		return 0
	}
	return uint(bits.Len(uint(slots - 1)))
}
