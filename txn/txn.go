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

// Package txn implements the transaction-file sequence-lock protocol
// (component C5): a reader observes a coherent (txn, transientRowCount,
// fixedRowCount, maxTimestamp) snapshot published by a concurrent,
// lock-free writer by re-reading the txn field before and after the
// payload and retrying on a torn read.
package txn

import (
	"fmt"

	"github.com/colpart/tstable/mmio"
	"github.com/colpart/tstable/vfs"
)

// Byte offsets within the transaction file. These are fixed by the
// writer contract (spec.md §6 leaves the exact offsets writer-defined);
// DESIGN.md records the choice made here.
const (
	TxnOffset       = 0
	TransientOffset = 8
	FixedOffset     = 16
	MaxTSOffset     = 24

	// Size is the minimum length a valid transaction file must have.
	Size = 32
)

// Snapshot is a coherent read of the transaction file's fields.
type Snapshot struct {
	Txn               uint64
	TransientRowCount uint64
	FixedRowCount     uint64
	MaxTimestamp      uint64
}

// TotalRows is FixedRowCount + TransientRowCount.
func (s Snapshot) TotalRows() uint64 { return s.FixedRowCount + s.TransientRowCount }

// View memory-maps a transaction file and lets callers pull coherent
// snapshots from it as a concurrent writer advances.
type View struct {
	region  *mmio.Region
	lastTxn uint64
	have    bool
}

// Open maps the transaction file at path.
func Open(f vfs.FS, path string) (*View, error) {
	r, err := mmio.Of(f, path)
	if err != nil {
		return nil, fmt.Errorf("txn: open %s: %w", path, err)
	}
	if r.Len() < Size {
		// A real mapping already covers a whole page; the buffered
		// backend maps the file's exact length. A file shorter than
		// Size is not rejected: the region is grown to Size and the
		// bytes past the end of the file read as zero.
		if err := r.TrackFileSize(Size); err != nil {
			r.Close()
			return nil, fmt.Errorf("txn: %s shorter than the transaction header: %w", path, err)
		}
	}
	return &View{region: r}, nil
}

// Close releases the mapped transaction file.
func (v *View) Close() error { return v.region.Close() }

// maxParkAttempts bounds the sequence-lock retry loop so a reader never
// spins forever against a writer that (incorrectly) never converges;
// exceeding it is treated as I/O-level corruption, not a normal torn
// read.
const maxParkAttempts = 10000

// Read pulls the current snapshot, retrying while the writer's publish
// is torn. It returns (snapshot, changed, err): changed is false (and
// snapshot is the zero value) when the txn number is unchanged since the
// View's last successful Read — callers use this to short-circuit
// Reload.
func (v *View) Read() (Snapshot, bool, error) {
	if err := v.region.TrackFileSize(Size); err != nil {
		return Snapshot{}, false, err
	}

	for attempt := 0; attempt < maxParkAttempts; attempt++ {
		txn1 := v.region.GetU64(TxnOffset)
		if v.have && txn1 == v.lastTxn {
			return Snapshot{}, false, nil
		}

		loadFence()

		snap := Snapshot{
			Txn:               txn1,
			TransientRowCount: v.region.GetU64(TransientOffset),
			FixedRowCount:     v.region.GetU64(FixedOffset),
			MaxTimestamp:      v.region.GetU64(MaxTSOffset),
		}

		loadFence()

		txn2 := v.region.GetU64(TxnOffset)
		if txn2 == txn1 {
			v.lastTxn = txn1
			v.have = true
			return snap, true, nil
		}

		park()
	}
	return Snapshot{}, false, fmt.Errorf("txn: writer never converged on a stable snapshot after %d attempts", maxParkAttempts)
}
