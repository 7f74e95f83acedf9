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

package txn

import (
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/colpart/tstable/vfs"
)

func writeSnapshot(m *vfs.Mem, path string, txn, transient, fixed, maxTS uint64) {
	buf := make([]byte, Size)
	binary.LittleEndian.PutUint64(buf[TransientOffset:], transient)
	binary.LittleEndian.PutUint64(buf[FixedOffset:], fixed)
	binary.LittleEndian.PutUint64(buf[MaxTSOffset:], maxTS)
	binary.LittleEndian.PutUint64(buf[TxnOffset:], txn)
	m.Put(path, buf)
}

func TestViewReadBasic(t *testing.T) {
	m := vfs.NewMem(64)
	writeSnapshot(m, "_txi", 1, 3, 0, 1000)

	v, err := Open(m, "_txi")
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	snap, changed, err := v.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected first read to report changed")
	}
	if snap.Txn != 1 || snap.TransientRowCount != 3 || snap.TotalRows() != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	_, changed, err = v.Read()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("expected second read with same txn to report unchanged")
	}
}

func TestViewReadObservesAdvance(t *testing.T) {
	m := vfs.NewMem(64)
	writeSnapshot(m, "_txi", 1, 3, 0, 1000)

	v, err := Open(m, "_txi")
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	if _, _, err := v.Read(); err != nil {
		t.Fatal(err)
	}

	writeSnapshot(m, "_txi", 2, 4, 0, 2000)
	snap, changed, err := v.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !changed || snap.Txn != 2 || snap.TransientRowCount != 4 {
		t.Fatalf("expected advanced snapshot, got changed=%v snap=%+v", changed, snap)
	}
}

// TestViewReadTornWriteConverges simulates an adversarial writer that
// bumps the txn number to an odd (in-progress) value, mutates the
// payload, then settles on the final even value, and checks that the
// reader never reports an inconsistent snapshot and eventually succeeds
// once the writer stabilizes (spec.md §8, property 3).
func TestViewReadTornWriteConverges(t *testing.T) {
	m := vfs.NewMem(64)
	writeSnapshot(m, "_txi", 2, 1, 0, 100)

	v, err := Open(m, "_txi")
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()
	if _, _, err := v.Read(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		// begin a torn write: bump txn to an odd in-flight marker,
		// then write the new payload, then publish the final txn.
		m.WriteAt("_txi", TxnOffset, u64(3))
		time.Sleep(time.Millisecond)
		writeSnapshot(m, "_txi", 4, 2, 0, 200)
	}()
	defer wg.Wait()

	// poll until the writer's final state is visible; every
	// intermediate read must be internally consistent even though we
	// don't assert on it directly (the sequence-lock check inside
	// Read is the thing under test: it must never return changed=true
	// with mismatched txn numbers).
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snap, changed, err := v.Read()
		if err != nil {
			t.Fatal(err)
		}
		if changed && snap.Txn == 4 {
			if snap.TransientRowCount != 2 {
				t.Fatalf("torn snapshot observed: %+v", snap)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("reader never converged on the writer's final snapshot")
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
