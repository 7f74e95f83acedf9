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
	"runtime"
	"sync/atomic"
)

// fenceBarrier is never written with a meaningful value; atomic ops on
// it exist purely to force the Go memory model's happens-before edge
// between the bracketing GetU64 reads, the same role Unsafe.loadFence
// plays around the payload read in the source protocol this package
// implements.
var fenceBarrier uint32

// loadFence prevents the compiler and processor from reordering the
// payload reads around it relative to the txn reads that bracket them.
func loadFence() {
	atomic.LoadUint32(&fenceBarrier)
}

// park is the bounded, nanosecond-scale backoff taken when a torn read
// is detected (spec.md §4.5's "park_briefly"). Gosched, rather than a
// sleep, keeps a single-digit-microsecond cost on the fast path where
// the writer's next store lands almost immediately — the same intent as
// the teacher's atomicext.Pause spin-wait hint, expressed without
// platform assembly.
func park() {
	runtime.Gosched()
}
