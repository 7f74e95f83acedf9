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

// Package rowid packs and unpacks the 64-bit composite row identifier
// described in spec.md §3 and §6: the high 32 bits hold the partition
// index, the low 32 bits hold the local row index within that partition.
package rowid

import "fmt"

// ID is a packed row identifier.
type ID uint64

// Pack builds an ID from a partition index and a local row index.
func Pack(partition, local uint32) ID {
	return ID(uint64(partition)<<32 | uint64(local))
}

// Partition returns the high 32 bits: the partition index.
func (id ID) Partition() uint32 { return uint32(id >> 32) }

// Local returns the low 32 bits: the row index within the partition.
func (id ID) Local() uint32 { return uint32(id) }

func (id ID) String() string {
	return fmt.Sprintf("(%d,%d)", id.Partition(), id.Local())
}
