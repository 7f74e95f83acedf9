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

package rowid

import "testing"

func TestPackUnpack(t *testing.T) {
	cases := []struct {
		partition, local uint32
	}{
		{0, 0},
		{1, 2},
		{0xFFFFFFFF, 0xFFFFFFFF},
		{5, 0},
	}
	for _, c := range cases {
		id := Pack(c.partition, c.local)
		if id.Partition() != c.partition || id.Local() != c.local {
			t.Errorf("Pack(%d,%d) -> partition=%d local=%d", c.partition, c.local, id.Partition(), id.Local())
		}
	}
}
