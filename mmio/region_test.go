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

package mmio

import (
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/colpart/tstable/vfs"
)

func TestRegionFixedWidth(t *testing.T) {
	m := vfs.NewMem(64)
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], 1)
	binary.LittleEndian.PutUint32(buf[4:], 2)
	binary.LittleEndian.PutUint32(buf[8:], 3)
	m.Put("v.d", buf)

	r, err := Of(m, "v.d")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	for i, want := range []int32{1, 2, 3} {
		if got := r.GetInt(int64(i) * 4); got != want {
			t.Errorf("GetInt(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestRegionTrackFileSizeNeverShrinks(t *testing.T) {
	m := vfs.NewMem(64)
	m.Put("v.d", []byte{1, 2, 3, 4})

	r, err := Of(m, "v.d")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	before := r.Len()
	m.Append("v.d", []byte{5, 6})
	if err := r.TrackFileSize(4); err != nil {
		t.Fatal(err)
	}
	if r.Len() < before {
		t.Fatalf("region shrank from %d to %d", before, r.Len())
	}

	if err := r.TrackFileSize(6); err != nil {
		t.Fatal(err)
	}
	if got := r.GetByte(5); got != 6 {
		t.Fatalf("GetByte(5) = %d, want 6 after growth", got)
	}
}

func TestRegionStringAndBinary(t *testing.T) {
	m := vfs.NewMem(64)

	var buf []byte
	// a 3-char string "abc"
	strOff := len(buf)
	u16 := utf16.Encode([]rune("abc"))
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(u16)))
	buf = append(buf, lenBuf...)
	for _, u := range u16 {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, u)
		buf = append(buf, b...)
	}

	// a null string right after
	nullOff := len(buf)
	nullLenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(nullLenBuf, uint32(int32(-1)))
	buf = append(buf, nullLenBuf...)

	// binary payload [4, 5, 6]
	binOff := len(buf)
	binLenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(binLenBuf, 3)
	buf = append(buf, binLenBuf...)
	buf = append(buf, 4, 5, 6)

	m.Put("s.d", buf)
	r, err := Of(m, "s.d")
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	s := r.GetStr(int64(strOff))
	if s.Null || s.String() != "abc" || s.Len() != 3 {
		t.Fatalf("GetStr = %+v (%q)", s, s.String())
	}

	n := r.GetStr(int64(nullOff))
	if !n.Null || n.Len() != -1 {
		t.Fatalf("expected null string, got %+v", n)
	}

	bs := r.GetBin(int64(binOff))
	if bs.Null || bs.Len() != 3 || string(bs.Bytes) != string([]byte{4, 5, 6}) {
		t.Fatalf("GetBin = %+v", bs)
	}
}
