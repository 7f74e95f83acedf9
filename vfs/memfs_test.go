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

package vfs

import (
	"errors"
	"testing"
)

func TestMemBasics(t *testing.T) {
	m := NewMem(64)
	m.Mkdir("root")
	m.Put("root/a.d", []byte("hello"))

	if !m.Exists("root/a.d") {
		t.Fatal("expected root/a.d to exist")
	}
	if m.Exists("root/missing") {
		t.Fatal("did not expect root/missing to exist")
	}

	entries, err := m.ReadDir("root")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "a.d" || entries[0].Kind != KindFile {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	f, err := m.OpenRead("root/a.d")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	buf := make([]byte, 5)
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "hello" {
		t.Fatalf("got %q", buf)
	}
}

func TestMemAppendGrowsSize(t *testing.T) {
	m := NewMem(64)
	m.Put("v.d", []byte{1, 2, 3, 4})
	m.Append("v.d", []byte{5, 6, 7, 8})

	f, err := m.OpenRead("v.d")
	if err != nil {
		t.Fatal(err)
	}
	sz, err := f.Size()
	if err != nil {
		t.Fatal(err)
	}
	if sz != 8 {
		t.Fatalf("size = %d, want 8", sz)
	}
}

func TestMemOpenMissing(t *testing.T) {
	m := NewMem(64)
	_, err := m.OpenRead("nope")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}

func TestMemReadDirMissing(t *testing.T) {
	m := NewMem(64)
	_, err := m.ReadDir("nope")
	if !errors.Is(err, ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
