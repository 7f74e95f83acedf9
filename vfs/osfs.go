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
	"fmt"
	"os"
	"path/filepath"
)

// OS is the real-filesystem implementation of FS, used in production.
type OS struct {
	pageSize int
}

// NewOS constructs an OS-backed FS. If pageSize is 0, os.Getpagesize is
// used.
func NewOS(pageSize int) *OS {
	if pageSize <= 0 {
		pageSize = os.Getpagesize()
	}
	return &OS{pageSize: pageSize}
}

func (o *OS) PageSize() int { return o.pageSize }

func (o *OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (o *OS) OpenRead(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vfs: open %s: %w", path, ErrNotExist)
		}
		return nil, fmt.Errorf("vfs: open %s: %w", path, err)
	}
	return &osFile{f}, nil
}

func (o *OS) ReadDir(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vfs: readdir %s: %w", dir, ErrNotExist)
		}
		return nil, fmt.Errorf("vfs: readdir %s: %w", dir, err)
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		kind := KindFile
		switch {
		case e.Type()&os.ModeSymlink != 0:
			kind = KindSymlink
		case e.IsDir():
			kind = KindDir
		}
		out = append(out, Entry{Name: e.Name(), Kind: kind})
	}
	return out, nil
}

type osFile struct {
	f *os.File
}

func (o *osFile) ReadAt(p []byte, off int64) (int, error) { return o.f.ReadAt(p, off) }
func (o *osFile) Close() error                             { return o.f.Close() }

func (o *osFile) Size() (int64, error) {
	fi, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (o *osFile) Fd() (uintptr, bool) {
	return o.f.Fd(), true
}

// Join is a small re-export of filepath.Join so callers that only import
// vfs don't need a second import for path construction.
func Join(elem ...string) string { return filepath.Join(elem...) }
