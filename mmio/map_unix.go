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

//go:build linux || darwin

package mmio

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/colpart/tstable/vfs"
)

// mmapBackend is a real read-only mmap(2) mapping, grown in page units
// as the backing file is appended to by a concurrent writer. This is the
// same approach as ion/blockfmt's mmap_linux.go and
// tenant/dcache/file_linux.go in the teacher, generalized to re-map
// (rather than map-once) so a long-lived reader can observe growth.
type mmapBackend struct {
	file     vfs.File
	fd       uintptr
	pageSize int
	mem      []byte
}

func newMmapBackend(file vfs.File, fd uintptr, pageSize int, size int64) (backend, error) {
	b := &mmapBackend{file: file, fd: fd, pageSize: pageSize}
	if err := b.remap(size); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *mmapBackend) bytes() []byte { return b.mem }

// roundUp rounds n up to the next multiple of the page size, mapping at
// least one page even for an empty file (mmap(2) rejects a zero length).
func (b *mmapBackend) roundUp(n int64) int {
	if n <= 0 {
		return b.pageSize
	}
	pages := (n + int64(b.pageSize) - 1) / int64(b.pageSize)
	return int(pages) * b.pageSize
}

func (b *mmapBackend) remap(n int64) error {
	want := b.roundUp(n)
	if want <= len(b.mem) {
		return nil
	}
	if b.mem != nil {
		if err := unix.Munmap(b.mem); err != nil {
			return fmt.Errorf("munmap before remap: %w", err)
		}
	}
	mem, err := unix.Mmap(int(b.fd), 0, want, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("mmap: %w", err)
	}
	b.mem = mem
	return nil
}

func (b *mmapBackend) fileSize() (int64, error) { return b.file.Size() }

func (b *mmapBackend) close() error {
	var err error
	if b.mem != nil {
		err = unix.Munmap(b.mem)
		b.mem = nil
	}
	if cerr := b.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
