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

import "github.com/colpart/tstable/vfs"

// newBackend picks a real mmap backend when the file hands out an OS
// file descriptor, and the buffered fallback otherwise (in-memory test
// doubles, or a platform without a native implementation).
func newBackend(file vfs.File, pageSize int, size int64) (backend, error) {
	if fd, ok := file.Fd(); ok {
		return newMmapBackend(file, fd, pageSize, size)
	}
	return newBufferedBackend(file, size)
}

// bufferedBackend re-reads the file on every access rather than holding
// a frozen snapshot. A real mmap mapping shares pages with the writer,
// so in-place mutations (like the transaction file's sequence-lock
// payload) are visible without remapping; to preserve that property for
// the in-memory test double (there is no real fd to mmap, matching the
// teacher's tenant/dcache/file_other.go trade-off), bytes() always
// fetches the current content instead of caching it. Only the mapped
// length — never the content — is sticky, matching TrackFileSize's
// "never shrinks" contract.
type bufferedBackend struct {
	file vfs.File
	size int64
}

func newBufferedBackend(file vfs.File, size int64) (backend, error) {
	b := &bufferedBackend{file: file}
	if err := b.remap(size); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *bufferedBackend) bytes() []byte {
	buf := make([]byte, b.size)
	if b.size > 0 {
		b.file.ReadAt(buf, 0)
	}
	return buf
}

func (b *bufferedBackend) remap(n int64) error {
	if n > b.size {
		b.size = n
	}
	return nil
}

func (b *bufferedBackend) close() error { return b.file.Close() }

func (b *bufferedBackend) fileSize() (int64, error) { return b.file.Size() }
