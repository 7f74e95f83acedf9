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

//go:build !linux && !darwin

package mmio

import "github.com/colpart/tstable/vfs"

// On platforms without a native mmap implementation wired up here, fall
// back to the buffered backend even when the file has a real descriptor,
// mirroring tenant/dcache/file_other.go's non-Linux fallback.
func newMmapBackend(file vfs.File, fd uintptr, pageSize int, size int64) (backend, error) {
	return newBufferedBackend(file, size)
}
