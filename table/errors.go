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

package table

import (
	"errors"
	"fmt"
)

// ErrPendingRecovery is returned by Open when the table's _todo marker
// is present: the writer left the table in a state that requires
// recovery before it is safe to read (spec.md §6, §7).
var ErrPendingRecovery = errors.New("table: pending recovery (_todo present)")

// MissingFileError wraps the underlying I/O error for a required file
// (_meta or _txi) that could not be opened.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("table: missing required file %s: %v", e.Path, e.Err)
}

func (e *MissingFileError) Unwrap() error { return e.Err }

// CorruptMetadataError reports a _meta file that failed to parse, e.g.
// a column count out of range or a truncated entry.
type CorruptMetadataError struct {
	Path   string
	Reason string
}

func (e *CorruptMetadataError) Error() string {
	return fmt.Sprintf("table: corrupt metadata %s: %s", e.Path, e.Reason)
}

// CorruptArchiveError reports a partition's _archive file, or a column's
// .top file, being shorter than the 8-byte value it must hold.
type CorruptArchiveError struct {
	Path string
	Size int64
}

func (e *CorruptArchiveError) Error() string {
	return fmt.Sprintf("table: corrupt archive %s: only %d bytes (want >= 8)", e.Path, e.Size)
}
