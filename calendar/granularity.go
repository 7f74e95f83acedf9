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

// Package calendar implements the calendar arithmetic needed to floor,
// advance, and count partition boundaries for a time-partitioned table, and
// to format and parse the partition directory names that encode them.
package calendar

import (
	"fmt"
	"strconv"
	"time"
)

// A Granularity names the unit a partitioned table's directories are
// aligned to.
type Granularity int

const (
	// None means the table is not partitioned; it has a single
	// partition directory named by DefaultPartitionName.
	None Granularity = iota
	Year
	Month
	Day
)

// DefaultPartitionName is the directory name used for the sole partition
// of a non-partitioned table.
const DefaultPartitionName = "default"

func (g Granularity) String() string {
	switch g {
	case None:
		return "none"
	case Year:
		return "YEAR"
	case Month:
		return "MONTH"
	case Day:
		return "DAY"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// Floor returns the greatest instant <= t that is aligned to g.
//
// Floor panics if g is None; callers must guard non-partitioned tables
// themselves (spec: "the floor operation must fail if invoked").
func (g Granularity) Floor(t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Year:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	default:
		panic("calendar: Floor called on a non-partitioned granularity")
	}
}

// Add advances base by n units of g. n may be negative.
func (g Granularity) Add(base time.Time, n int) time.Time {
	switch g {
	case Year:
		return base.AddDate(n, 0, 0)
	case Month:
		return base.AddDate(0, n, 0)
	case Day:
		return base.AddDate(0, 0, n)
	default:
		return base
	}
}

// Between counts the complete g-units between Floor(a) and Floor(b).
// The caller guarantees a <= b. For None it always returns 0.
func (g Granularity) Between(a, b time.Time) int {
	if g == None {
		return 0
	}
	fa, fb := g.Floor(a), g.Floor(b)
	n := 0
	// fa advances monotonically toward fb; partition counts are small
	// enough in practice (years/months/days of a single table) that a
	// linear walk is simpler and just as correct as a closed form, and
	// it avoids getting the calendar month-length math wrong twice.
	for fa.Before(fb) {
		fa = g.Add(fa, 1)
		n++
	}
	return n
}

// Format renders t as the partition directory name for g.
func (g Granularity) Format(t time.Time) string {
	t = t.UTC()
	switch g {
	case Year:
		return fmt.Sprintf("%04d", t.Year())
	case Month:
		return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
	case Day:
		return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
	default:
		return DefaultPartitionName
	}
}

// ErrNotAPartitionName is returned by Parse when name does not match the
// layout for g. It is never surfaced to callers of this package's public
// API beyond the directory scan that swallows it (spec: "never surfaced").
type ErrNotAPartitionName struct {
	Granularity Granularity
	Name        string
}

func (e *ErrNotAPartitionName) Error() string {
	return fmt.Sprintf("calendar: %q is not a valid %s partition name", e.Name, e.Granularity)
}

// Parse parses a partition directory name under g's layout.
func (g Granularity) Parse(name string) (time.Time, error) {
	switch g {
	case Year:
		if len(name) != 4 {
			return time.Time{}, &ErrNotAPartitionName{g, name}
		}
		y, err := strconv.Atoi(name)
		if err != nil {
			return time.Time{}, &ErrNotAPartitionName{g, name}
		}
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case Month:
		t, err := time.Parse("2006-01", name)
		if err != nil {
			return time.Time{}, &ErrNotAPartitionName{g, name}
		}
		return t.UTC(), nil
	case Day:
		t, err := time.Parse("2006-01-02", name)
		if err != nil {
			return time.Time{}, &ErrNotAPartitionName{g, name}
		}
		return t.UTC(), nil
	default:
		if name != DefaultPartitionName {
			return time.Time{}, &ErrNotAPartitionName{g, name}
		}
		return time.Time{}, nil
	}
}
