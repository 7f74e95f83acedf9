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

package calendar

import (
	"testing"
	"time"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestFloor(t *testing.T) {
	cases := []struct {
		g    Granularity
		in   string
		want string
	}{
		{Day, "2020-03-17", "2020-03-17"},
		{Month, "2020-03-17", "2020-03-01"},
		{Year, "2020-03-17", "2020-01-01"},
	}
	for _, c := range cases {
		got := c.g.Floor(mustDate(c.in))
		want := mustDate(c.want)
		if !got.Equal(want) {
			t.Errorf("%s.Floor(%s) = %s, want %s", c.g, c.in, got, want)
		}
	}
}

func TestFloorNonePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for None.Floor")
		}
	}()
	None.Floor(time.Now())
}

func TestBetween(t *testing.T) {
	cases := []struct {
		g        Granularity
		a, b     string
		wantDiff int
	}{
		{Day, "2020-01-01", "2020-01-01", 0},
		{Day, "2020-01-01", "2020-01-03", 2},
		{Month, "2020-01-15", "2020-04-02", 3},
		{Year, "2018-06-01", "2021-01-01", 3},
	}
	for _, c := range cases {
		got := c.g.Between(mustDate(c.a), mustDate(c.b))
		if got != c.wantDiff {
			t.Errorf("%s.Between(%s, %s) = %d, want %d", c.g, c.a, c.b, got, c.wantDiff)
		}
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, g := range []Granularity{Year, Month, Day} {
		want := mustDate("2020-03-17")
		name := g.Format(want)
		got, err := g.Parse(name)
		if err != nil {
			t.Fatalf("%s.Parse(%q): %v", g, name, err)
		}
		wantFloor := g.Floor(want)
		if !got.Equal(wantFloor) {
			t.Errorf("%s round-trip = %s, want %s", g, got, wantFloor)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, g := range []Granularity{Year, Month, Day} {
		if _, err := g.Parse("not-a-date"); err == nil {
			t.Errorf("%s.Parse(garbage) should have failed", g)
		}
	}
}

func TestNoneParseDefault(t *testing.T) {
	if _, err := None.Parse(DefaultPartitionName); err != nil {
		t.Errorf("None.Parse(%q): %v", DefaultPartitionName, err)
	}
	if _, err := None.Parse("2020-01-01"); err == nil {
		t.Error("None.Parse should reject anything but the default name")
	}
}
