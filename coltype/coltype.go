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

// Package coltype enumerates the column types a table may declare
// (spec.md §3), their fixed-width sizes, and which of them are
// variable-length. It defines no null sentinels.
package coltype

import "fmt"

// Type is one of the column datatypes this engine understands.
type Type byte

const (
	Invalid Type = iota
	Boolean
	Byte
	Short
	Int
	Float
	Long
	Double
	Date
	Timestamp
	Symbol
	String
	Binary
)

func (t Type) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Byte:
		return "BYTE"
	case Short:
		return "SHORT"
	case Int:
		return "INT"
	case Float:
		return "FLOAT"
	case Long:
		return "LONG"
	case Double:
		return "DOUBLE"
	case Date:
		return "DATE"
	case Timestamp:
		return "TIMESTAMP"
	case Symbol:
		return "SYMBOL"
	case String:
		return "STRING"
	case Binary:
		return "BINARY"
	default:
		return fmt.Sprintf("Type(%d)", byte(t))
	}
}

// FixedWidth returns the on-disk byte width for a fixed-width type, or
// (0, false) for the variable-length STRING/BINARY types and Invalid.
// SYMBOL reports its 4-byte dictionary-id width, though the id itself is
// never dereferenced (dictionary dereference is out of scope — see
// spec.md's non-goals).
func (t Type) FixedWidth() (int, bool) {
	switch t {
	case Boolean, Byte:
		return 1, true
	case Short:
		return 2, true
	case Int, Float, Symbol:
		return 4, true
	case Long, Double, Date, Timestamp:
		return 8, true
	default:
		return 0, false
	}
}

// IsVariableLength reports whether t is stored as a [data file, index
// file] pair rather than a fixed-width column (spec.md §3).
func (t Type) IsVariableLength() bool {
	return t == String || t == Binary
}

// ParseType maps a metadata type tag string to a Type. Unknown tags
// yield (Invalid, false).
func ParseType(name string) (Type, bool) {
	switch name {
	case "BOOLEAN":
		return Boolean, true
	case "BYTE":
		return Byte, true
	case "SHORT":
		return Short, true
	case "INT":
		return Int, true
	case "FLOAT":
		return Float, true
	case "LONG":
		return Long, true
	case "DOUBLE":
		return Double, true
	case "DATE":
		return Date, true
	case "TIMESTAMP":
		return Timestamp, true
	case "SYMBOL":
		return Symbol, true
	case "STRING":
		return String, true
	case "BINARY":
		return Binary, true
	default:
		return Invalid, false
	}
}
