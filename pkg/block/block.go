// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package block declares the collaborators the sort engine treats as
// external: the columnar block/column type system, the sort description
// it sorts by, and the upstream/downstream block stream contract. None of
// it is implemented here. pkg/memblock provides one concrete realization
// used by tests and the benchmark command, but internal/sortexec only ever
// depends on these interfaces.
package block

import "context"

// Column is a single named column of a Block. It is opaque to the sort
// engine beyond row count, comparison, and the handful of builder
// operations the merge needs.
type Column interface {
	// Len returns the number of logical rows in the column.
	Len() int

	// IsConst reports whether the column is logically one value repeated
	// Len() times. Constant columns are never compared or spilled.
	IsConst() bool

	// CompareAt compares row i of the receiver against row j of other.
	// nullsDirection is +1 or -1 and governs where NULLs sort when one of
	// the two values is NULL. The sign of the result gives the order.
	CompareAt(i int, other Column, j int, nullsDirection int) int

	// InsertFrom appends row i of src to the receiver, which must be a
	// builder (see CloneEmpty).
	InsertFrom(src Column, i int) error

	// Cut returns a view over [offset, offset+length) of the column.
	Cut(offset, length int) Column

	// CloneEmpty returns a new, empty builder with the same type as the
	// receiver.
	CloneEmpty() Column

	// CloneResized returns a column of length n. If the receiver is
	// constant, the clone repeats the same value n times at negligible
	// cost; otherwise behavior is only defined for n <= Len().
	CloneResized(n int) Column

	// ByteSize estimates the column's resident memory footprint. The sort
	// engine sums this across a block's columns to maintain a running
	// byte total, the basis for the re-merge and spill gates. A constant
	// column's footprint does not scale with Len().
	ByteSize() int64
}

// CollatableColumn is the capability a string column exposes when it
// supports collation-aware comparison. A Column that does not implement
// this interface can never participate in a collation-bearing sort key.
type CollatableColumn interface {
	Column
	StringAt(i int) string
}

// Collator orders two strings according to some locale-specific collation.
// The sign of Collate mirrors strings.Compare.
type Collator interface {
	Collate(a, b string) int
}

// Header describes a Block's schema: an ordered list of named, typed
// columns with zero rows.
type Header interface {
	// NumColumns returns the number of columns in the schema.
	NumColumns() int

	// ColumnName returns the name of column i.
	ColumnName(i int) string

	// EmptyColumn returns a zero-row column of the schema type for
	// column i, usable as a builder via InsertFrom.
	EmptyColumn(i int) Column

	// NewBlock assembles a Block over this header from cols, one per
	// schema position. Mergers use this to turn a row's worth of
	// per-column builders into the Block they emit from Read.
	NewBlock(cols []Column) Block
}

// Block is an immutable, ordered sequence of equal-length named columns.
type Block interface {
	// Header returns the block's schema.
	Header() Header

	// NumRows returns the number of rows in the block. All columns share
	// this row count.
	NumRows() int

	// Column returns column i.
	Column(i int) Column
}

// Direction is the sort direction for one key: +1 ascending, -1 descending.
type Direction int8

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// NullsDirection controls where NULLs sort relative to non-NULL values for
// one key: +1 places NULLs last under ascending order, -1 places them
// first.
type NullsDirection int8

const (
	NullsLast  NullsDirection = 1
	NullsFirst NullsDirection = -1
)

// KeySpec identifies one sort key: a column position plus direction,
// nulls-direction, and an optional collation.
type KeySpec struct {
	ColumnIndex    int
	Direction      Direction
	NullsDirection NullsDirection
	Collator       Collator
}

// SortDescription is an ordered sequence of sort key specifiers.
type SortDescription []KeySpec

// HasCollation reports whether any key in the description carries a
// collation handle.
func (d SortDescription) HasCollation() bool {
	for _, k := range d {
		if k.Collator != nil {
			return true
		}
	}
	return false
}

// InputStream is the upstream/downstream block stream contract. Read
// returns the next block, or a block with NumRows() == 0 to signal
// end-of-stream. It never returns (nil, nil); end-of-stream is an empty
// block, not a nil one.
type InputStream interface {
	Header() Header
	Read(ctx context.Context) (Block, error)
}
