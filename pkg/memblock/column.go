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

// Package memblock is a minimal, in-memory realization of the pkg/block
// interfaces. It is not part of the sort engine itself (internal/sortexec
// never imports it), but every test and the cmd/sortbench demo needs some
// concrete Block/Column to drive the engine with, the same way sortexec's
// own tests build chunk.Chunk values from pkg/util/chunk rather than
// inventing a second column type system per test.
package memblock

import (
	"github.com/pingcap/errors"

	"github.com/colsort/sortexec/pkg/block"
)

// Int64Column is a dense, non-nullable column of int64 values.
type Int64Column struct {
	data []int64
}

// NewInt64Column builds an Int64Column over vals (copied).
func NewInt64Column(vals ...int64) *Int64Column {
	data := make([]int64, len(vals))
	copy(data, vals)
	return &Int64Column{data: data}
}

func (c *Int64Column) Len() int      { return len(c.data) }
func (c *Int64Column) IsConst() bool { return false }

func (c *Int64Column) CompareAt(i int, other block.Column, j int, _ int) int {
	o, ok := other.(*Int64Column)
	if !ok {
		panic("memblock: Int64Column compared against incompatible column type")
	}
	a, b := c.data[i], o.data[j]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (c *Int64Column) InsertFrom(src block.Column, i int) error {
	o, ok := src.(*Int64Column)
	if !ok {
		return errors.New("memblock: InsertFrom type mismatch for Int64Column")
	}
	c.data = append(c.data, o.data[i])
	return nil
}

func (c *Int64Column) Cut(offset, length int) block.Column {
	return &Int64Column{data: c.data[offset : offset+length]}
}

func (c *Int64Column) CloneEmpty() block.Column {
	return &Int64Column{data: make([]int64, 0, len(c.data))}
}

func (c *Int64Column) CloneResized(n int) block.Column {
	if n <= len(c.data) {
		return c.Cut(0, n)
	}
	out := make([]int64, n)
	copy(out, c.data)
	return &Int64Column{data: out}
}

// Values exposes the underlying data, mainly for tests/benchmarks that need
// to inspect materialized output.
func (c *Int64Column) Values() []int64 { return c.data }

func (c *Int64Column) ByteSize() int64 { return int64(len(c.data)) * 8 }

// StringColumn is a dense, non-nullable column of strings. It implements
// block.CollatableColumn so it can participate in a collation-bearing sort
// key.
type StringColumn struct {
	data []string
}

// NewStringColumn builds a StringColumn over vals (copied).
func NewStringColumn(vals ...string) *StringColumn {
	data := make([]string, len(vals))
	copy(data, vals)
	return &StringColumn{data: data}
}

func (c *StringColumn) Len() int      { return len(c.data) }
func (c *StringColumn) IsConst() bool { return false }

func (c *StringColumn) StringAt(i int) string { return c.data[i] }

func (c *StringColumn) CompareAt(i int, other block.Column, j int, _ int) int {
	o, ok := other.(*StringColumn)
	if !ok {
		panic("memblock: StringColumn compared against incompatible column type")
	}
	a, b := c.data[i], o.data[j]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (c *StringColumn) InsertFrom(src block.Column, i int) error {
	o, ok := src.(*StringColumn)
	if !ok {
		return errors.New("memblock: InsertFrom type mismatch for StringColumn")
	}
	c.data = append(c.data, o.data[i])
	return nil
}

func (c *StringColumn) Cut(offset, length int) block.Column {
	return &StringColumn{data: c.data[offset : offset+length]}
}

func (c *StringColumn) CloneEmpty() block.Column {
	return &StringColumn{data: make([]string, 0, len(c.data))}
}

func (c *StringColumn) CloneResized(n int) block.Column {
	if n <= len(c.data) {
		return c.Cut(0, n)
	}
	out := make([]string, n)
	copy(out, c.data)
	return &StringColumn{data: out}
}

func (c *StringColumn) Values() []string { return c.data }

func (c *StringColumn) ByteSize() int64 {
	var n int64
	for _, s := range c.data {
		n += int64(len(s))
	}
	return n
}

// NullableColumn wraps any Column with a parallel null bitmap, dispatching
// non-null comparisons to inner and handling NULLs itself per the
// nullsDirection passed to CompareAt.
type NullableColumn struct {
	inner block.Column
	null  []bool
}

// NewNullableColumn wraps inner (which must already hold len(nulls) rows,
// using a placeholder value at every null position) with a null bitmap.
func NewNullableColumn(inner block.Column, nulls []bool) *NullableColumn {
	if inner.Len() != len(nulls) {
		panic("memblock: NewNullableColumn length mismatch between inner column and null bitmap")
	}
	n := make([]bool, len(nulls))
	copy(n, nulls)
	return &NullableColumn{inner: inner, null: n}
}

func (c *NullableColumn) Len() int      { return len(c.null) }
func (c *NullableColumn) IsConst() bool { return false }

func (c *NullableColumn) CompareAt(i int, other block.Column, j int, nullsDirection int) int {
	o, ok := other.(*NullableColumn)
	if !ok {
		panic("memblock: NullableColumn compared against incompatible column type")
	}
	iNull, jNull := c.null[i], o.null[j]
	switch {
	case iNull && jNull:
		return 0
	case iNull:
		return nullsDirection
	case jNull:
		return -nullsDirection
	default:
		return c.inner.CompareAt(i, o.inner, j, nullsDirection)
	}
}

func (c *NullableColumn) InsertFrom(src block.Column, i int) error {
	o, ok := src.(*NullableColumn)
	if !ok {
		return errors.New("memblock: InsertFrom type mismatch for NullableColumn")
	}
	if err := c.inner.InsertFrom(o.inner, i); err != nil {
		return err
	}
	c.null = append(c.null, o.null[i])
	return nil
}

func (c *NullableColumn) Cut(offset, length int) block.Column {
	return &NullableColumn{
		inner: c.inner.Cut(offset, length),
		null:  c.null[offset : offset+length],
	}
}

func (c *NullableColumn) CloneEmpty() block.Column {
	return &NullableColumn{inner: c.inner.CloneEmpty(), null: make([]bool, 0, len(c.null))}
}

func (c *NullableColumn) CloneResized(n int) block.Column {
	if n <= len(c.null) {
		return c.Cut(0, n)
	}
	nulls := make([]bool, n)
	copy(nulls, c.null)
	return &NullableColumn{inner: c.inner.CloneResized(n), null: nulls}
}

func (c *NullableColumn) IsNull(i int) bool { return c.null[i] }

func (c *NullableColumn) ByteSize() int64 { return c.inner.ByteSize() + int64(len(c.null)) }

// ConstColumn wraps a single-row Column and reports a logical length,
// repeating that one value. CloneResized is O(1): it never materializes
// the repeated value.
type ConstColumn struct {
	value  block.Column // length-1
	length int
}

// NewConstColumn wraps value (which must have Len() == 1) as a constant
// column of the given logical length.
func NewConstColumn(value block.Column, length int) *ConstColumn {
	if value.Len() != 1 {
		panic("memblock: NewConstColumn requires a length-1 value column")
	}
	return &ConstColumn{value: value, length: length}
}

func (c *ConstColumn) Len() int      { return c.length }
func (c *ConstColumn) IsConst() bool { return true }

// Value returns the single repeated value column (length 1).
func (c *ConstColumn) Value() block.Column { return c.value }

func (c *ConstColumn) CompareAt(i int, other block.Column, j int, nullsDirection int) int {
	o, ok := other.(*ConstColumn)
	if !ok {
		panic("memblock: ConstColumn compared against incompatible column type")
	}
	return c.value.CompareAt(0, o.value, 0, nullsDirection)
}

func (c *ConstColumn) InsertFrom(src block.Column, _ int) error {
	o, ok := src.(*ConstColumn)
	if !ok {
		return errors.New("memblock: InsertFrom type mismatch for ConstColumn")
	}
	c.value = o.value
	c.length++
	return nil
}

func (c *ConstColumn) Cut(offset, length int) block.Column {
	_ = offset
	return &ConstColumn{value: c.value, length: length}
}

func (c *ConstColumn) CloneEmpty() block.Column {
	return &ConstColumn{value: c.value, length: 0}
}

func (c *ConstColumn) CloneResized(n int) block.Column {
	return &ConstColumn{value: c.value, length: n}
}

// ByteSize does not scale with the logical length: a constant column's
// footprint is the single repeated value, not length copies of it.
func (c *ConstColumn) ByteSize() int64 { return c.value.ByteSize() }
