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

package sortexec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colsort/sortexec/pkg/block"
	"github.com/colsort/sortexec/pkg/memblock"
)

func TestCursor_CompareAscending(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	left := memblock.NewBlock(header, memblock.NewInt64Column(1, 5))
	right := memblock.NewBlock(header, memblock.NewInt64Column(3, 2))

	desc := ascKey(0)
	lc := newCursor(left, desc)
	rc := newCursor(right, desc)

	require.Less(t, lc.compare(rc), 0, "1 sorts before 3 ascending")

	lc.next()
	require.Greater(t, lc.compare(rc), 0, "5 sorts after 3 ascending")
}

func TestCursor_CompareDescending(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	left := memblock.NewBlock(header, memblock.NewInt64Column(5))
	right := memblock.NewBlock(header, memblock.NewInt64Column(3))

	desc := block.SortDescription{{ColumnIndex: 0, Direction: block.Descending, NullsDirection: block.NullsLast}}
	lc := newCursor(left, desc)
	rc := newCursor(right, desc)
	require.Less(t, lc.compare(rc), 0, "5 sorts before 3 when descending")
}

func TestCursor_MultiKeyTiebreak(t *testing.T) {
	header := memblock.NewHeader([]string{"a", "b"}, []block.Column{memblock.NewInt64Column(), memblock.NewInt64Column()})
	left := memblock.NewBlock(header, memblock.NewInt64Column(1), memblock.NewInt64Column(9))
	right := memblock.NewBlock(header, memblock.NewInt64Column(1), memblock.NewInt64Column(2))

	desc := block.SortDescription{
		{ColumnIndex: 0, Direction: block.Ascending, NullsDirection: block.NullsLast},
		{ColumnIndex: 1, Direction: block.Ascending, NullsDirection: block.NullsLast},
	}
	lc := newCursor(left, desc)
	rc := newCursor(right, desc)
	require.Greater(t, lc.compare(rc), 0, "equal on column a, b=9 sorts after b=2")
}

func TestCursor_Collation(t *testing.T) {
	header := memblock.NewHeader([]string{"s"}, []block.Column{memblock.NewStringColumn()})
	left := memblock.NewBlock(header, memblock.NewStringColumn("ABC"))
	right := memblock.NewBlock(header, memblock.NewStringColumn("abd"))

	desc := block.SortDescription{{
		ColumnIndex: 0, Direction: block.Ascending, NullsDirection: block.NullsLast,
		Collator: memblock.CaseInsensitiveCollator{},
	}}
	lc := newCursor(left, desc)
	rc := newCursor(right, desc)
	require.True(t, lc.hasCollation)
	require.Less(t, lc.compare(rc), 0, "case-insensitive: ABC < abd")
}

func TestCursor_IsLastAndNext(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	blk := memblock.NewBlock(header, memblock.NewInt64Column(1, 2, 3))
	c := newCursor(blk, ascKey(0))

	require.False(t, c.isLast())
	c.next()
	require.False(t, c.isLast())
	c.next()
	require.True(t, c.isLast())
}
