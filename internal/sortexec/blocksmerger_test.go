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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colsort/sortexec/pkg/block"
	"github.com/colsort/sortexec/pkg/memblock"
)

func ascKey(col int) block.SortDescription {
	return block.SortDescription{{ColumnIndex: col, Direction: block.Ascending, NullsDirection: block.NullsLast}}
}

func drainStream(t *testing.T, s blockStream) []int64 {
	t.Helper()
	var out []int64
	for {
		b, err := s.read(context.Background())
		require.NoError(t, err)
		if b.NumRows() == 0 {
			return out
		}
		col := b.Column(0).(*memblock.Int64Column)
		out = append(out, col.Values()...)
	}
}

// A single block is passed through as is, without being re-sorted.
func TestBlocksMerger_SingleBlockUnchanged(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	blk := memblock.NewBlock(header, memblock.NewInt64Column(3, 1, 2))

	m := newBlocksMerger(header, []block.Block{blk}, ascKey(0), 1024, 0)
	out := drainStream(t, m)
	require.Equal(t, []int64{3, 1, 2}, out, "single input block is returned unchanged")
}

// Two individually sorted blocks merged into ascending order.
func TestBlocksMerger_TwoBlocksMerge(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	b1 := memblock.NewBlock(header, memblock.NewInt64Column(3, 5))
	b2 := memblock.NewBlock(header, memblock.NewInt64Column(1, 2, 4))

	m := newBlocksMerger(header, []block.Block{b1, b2}, ascKey(0), 1024, 0)
	out := drainStream(t, m)
	require.Equal(t, []int64{1, 2, 3, 4, 5}, out)
}

// LIMIT truncates the merged output and further reads stay empty.
func TestBlocksMerger_Limit(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	b1 := memblock.NewBlock(header, memblock.NewInt64Column(3, 5))
	b2 := memblock.NewBlock(header, memblock.NewInt64Column(1, 2, 4))

	m := newBlocksMerger(header, []block.Block{b1, b2}, ascKey(0), 1024, 2)
	b, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, b.Column(0).(*memblock.Int64Column).Values())

	again, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, again.NumRows())
}

// maxOutRows bounds a single read() call without discarding remaining rows.
func TestBlocksMerger_MaxOutRowsChunking(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	b1 := memblock.NewBlock(header, memblock.NewInt64Column(1, 3, 5))
	b2 := memblock.NewBlock(header, memblock.NewInt64Column(2, 4))

	m := newBlocksMerger(header, []block.Block{b1, b2}, ascKey(0), 2, 0)
	first, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, first.Column(0).(*memblock.Int64Column).Values())

	second, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{3, 4}, second.Column(0).(*memblock.Int64Column).Values())

	third, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{5}, third.Column(0).(*memblock.Int64Column).Values())
}

func TestBlocksMerger_SingleBlockRespectsLimit(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	blk := memblock.NewBlock(header, memblock.NewInt64Column(1, 2, 3, 4))

	m := newBlocksMerger(header, []block.Block{blk}, ascKey(0), 1024, 2)
	b, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, b.Column(0).(*memblock.Int64Column).Values(),
		"the single-block fast path must still honor LIMIT")
}

func TestBlocksMerger_EmptyInput(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	m := newBlocksMerger(header, nil, ascKey(0), 1024, 0)
	b, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, b.NumRows())
}

func TestBlocksMerger_DiscardsEmptyBlocks(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	empty := memblock.NewBlock(header, memblock.NewInt64Column())
	b1 := memblock.NewBlock(header, memblock.NewInt64Column(1, 2))

	m := newBlocksMerger(header, []block.Block{empty, b1}, ascKey(0), 1024, 0)
	out := drainStream(t, m)
	require.Equal(t, []int64{1, 2}, out)
}
