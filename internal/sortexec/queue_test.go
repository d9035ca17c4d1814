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

func singleRowCursor(v int64, desc block.SortDescription) *cursor {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	blk := memblock.NewBlock(header, memblock.NewInt64Column(v))
	return newCursor(blk, desc)
}

func TestMergeQueue_PopsInAscendingOrder(t *testing.T) {
	desc := ascKey(0)
	q := newMergeQueue(desc.HasCollation())
	for _, v := range []int64{5, 1, 4, 2, 3} {
		q.push(singleRowCursor(v, desc))
	}

	var out []int64
	for !q.empty() {
		out = append(out, q.pop().keyCols[0].(*memblock.Int64Column).Values()[0])
	}
	require.Equal(t, []int64{1, 2, 3, 4, 5}, out)
}

func TestMergeQueue_TopDoesNotRemove(t *testing.T) {
	desc := ascKey(0)
	q := newMergeQueue(false)
	q.push(singleRowCursor(2, desc))
	q.push(singleRowCursor(1, desc))

	require.Equal(t, 2, q.len())
	top := q.top()
	require.Equal(t, int64(1), top.keyCols[0].(*memblock.Int64Column).Values()[0])
	require.Equal(t, 2, q.len(), "top must not remove from the queue")
}

func TestMergeQueue_EmptyInitially(t *testing.T) {
	q := newMergeQueue(false)
	require.True(t, q.empty())
	require.Equal(t, 0, q.len())
}
