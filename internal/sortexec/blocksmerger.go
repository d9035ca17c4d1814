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

	"github.com/pingcap/failpoint"

	"github.com/colsort/sortexec/pkg/block"
)

// signalCheckpointForSort caps how many row comparisons the merge loop
// performs between cancellation/failpoint checkpoints, matching the
// teacher's own SignalCheckpointForSort constant.
const signalCheckpointForSort = 20000

// blocksMerger merges a fixed set of in-memory blocks into a stream of
// sorted output blocks, honoring a per-call output size cap and a global
// row limit. It is the Go counterpart of MergeSortingBlocksBlockInputStream.
type blocksMerger struct {
	header block.Header

	maxOutRows int
	limit      int64 // 0 disables

	// totalMerged counts rows across every read call for this merger's
	// lifetime; rowsBuilt (local to read) resets every call.
	totalMerged int64

	// singleBlock holds the sole non-empty input when exactly one was
	// given; the first read returns it as is, cut to its first limit rows
	// when limit is set and smaller, and never re-chunked to maxOutRows.
	singleBlock block.Block
	single      bool

	queue *mergeQueue
	done  bool
}

// newBlocksMerger discards empty blocks, builds one cursor per remaining
// block, and seeds the appropriate merge queue. header must match every
// block's schema. Every block must already be sorted by description: the
// merge only advances each cursor forward, and a single block is returned
// without being re-sorted.
func newBlocksMerger(header block.Header, blocks []block.Block, description block.SortDescription, maxOutRows int, limit int64) *blocksMerger {
	m := &blocksMerger{header: header, maxOutRows: maxOutRows, limit: limit}

	nonEmpty := make([]block.Block, 0, len(blocks))
	for _, b := range blocks {
		if b.NumRows() > 0 {
			nonEmpty = append(nonEmpty, b)
		}
	}

	switch len(nonEmpty) {
	case 0:
		m.done = true
	case 1:
		m.singleBlock = nonEmpty[0]
		m.single = true
	default:
		cursors := make([]*cursor, len(nonEmpty))
		hasCollation := false
		for i, b := range nonEmpty {
			cursors[i] = newCursor(b, description)
			hasCollation = hasCollation || cursors[i].hasCollation
		}
		m.queue = newMergeQueue(hasCollation)
		for _, c := range cursors {
			m.queue.push(c)
		}
	}
	return m
}

// read returns the next output block, or an empty block when exhausted.
func (m *blocksMerger) read(ctx context.Context) (block.Block, error) {
	if m.done {
		return m.empty(), nil
	}

	if m.single {
		m.single = false
		m.done = true
		b := m.singleBlock
		if m.limit > 0 && int64(b.NumRows()) > m.limit {
			cols := make([]block.Column, m.header.NumColumns())
			for i := range cols {
				cols[i] = b.Column(i).Cut(0, int(m.limit))
			}
			b = m.header.NewBlock(cols)
		}
		m.totalMerged += int64(b.NumRows())
		return b, nil
	}

	if m.queue.empty() {
		m.done = true
		return m.empty(), nil
	}

	builders := make([]block.Column, m.header.NumColumns())
	for i := range builders {
		builders[i] = m.header.EmptyColumn(i)
	}

	rowsBuilt := 0
	for !m.queue.empty() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cur := m.queue.pop()
		if err := cur.appendRowTo(builders); err != nil {
			return nil, err
		}
		if !cur.isLast() {
			cur.next()
			m.queue.push(cur)
		}

		m.totalMerged++
		rowsBuilt++

		if rowsBuilt%signalCheckpointForSort == 0 {
			failpoint.Inject("signalCheckpointForSort", func(val failpoint.Value) {
				_ = val
			})
		}

		if m.limit > 0 && m.totalMerged == m.limit {
			m.done = true
			break
		}
		if rowsBuilt == m.maxOutRows {
			break
		}
	}

	if rowsBuilt == 0 {
		return m.empty(), nil
	}
	return m.header.NewBlock(builders), nil
}

func (m *blocksMerger) empty() block.Block {
	cols := make([]block.Column, m.header.NumColumns())
	for i := range cols {
		cols[i] = m.header.EmptyColumn(i)
	}
	return m.header.NewBlock(cols)
}
