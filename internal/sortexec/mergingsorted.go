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
	"container/heap"
	"context"

	"github.com/pingcap/failpoint"

	"github.com/colsort/sortexec/pkg/block"
)

// mergingSorted is the top-level k-way merge over spill readers plus an
// optional in-memory residual, producing blocks of at most maxOutRows
// rows and stopping at limit. It is a distinct component from the
// in-memory blocksMerger because its inputs are lazy block streams, not
// full reservoirs: the Go counterpart of ClickHouse's
// MergingSortedBlockInputStream, built the way sort_util.go's
// generateResultWithMulWayMerge builds its heap of dataCursors.
type mergingSorted struct {
	header     block.Header
	desc       block.SortDescription
	maxOutRows int
	limit      int64

	totalMerged int64
	h           runHeap
	done        bool
}

// newMergingSorted builds the k-way merge over sources, each wrapped in a
// run so spill readers and a residual blocksMerger are interchangeable.
// If building a run fails partway through, every source opened so far,
// including the one that just failed, is closed before returning.
func newMergingSorted(ctx context.Context, header block.Header, sources []blockStream, desc block.SortDescription, maxOutRows int, limit int64) (*mergingSorted, error) {
	m := &mergingSorted{header: header, desc: desc, maxOutRows: maxOutRows, limit: limit}
	for i, s := range sources {
		r, err := newRun(ctx, s, desc)
		if err != nil {
			closeSource(s)
			m.close()
			for _, rest := range sources[i+1:] {
				closeSource(rest)
			}
			return nil, err
		}
		if !r.exhausted() {
			m.h.runs = append(m.h.runs, r)
		}
	}
	heap.Init(&m.h)
	return m, nil
}

// close releases every run's source still open: runs left in the heap
// when the caller abandons the merge early (LIMIT satisfied, or explicit
// cancellation before the merge drains). Runs already exhausted have
// already closed their own source from within advance.
func (m *mergingSorted) close() error {
	var first error
	for _, r := range m.h.runs {
		if err := closeSource(r.source); err != nil && first == nil {
			first = err
		}
	}
	m.h.runs = nil
	return first
}

func (m *mergingSorted) read(ctx context.Context) (block.Block, error) {
	if m.done {
		return m.empty(), nil
	}

	builders := make([]block.Column, m.header.NumColumns())
	for i := range builders {
		builders[i] = m.header.EmptyColumn(i)
	}

	rowsBuilt := 0
	for m.h.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		top := m.h.runs[0]
		if err := top.cur.appendRowTo(builders); err != nil {
			return nil, err
		}

		if err := top.advance(ctx); err != nil {
			return nil, err
		}
		if top.exhausted() {
			heap.Remove(&m.h, 0)
		} else {
			heap.Fix(&m.h, 0)
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
			m.close()
			break
		}
		if rowsBuilt == m.maxOutRows {
			break
		}
	}

	if m.h.Len() == 0 {
		m.done = true
	}
	if rowsBuilt == 0 {
		return m.empty(), nil
	}
	return m.header.NewBlock(builders), nil
}

func (m *mergingSorted) empty() block.Block {
	cols := make([]block.Column, m.header.NumColumns())
	for i := range cols {
		cols[i] = m.header.EmptyColumn(i)
	}
	return m.header.NewBlock(cols)
}

// runHeap is a container/heap of *run ordered by current-row comparison,
// the same shape as multi_way_merge.go's multiWayMergeImpl but over runs
// (lazy, block-fetching sources) instead of fixed in-memory rows.
type runHeap struct {
	runs []*run
}

func (h *runHeap) Len() int { return len(h.runs) }
func (h *runHeap) Less(i, j int) bool {
	return h.runs[i].cur.compare(h.runs[j].cur) < 0
}
func (h *runHeap) Swap(i, j int) { h.runs[i], h.runs[j] = h.runs[j], h.runs[i] }
func (h *runHeap) Push(x any)    { h.runs = append(h.runs, x.(*run)) }
func (h *runHeap) Pop() any {
	n := len(h.runs)
	r := h.runs[n-1]
	h.runs = h.runs[:n-1]
	return r
}
