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

import "container/heap"

// mergeQueue is a priority queue of cursors producing a globally sorted
// row stream: the cursor whose current row sorts smallest under the
// active description always sits at the top. It is the Go counterpart of
// MergeSortingBlocksBlockInputStream's std::priority_queue<SortCursor>,
// reshaped around container/heap the way multi_way_merge.go's
// multiWayMergeImpl is.
//
// The queue is parameterized on a less function chosen once at
// construction: newMergeQueue picks cursor.comparePlain, which skips the
// per-key collation dispatch entirely, unless hasCollation is true, in
// which case it falls back to the full cursor.compare.
type mergeQueue struct {
	h queueHeap
}

type queueHeap struct {
	cursors []*cursor
	less    func(a, b *cursor) bool
}

func (q *queueHeap) Len() int { return len(q.cursors) }
func (q *queueHeap) Less(i, j int) bool {
	return q.less(q.cursors[i], q.cursors[j])
}
func (q *queueHeap) Swap(i, j int) { q.cursors[i], q.cursors[j] = q.cursors[j], q.cursors[i] }

func (q *queueHeap) Push(x any) { q.cursors = append(q.cursors, x.(*cursor)) }

func (q *queueHeap) Pop() any {
	n := len(q.cursors)
	c := q.cursors[n-1]
	q.cursors = q.cursors[:n-1]
	return c
}

// newMergeQueue builds an empty mergeQueue. hasCollation must be true if
// any cursor ever pushed onto the queue carries a collation-bearing key.
// It is set once by the caller before any cursor is pushed, never
// re-evaluated per comparison.
func newMergeQueue(hasCollation bool) *mergeQueue {
	less := lessPlain
	if hasCollation {
		less = lessCollation
	}
	return &mergeQueue{h: queueHeap{less: less}}
}

func lessPlain(a, b *cursor) bool     { return a.comparePlain(b) < 0 }
func lessCollation(a, b *cursor) bool { return a.compare(b) < 0 }

// push adds a cursor to the queue.
func (q *mergeQueue) push(c *cursor) { heap.Push(&q.h, c) }

// pop removes and returns the cursor whose current row sorts smallest.
func (q *mergeQueue) pop() *cursor { return heap.Pop(&q.h).(*cursor) }

// top returns (without removing) the cursor whose current row sorts
// smallest.
func (q *mergeQueue) top() *cursor { return q.h.cursors[0] }

// empty reports whether the queue holds no cursors.
func (q *mergeQueue) empty() bool { return len(q.h.cursors) == 0 }

// len reports how many cursors remain.
func (q *mergeQueue) len() int { return len(q.h.cursors) }
