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
	"sort"

	"github.com/pingcap/errors"

	"github.com/colsort/sortexec/pkg/block"
)

// sortBlockRows fully sorts blk's rows by desc, the per-block pass
// ClickHouse's sortBlock performs on every freshly read block before
// MergeSortingBlockInputStream ever adds it to its reservoir. blocksMerger
// and mergingSorted only ever advance a cursor forward through a block, so
// every block handed to either one must already be individually sorted by
// the same description the cursors compare on. This is that sort.
func sortBlockRows(header block.Header, blk block.Block, desc block.SortDescription) (block.Block, error) {
	n := blk.NumRows()
	if n <= 1 || len(desc) == 0 {
		return blk, nil
	}

	keyCols := make([]block.Column, len(desc))
	for i, k := range desc {
		keyCols[i] = blk.Column(k.ColumnIndex)
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		for ki, k := range desc {
			if res := compareKey(keyCols[ki], a, keyCols[ki], b, k); res != 0 {
				return res < 0
			}
		}
		return false
	})

	numCols := header.NumColumns()
	cols := make([]block.Column, numCols)
	for c := 0; c < numCols; c++ {
		builder := header.EmptyColumn(c)
		src := blk.Column(c)
		for _, rowIdx := range idx {
			if err := builder.InsertFrom(src, rowIdx); err != nil {
				return nil, errors.Annotate(err, "sortexec: sorting block")
			}
		}
		cols[c] = builder
	}
	return header.NewBlock(cols), nil
}
