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

import "github.com/colsort/sortexec/pkg/block"

// cursor is a position into one block: the row at pos, advancing forward,
// comparable against other cursors by the active sort description. It is
// the Go analogue of ClickHouse's SortCursor/SortCursorWithCollation pair,
// collapsed into one type with the comparator chosen once at construction.
// Collation dispatch lives in compareKey below rather than in a second
// cursor type.
type cursor struct {
	blk          block.Block
	desc         block.SortDescription
	keyCols      []block.Column
	pos          int
	numRows      int
	hasCollation bool
}

// newCursor builds a cursor over blk. blk must have at least one row;
// callers are expected to have already discarded empty blocks, since a
// cursor over an empty block has no valid row to compare or read.
func newCursor(blk block.Block, desc block.SortDescription) *cursor {
	keyCols := make([]block.Column, len(desc))
	hasCollation := false
	for i, k := range desc {
		col := blk.Column(k.ColumnIndex)
		keyCols[i] = col
		if k.Collator != nil {
			if _, ok := col.(block.CollatableColumn); ok {
				hasCollation = true
			}
		}
	}
	return &cursor{
		blk:          blk,
		desc:         desc,
		keyCols:      keyCols,
		numRows:      blk.NumRows(),
		hasCollation: hasCollation,
	}
}

// next advances the cursor by one row.
func (c *cursor) next() { c.pos++ }

// isLast reports whether pos is the final row of the underlying block.
func (c *cursor) isLast() bool { return c.pos == c.numRows-1 }

// appendRowTo inserts the cursor's current row into builders, one column
// at a time. builders must have the same length and column order as the
// cursor's block.
func (c *cursor) appendRowTo(builders []block.Column) error {
	for i, b := range builders {
		if err := b.InsertFrom(c.blk.Column(i), c.pos); err != nil {
			return err
		}
	}
	return nil
}

// compare orders the receiver against other under the active sort
// description: negative if the receiver's current row sorts first, zero
// if equal on every key, positive otherwise.
func (c *cursor) compare(other *cursor) int {
	for i, k := range c.desc {
		res := compareKey(c.keyCols[i], c.pos, other.keyCols[i], other.pos, k)
		if res != 0 {
			return res
		}
	}
	return 0
}

// comparePlain is compare without the per-key collation dispatch: it goes
// straight to CompareAt. Correct only when neither cursor has hasCollation
// set. The mergeQueue built with hasCollation == false is the only caller,
// so the common plain-sort merge never pays for a type switch it can never
// take.
func (c *cursor) comparePlain(other *cursor) int {
	for i, k := range c.desc {
		res := c.keyCols[i].CompareAt(c.pos, other.keyCols[i], other.pos, int(k.NullsDirection))
		if k.Direction < 0 {
			res = -res
		}
		if res != 0 {
			return res
		}
	}
	return 0
}

// compareKey compares one key between two (column, row) pairs, applying
// collation when requested and both columns support it, then applying the
// key's direction.
func compareKey(left block.Column, leftRow int, right block.Column, rightRow int, key block.KeySpec) int {
	var res int
	if key.Collator != nil {
		lc, lok := left.(block.CollatableColumn)
		rc, rok := right.(block.CollatableColumn)
		if lok && rok {
			res = key.Collator.Collate(lc.StringAt(leftRow), rc.StringAt(rightRow))
		} else {
			res = left.CompareAt(leftRow, right, rightRow, int(key.NullsDirection))
		}
	} else {
		res = left.CompareAt(leftRow, right, rightRow, int(key.NullsDirection))
	}
	if key.Direction < 0 {
		res = -res
	}
	return res
}
