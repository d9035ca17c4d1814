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

// constSchema is derived from the first non-empty block an operator reads:
// which original column positions are constant, and a projection of the
// original header/description onto the surviving positions. This is
// header_without_constants: the schema every accumulated block, spill
// file, and internal merger operates over, with constants re-attached
// only on the outgoing boundary.
type constSchema struct {
	origHeader block.Header

	// constCols holds, for each constant original column index, a sample
	// (length-1-or-more) column value carrying CloneResized, used to
	// rebuild the right-length constant column on output.
	constCols map[int]block.Column

	keepOrig []int // original column indices that survive, in order
	noConst  *genericHeader
}

// deriveConstSchema inspects sample's columns (a representative non-empty
// block sharing header's schema) to decide which positions are constant
// (never compared, never spilled), and builds header_without_constants as
// a genericHeader projecting the survivors out of header.
func deriveConstSchema(header block.Header, sample block.Block) *constSchema {
	n := header.NumColumns()
	s := &constSchema{origHeader: header, constCols: make(map[int]block.Column)}
	for i := 0; i < n; i++ {
		col := sample.Column(i)
		if col.IsConst() {
			s.constCols[i] = col
		} else {
			s.keepOrig = append(s.keepOrig, i)
		}
	}
	s.noConst = newGenericHeader(header, s.keepOrig)
	return s
}

// header returns header_without_constants.
func (s *constSchema) header() block.Header { return s.noConst }

// strip projects b (sharing the original header's schema) down to
// header_without_constants by dropping the constant columns.
func (s *constSchema) strip(b block.Block) block.Block {
	cols := make([]block.Column, len(s.keepOrig))
	for i, orig := range s.keepOrig {
		cols[i] = b.Column(orig)
	}
	return s.noConst.NewBlock(cols)
}

// attach rebuilds a block over the original header from one built over
// header_without_constants, re-expanding each constant column to the
// output's row count via CloneResized. This is the re-attach half of the
// constant-stripping invariant; strip is the other half.
func (s *constSchema) attach(b block.Block) block.Block {
	if len(s.constCols) == 0 {
		return b
	}
	rows := b.NumRows()
	n := s.origHeader.NumColumns()
	cols := make([]block.Column, n)
	next := 0
	for i := 0; i < n; i++ {
		if c, ok := s.constCols[i]; ok {
			cols[i] = c.CloneResized(rows)
			continue
		}
		cols[i] = b.Column(next)
		next++
	}
	return s.origHeader.NewBlock(cols)
}

// projectDescription drops every key whose column is constant and remaps
// the survivors' ColumnIndex from the original header's numbering to
// header_without_constants' numbering.
func (s *constSchema) projectDescription(desc block.SortDescription) block.SortDescription {
	origToNew := make(map[int]int, len(s.keepOrig))
	for newIdx, orig := range s.keepOrig {
		origToNew[orig] = newIdx
	}
	out := make(block.SortDescription, 0, len(desc))
	for _, k := range desc {
		newIdx, ok := origToNew[k.ColumnIndex]
		if !ok {
			continue
		}
		k2 := k
		k2.ColumnIndex = newIdx
		out = append(out, k2)
	}
	return out
}

// genericHeader is a header_without_constants realization that projects a
// subset of columns out of a base header by original index. internal/sortexec
// builds its own blocks over this header rather than asking the upstream
// column type system to know about constant-stripping, which is the
// operator's own bookkeeping, not a concern of the column library.
type genericHeader struct {
	base    block.Header
	indices []int
	names   []string
}

func newGenericHeader(base block.Header, indices []int) *genericHeader {
	h := &genericHeader{base: base, indices: append([]int(nil), indices...)}
	h.names = make([]string, len(indices))
	for i, idx := range indices {
		h.names[i] = base.ColumnName(idx)
	}
	return h
}

func (h *genericHeader) NumColumns() int         { return len(h.indices) }
func (h *genericHeader) ColumnName(i int) string { return h.names[i] }
func (h *genericHeader) EmptyColumn(i int) block.Column {
	return h.base.EmptyColumn(h.indices[i])
}
func (h *genericHeader) NewBlock(cols []block.Column) block.Block {
	return &genericBlock{header: h, cols: cols}
}

// genericBlock is the block.Block counterpart of genericHeader: a plain
// header+columns pair with no dependency on any concrete column library.
type genericBlock struct {
	header block.Header
	cols   []block.Column
}

func (b *genericBlock) Header() block.Header { return b.header }

func (b *genericBlock) NumRows() int {
	for _, c := range b.cols {
		if !c.IsConst() {
			return c.Len()
		}
	}
	if len(b.cols) > 0 {
		return b.cols[0].Len()
	}
	return 0
}

func (b *genericBlock) Column(i int) block.Column { return b.cols[i] }

// blockBytes sums ByteSize across every column of b, the basis for the
// reservoir's running byte total that feeds the re-merge and spill gates.
func blockBytes(b block.Block) int64 {
	var total int64
	n := b.Header().NumColumns()
	for i := 0; i < n; i++ {
		total += b.Column(i).ByteSize()
	}
	return total
}
