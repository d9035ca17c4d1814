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
	"sort"

	"go.uber.org/atomic"

	"github.com/colsort/sortexec/pkg/block"
)

// FinishSorterConfig bundles FinishSorter's tuning parameters besides the
// two descriptions, which are passed directly to NewFinishSorter.
type FinishSorterConfig struct {
	MaxMergedBlockSize int
	Limit              int64 // 0 disables
}

// FinishSorter completes a partial sort when the input is already ordered
// by a prefix key P, re-sorting only within each maximal run of rows
// sharing the same P-key (a "chunk"), which may span multiple upstream
// blocks.
type FinishSorter struct {
	input      block.InputStream
	descSorted block.SortDescription // P; original header numbering until the first block, then header_without_constants numbering
	descFull   block.SortDescription // F; original header numbering until the first block, then header_without_constants numbering
	cfg        FinishSorterConfig

	header          block.Header
	schema          *constSchema
	passthroughFull bool // F empty after constant removal: short-circuit buildChunk

	blocks      []block.Block // current chunk under construction, header_without_constants schema
	tailBlock   block.Block   // carry-over belonging to the next chunk, or nil
	endOfStream bool

	impl               blockStream
	totalRowsProcessed int64
	cancelled          atomic.Bool
}

// NewFinishSorter builds a FinishSorter over input. descSorted is the
// prefix key the input is already sorted by; descFull is the full key to
// finish sorting by, and must be a superset (in original header numbering)
// of descSorted's leading keys.
func NewFinishSorter(input block.InputStream, descSorted, descFull block.SortDescription, cfg FinishSorterConfig) *FinishSorter {
	return &FinishSorter{
		input:      input,
		descSorted: descSorted,
		descFull:   descFull,
		cfg:        cfg,
		header:     input.Header(),
	}
}

// Header returns the operator's output schema, unchanged from input's.
func (s *FinishSorter) Header() block.Header { return s.header }

// Cancel flips the cooperative cancellation flag checked between upstream
// reads inside buildChunk.
func (s *FinishSorter) Cancel() { s.cancelled.Store(true) }

// Read returns the next output block, or an empty block at end-of-stream.
func (s *FinishSorter) Read(ctx context.Context) (block.Block, error) {
	if s.cfg.Limit > 0 && s.totalRowsProcessed >= s.cfg.Limit {
		return emptyBlockOf(s.header), nil
	}

	if s.impl != nil {
		b, err := s.impl.read(ctx)
		if err != nil {
			return nil, err
		}
		if b.NumRows() > 0 {
			s.totalRowsProcessed += int64(b.NumRows())
			if s.schema != nil && !s.passthroughFull {
				b = s.schema.attach(b)
			}
			return b, nil
		}
		if s.passthroughFull {
			// passthroughStream forwards the underlying input verbatim;
			// an empty read from it is genuine end-of-stream.
			return b, nil
		}
		s.impl = nil
	}

	if s.endOfStream && s.impl == nil {
		return emptyBlockOf(s.header), nil
	}

	if err := s.buildChunk(ctx); err != nil {
		return nil, err
	}
	if s.impl == nil {
		return emptyBlockOf(s.header), nil
	}
	return s.Read(ctx)
}

// buildChunk accumulates upstream blocks into s.blocks until a P-key
// boundary is found (or upstream ends), splitting the boundary-crossing
// block between this chunk and the next, then seeds s.impl with a fresh
// blocksMerger over the completed chunk.
func (s *FinishSorter) buildChunk(ctx context.Context) error {
	s.blocks = nil
	if s.tailBlock != nil {
		s.blocks = append(s.blocks, s.tailBlock)
		s.tailBlock = nil
	}

	for {
		if s.cancelled.Load() {
			s.endOfStream = true
			break
		}
		blk, err := s.input.Read(ctx)
		if err != nil {
			return err
		}
		if blk.NumRows() == 0 {
			s.endOfStream = true
			break
		}
		if err := checkSchema(s.header, blk); err != nil {
			return err
		}

		if s.schema == nil {
			s.schema = deriveConstSchema(s.header, blk)
			s.descSorted = s.schema.projectDescription(s.descSorted)
			s.descFull = s.schema.projectDescription(s.descFull)
			if len(s.descFull) == 0 {
				s.passthroughFull = true
				s.impl = &passthroughStream{header: s.header, first: blk, source: s.input}
				return nil
			}
		}

		stripped := s.schema.strip(blk)
		stripped, err = sortBlockRows(s.schema.header(), stripped, s.descFull)
		if err != nil {
			return err
		}

		if len(s.blocks) > 0 {
			last := s.blocks[len(s.blocks)-1]
			tailPos := s.findBoundary(last, stripped)
			if tailPos < stripped.NumRows() {
				if tailPos > 0 {
					s.blocks = append(s.blocks, cutBlock(stripped, 0, tailPos))
				}
				s.tailBlock = cutBlock(stripped, tailPos, stripped.NumRows()-tailPos)
				break
			}
		}

		s.blocks = append(s.blocks, stripped)
	}

	if len(s.blocks) == 0 {
		s.impl = nil
		return nil
	}

	remaining := int64(0)
	if s.cfg.Limit > 0 {
		remaining = s.cfg.Limit - s.totalRowsProcessed
	}
	s.impl = newBlocksMerger(s.schema.header(), s.blocks, s.descFull, s.cfg.MaxMergedBlockSize, remaining)
	return nil
}

// findBoundary binary-searches cur for the first row whose P-key differs
// from the last row of last: a binary search over 0..NumRows() with a
// comparator that tests less(last block's last row, cur's row i). It
// returns cur.NumRows() if every row shares last's P-key.
func (s *FinishSorter) findBoundary(last, cur block.Block) int {
	if len(s.descSorted) == 0 {
		// P is empty: the whole input is one chunk.
		return cur.NumRows()
	}
	lastCur := newCursor(last, s.descSorted)
	lastCur.pos = last.NumRows() - 1
	curCur := newCursor(cur, s.descSorted)

	n := cur.NumRows()
	return sort.Search(n, func(i int) bool {
		curCur.pos = i
		return lastCur.compare(curCur) < 0
	})
}

// cutBlock returns a view of b restricted to rows [offset, offset+length),
// built by cutting every column via Column.Cut.
func cutBlock(b block.Block, offset, length int) block.Block {
	n := b.Header().NumColumns()
	cols := make([]block.Column, n)
	for i := 0; i < n; i++ {
		cols[i] = b.Column(i).Cut(offset, length)
	}
	return b.Header().NewBlock(cols)
}
