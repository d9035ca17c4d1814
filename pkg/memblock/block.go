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

package memblock

import (
	"context"

	"github.com/colsort/sortexec/pkg/block"
)

// Header is a simple named-column schema. EmptyColumn(i) returns a fresh
// builder by cloning a zero-row sample column recorded at construction.
type Header struct {
	names   []string
	samples []block.Column
}

// NewHeader builds a Header from parallel name/sample-column slices. Each
// sample is cloned empty by EmptyColumn, so passing a populated column is
// fine. Only its type is observed.
func NewHeader(names []string, samples []block.Column) *Header {
	if len(names) != len(samples) {
		panic("memblock: NewHeader requires names and samples of equal length")
	}
	h := &Header{names: append([]string(nil), names...), samples: make([]block.Column, len(samples))}
	for i, s := range samples {
		h.samples[i] = s.CloneEmpty()
	}
	return h
}

func (h *Header) NumColumns() int         { return len(h.names) }
func (h *Header) ColumnName(i int) string { return h.names[i] }
func (h *Header) EmptyColumn(i int) block.Column {
	return h.samples[i].CloneEmpty()
}

func (h *Header) NewBlock(cols []block.Column) block.Block {
	return &Block{header: h, cols: cols}
}

// IsConst reports whether column i's sample is constant. internal/sortexec
// uses this indirectly through Block.Column(i).IsConst(); Header itself
// does not need to answer this for real blocks, only callers that only
// have a header (e.g. when deciding whether a key column survives
// constant-stripping before any block has been read).
func (h *Header) IsConst(i int) bool { return h.samples[i].IsConst() }

// Block is a columnar row batch: a Header plus one Column per schema
// position, all sharing the same row count.
type Block struct {
	header *Header
	cols   []block.Column
}

// NewBlock assembles a Block. All columns must agree on NumRows() unless a
// column is constant.
func NewBlock(header *Header, cols ...block.Column) *Block {
	return &Block{header: header, cols: cols}
}

func (b *Block) Header() block.Header { return b.header }

func (b *Block) NumRows() int {
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

func (b *Block) Column(i int) block.Column { return b.cols[i] }

// NewBuilders returns one fresh, empty builder column per position in
// header, the starting point for assembling an output block one row at a
// time, the same role chunk.Chunk's MutableColumns play in the teacher.
func NewBuilders(header block.Header) []block.Column {
	cols := make([]block.Column, header.NumColumns())
	for i := range cols {
		cols[i] = header.EmptyColumn(i)
	}
	return cols
}

// SliceStream adapts a fixed slice of blocks into a block.InputStream,
// yielding each block in turn and then an empty terminator block forever
// after. It is the in-memory stand-in for an upstream operator in tests
// and in cmd/sortbench.
type SliceStream struct {
	header block.Header
	blocks []block.Block
	pos    int
}

// NewSliceStream builds a SliceStream. header is returned by Header(); it
// need not match any block's own header if the caller wants to exercise
// schema mismatch handling.
func NewSliceStream(header block.Header, blocks ...block.Block) *SliceStream {
	return &SliceStream{header: header, blocks: blocks}
}

func (s *SliceStream) Header() block.Header { return s.header }

func (s *SliceStream) Read(ctx context.Context) (block.Block, error) {
	if err := ctx.Err(); err != nil {
		return emptyBlock(s.header), err
	}
	if s.pos >= len(s.blocks) {
		return emptyBlock(s.header), nil
	}
	b := s.blocks[s.pos]
	s.pos++
	return b, nil
}

func emptyBlock(h block.Header) block.Block {
	cols := make([]block.Column, h.NumColumns())
	for i := range cols {
		cols[i] = h.EmptyColumn(i)
	}
	return h.NewBlock(cols)
}

// CollectAll drains stream until an empty block (or error), returning every
// non-empty block read. Helper for tests and the benchmark command.
func CollectAll(ctx context.Context, stream block.InputStream) ([]block.Block, error) {
	var out []block.Block
	for {
		b, err := stream.Read(ctx)
		if err != nil {
			return out, err
		}
		if b.NumRows() == 0 {
			return out, nil
		}
		out = append(out, b)
	}
}
