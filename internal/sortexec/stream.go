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

	"github.com/colsort/sortexec/pkg/block"
)

// blockStream is the common capability every source of merged output
// shares: MergeSorter's final impl is either a blocksMerger (single
// reservoir) or a mergingSorted (spills plus residual), modeled as this
// one interface rather than a tagged union.
type blockStream interface {
	read(ctx context.Context) (block.Block, error)
}

// closer is implemented by blockStream sources that hold real OS
// resources. Currently only *spillReader, which owns an open file and a
// zstd decoder that runs background decode goroutines until Close.
type closer interface {
	close() error
}

// closeSource closes s if it holds real resources and is a no-op
// otherwise (a blocksMerger or passthroughStream has nothing to release).
func closeSource(s blockStream) error {
	if s == nil {
		return nil
	}
	if c, ok := s.(closer); ok {
		return c.close()
	}
	return nil
}

// run is a lazily-advancing cursor over one blockStream: it holds a cursor
// into the source's current block and fetches the next block from the
// same source once that cursor is exhausted. It lets the final multi-way
// merge (mergingSorted) treat spill readers and an in-memory residual
// merger identically, the same role dataCursor plays for sortexec's own
// disk-backed multiway merge in sort_util.go.
type run struct {
	source blockStream
	desc   block.SortDescription
	cur    *cursor // nil once the source is exhausted
}

func newRun(ctx context.Context, source blockStream, desc block.SortDescription) (*run, error) {
	r := &run{source: source, desc: desc}
	if err := r.advance(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// advance moves to the next row: within the current block if one remains,
// otherwise by pulling blocks from the source until one is non-empty or
// the source is exhausted (cur becomes nil). Exhaustion closes the source
// immediately, rather than waiting for the owning mergingSorted to be
// closed. The spill file's fd and zstd decoder are released as soon as
// its last row is consumed.
func (r *run) advance(ctx context.Context) error {
	if r.cur != nil && !r.cur.isLast() {
		r.cur.next()
		return nil
	}
	for {
		b, err := r.source.read(ctx)
		if err != nil {
			return err
		}
		if b.NumRows() == 0 {
			r.cur = nil
			return closeSource(r.source)
		}
		r.cur = newCursor(b, r.desc)
		return nil
	}
}

func (r *run) exhausted() bool { return r.cur == nil }
