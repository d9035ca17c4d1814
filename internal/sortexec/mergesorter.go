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
	"github.com/pingcap/log"
	"github.com/spf13/afero"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/colsort/sortexec/pkg/block"
	"github.com/colsort/sortexec/pkg/memquota"
)

// MergeSorterConfig bundles MergeSorter's tuning thresholds plus the
// injected collaborators (filesystem, codec, counters, trackers) that let
// it be exercised against an in-memory afero.Fs and a NopCounterSink in
// tests without touching real disk or the process-wide prometheus
// registry.
type MergeSorterConfig struct {
	MaxMergedBlockSize         int
	Limit                      int64
	MaxBytesBeforeRemerge      int64
	MaxBytesBeforeExternalSort int64
	TmpPath                    string

	FS       afero.Fs
	Codec    block.Codec
	Counters CounterSink

	MemTracker  *memquota.Tracker
	DiskTracker *memquota.DiskTracker
}

// MergeSorter is the full-sort operator: it accumulates upstream blocks,
// re-merges in memory when a small LIMIT makes that profitable, spills to
// compressed temporary files when the reservoir outgrows
// MaxBytesBeforeExternalSort, and on exhaustion builds a final merger
// across whatever combination of spills and in-memory residual resulted.
type MergeSorter struct {
	input block.InputStream
	desc  block.SortDescription
	cfg   MergeSorterConfig

	header      block.Header
	schema      *constSchema // nil until the first non-empty block is seen
	passthrough bool         // description empty after constant removal: forward blocks unchanged

	blocks   []block.Block // reservoir, header_without_constants schema
	sumRows  int64
	sumBytes int64

	spills        []*spillHandle
	remergeUseful bool

	started   bool
	cancelled atomic.Bool
	impl      blockStream
}

// NewMergeSorter builds a MergeSorter over input. desc is the full sort
// key, in input's original header numbering.
func NewMergeSorter(input block.InputStream, desc block.SortDescription, cfg MergeSorterConfig) *MergeSorter {
	if cfg.Codec == nil {
		panic("sortexec: MergeSorterConfig.Codec is required")
	}
	if cfg.FS == nil {
		cfg.FS = afero.NewOsFs()
	}
	if cfg.Counters == nil {
		cfg.Counters = PrometheusCounterSink{}
	}
	return &MergeSorter{
		input:         input,
		desc:          desc,
		cfg:           cfg,
		header:        input.Header(),
		remergeUseful: true,
	}
}

// Header returns the operator's output schema, unchanged from input's.
func (s *MergeSorter) Header() block.Header { return s.header }

// Read returns the next output block, or an empty block at end-of-stream.
// The first call drives the entire accumulation phase (Phase 1); every
// call after that drains the final merger (Phase 2).
func (s *MergeSorter) Read(ctx context.Context) (block.Block, error) {
	if !s.started {
		s.started = true
		if err := s.accumulate(ctx); err != nil {
			s.closeSpills()
			return nil, err
		}
	}

	if s.impl == nil {
		return s.emptyOutput(), nil
	}

	b, err := s.impl.read(ctx)
	if err != nil {
		s.closeSpills()
		return nil, err
	}
	if b.NumRows() == 0 {
		return b, nil
	}
	if s.schema != nil && !s.passthrough {
		b = s.schema.attach(b)
	}
	return b, nil
}

// Cancel flips the cooperative cancellation flag. It is safe to call from
// another goroutine while Read is in progress, the only cross-thread
// contract this operator requires. The next Read observes it between
// upstream reads (and, per the spill loop's own check, between spilled
// blocks) and returns end-of-stream rather than continuing.
func (s *MergeSorter) Cancel() { s.cancelled.Store(true) }

// Close releases every spill file the operator created, whether or not
// they were ever read. Spill files live until the operator is destroyed
// or cancelled; their handles own the filesystem path and unlink on drop.
// Close also releases the final merger's still-open spill readers,
// relevant when the caller abandons the operator before draining it fully.
func (s *MergeSorter) Close() error {
	implErr := closeSource(s.impl)
	spillErr := s.closeSpills()
	if implErr != nil {
		return implErr
	}
	return spillErr
}

func (s *MergeSorter) closeSpills() error {
	var first error
	for _, h := range s.spills {
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	s.spills = nil
	return first
}

func (s *MergeSorter) emptyOutput() block.Block {
	return emptyBlockOf(s.header)
}

// accumulate is Phase 1: pull blocks from upstream, stripping constants,
// feeding the re-merge and spill gates, until upstream is exhausted or
// cancellation is observed.
func (s *MergeSorter) accumulate(ctx context.Context) error {
	for {
		if s.cancelled.Load() || ctx.Err() != nil {
			return s.finalizeCancelled()
		}

		blk, err := s.input.Read(ctx)
		if err != nil {
			return err
		}
		if blk.NumRows() == 0 {
			break
		}
		if err := checkSchema(s.header, blk); err != nil {
			return err
		}

		if s.schema == nil {
			s.schema = deriveConstSchema(s.header, blk)
			s.desc = s.schema.projectDescription(s.desc)
			if len(s.desc) == 0 {
				s.passthrough = true
			}
		}

		if s.passthrough {
			// Nothing left to sort by once constants are removed. Forward
			// blocks unchanged rather than re-chunking them.
			s.impl = &passthroughStream{header: s.header, first: blk, source: s.input}
			return nil
		}

		stripped := s.schema.strip(blk)
		stripped, err = sortBlockRows(s.schema.header(), stripped, s.desc)
		if err != nil {
			return err
		}
		s.blocks = append(s.blocks, stripped)
		s.sumRows += int64(stripped.NumRows())
		rowBytes := blockBytes(stripped)
		s.sumBytes += rowBytes
		if s.cfg.MemTracker != nil {
			s.cfg.MemTracker.Consume(rowBytes)
		}

		if s.shouldRemerge() {
			if err := s.remerge(ctx); err != nil {
				return err
			}
		}

		if s.cfg.MaxBytesBeforeExternalSort > 0 && s.sumBytes > s.cfg.MaxBytesBeforeExternalSort {
			if err := s.spill(ctx); err != nil {
				return err
			}
		}
	}

	return s.finalize(ctx)
}

func (s *MergeSorter) shouldRemerge() bool {
	return len(s.blocks) > 1 &&
		s.cfg.Limit > 0 &&
		s.cfg.Limit*2 < s.sumRows &&
		s.remergeUseful &&
		s.cfg.MaxBytesBeforeRemerge > 0 &&
		s.sumBytes > s.cfg.MaxBytesBeforeRemerge
}

// remerge fully drains a fresh blocksMerger over the current reservoir
// (never sharing cursors with the outer accumulation loop) into a new
// reservoir, then disables further re-merges if the compaction didn't pay
// for itself.
func (s *MergeSorter) remerge(ctx context.Context) error {
	oldBytes := s.sumBytes
	log.Info("re-merge start", zap.Int("blocks", len(s.blocks)), zap.Int64("rows", s.sumRows), zap.Int64("bytes", oldBytes))

	merger := newBlocksMerger(s.schema.header(), s.blocks, s.desc, s.cfg.MaxMergedBlockSize, s.cfg.Limit)
	var newBlocks []block.Block
	var newBytes int64
	var newRows int64
	for {
		b, err := merger.read(ctx)
		if err != nil {
			return err
		}
		if b.NumRows() == 0 {
			break
		}
		newBlocks = append(newBlocks, b)
		newBytes += blockBytes(b)
		newRows += int64(b.NumRows())
	}

	if s.cfg.MemTracker != nil {
		s.cfg.MemTracker.Consume(newBytes - s.sumBytes)
	}
	s.blocks = newBlocks
	s.sumBytes = newBytes
	s.sumRows = newRows

	if newBytes*2 > oldBytes {
		s.remergeUseful = false
	}

	log.Info("re-merge end", zap.Int("blocks", len(s.blocks)), zap.Int64("rows", s.sumRows), zap.Int64("bytes", s.sumBytes))
	return nil
}

// spill drains the reservoir, sorted, to a fresh compressed temporary file
// and clears the reservoir and its counters.
func (s *MergeSorter) spill(ctx context.Context) error {
	log.Info("spill start", zap.String("path", s.cfg.TmpPath), zap.Int64("rows", s.sumRows), zap.Int64("bytes", s.sumBytes))

	writer, err := newSpillWriter(s.cfg.FS, s.cfg.TmpPath, s.schema.header(), s.cfg.Codec)
	if err != nil {
		return err
	}

	merger := newBlocksMerger(s.schema.header(), s.blocks, s.desc, s.cfg.MaxMergedBlockSize, 0)

	failpoint.Inject("mockSortSpillError", func(val failpoint.Value) {
		if val.(bool) {
			err = errSpillEmptyRun
		}
	})
	if err == nil {
		err = writer.drain(ctx, merger, s.cancelled.Load)
	}
	if err != nil {
		writer.handle.Close()
		return err
	}

	handle, err := writer.finish()
	if err != nil {
		return err
	}
	s.spills = append(s.spills, handle)
	s.cfg.Counters.IncExternalSortWritePart()
	if s.cfg.DiskTracker != nil {
		s.cfg.DiskTracker.Consume(s.sumBytes)
	}
	if s.cfg.MemTracker != nil {
		s.cfg.MemTracker.Consume(-s.sumBytes)
	}

	log.Info("spill end", zap.String("path", s.cfg.TmpPath), zap.Int("spills", len(s.spills)))

	s.blocks = nil
	s.sumRows = 0
	s.sumBytes = 0
	return nil
}

// finalizeCancelled handles cancellation observed mid-accumulation: with
// the reservoir possibly non-empty, with or without spills, it simply
// yields end-of-stream on the next Read. Spills already written are
// abandoned (deleted on Close), never drained into a final merge.
func (s *MergeSorter) finalizeCancelled() error {
	s.impl = nil
	return nil
}

// finalize is the end-of-accumulation branch: no rows at all, an
// in-memory-only result, or a multi-way merge across every spill plus an
// optional residual.
func (s *MergeSorter) finalize(ctx context.Context) error {
	if len(s.blocks) == 0 && len(s.spills) == 0 {
		s.impl = nil
		return nil
	}

	if len(s.spills) == 0 {
		s.impl = newBlocksMerger(s.schema.header(), s.blocks, s.desc, s.cfg.MaxMergedBlockSize, s.cfg.Limit)
		return nil
	}

	sources := make([]blockStream, 0, len(s.spills)+1)
	for _, h := range s.spills {
		r, err := openSpillReader(h, s.schema.header(), s.cfg.Codec)
		if err != nil {
			return err
		}
		sources = append(sources, r)
	}
	if len(s.blocks) > 0 {
		sources = append(sources, newBlocksMerger(s.schema.header(), s.blocks, s.desc, s.cfg.MaxMergedBlockSize, 0))
	}

	merged, err := newMergingSorted(ctx, s.schema.header(), sources, s.desc, s.cfg.MaxMergedBlockSize, s.cfg.Limit)
	if err != nil {
		return err
	}
	s.impl = merged
	s.cfg.Counters.IncExternalSortMerge()
	log.Info("external sort merge", zap.Int("spills", len(s.spills)))
	return nil
}

// passthroughStream forwards a single already-read block, then reads the
// rest of the stream verbatim. Used when the sort key is empty after
// constant removal: blocks are passed through as-is rather than re-chunked.
type passthroughStream struct {
	header block.Header
	first  block.Block
	source block.InputStream
}

func (p *passthroughStream) read(ctx context.Context) (block.Block, error) {
	if p.first != nil {
		b := p.first
		p.first = nil
		return b, nil
	}
	if p.source == nil {
		return emptyBlockOf(p.header), nil
	}
	return p.source.Read(ctx)
}
