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
	"bufio"
	"context"
	stderrors "errors"
	"io"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/pingcap/errors"
	"github.com/spf13/afero"

	"github.com/colsort/sortexec/pkg/block"
)

// spillHandle owns one temporary file's path for its entire lifetime and
// unlinks it on Close regardless of how the spill was used: temporary
// files are cleaned up on destruction even on error paths, the same
// guarantee TiDB's own disk-backed sort partitions get from chunk.Row's
// underlying list.Iterator cleanup in sort_partition.go.
type spillHandle struct {
	fs   afero.Fs
	path string
}

// newSpillHandle reserves a fresh path under dir, creating dir first if it
// doesn't exist. The filename is a uuid so concurrent sorts sharing one
// tmp_path can never collide, mirroring sort_partition.go's reliance on a
// unique ID per spilled partition.
func newSpillHandle(fs afero.Fs, dir string) (*spillHandle, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Annotate(err, "sortexec: creating spill directory")
	}
	name := dir + "/" + uuid.NewString() + ".sortspill"
	return &spillHandle{fs: fs, path: name}, nil
}

func (h *spillHandle) Close() error {
	if h == nil {
		return nil
	}
	err := h.fs.Remove(h.path)
	if err != nil && !stderrors.Is(err, afero.ErrFileNotFound) {
		return errors.Annotate(err, "sortexec: unlinking spill file")
	}
	return nil
}

// spillWriter drains a sorted in-memory run to disk, compressed with zstd
// and framed with the owning module's block.Codec, the Go analogue of
// ClickHouse's CompressedWriteBuffer wrapping a NativeBlockOutputStream in
// MergeSortingBlockInputStream::writeSuffix.
type spillWriter struct {
	handle *spillHandle
	file   afero.File
	zw     *zstd.Encoder
	codec  block.Codec
	header block.Header
}

func newSpillWriter(fs afero.Fs, dir string, header block.Header, codec block.Codec) (*spillWriter, error) {
	handle, err := newSpillHandle(fs, dir)
	if err != nil {
		return nil, err
	}
	file, err := fs.Create(handle.path)
	if err != nil {
		handle.Close()
		return nil, errors.Annotate(err, "sortexec: creating spill file")
	}
	zw, err := zstd.NewWriter(file)
	if err != nil {
		file.Close()
		handle.Close()
		return nil, errors.Annotate(err, "sortexec: creating zstd encoder")
	}
	return &spillWriter{handle: handle, file: file, zw: zw, codec: codec, header: header}, nil
}

func (w *spillWriter) writeBlock(b block.Block) error {
	if b.NumRows() == 0 {
		return nil
	}
	return w.codec.EncodeBlock(w.zw, b)
}

// finish flushes and closes the file, returning a handle the caller can
// later open for reading, or close (and thereby unlink) if it's never read.
func (w *spillWriter) finish() (*spillHandle, error) {
	if err := w.zw.Close(); err != nil {
		w.file.Close()
		w.handle.Close()
		return nil, errors.Annotate(err, "sortexec: flushing zstd encoder")
	}
	if err := w.file.Close(); err != nil {
		w.handle.Close()
		return nil, errors.Annotate(err, "sortexec: closing spill file")
	}
	return w.handle, nil
}

// drain fully consumes source (a blocksMerger over one sorted run, never
// shared with any other merger) into this writer, checking ctx and the
// caller-supplied cancelled func between blocks, the same way
// MergeSortingBlockInputStream::writeSuffix polls
// isCancelledOrThrowIfKilled between writeBlock calls. cancelled may be nil.
func (w *spillWriter) drain(ctx context.Context, source blockStream, cancelled func() bool) error {
	for {
		if cancelled != nil && cancelled() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		b, err := source.read(ctx)
		if err != nil {
			return err
		}
		if b.NumRows() == 0 {
			return nil
		}
		if err := w.writeBlock(b); err != nil {
			return err
		}
	}
}

// spillReader replays a file written by spillWriter as a blockStream, so
// the final multi-way merge can treat it identically to an in-memory
// source through the run abstraction in stream.go.
type spillReader struct {
	handle *spillHandle
	file   afero.File
	zr     *zstd.Decoder
	br     *bufio.Reader
	codec  block.Codec
	header block.Header
}

func openSpillReader(handle *spillHandle, header block.Header, codec block.Codec) (*spillReader, error) {
	file, err := handle.fs.Open(handle.path)
	if err != nil {
		return nil, errors.Annotate(err, "sortexec: opening spill file")
	}
	zr, err := zstd.NewReader(file)
	if err != nil {
		file.Close()
		return nil, errors.Annotate(err, "sortexec: creating zstd decoder")
	}
	return &spillReader{
		handle: handle,
		file:   file,
		zr:     zr,
		br:     bufio.NewReader(zr),
		codec:  codec,
		header: header,
	}, nil
}

func (r *spillReader) read(ctx context.Context) (block.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := r.codec.DecodeBlock(r.br, r.header)
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return emptyBlockOf(r.header), nil
		}
		return nil, errors.Annotate(err, "sortexec: decoding spill block")
	}
	return b, nil
}

// close releases the decoder and underlying file, then unlinks the spill
// file via the owning handle. Safe to call once the reader is fully drained
// or when abandoning it on an error path.
func (r *spillReader) close() error {
	r.zr.Close()
	cerr := r.file.Close()
	herr := r.handle.Close()
	if cerr != nil {
		return errors.Annotate(cerr, "sortexec: closing spill file")
	}
	return herr
}

func emptyBlockOf(h block.Header) block.Block {
	cols := make([]block.Column, h.NumColumns())
	for i := range cols {
		cols[i] = h.EmptyColumn(i)
	}
	return h.NewBlock(cols)
}
