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

package block

import (
	"bufio"
	"io"
)

// Codec serializes and deserializes blocks to a byte stream. It is an
// external collaborator the spill path depends on only through this
// interface. A concrete column type system (like pkg/memblock's) knows
// how to encode/decode its own column kinds; the sort engine never needs
// to.
type Codec interface {
	// EncodeBlock writes b to w. b.NumRows() must be > 0.
	EncodeBlock(w io.Writer, b Block) error

	// DecodeBlock reads the next block from r, using header to construct
	// builder columns of the right concrete type. It returns io.EOF (with
	// a nil Block) when r is exhausted between blocks. r must be reused
	// across calls for the same stream (it buffers internally), which is
	// why it is a concrete *bufio.Reader rather than a plain io.Reader:
	// a fresh bufio.Reader per call would read past the current block's
	// bytes and discard the lookahead.
	DecodeBlock(r *bufio.Reader, header Header) (Block, error)
}
