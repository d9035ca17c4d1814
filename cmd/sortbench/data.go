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

package main

import (
	"math/rand"

	"github.com/colsort/sortexec/pkg/block"
	"github.com/colsort/sortexec/pkg/memblock"
)

// genUnsortedBlocks builds up to cfg.Data.Blocks blocks of a single int64 column,
// each holding a random slice of [0, rows), the unsorted input MergeSorter
// is benchmarked against.
func genUnsortedBlocks(cfg sortConfig) (*memblock.Header, []block.Block) {
	rng := rand.New(rand.NewSource(cfg.Data.Seed))
	header := memblock.NewHeader([]string{"k"}, []block.Column{memblock.NewInt64Column()})

	perm := rng.Perm(cfg.Data.Rows)
	blocks := make([]block.Block, 0, cfg.Data.Blocks)
	per := (cfg.Data.Rows + cfg.Data.Blocks - 1) / cfg.Data.Blocks
	for i := 0; i < cfg.Data.Rows; i += per {
		end := i + per
		if end > cfg.Data.Rows {
			end = cfg.Data.Rows
		}
		vals := make([]int64, end-i)
		for j := range vals {
			vals[j] = int64(perm[i+j])
		}
		blocks = append(blocks, memblock.NewBlock(header, memblock.NewInt64Column(vals...)))
	}
	return header, blocks
}

// genPrefixSortedBlocks builds blocks pre-sorted by column "p" (a low-
// cardinality prefix key) with column "v" left unsorted within each prefix
// run, the shape FinishSorter is built for.
func genPrefixSortedBlocks(cfg sortConfig) (*memblock.Header, []block.Block) {
	rng := rand.New(rand.NewSource(cfg.Data.Seed))
	header := memblock.NewHeader(
		[]string{"p", "v"},
		[]block.Column{memblock.NewInt64Column(), memblock.NewInt64Column()},
	)

	numPrefixes := cfg.Data.Blocks
	if numPrefixes < 1 {
		numPrefixes = 1
	}
	rowsPerPrefix := cfg.Data.Rows / numPrefixes

	var pCol, vCol []int64
	for p := 0; p < numPrefixes; p++ {
		vals := rng.Perm(rowsPerPrefix)
		for _, v := range vals {
			pCol = append(pCol, int64(p))
			vCol = append(vCol, int64(v))
		}
	}

	blocks := make([]block.Block, 0, cfg.Data.Blocks)
	per := (len(pCol) + cfg.Data.Blocks - 1) / cfg.Data.Blocks
	if per == 0 {
		per = len(pCol)
	}
	for i := 0; i < len(pCol); i += per {
		end := i + per
		if end > len(pCol) {
			end = len(pCol)
		}
		blocks = append(blocks, memblock.NewBlock(header,
			memblock.NewInt64Column(pCol[i:end]...),
			memblock.NewInt64Column(vCol[i:end]...),
		))
	}
	return header, blocks
}
