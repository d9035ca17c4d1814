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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/colsort/sortexec/pkg/block"
	"github.com/colsort/sortexec/pkg/memblock"
)

func TestSpill_WriteReadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	codec := memblock.Codec{}

	writer, err := newSpillWriter(fs, "/spill", header, codec)
	require.NoError(t, err)

	require.NoError(t, writer.writeBlock(memblock.NewBlock(header, memblock.NewInt64Column(1, 2, 3))))
	require.NoError(t, writer.writeBlock(memblock.NewBlock(header, memblock.NewInt64Column(4, 5))))

	handle, err := writer.finish()
	require.NoError(t, err)

	reader, err := openSpillReader(handle, header, codec)
	require.NoError(t, err)
	defer reader.close()

	b1, err := reader.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, b1.Column(0).(*memblock.Int64Column).Values())

	b2, err := reader.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{4, 5}, b2.Column(0).(*memblock.Int64Column).Values())

	b3, err := reader.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, b3.NumRows())
}

func TestSpill_CloseUnlinksFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	codec := memblock.Codec{}

	writer, err := newSpillWriter(fs, "/spill", header, codec)
	require.NoError(t, err)
	require.NoError(t, writer.writeBlock(memblock.NewBlock(header, memblock.NewInt64Column(1))))
	handle, err := writer.finish()
	require.NoError(t, err)

	exists, err := afero.Exists(fs, handle.path)
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, handle.Close())

	exists, err = afero.Exists(fs, handle.path)
	require.NoError(t, err)
	require.False(t, exists, "Close must unlink the spill file regardless of whether it was ever read")
}

func TestSpill_DrainStopsOnCancellation(t *testing.T) {
	fs := afero.NewMemMapFs()
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	codec := memblock.Codec{}

	writer, err := newSpillWriter(fs, "/spill", header, codec)
	require.NoError(t, err)

	source := &countingStream{blocks: []block.Block{
		memblock.NewBlock(header, memblock.NewInt64Column(1)),
		memblock.NewBlock(header, memblock.NewInt64Column(2)),
	}}
	cancelled := func() bool { return true }

	require.NoError(t, writer.drain(context.Background(), source, cancelled))
	require.Equal(t, 0, source.reads, "a cancelled drain must not pull from source at all")
}

type countingStream struct {
	blocks []block.Block
	pos    int
	reads  int
}

func (s *countingStream) read(ctx context.Context) (block.Block, error) {
	s.reads++
	if s.pos >= len(s.blocks) {
		return emptyBlockOf(s.blocks[0].Header()), nil
	}
	b := s.blocks[s.pos]
	s.pos++
	return b, nil
}
