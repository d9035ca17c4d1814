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

	"github.com/stretchr/testify/require"

	"github.com/colsort/sortexec/pkg/block"
	"github.com/colsort/sortexec/pkg/memblock"
)

func TestMergingSorted_MultiwayMerge(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	desc := ascKey(0)

	s1 := memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(1, 4, 7)))
	s2 := memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(2, 5, 8)))
	s3 := memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(3, 6, 9)))

	sources := []blockStream{adaptInputStream(s1), adaptInputStream(s2), adaptInputStream(s3)}
	m, err := newMergingSorted(context.Background(), header, sources, desc, 1024, 0)
	require.NoError(t, err)

	out := drainStream(t, m)
	require.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, out)
}

func TestMergingSorted_Limit(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	desc := ascKey(0)

	s1 := memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(1, 3, 5)))
	s2 := memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(2, 4, 6)))

	sources := []blockStream{adaptInputStream(s1), adaptInputStream(s2)}
	m, err := newMergingSorted(context.Background(), header, sources, desc, 1024, 3)
	require.NoError(t, err)

	out := drainStream(t, m)
	require.Equal(t, []int64{1, 2, 3}, out)
}

func TestMergingSorted_MaxOutRowsChunking(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	desc := ascKey(0)

	s1 := memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(1, 2, 3, 4)))
	sources := []blockStream{adaptInputStream(s1)}
	m, err := newMergingSorted(context.Background(), header, sources, desc, 2, 0)
	require.NoError(t, err)

	first, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, first.Column(0).(*memblock.Int64Column).Values())

	second, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{3, 4}, second.Column(0).(*memblock.Int64Column).Values())
}

func TestMergingSorted_NoSources(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	m, err := newMergingSorted(context.Background(), header, nil, ascKey(0), 1024, 0)
	require.NoError(t, err)
	b, err := m.read(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, b.NumRows())
}

// adaptInputStream wraps a block.InputStream as a blockStream, so these
// tests can feed in-memory slice streams to newMergingSorted in place of
// the spill readers and residual blocksMerger MergeSorter.finalize uses.
type inputStreamAdapter struct{ s block.InputStream }

func (a inputStreamAdapter) read(ctx context.Context) (block.Block, error) { return a.s.Read(ctx) }

func adaptInputStream(s block.InputStream) blockStream { return inputStreamAdapter{s: s} }

// closeTrackingStream wraps a blockStream and records whether close() was
// called, standing in for a *spillReader in tests that don't need a real
// spill file on disk.
type closeTrackingStream struct {
	blockStream
	closed bool
}

func (s *closeTrackingStream) close() error {
	s.closed = true
	return nil
}

func TestMergingSorted_ClosesSourceOnExhaustion(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	desc := ascKey(0)

	s1 := &closeTrackingStream{blockStream: adaptInputStream(memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(1, 3))))}
	s2 := &closeTrackingStream{blockStream: adaptInputStream(memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(2, 4))))}

	m, err := newMergingSorted(context.Background(), header, []blockStream{s1, s2}, desc, 1024, 0)
	require.NoError(t, err)

	out := drainStream(t, m)
	require.Equal(t, []int64{1, 2, 3, 4}, out)
	require.True(t, s1.closed, "a run's source must be closed the moment it is observed exhausted")
	require.True(t, s2.closed)
}

func TestMergingSorted_ClosesRemainingSourcesWhenLimitSatisfied(t *testing.T) {
	header := memblock.NewHeader([]string{"v"}, []block.Column{memblock.NewInt64Column()})
	desc := ascKey(0)

	s1 := &closeTrackingStream{blockStream: adaptInputStream(memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(1, 5))))}
	s2 := &closeTrackingStream{blockStream: adaptInputStream(memblock.NewSliceStream(header, memblock.NewBlock(header, memblock.NewInt64Column(2, 3))))}

	m, err := newMergingSorted(context.Background(), header, []blockStream{s1, s2}, desc, 1024, 1)
	require.NoError(t, err)

	out := drainStream(t, m)
	require.Equal(t, []int64{1}, out)
	require.True(t, s1.closed, "LIMIT satisfied must still close every run left in the heap")
	require.True(t, s2.closed)
}
