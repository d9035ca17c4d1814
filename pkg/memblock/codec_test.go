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
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colsort/sortexec/pkg/block"
)

func TestCodec_RoundTripMixedColumns(t *testing.T) {
	header := NewHeader([]string{"id", "name", "note", "tag"}, []block.Column{
		NewInt64Column(),
		NewStringColumn(),
		NewNullableColumn(NewInt64Column(), nil),
		NewConstColumn(NewInt64Column(1), 1),
	})
	blk := NewBlock(header,
		NewInt64Column(1, 2, 3),
		NewStringColumn("a", "bb", "ccc"),
		NewNullableColumn(NewInt64Column(10, 0, 30), []bool{false, true, false}),
		NewConstColumn(NewInt64Column(99), 3),
	)

	var buf bytes.Buffer
	codec := Codec{}
	require.NoError(t, codec.EncodeBlock(&buf, blk))

	r := bufio.NewReader(&buf)
	decoded, err := codec.DecodeBlock(r, header)
	require.NoError(t, err)

	require.Equal(t, 3, decoded.NumRows())
	require.Equal(t, []int64{1, 2, 3}, decoded.Column(0).(*Int64Column).Values())
	require.Equal(t, []string{"a", "bb", "ccc"}, decoded.Column(1).(*StringColumn).Values())

	note := decoded.Column(2).(*NullableColumn)
	require.True(t, note.IsNull(1))
	require.False(t, note.IsNull(0))

	tag := decoded.Column(3).(*ConstColumn)
	require.Equal(t, 3, tag.Len())
	require.Equal(t, int64(99), tag.Value().(*Int64Column).Values()[0])
}

func TestCodec_MultipleBlocksAndEOF(t *testing.T) {
	header := NewHeader([]string{"v"}, []block.Column{NewInt64Column()})
	codec := Codec{}
	var buf bytes.Buffer

	require.NoError(t, codec.EncodeBlock(&buf, NewBlock(header, NewInt64Column(1, 2))))
	require.NoError(t, codec.EncodeBlock(&buf, NewBlock(header, NewInt64Column(3))))

	r := bufio.NewReader(&buf)
	first, err := codec.DecodeBlock(r, header)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, first.Column(0).(*Int64Column).Values())

	second, err := codec.DecodeBlock(r, header)
	require.NoError(t, err)
	require.Equal(t, []int64{3}, second.Column(0).(*Int64Column).Values())

	_, err = codec.DecodeBlock(r, header)
	require.ErrorIs(t, err, io.EOF)
}

func TestCodec_RejectsZeroRowBlock(t *testing.T) {
	header := NewHeader([]string{"v"}, []block.Column{NewInt64Column()})
	codec := Codec{}
	var buf bytes.Buffer
	err := codec.EncodeBlock(&buf, NewBlock(header, NewInt64Column()))
	require.Error(t, err)
}
