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
	"encoding/binary"
	"io"

	"github.com/pingcap/errors"

	"github.com/colsort/sortexec/pkg/block"
)

// column type tags for the native wire format below.
const (
	tagInt64    byte = 1
	tagString   byte = 2
	tagNullable byte = 3
	tagConst    byte = 4
)

// Codec is the only concrete block.Codec this module ships: a small
// native columnar format mirroring the role ClickHouse's
// NativeBlockOutputStream plays for MergeSortingBlockInputStream's spill
// files. It knows the concrete shape of every memblock column type, while
// internal/sortexec only ever sees the block.Codec interface.
type Codec struct{}

func (Codec) EncodeBlock(w io.Writer, b block.Block) error {
	rows := b.NumRows()
	if rows == 0 {
		return errors.New("memblock: cannot encode a zero-row block")
	}
	if err := writeUvarint(w, uint64(rows)); err != nil {
		return err
	}
	n := b.Header().NumColumns()
	for i := 0; i < n; i++ {
		if err := encodeColumn(w, b.Column(i)); err != nil {
			return err
		}
	}
	return nil
}

func (Codec) DecodeBlock(r *bufio.Reader, header block.Header) (block.Block, error) {
	rows, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err // io.EOF between blocks propagates as-is
	}
	n := header.NumColumns()
	cols := make([]block.Column, n)
	for i := 0; i < n; i++ {
		col, err := decodeColumn(r, int(rows))
		if err != nil {
			return nil, errors.Annotate(err, "memblock: decoding column")
		}
		cols[i] = col
	}
	return header.NewBlock(cols), nil
}

func writeUvarint(w io.Writer, v uint64) error {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, err := w.Write(buf[:n])
	return err
}

func encodeColumn(w io.Writer, col block.Column) error {
	switch c := col.(type) {
	case *Int64Column:
		if err := writeByte(w, tagInt64); err != nil {
			return err
		}
		for _, v := range c.data {
			if err := binary.Write(w, binary.LittleEndian, v); err != nil {
				return err
			}
		}
		return nil
	case *StringColumn:
		if err := writeByte(w, tagString); err != nil {
			return err
		}
		for _, s := range c.data {
			if err := writeUvarint(w, uint64(len(s))); err != nil {
				return err
			}
			if _, err := io.WriteString(w, s); err != nil {
				return err
			}
		}
		return nil
	case *NullableColumn:
		if err := writeByte(w, tagNullable); err != nil {
			return err
		}
		for _, isNull := range c.null {
			b := byte(0)
			if isNull {
				b = 1
			}
			if err := writeByte(w, b); err != nil {
				return err
			}
		}
		return encodeColumn(w, c.inner)
	case *ConstColumn:
		if err := writeByte(w, tagConst); err != nil {
			return err
		}
		if err := writeUvarint(w, uint64(c.length)); err != nil {
			return err
		}
		return encodeColumn(w, c.value)
	default:
		return errors.Errorf("memblock: no codec for column type %T", col)
	}
}

func decodeColumn(r *bufio.Reader, rows int) (block.Column, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagInt64:
		data := make([]int64, rows)
		for i := range data {
			if err := binary.Read(r, binary.LittleEndian, &data[i]); err != nil {
				return nil, err
			}
		}
		return &Int64Column{data: data}, nil
	case tagString:
		data := make([]string, rows)
		for i := range data {
			n, err := binary.ReadUvarint(r)
			if err != nil {
				return nil, err
			}
			buf := make([]byte, n)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, err
			}
			data[i] = string(buf)
		}
		return &StringColumn{data: data}, nil
	case tagNullable:
		null := make([]bool, rows)
		for i := range null {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			null[i] = b == 1
		}
		inner, err := decodeColumn(r, rows)
		if err != nil {
			return nil, err
		}
		return &NullableColumn{inner: inner, null: null}, nil
	case tagConst:
		length, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		value, err := decodeColumn(r, 1)
		if err != nil {
			return nil, err
		}
		return &ConstColumn{value: value, length: int(length)}, nil
	default:
		return nil, errors.Errorf("memblock: unknown column tag %d", tag)
	}
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}
