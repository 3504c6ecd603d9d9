package protocol

import (
	"bytes"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// DataRow is the flat byte buffer backing one fetched row: N column
// values back to back, each self-delimiting so random access only
// needs to walk prior values.
type DataRow struct {
	raw []byte
}

// NewDataRow wraps the raw bytes of one RowData fragment.
func NewDataRow(raw []byte) DataRow { return DataRow{raw: raw} }

// ColumnIter walks a DataRow's column values in order, decoding
// lengths on demand rather than pre-splitting the buffer.
type ColumnIter struct {
	d     *encoding.Decoder
	total int
}

// Iter returns a fresh iterator positioned at the first column.
func (r DataRow) Iter() *ColumnIter {
	return &ColumnIter{d: encoding.NewDecoder(bytes.NewReader(r.raw)), total: len(r.raw)}
}

// Next returns the next column's raw value bytes, or (nil, true) for a
// NULL column. ok is false once the buffer is exhausted.
func (it *ColumnIter) Next() (value []byte, isNull bool, ok bool) {
	if it.d.Cnt() >= it.total {
		return nil, false, false
	}
	b, null := it.d.ChunkedBytes()
	if it.d.Error() != nil {
		return nil, false, false
	}
	return b, null, true
}

// Err reports a decode failure encountered during iteration.
func (it *ColumnIter) Err() error { return it.d.Error() }
