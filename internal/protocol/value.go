package protocol

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	"github.com/oratns/tnscore/internal/protocol/charset"
	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// DecodeColumnValue decodes raw, a column's wire bytes, into the Go
// value appropriate for col.Type, dispatching across the per-type
// codecs in datatype.go/number.go/rowid.go/vector.go. This is the
// typed-value half of a Row.Column(i) call; caps gates wire features
// (VECTOR's packed-binary element form) that depend on what the server
// negotiated.
func DecodeColumnValue(col ColumnMetadata, raw []byte, caps Capabilities) (any, error) {
	switch col.Type {
	case TCVarchar2, TCChar:
		tr := charset.AL32UTF8Decoder()
		if col.CharsetForm == CSFormNChar {
			tr = charset.AL16UTF16Decoder()
		}
		out, err := charset.Decode(tr, raw)
		if err != nil {
			return nil, err
		}
		return string(out), nil

	case TCNumber:
		d := encoding.NewDecoder(bytes.NewReader(raw))
		n := DecodeNumber(d)
		if d.Error() != nil {
			return nil, d.Error()
		}
		return numberToGoValue(n)

	case TCBinaryFloat:
		d := encoding.NewDecoder(bytes.NewReader(raw))
		f := DecodeBinaryFloat(d)
		return f, d.Error()

	case TCBinaryDouble:
		d := encoding.NewDecoder(bytes.NewReader(raw))
		f := DecodeBinaryDouble(d)
		return f, d.Error()

	case TCRaw, TCLongRaw:
		return raw, nil

	case TCDate:
		return DecodeDate(raw)

	case TCTimestamp:
		return DecodeTimestamp(raw)

	case TCTimestampTZ, TCTimestampLTZ:
		return DecodeTimestampTZ(raw)

	case TCIntervalDS:
		return DecodeIntervalDS(raw)

	case TCRowID:
		rid, err := DecodeRowID(raw)
		if err != nil {
			return nil, err
		}
		return rid.String(), nil

	case TCVector:
		d := encoding.NewDecoder(bytes.NewReader(raw))
		v, err := DecodeVector(d, caps.VectorBinarySupported())
		if err != nil {
			return nil, err
		}
		return v, nil

	default:
		// TypeCode.DataType panics for a code outside the supported set;
		// that case is reported as UnsupportedTypeError.
		var dt DataType
		func() {
			defer func() {
				if recover() != nil {
					dt = -1
				}
			}()
			dt = col.Type.DataType()
		}()
		if dt < 0 {
			return nil, &UnsupportedTypeError{TypeCode: byte(col.Type)}
		}
		// Dispatch the remaining type codes by logical category rather
		// than by individual TypeCode, since several codes (the
		// CLOB/BLOB/BFILE family) share a category's handling.
		switch dt {
		case DTBoolean:
			return len(raw) > 0 && raw[0] != 0, nil
		default:
			// CLOB/BLOB/BFILE/LONG/LONG RAW stream as locators or
			// piecewise data handled separately by lob.go; CURSOR/JSON
			// have no fixed-width scalar form here: callers read the
			// raw bytes.
			return raw, nil
		}
	}
}

// numberToGoValue prefers an exact *big.Int reconstruction of n and
// only falls back to float64 for values BigInt cannot represent
// (fractional NUMBERs), since BigInt documents that case as a panic
// rather than an error.
func numberToGoValue(n Number) (any, error) {
	if n.Zero {
		return big.NewInt(0), nil
	}
	if v, ok := tryBigInt(n); ok {
		return v, nil
	}
	return n.Float64()
}

func tryBigInt(n Number) (v *big.Int, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	return n.BigInt(), true
}

// EncodeBindValue converts a typed Go value into the wire bytes for one
// row of a bind of type meta.Type, the inverse of DecodeColumnValue.
func EncodeBindValue(meta BindMetadata, v any) ([]byte, error) {
	switch meta.Type {
	case TCVarchar2, TCChar:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for %s must be a string, got %T", meta.Type, v)
		}
		tr := charset.AL32UTF8Encoder()
		if meta.CharsetForm == CSFormNChar {
			tr = charset.AL16UTF16Encoder()
		}
		return charset.Encode(tr, s)

	case TCNumber:
		n, err := numberFromValue(v)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		n.Encode(encoding.NewEncoder(&buf))
		return buf.Bytes(), nil

	case TCBinaryFloat:
		f, ok := v.(float32)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for BINARY_FLOAT must be float32, got %T", v)
		}
		var buf bytes.Buffer
		EncodeBinaryFloat(encoding.NewEncoder(&buf), f)
		return buf.Bytes(), nil

	case TCBinaryDouble:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for BINARY_DOUBLE must be float64, got %T", v)
		}
		var buf bytes.Buffer
		EncodeBinaryDouble(encoding.NewEncoder(&buf), f)
		return buf.Bytes(), nil

	case TCRaw, TCLongRaw:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for %s must be []byte, got %T", meta.Type, v)
		}
		return b, nil

	case TCDate:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for DATE must be time.Time, got %T", v)
		}
		return EncodeDate(t), nil

	case TCTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for TIMESTAMP must be time.Time, got %T", v)
		}
		return EncodeTimestamp(t), nil

	case TCTimestampTZ, TCTimestampLTZ:
		t, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for %s must be time.Time, got %T", meta.Type, v)
		}
		return EncodeTimestampTZ(t), nil

	case TCIntervalDS:
		iv, ok := v.(IntervalDS)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for INTERVAL DAY TO SECOND must be IntervalDS, got %T", v)
		}
		return EncodeIntervalDS(iv), nil

	case TCRowID:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for ROWID must be a string, got %T", v)
		}
		rid, err := ParseRowID(s)
		if err != nil {
			return nil, err
		}
		return EncodeRowID(rid), nil

	case TCVector:
		vec, ok := v.(Vector)
		if !ok {
			return nil, fmt.Errorf("tnscore: bind value for VECTOR must be a Vector, got %T", v)
		}
		var buf bytes.Buffer
		EncodeVector(encoding.NewEncoder(&buf), vec, 1, 0)
		return buf.Bytes(), nil

	default:
		b, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("tnscore: no typed bind encoding for %s, supply raw []byte", meta.Type)
		}
		return b, nil
	}
}

func numberFromValue(v any) (Number, error) {
	switch x := v.(type) {
	case int64:
		return NumberFromBigInt(big.NewInt(x)), nil
	case int:
		return NumberFromBigInt(big.NewInt(int64(x))), nil
	case *big.Int:
		return NumberFromBigInt(x), nil
	case float64:
		return NumberFromFloat64(x)
	default:
		return Number{}, fmt.Errorf("tnscore: no NUMBER bind encoding for %T", v)
	}
}
