package protocol

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

func TestDecodeColumnValueNumber(t *testing.T) {
	n := NumberFromBigInt(big.NewInt(-4200))
	var buf bytes.Buffer
	n.Encode(encoding.NewEncoder(&buf))

	col := ColumnMetadata{Type: TCNumber}
	v, err := DecodeColumnValue(col, buf.Bytes(), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue: %v", err)
	}
	bi, ok := v.(*big.Int)
	if !ok || bi.Int64() != -4200 {
		t.Fatalf("expected *big.Int(-4200), got %#v", v)
	}
}

func TestEncodeBindValueNumberRoundTrip(t *testing.T) {
	meta := BindMetadata{Type: TCNumber}
	raw, err := EncodeBindValue(meta, int64(123456789))
	if err != nil {
		t.Fatalf("EncodeBindValue: %v", err)
	}
	v, err := DecodeColumnValue(ColumnMetadata{Type: TCNumber}, raw, Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue: %v", err)
	}
	bi, ok := v.(*big.Int)
	if !ok || bi.Int64() != 123456789 {
		t.Fatalf("round trip mismatch, got %#v", v)
	}
}

func TestDecodeColumnValueRowID(t *testing.T) {
	rid := RowID{ObjectID: 9, FileID: 1, BlockID: 200, SlotID: 3}
	col := ColumnMetadata{Type: TCRowID}
	v, err := DecodeColumnValue(col, EncodeRowID(rid), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue: %v", err)
	}
	s, ok := v.(string)
	if !ok || len(s) != 18 {
		t.Fatalf("expected 18-char ROWID string, got %#v", v)
	}
	got, err := ParseRowID(s)
	if err != nil {
		t.Fatalf("ParseRowID: %v", err)
	}
	if got != rid {
		t.Fatalf("round trip mismatch: want %+v, got %+v", rid, got)
	}
}

func TestEncodeBindValueRowIDRoundTrip(t *testing.T) {
	rid := RowID{ObjectID: 9, FileID: 1, BlockID: 200, SlotID: 3}
	meta := BindMetadata{Type: TCRowID}
	raw, err := EncodeBindValue(meta, rid.String())
	if err != nil {
		t.Fatalf("EncodeBindValue: %v", err)
	}
	got, err := DecodeRowID(raw)
	if err != nil {
		t.Fatalf("DecodeRowID: %v", err)
	}
	if got != rid {
		t.Fatalf("round trip mismatch: want %+v, got %+v", rid, got)
	}
}

func TestDecodeColumnValueVector(t *testing.T) {
	vec := Vector{Format: VectorFloat32, NumElems: 2, Float32: []float32{1, 2}}
	meta := BindMetadata{Type: TCVector}
	raw, err := EncodeBindValue(meta, vec)
	if err != nil {
		t.Fatalf("EncodeBindValue: %v", err)
	}
	col := ColumnMetadata{Type: TCVector}
	v, err := DecodeColumnValue(col, raw, Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue: %v", err)
	}
	got, ok := v.(Vector)
	if !ok || len(got.Float32) != 2 || got.Float32[0] != 1 || got.Float32[1] != 2 {
		t.Fatalf("round trip mismatch, got %#v", v)
	}
}

func TestDecodeColumnValueVectorBinaryRequiresCapability(t *testing.T) {
	vec := Vector{Format: VectorBinary, NumElems: 8, Binary: []byte{0x0F}}
	raw, err := EncodeBindValue(BindMetadata{Type: TCVector}, vec)
	if err != nil {
		t.Fatalf("EncodeBindValue: %v", err)
	}
	if _, err := DecodeColumnValue(ColumnMetadata{Type: TCVector}, raw, Capabilities{}); err == nil {
		t.Fatalf("expected error decoding packed-binary VECTOR without CapVector23ai")
	}
	caps := Capabilities{RuntimeCaps: NegotiatedCaps(CapVector23ai)}
	v, err := DecodeColumnValue(ColumnMetadata{Type: TCVector}, raw, caps)
	if err != nil {
		t.Fatalf("DecodeColumnValue with capability: %v", err)
	}
	got := v.(Vector)
	if !bytes.Equal(got.Binary, vec.Binary) {
		t.Fatalf("round trip mismatch: want %v, got %v", vec.Binary, got.Binary)
	}
}

func TestDecodeColumnValueDateAndTimestamp(t *testing.T) {
	date := time.Date(2024, time.March, 5, 13, 45, 9, 0, time.UTC)
	v, err := DecodeColumnValue(ColumnMetadata{Type: TCDate}, EncodeDate(date), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue DATE: %v", err)
	}
	if !v.(time.Time).Equal(date) {
		t.Fatalf("DATE round trip mismatch: want %v, got %v", date, v)
	}

	ts := time.Date(2024, time.March, 5, 13, 45, 9, 123000000, time.UTC)
	v, err = DecodeColumnValue(ColumnMetadata{Type: TCTimestamp}, EncodeTimestamp(ts), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue TIMESTAMP: %v", err)
	}
	if !v.(time.Time).Equal(ts) {
		t.Fatalf("TIMESTAMP round trip mismatch: want %v, got %v", ts, v)
	}
}

func TestDecodeColumnValueBinaryFloatDouble(t *testing.T) {
	var buf bytes.Buffer
	EncodeBinaryFloat(encoding.NewEncoder(&buf), 3.5)
	v, err := DecodeColumnValue(ColumnMetadata{Type: TCBinaryFloat}, buf.Bytes(), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue BINARY_FLOAT: %v", err)
	}
	if v.(float32) != 3.5 {
		t.Fatalf("BINARY_FLOAT mismatch, got %v", v)
	}

	buf.Reset()
	EncodeBinaryDouble(encoding.NewEncoder(&buf), -2.25)
	v, err = DecodeColumnValue(ColumnMetadata{Type: TCBinaryDouble}, buf.Bytes(), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue BINARY_DOUBLE: %v", err)
	}
	if v.(float64) != -2.25 {
		t.Fatalf("BINARY_DOUBLE mismatch, got %v", v)
	}
}

func TestDecodeColumnValueIntervalDS(t *testing.T) {
	iv := IntervalDS{Days: 2, Hours: 3, Minutes: 4, Seconds: 5, Nanos: 6}
	v, err := DecodeColumnValue(ColumnMetadata{Type: TCIntervalDS}, EncodeIntervalDS(iv), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue INTERVAL DS: %v", err)
	}
	if v.(IntervalDS) != iv {
		t.Fatalf("round trip mismatch: want %+v, got %+v", iv, v)
	}
}

func TestDecodeColumnValueVarchar2(t *testing.T) {
	col := ColumnMetadata{Type: TCVarchar2}
	v, err := DecodeColumnValue(col, []byte("hello"), Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue VARCHAR2: %v", err)
	}
	if v.(string) != "hello" {
		t.Fatalf("expected \"hello\", got %#v", v)
	}
}

func TestDecodeColumnValueBoolean(t *testing.T) {
	v, err := DecodeColumnValue(ColumnMetadata{Type: TCBoolean}, []byte{1}, Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue BOOLEAN: %v", err)
	}
	if v.(bool) != true {
		t.Fatalf("expected true, got %#v", v)
	}
	v, err = DecodeColumnValue(ColumnMetadata{Type: TCBoolean}, []byte{0}, Capabilities{})
	if err != nil {
		t.Fatalf("DecodeColumnValue BOOLEAN: %v", err)
	}
	if v.(bool) != false {
		t.Fatalf("expected false, got %#v", v)
	}
}

func TestRowValueNullAndMissingDescribe(t *testing.T) {
	r := &Row{values: [][]byte{nil}, nulls: []bool{true}, describe: &DescribeInfo{Columns: []ColumnMetadata{{Type: TCNumber}}}}
	v, err := r.Value(0)
	if err != nil || v != nil {
		t.Fatalf("expected (nil, nil) for NULL column, got (%#v, %v)", v, err)
	}

	r2 := &Row{values: [][]byte{{1}}, nulls: []bool{false}}
	if _, err := r2.Value(0); err == nil {
		t.Fatalf("expected error for row with no describe metadata")
	}
}
