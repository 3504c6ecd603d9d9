package protocol

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

func encodeDecodeVector(t *testing.T, v Vector, hasVectorBinary bool) Vector {
	t.Helper()
	var buf bytes.Buffer
	EncodeVector(encoding.NewEncoder(&buf), v, 1, 0)
	d := encoding.NewDecoder(bytes.NewReader(buf.Bytes()))
	got, err := DecodeVector(d, hasVectorBinary)
	if err != nil {
		t.Fatalf("DecodeVector: %v", err)
	}
	return got
}

func TestVectorInt8RoundTrip(t *testing.T) {
	v := Vector{Format: VectorInt8, NumElems: 3, Int8: []int8{-1, 0, 127}}
	got := encodeDecodeVector(t, v, false)
	if !reflect.DeepEqual(got.Int8, v.Int8) {
		t.Fatalf("round trip mismatch: want %v, got %v", v.Int8, got.Int8)
	}
}

func TestVectorFloat32RoundTrip(t *testing.T) {
	v := Vector{Format: VectorFloat32, NumElems: 2, Float32: []float32{1.5, -2.25}}
	got := encodeDecodeVector(t, v, false)
	if !reflect.DeepEqual(got.Float32, v.Float32) {
		t.Fatalf("round trip mismatch: want %v, got %v", v.Float32, got.Float32)
	}
}

func TestVectorFloat64RoundTrip(t *testing.T) {
	v := Vector{Format: VectorFloat64, NumElems: 2, Float64: []float64{3.14, -0.001}}
	got := encodeDecodeVector(t, v, false)
	if !reflect.DeepEqual(got.Float64, v.Float64) {
		t.Fatalf("round trip mismatch: want %v, got %v", v.Float64, got.Float64)
	}
}

func TestVectorBinaryRoundTripRequiresCapability(t *testing.T) {
	v := Vector{Format: VectorBinary, NumElems: 8, Binary: []byte{0xAA}}

	var buf bytes.Buffer
	EncodeVector(encoding.NewEncoder(&buf), v, 1, 0)
	d := encoding.NewDecoder(bytes.NewReader(buf.Bytes()))
	if _, err := DecodeVector(d, false); err == nil {
		t.Fatalf("expected UnsupportedTypeError without CapVector23ai")
	}

	got := encodeDecodeVector(t, v, true)
	if !reflect.DeepEqual(got.Binary, v.Binary) {
		t.Fatalf("round trip mismatch: want %v, got %v", v.Binary, got.Binary)
	}
}
