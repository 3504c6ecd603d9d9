package protocol

import (
	"fmt"
	"math"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// VectorFormat identifies the packed element type of a 23ai VECTOR
// column.
type VectorFormat byte

const (
	VectorInt8    VectorFormat = 0
	VectorFloat32 VectorFormat = 1
	VectorFloat64 VectorFormat = 2
	VectorBinary  VectorFormat = 3
)

const vectorMagic = 0xDB

// Vector is the driver's in-memory representation of a VECTOR column
// value. Exactly one of the typed slices is populated, matching Format.
type Vector struct {
	Format  VectorFormat
	Int8    []int8
	Float32 []float32
	Float64 []float64
	// Binary packs one bit per logical element, 8 per byte.
	Binary   []byte
	NumElems uint32
}

// DecodeVector parses the magic byte, version, flags, format and packed
// element array of a VECTOR value. The binary format is only ever
// returned by 23ai servers; hasVectorBinary
// reports whether the negotiated capabilities accept it, so callers can
// surface UnsupportedType instead of guessing at older servers.
func DecodeVector(d *encoding.Decoder, hasVectorBinary bool) (Vector, error) {
	magic := d.Byte()
	if magic != vectorMagic {
		return Vector{}, fmt.Errorf("tnscore: invalid VECTOR magic byte 0x%02x", magic)
	}
	_ = d.Byte() // version, currently unused beyond presence
	_ = d.Byte() // flags, reserved
	format := VectorFormat(d.Byte())
	n := d.Uint32BE()
	if d.Error() != nil {
		return Vector{}, d.Error()
	}

	v := Vector{Format: format, NumElems: n}
	switch format {
	case VectorInt8:
		v.Int8 = make([]int8, n)
		for i := range v.Int8 {
			v.Int8[i] = int8(d.Byte())
		}
	case VectorFloat32:
		v.Float32 = make([]float32, n)
		for i := range v.Float32 {
			v.Float32[i] = math.Float32frombits(d.Uint32BE())
		}
	case VectorFloat64:
		v.Float64 = make([]float64, n)
		for i := range v.Float64 {
			v.Float64[i] = math.Float64frombits(d.Uint64BE())
		}
	case VectorBinary:
		if !hasVectorBinary {
			return Vector{}, &UnsupportedTypeError{TypeCode: byte(TCVector)}
		}
		nbytes := (n + 7) / 8
		v.Binary = make([]byte, nbytes)
		d.Bytes(v.Binary)
	default:
		return Vector{}, fmt.Errorf("tnscore: unknown VECTOR format %d", format)
	}
	return v, d.Error()
}

// EncodeVector writes v in the wire form DecodeVector expects.
func EncodeVector(e *encoding.Encoder, v Vector, version, flags byte) {
	e.Byte(vectorMagic)
	e.Byte(version)
	e.Byte(flags)
	e.Byte(byte(v.Format))
	e.Uint32BE(v.NumElems)
	switch v.Format {
	case VectorInt8:
		for _, x := range v.Int8 {
			e.Byte(byte(x))
		}
	case VectorFloat32:
		for _, x := range v.Float32 {
			e.Uint32BE(math.Float32bits(x))
		}
	case VectorFloat64:
		for _, x := range v.Float64 {
			e.Uint64BE(math.Float64bits(x))
		}
	case VectorBinary:
		e.Bytes(v.Binary)
	}
}
