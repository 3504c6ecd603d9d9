package oson

import (
	"bytes"
	"fmt"

	"github.com/oratns/tnscore/internal/protocol"
	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// Tag byte layout for a tree-segment node. Bit 7 set marks a
// container; otherwise the whole byte selects a scalar kind. Within a
// container tag, bit 6 distinguishes object (1) from array (0), bits
// 5-4 choose the child-count width (0/1/2 = 1/2/4 bytes, 3 = shared
// field-ID array borrowed from an earlier object), and bits 3-2 choose
// the per-child field-ID width for objects (0/1/2 = 1/2/4 bytes).
const (
	tagContainer = 0x80
	tagIsObject  = 0x40

	scalarNull           = 0
	scalarBoolFalse      = 1
	scalarBoolTrue       = 2
	scalarString         = 3
	scalarInt64          = 4
	scalarFloat32        = 5
	scalarFloat64        = 6
	scalarDate           = 7
	scalarIntervalDS     = 8
	scalarVectorInt8     = 9
	scalarVectorFloat32  = 10
	scalarVectorFloat64  = 11
	scalarVectorBinary   = 12

	widthSharedKeys = 3
)

func widthBytes(selector byte) int {
	switch selector {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 4
	}
}

// Capabilities gates decode-time behavior that depends on what the
// server negotiated, currently only whether VECTOR's binary format may
// appear (23ai-only; see protocol.DecodeVector).
type Capabilities struct {
	VectorBinary bool
}

// Parse decodes a complete OSON document.
func Parse(data []byte, caps Capabilities) (*Node, error) {
	if len(data) < 5 || data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] {
		return nil, fmt.Errorf("tnscore: invalid OSON magic bytes")
	}
	version := Version(data[3])
	flags := data[4]
	rest := data[5:]
	d := encoding.NewDecoder(bytes.NewReader(rest))

	if flags&flagScalar != 0 {
		return decodeNode(d, nil, caps, nil)
	}

	fieldCountWidth := 2
	if flags&flagFieldCount32 != 0 {
		fieldCountWidth = 4
	}
	numFields := readWidth(d, fieldCountWidth)

	hashWidth := 1
	if flags&flagHashID16 != 0 {
		hashWidth = 2
	}
	hashes := make([]uint32, numFields)
	for i := range hashes {
		hashes[i] = uint32(readWidth(d, hashWidth))
	}

	offsetWidth := 2
	if flags&flagFieldOffset32 != 0 {
		offsetWidth = 4
	}
	offsets := make([]uint32, numFields)
	for i := range offsets {
		offsets[i] = uint32(readWidth(d, offsetWidth))
	}

	segSizeWidth := 2
	if flags&flagFieldSegSize32 != 0 {
		segSizeWidth = 4
	}
	segSize := readWidth(d, segSizeWidth)
	segment := make([]byte, segSize)
	d.Bytes(segment)
	if d.Error() != nil {
		return nil, d.Error()
	}

	names := make([]string, numFields)
	for i, off := range offsets {
		if int(off) >= len(segment) {
			return nil, fmt.Errorf("tnscore: OSON field-name offset %d out of range", off)
		}
		n, err := readFieldName(segment[off:], version)
		if err != nil {
			return nil, err
		}
		names[i] = n
	}

	treeSegWidth := 2
	if flags&flagTreeSeg32 != 0 {
		treeSegWidth = 4
	}
	_ = readWidth(d, treeSegWidth) // tree segment size; node decoding is self-delimiting

	shared := map[uint32][]uint32{}
	return decodeNode(d, names, caps, shared)
}

func readWidth(d *encoding.Decoder, width int) int {
	switch width {
	case 1:
		return int(d.Byte())
	case 2:
		return int(d.Uint16BE())
	default:
		return int(d.Uint32BE())
	}
}

// readFieldName reads one entry of the field-name segment starting at
// seg[0]. Version 1 documents use a 1-byte length prefix throughout;
// version 2 documents (containing at least one name over 255 bytes)
// use a uniform 2-byte prefix so offsets stay unambiguous without
// having to decode every preceding entry first.
func readFieldName(seg []byte, version Version) (string, error) {
	if version == Version1 {
		if len(seg) < 1 {
			return "", fmt.Errorf("tnscore: truncated OSON field-name segment")
		}
		l := int(seg[0])
		if len(seg) < 1+l {
			return "", fmt.Errorf("tnscore: truncated OSON field name")
		}
		return string(seg[1 : 1+l]), nil
	}
	if len(seg) < 2 {
		return "", fmt.Errorf("tnscore: truncated OSON field-name length")
	}
	l := int(seg[0])<<8 | int(seg[1])
	if len(seg) < 2+l {
		return "", fmt.Errorf("tnscore: truncated OSON field name")
	}
	return string(seg[2 : 2+l]), nil
}

func decodeNode(d *encoding.Decoder, names []string, caps Capabilities, shared map[uint32][]uint32) (*Node, error) {
	startCnt := uint32(d.Cnt())
	tag := d.Byte()
	if d.Error() != nil {
		return nil, d.Error()
	}

	if tag&tagContainer == 0 {
		return decodeScalar(d, tag, caps)
	}

	isObject := tag&tagIsObject != 0
	countSel := (tag >> 4) & 0x3

	if isObject && countSel == widthSharedKeys {
		refOffset := uint32(d.Uint32BE())
		ids, ok := shared[refOffset]
		if !ok {
			return nil, fmt.Errorf("tnscore: OSON shared field-ID reference to unknown offset %d", refOffset)
		}
		obj := &Node{Kind: KindObject, Object: map[string]*Node{}}
		for _, id := range ids {
			child, err := decodeNode(d, names, caps, shared)
			if err != nil {
				return nil, err
			}
			obj.Object[fieldNameByID(names, id)] = child
		}
		return obj, nil
	}

	count := readWidth(d, widthBytes(countSel))

	if !isObject {
		arr := &Node{Kind: KindArray, Array: make([]*Node, 0, count)}
		for i := 0; i < count; i++ {
			child, err := decodeNode(d, names, caps, shared)
			if err != nil {
				return nil, err
			}
			arr.Array = append(arr.Array, child)
		}
		return arr, nil
	}

	idWidthSel := (tag >> 2) & 0x3
	ids := make([]uint32, count)
	for i := range ids {
		ids[i] = uint32(readWidth(d, widthBytes(idWidthSel))) + 1 // stored 0-based on the wire, 1-based logically
	}
	shared[startCnt] = ids

	obj := &Node{Kind: KindObject, Object: map[string]*Node{}}
	for _, id := range ids {
		child, err := decodeNode(d, names, caps, shared)
		if err != nil {
			return nil, err
		}
		obj.Object[fieldNameByID(names, id)] = child
	}
	return obj, nil
}

func fieldNameByID(names []string, id uint32) string {
	if id == 0 || int(id) > len(names) {
		return ""
	}
	return names[id-1]
}

func decodeScalar(d *encoding.Decoder, tag byte, caps Capabilities) (*Node, error) {
	switch tag {
	case scalarNull:
		return Null(), nil
	case scalarBoolFalse:
		return Bool(false), nil
	case scalarBoolTrue:
		return Bool(true), nil
	case scalarString:
		b, _ := d.ChunkedBytes()
		if d.Error() != nil {
			return nil, d.Error()
		}
		return String(string(b)), nil
	case scalarInt64:
		v := d.VarInt()
		if d.Error() != nil {
			return nil, d.Error()
		}
		return Int64(v), nil
	case scalarFloat32:
		return Float32(protocol.DecodeBinaryFloat(d)), nil
	case scalarFloat64:
		return Float64(protocol.DecodeBinaryDouble(d)), nil
	case scalarDate:
		b := make([]byte, 7)
		d.Bytes(b)
		if d.Error() != nil {
			return nil, d.Error()
		}
		t, err := protocol.DecodeDate(b)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindDate, Date: t}, nil
	case scalarIntervalDS:
		b := make([]byte, 11)
		d.Bytes(b)
		if d.Error() != nil {
			return nil, d.Error()
		}
		iv, err := protocol.DecodeIntervalDS(b)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindIntervalDS, IntervalDS: iv}, nil
	case scalarVectorInt8, scalarVectorFloat32, scalarVectorFloat64, scalarVectorBinary:
		v, err := protocol.DecodeVector(d, caps.VectorBinary)
		if err != nil {
			return nil, err
		}
		k := KindVectorInt8
		switch v.Format {
		case protocol.VectorFloat32:
			k = KindVectorFloat32
		case protocol.VectorFloat64:
			k = KindVectorFloat64
		case protocol.VectorBinary:
			k = KindVectorBinary
		}
		return &Node{Kind: k, Vector: v}, nil
	default:
		return nil, fmt.Errorf("tnscore: unknown OSON scalar tag %d", tag)
	}
}
