package oson

import (
	"bytes"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/oratns/tnscore/internal/protocol"
	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// Write serializes root into a complete OSON document. It always
// performs two full walks of the tree: examine() to collect and sort
// the field-name dictionary, then encodeNode() to emit the tree
// segment against that dictionary.
func Write(root *Node) ([]byte, error) {
	fieldSet := map[string]struct{}{}
	examine(root, fieldSet)
	dict := buildFieldDict(fieldSet)

	isScalar := root.Kind != KindObject && root.Kind != KindArray

	var tree bytes.Buffer
	enc := encoding.NewEncoder(&tree)
	if err := encodeNode(enc, root, dict); err != nil {
		return nil, err
	}
	if enc.Error() != nil {
		return nil, enc.Error()
	}

	version := Version1
	if dict.longNames {
		version = Version2
	}

	var flags byte
	if isScalar {
		flags |= flagScalar
	}
	if tree.Len() > 0xFFFF {
		flags |= flagTreeSeg32
	}
	numFields := len(dict.names)
	if numFields > 0xFFFF {
		flags |= flagFieldCount32
	}
	if dict.totalSize > 0xFFFF {
		flags |= flagFieldSegSize32
	}
	if numFields > 0xFF {
		flags |= flagHashID16
	}
	if dict.totalSize > 0xFFFF {
		flags |= flagFieldOffset32
	}

	var out bytes.Buffer
	out.Write(Magic[:])
	out.WriteByte(byte(version))
	out.WriteByte(flags)

	if isScalar {
		out.Write(tree.Bytes())
		return out.Bytes(), nil
	}

	henc := encoding.NewEncoder(&out)
	writeWidth(henc, numFields, flags&flagFieldCount32 != 0)
	hashWidth2 := flags&flagHashID16 != 0
	for _, h := range dict.hashes {
		if hashWidth2 {
			henc.Uint16BE(uint16(h))
		} else {
			henc.Byte(byte(h))
		}
	}
	offsetWide := flags&flagFieldOffset32 != 0
	for _, off := range dict.offsets {
		writeWidth(henc, int(off), offsetWide)
	}
	writeWidth(henc, int(dict.totalSize), flags&flagFieldSegSize32 != 0)

	segment := make([]byte, dict.totalSize)
	for i, n := range dict.names {
		off := dict.offsets[i]
		if dict.longNames {
			segment[off] = byte(len(n) >> 8)
			segment[off+1] = byte(len(n))
			copy(segment[off+2:], n)
		} else {
			segment[off] = byte(len(n))
			copy(segment[off+1:], n)
		}
	}
	henc.Bytes(segment)

	writeWidth(henc, tree.Len(), flags&flagTreeSeg32 != 0)
	henc.Bytes(tree.Bytes())

	if henc.Error() != nil {
		return nil, henc.Error()
	}
	return out.Bytes(), nil
}

// writeWidth writes v as either a 16-bit or 32-bit big-endian field;
// the header-level quantities (counts, offsets, segment sizes) only
// ever choose between those two widths, unlike per-node child counts
// which also allow a single byte.
func writeWidth(e *encoding.Encoder, v int, wide bool) {
	if wide {
		e.Uint32BE(uint32(v))
	} else {
		e.Uint16BE(uint16(v))
	}
}

func examine(n *Node, fields map[string]struct{}) {
	switch n.Kind {
	case KindObject:
		for k, v := range n.Object {
			fields[k] = struct{}{}
			examine(v, fields)
		}
	case KindArray:
		for _, v := range n.Array {
			examine(v, fields)
		}
	}
}

// selectorForCount returns the 2-bit child-count-width selector for a
// container holding n children: 0/1/2 select 1/2/4-byte counts. The
// writer never emits selector 3 (shared field-ID array); that form is
// decode-only, for documents produced by other encoders.
func selectorForCount(n int) byte {
	switch {
	case n <= 0xFF:
		return 0
	case n <= 0xFFFF:
		return 1
	default:
		return 2
	}
}

func encodeNode(e *encoding.Encoder, n *Node, dict *fieldDict) error {
	switch n.Kind {
	case KindNull:
		e.Byte(scalarNull)
	case KindBool:
		if n.Bool {
			e.Byte(scalarBoolTrue)
		} else {
			e.Byte(scalarBoolFalse)
		}
	case KindString:
		e.Byte(scalarString)
		e.ChunkedBytes([]byte(n.Str), 0)
	case KindInt64:
		e.Byte(scalarInt64)
		e.VarInt(n.Int64)
	case KindFloat32:
		e.Byte(scalarFloat32)
		protocol.EncodeBinaryFloat(e, n.Float32)
	case KindFloat64:
		e.Byte(scalarFloat64)
		protocol.EncodeBinaryDouble(e, n.Float64)
	case KindDate:
		e.Byte(scalarDate)
		e.Bytes(protocol.EncodeDate(n.Date))
	case KindIntervalDS:
		e.Byte(scalarIntervalDS)
		e.Bytes(protocol.EncodeIntervalDS(n.IntervalDS))
	case KindVectorInt8, KindVectorFloat32, KindVectorFloat64, KindVectorBinary:
		e.Byte(vectorScalarTag(n.Kind))
		protocol.EncodeVector(e, n.Vector, 1, 0)
	case KindArray:
		sel := selectorForCount(len(n.Array))
		e.Byte(tagContainer | (sel << 4))
		writeContainerCount(e, len(n.Array), sel)
		for _, child := range n.Array {
			if err := encodeNode(e, child, dict); err != nil {
				return err
			}
		}
	case KindObject:
		keys := make([]string, 0, len(n.Object))
		for k := range n.Object {
			keys = append(keys, k)
		}
		ids := make([]uint32, len(keys))
		for i, k := range keys {
			id, ok := dict.fieldID(k)
			if !ok {
				return &unknownFieldNameError{Field: k}
			}
			ids[i] = id
		}
		// emit field IDs sorted ascending, matching how a reader would
		// expect to walk them deterministically regardless of the
		// caller's map iteration order.
		slices.Sort(ids)

		idSel := selectorForCount(len(dict.names))
		countSel := selectorForCount(len(ids))
		e.Byte(tagContainer | tagIsObject | (countSel << 4) | (idSel << 2))
		writeContainerCount(e, len(ids), countSel)
		for _, id := range ids {
			writeContainerCount(e, int(id-1), idSel) // stored 0-based
		}
		for _, id := range ids {
			if err := encodeNode(e, n.Object[dict.name(id)], dict); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("tnscore: unknown OSON node kind %d", n.Kind)
	}
	return nil
}

func writeContainerCount(e *encoding.Encoder, v int, selector byte) {
	switch selector {
	case 0:
		e.Byte(byte(v))
	case 1:
		e.Uint16BE(uint16(v))
	default:
		e.Uint32BE(uint32(v))
	}
}

func vectorScalarTag(k Kind) byte {
	switch k {
	case KindVectorFloat32:
		return scalarVectorFloat32
	case KindVectorFloat64:
		return scalarVectorFloat64
	case KindVectorBinary:
		return scalarVectorBinary
	default:
		return scalarVectorInt8
	}
}
