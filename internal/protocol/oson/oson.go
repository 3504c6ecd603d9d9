// Package oson implements Oracle Binary JSON (OSON): a self-describing
// tree format with a shared field-name dictionary, variable-width
// offsets, and a tagged-union node encoding. It builds on the sibling
// protocol package's scalar codecs (DATE, INTERVAL DAY TO SECOND,
// BINARY FLOAT/DOUBLE, VECTOR) so an OSON date/float/vector leaf is
// byte-for-byte the same representation as the corresponding column
// type. Integer leaves use the variable-length integer encoding, not
// NUMBER.
package oson

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/oratns/tnscore/internal/protocol"
)

// Magic is the three-byte OSON header signature.
var Magic = [3]byte{0xFF, 0x4A, 0x5A}

// Version selects the field-name width convention: 1 gives every name
// a 1-byte length prefix (names <=255 bytes), 2 gives every name a
// 2-byte length prefix (names <=65535 bytes). Both use one segment.
type Version byte

const (
	Version1 Version = 1
	Version2 Version = 2
)

// Header flag bits. Each selects between a narrow and wide encoding
// for one quantity; the writer always picks the narrowest combination
// that fits the document being written.
const (
	flagScalar          = 1 << 0
	flagTreeSeg32       = 1 << 1
	flagFieldCount32    = 1 << 2
	flagFieldSegSize32  = 1 << 3
	flagHashID16        = 1 << 4
	flagFieldOffset32   = 1 << 5
)

// Kind identifies the tagged-union variant of a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindString
	KindInt64
	KindFloat32
	KindFloat64
	KindDate
	KindIntervalDS
	KindVectorInt8
	KindVectorFloat32
	KindVectorFloat64
	KindVectorBinary
	KindObject
	KindArray
)

// Node is the in-memory representation of one OSON tree value.
type Node struct {
	Kind Kind

	Bool       bool
	Str        string
	Int64      int64
	Float32    float32
	Float64    float64
	Date       time.Time
	IntervalDS protocol.IntervalDS
	Vector     protocol.Vector

	// Object holds KindObject's children keyed by field name. Key
	// ordering on the wire is determined entirely by the writer's
	// dictionary sort, never by the order callers populate this map.
	Object map[string]*Node
	Array  []*Node
}

// Null, Bool, String, Int64 and the other constructors build leaf
// nodes; they exist so callers assembling a document don't need to
// name every Node field by hand.
func Null() *Node               { return &Node{Kind: KindNull} }
func Bool(v bool) *Node         { return &Node{Kind: KindBool, Bool: v} }
func String(v string) *Node     { return &Node{Kind: KindString, Str: v} }
func Int64(v int64) *Node       { return &Node{Kind: KindInt64, Int64: v} }
func Float32(v float32) *Node   { return &Node{Kind: KindFloat32, Float32: v} }
func Float64(v float64) *Node   { return &Node{Kind: KindFloat64, Float64: v} }
func Object() *Node             { return &Node{Kind: KindObject, Object: map[string]*Node{}} }
func Array(elems ...*Node) *Node { return &Node{Kind: KindArray, Array: elems} }

// Set inserts or replaces a field on an object node. It panics if n is
// not an object, the same contract json.Marshal-style builders use for
// programmer errors rather than malformed input.
func (n *Node) Set(field string, v *Node) *Node {
	if n.Kind != KindObject {
		panic("tnscore: Set on non-object OSON node")
	}
	n.Object[field] = v
	return n
}

// unknownFieldNameError signals that the writer's encode pass reached
// an object key absent from the dictionary its own examine pass built
// moments earlier — a defensive invariant that normal usage of Write
// cannot trigger, since both passes walk the identical tree.
type unknownFieldNameError struct{ Field string }

func (e *unknownFieldNameError) Error() string {
	return fmt.Sprintf("tnscore: OSON field name %q missing from writer dictionary", e.Field)
}

// fieldDict maps field names to 1-based IDs and back, and records
// where each name's bytes land in the field-name segment. It is built
// once by buildFieldDict from the names examine() collected, and
// consulted by encodeNode and by Write's header output.
type fieldDict struct {
	names     []string          // 0-indexed by (fieldID - 1)
	hashes    []uint32
	idOf      map[string]uint32 // name -> 1-based field ID
	offsets   []uint32          // 0-indexed by (fieldID - 1), into the name segment
	totalSize uint32
	// longNames is true once any name exceeds 255 bytes, forcing every
	// entry in the segment to use a 2-byte length prefix (version 2)
	// instead of the 1-byte form (version 1). Mixing widths within one
	// segment would make offsets ambiguous to a reader that hasn't
	// already decoded the name before it, so the whole segment always
	// uses a uniform prefix width.
	longNames bool
}

func buildFieldDict(names map[string]struct{}) *fieldDict {
	sorted := maps.Keys(names)
	hashed := make([]uint32, len(sorted))
	for i, n := range sorted {
		hashed[i] = fieldNameHash(n)
	}
	idx := make([]int, len(sorted))
	for i := range idx {
		idx[i] = i
	}
	// a and b here are elements of idx (original positions into sorted/
	// hashed), not positions within idx itself.
	slices.SortFunc(idx, func(a, b int) int {
		ha, hb := byte(hashed[a]), byte(hashed[b])
		if ha != hb {
			if ha < hb {
				return -1
			}
			return 1
		}
		if la, lb := len(sorted[a]), len(sorted[b]); la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		return strings.Compare(sorted[a], sorted[b])
	})

	fd := &fieldDict{idOf: map[string]uint32{}}
	ordered := make([]string, len(sorted))
	ordHash := make([]uint32, len(sorted))
	for rank, i := range idx {
		ordered[rank] = sorted[i]
		ordHash[rank] = hashed[i]
	}
	fd.names = ordered
	fd.hashes = ordHash

	for _, n := range ordered {
		if len(n) > 255 {
			fd.longNames = true
		}
		if len(n) > 65535 {
			panic("tnscore: OSON field name exceeds 65535 bytes")
		}
	}
	lenWidth := uint32(1)
	if fd.longNames {
		lenWidth = 2
	}
	var off uint32
	fd.offsets = make([]uint32, len(ordered))
	for i, n := range ordered {
		fd.offsets[i] = off
		off += lenWidth + uint32(len(n))
	}
	fd.totalSize = off

	for i, n := range ordered {
		fd.idOf[n] = uint32(i) + 1
	}
	return fd
}

func (fd *fieldDict) fieldID(name string) (uint32, bool) {
	id, ok := fd.idOf[name]
	return id, ok
}

func (fd *fieldDict) name(id uint32) string {
	if id == 0 || int(id) > len(fd.names) {
		return ""
	}
	return fd.names[id-1]
}

