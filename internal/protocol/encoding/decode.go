// Package encoding implements the wire-level primitives of the TNS/TTC
// message layer: variable-width big-endian integers and chunked byte
// strings. The Oracle NUMBER codec built on them is in package protocol.
package encoding

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const readScratchSize = 4096

// ErrShortBuffer is returned when fewer bytes remain in the source than a
// read operation requires. Framing treats it as "wait for more bytes".
var ErrShortBuffer = fmt.Errorf("tnscore: short buffer")

// Decoder decodes TNS/TTC wire values from an io.Reader. Like the
// teacher's protocol Decoder, read errors are sticky: once set, every
// subsequent read is a no-op returning the zero value so callers can chain
// many reads and check Error() once at the end.
type Decoder struct {
	rd  io.Reader
	err error
	b   []byte
	cnt int
}

// NewDecoder creates a Decoder reading from rd.
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: rd, b: make([]byte, readScratchSize)}
}

// Error returns the sticky read error, if any.
func (d *Decoder) Error() error { return d.err }

// ResetError returns and clears the sticky error.
func (d *Decoder) ResetError() error {
	err := d.err
	d.err = nil
	return err
}

// Cnt returns the number of bytes read since the last ResetCnt.
func (d *Decoder) Cnt() int { return d.cnt }

// ResetCnt resets the byte counter.
func (d *Decoder) ResetCnt() { d.cnt = 0 }

func (d *Decoder) readFull(p []byte) {
	if d.err != nil {
		return
	}
	n, err := io.ReadFull(d.rd, p)
	d.cnt += n
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			d.err = ErrShortBuffer
		} else {
			d.err = err
		}
	}
}

// Skip discards cnt bytes.
func (d *Decoder) Skip(cnt int) {
	for n := 0; n < cnt; {
		to := cnt - n
		if to > readScratchSize {
			to = readScratchSize
		}
		d.readFull(d.b[:to])
		if d.err != nil {
			return
		}
		n += to
	}
}

// Byte reads a single byte (UB1).
func (d *Decoder) Byte() byte {
	d.readFull(d.b[:1])
	return d.b[0]
}

// Bytes reads len(p) raw bytes into p.
func (d *Decoder) Bytes(p []byte) { d.readFull(p) }

// Bool reads a one-byte boolean.
func (d *Decoder) Bool() bool { return d.Byte() != 0 }

// Uint16BE reads a fixed two-byte big-endian unsigned integer.
func (d *Decoder) Uint16BE() uint16 {
	d.readFull(d.b[:2])
	return binary.BigEndian.Uint16(d.b[:2])
}

// Uint32BE reads a fixed four-byte big-endian unsigned integer.
func (d *Decoder) Uint32BE() uint32 {
	d.readFull(d.b[:4])
	return binary.BigEndian.Uint32(d.b[:4])
}

// Uint64BE reads a fixed eight-byte big-endian unsigned integer.
func (d *Decoder) Uint64BE() uint64 {
	d.readFull(d.b[:8])
	return binary.BigEndian.Uint64(d.b[:8])
}

// VarUint reads an Oracle variable-length unsigned integer: a leading
// length byte L in 0..8 (L=0 means the value is zero with no further
// bytes), followed by L big-endian bytes.
func (d *Decoder) VarUint() uint64 {
	l := d.Byte()
	if d.err != nil || l == 0 {
		return 0
	}
	if l > 8 {
		d.err = fmt.Errorf("tnscore: invalid varint length %d", l)
		return 0
	}
	d.readFull(d.b[:l])
	if d.err != nil {
		return 0
	}
	var v uint64
	for i := byte(0); i < l; i++ {
		v = v<<8 | uint64(d.b[i])
	}
	return v
}

// VarInt reads a signed variable-length integer using the same
// length-prefixed framing as VarUint, sign-extending the most significant
// bit of the first byte read.
func (d *Decoder) VarInt() int64 {
	l := d.Byte()
	if d.err != nil || l == 0 {
		return 0
	}
	if l > 8 {
		d.err = fmt.Errorf("tnscore: invalid varint length %d", l)
		return 0
	}
	d.readFull(d.b[:l])
	if d.err != nil {
		return 0
	}
	neg := d.b[0]&0x80 != 0
	var v uint64
	for i := byte(0); i < l; i++ {
		v = v<<8 | uint64(d.b[i])
	}
	if neg {
		// sign extend to 64 bits
		shift := uint(64 - 8*l)
		return int64(v<<shift) >> shift
	}
	return int64(v)
}

// ChunkedBytes reads an Oracle chunked byte string: a one-byte length; if
// that byte is the long-length indicator 0xFE, a sequence of 4-byte
// big-endian length-prefixed chunks follows, terminated by a zero-length
// chunk. A NULL indicator (0xFF) returns (nil, true).
func (d *Decoder) ChunkedBytes() (b []byte, isNull bool) {
	l := d.Byte()
	if d.err != nil {
		return nil, false
	}
	switch {
	case l == 0xFF:
		return nil, true
	case l == 0xFE:
		var buf []byte
		for {
			chunkLen := d.Uint32BE()
			if d.err != nil {
				return nil, false
			}
			if chunkLen == 0 {
				break
			}
			chunk := make([]byte, chunkLen)
			d.readFull(chunk)
			if d.err != nil {
				return nil, false
			}
			buf = append(buf, chunk...)
		}
		return buf, false
	default:
		buf := make([]byte, l)
		d.readFull(buf)
		if d.err != nil {
			return nil, false
		}
		return buf, false
	}
}

// Float32BE reads a raw IEEE-754 single precision value (no Oracle
// comparable-bytes transform applied; see datatype.go for BINARY FLOAT).
func (d *Decoder) Float32BE() float32 {
	return math.Float32frombits(d.Uint32BE())
}

// Float64BE reads a raw IEEE-754 double precision value.
func (d *Decoder) Float64BE() float64 {
	return math.Float64frombits(d.Uint64BE())
}
