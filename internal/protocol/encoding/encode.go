package encoding

import (
	"encoding/binary"
	"io"
	"math"
)

const writeScratchSize = 4096

// Encoder encodes TNS/TTC wire values to an io.Writer. Errors are sticky,
// mirroring Decoder, so a chain of writes can be checked once via Error().
type Encoder struct {
	wr  io.Writer
	err error
	b   []byte
}

// NewEncoder creates an Encoder writing to wr.
func NewEncoder(wr io.Writer) *Encoder {
	return &Encoder{wr: wr, b: make([]byte, writeScratchSize)}
}

// Error returns the sticky write error, if any.
func (e *Encoder) Error() error { return e.err }

func (e *Encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	if _, err := e.wr.Write(p); err != nil {
		e.err = err
	}
}

// Byte writes a single byte.
func (e *Encoder) Byte(b byte) {
	e.b[0] = b
	e.write(e.b[:1])
}

// Bytes writes a raw byte slice.
func (e *Encoder) Bytes(p []byte) { e.write(p) }

// Bool writes a one-byte boolean.
func (e *Encoder) Bool(v bool) {
	if v {
		e.Byte(1)
	} else {
		e.Byte(0)
	}
}

// Uint16BE writes a fixed two-byte big-endian unsigned integer.
func (e *Encoder) Uint16BE(v uint16) {
	binary.BigEndian.PutUint16(e.b[:2], v)
	e.write(e.b[:2])
}

// Uint32BE writes a fixed four-byte big-endian unsigned integer.
func (e *Encoder) Uint32BE(v uint32) {
	binary.BigEndian.PutUint32(e.b[:4], v)
	e.write(e.b[:4])
}

// Uint64BE writes a fixed eight-byte big-endian unsigned integer.
func (e *Encoder) Uint64BE(v uint64) {
	binary.BigEndian.PutUint64(e.b[:8], v)
	e.write(e.b[:8])
}

// VarUint writes v using Oracle's variable-length framing: a length byte
// followed by the minimal number of big-endian bytes (0 bytes if v==0).
func (e *Encoder) VarUint(v uint64) {
	if v == 0 {
		e.Byte(0)
		return
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	start := 0
	for start < 7 && buf[start] == 0 {
		start++
	}
	l := 8 - start
	e.Byte(byte(l))
	e.write(buf[start:])
}

// VarInt writes a signed value using the same length-prefixed framing as
// VarUint, picking the minimal byte count that preserves the sign bit.
func (e *Encoder) VarInt(v int64) {
	if v == 0 {
		e.Byte(0)
		return
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	neg := v < 0
	start := 0
	for start < 7 {
		b := buf[start]
		next := buf[start+1]
		if neg {
			if b != 0xFF || next&0x80 == 0 {
				break
			}
		} else {
			if b != 0 || next&0x80 != 0 {
				break
			}
		}
		start++
	}
	l := 8 - start
	e.Byte(byte(l))
	e.write(buf[start:])
}

// ChunkedBytes writes b using the length-prefixed/chunked framing
// described below. Payloads up to 250 bytes use the single
// length byte form; longer payloads are split into maxChunk-sized pieces
// using the long-length (0xFE) form terminated by a zero-length chunk.
func (e *Encoder) ChunkedBytes(b []byte, maxChunk int) {
	if maxChunk <= 0 {
		maxChunk = 1 << 16
	}
	if len(b) <= 250 {
		e.Byte(byte(len(b)))
		e.write(b)
		return
	}
	e.Byte(0xFE)
	for len(b) > 0 {
		n := len(b)
		if n > maxChunk {
			n = maxChunk
		}
		e.Uint32BE(uint32(n))
		e.write(b[:n])
		b = b[n:]
	}
	e.Uint32BE(0)
}

// Null writes the single-byte NULL indicator.
func (e *Encoder) Null() { e.Byte(0xFF) }

// Float32BE writes a raw IEEE-754 single precision value.
func (e *Encoder) Float32BE(f float32) { e.Uint32BE(math.Float32bits(f)) }

// Float64BE writes a raw IEEE-754 double precision value.
func (e *Encoder) Float64BE(f float64) { e.Uint64BE(math.Float64bits(f)) }

// CString writes s followed by a NUL terminator, as used by the connect
// and protocol-negotiation requests.
func (e *Encoder) CString(s string) {
	e.write([]byte(s))
	e.Byte(0)
}
