package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// PacketType identifies a TNS packet.
type PacketType byte

const (
	PacketConnect  PacketType = 1
	PacketAccept   PacketType = 2
	PacketAck      PacketType = 3
	PacketRefuse   PacketType = 4
	PacketRedirect PacketType = 5
	PacketData     PacketType = 6
	PacketNull     PacketType = 7
	PacketAbort    PacketType = 9
	PacketResend   PacketType = 11
	PacketMarker   PacketType = 12
	PacketAttn     PacketType = 13
	PacketControl  PacketType = 14
)

func (t PacketType) String() string {
	switch t {
	case PacketConnect:
		return "Connect"
	case PacketAccept:
		return "Accept"
	case PacketAck:
		return "Ack"
	case PacketRefuse:
		return "Refuse"
	case PacketRedirect:
		return "Redirect"
	case PacketData:
		return "Data"
	case PacketNull:
		return "Null"
	case PacketAbort:
		return "Abort"
	case PacketResend:
		return "Resend"
	case PacketMarker:
		return "Marker"
	case PacketAttn:
		return "Attention"
	case PacketControl:
		return "Control"
	default:
		return fmt.Sprintf("PacketType(%d)", byte(t))
	}
}

const packetHeaderSize = 8

// largeSDULengthFlag marks the 32-bit length field as active, set in
// the high bit of the first length byte when large-SDU was negotiated.
const largeSDULengthFlag = 0x80000000

// Data packet data-flags bits.
const (
	DataFlagEndOfRequest uint16 = 0x0001
)

// Packet is one framed TNS unit.
type Packet struct {
	Type  PacketType
	Flags byte
	Body  []byte
}

// ReadPacket reads one complete packet from r, blocking until all of
// its bytes have arrived. largeSDU selects the 32-bit vs 16-bit length
// header form negotiated during handshake. If the stream ends
// mid-packet it returns an error wrapping io.ErrUnexpectedEOF; the
// bytes already read stay consumed.
func ReadPacket(r *bufio.Reader, largeSDU bool) (*Packet, error) {
	hdr := make([]byte, packetHeaderSize)
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, wrapShortRead(err)
	}

	var length uint32
	var typ PacketType
	var flags byte
	if largeSDU {
		length = binary.BigEndian.Uint32(hdr[0:4]) &^ largeSDULengthFlag
		typ = PacketType(hdr[4])
		flags = hdr[5]
	} else {
		length = uint32(binary.BigEndian.Uint16(hdr[0:2]))
		typ = PacketType(hdr[4])
		flags = hdr[5]
	}
	if length < packetHeaderSize {
		return nil, &ProtocolViolationError{Reason: fmt.Sprintf("packet length %d shorter than header", length)}
	}
	bodyLen := int(length) - packetHeaderSize
	body := make([]byte, bodyLen)
	if bodyLen > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, wrapShortRead(err)
		}
	}
	return &Packet{Type: typ, Flags: flags, Body: body}, nil
}

func wrapShortRead(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("tnscore: %w", io.ErrUnexpectedEOF)
	}
	return err
}

// WritePacket writes pkt to w using the negotiated header form and a
// size that must not exceed sdu: no packet may exceed the negotiated SDU.
func WritePacket(w io.Writer, pkt *Packet, largeSDU bool, sdu int) error {
	total := packetHeaderSize + len(pkt.Body)
	if total > sdu {
		return fmt.Errorf("tnscore: packet of %d bytes exceeds negotiated SDU %d", total, sdu)
	}
	hdr := make([]byte, packetHeaderSize)
	if largeSDU {
		binary.BigEndian.PutUint32(hdr[0:4], uint32(total)|largeSDULengthFlag)
	} else {
		binary.BigEndian.PutUint16(hdr[0:2], uint16(total))
	}
	hdr[4] = byte(pkt.Type)
	hdr[5] = pkt.Flags
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	if len(pkt.Body) > 0 {
		if _, err := w.Write(pkt.Body); err != nil {
			return err
		}
	}
	return nil
}

// Framer packetizes/reassembles the Data-packet stream carrying TTC
// messages. One Framer is owned exclusively by a single connection; it
// is not safe for concurrent use.
type Framer struct {
	r        *bufio.Reader
	w        io.Writer
	largeSDU bool
	sdu      int
	eorCap   bool
}

// NewFramer creates a Framer around a duplex transport stream.
func NewFramer(r io.Reader, w io.Writer, sdu int, largeSDU, eorCap bool) *Framer {
	return &Framer{r: bufio.NewReaderSize(r, sdu), w: w, largeSDU: largeSDU, sdu: sdu, eorCap: eorCap}
}

// SetCapabilities updates the negotiated SDU/header-width/end-of-request
// support once the handshake completes. Established once per
// connection; immutable after handshake.
func (f *Framer) SetCapabilities(sdu int, largeSDU, eorCap bool) {
	f.sdu = sdu
	f.largeSDU = largeSDU
	f.eorCap = eorCap
}

// ReadPacket reads the next raw packet from the transport.
func (f *Framer) ReadPacket() (*Packet, error) {
	return ReadPacket(f.r, f.largeSDU)
}

// ReadDataFragment reads one Data packet and returns its data-flags and
// payload (the data-flags field is stripped from the returned body).
func (f *Framer) ReadDataFragment() (flags uint16, body []byte, err error) {
	pkt, err := f.ReadPacket()
	if err != nil {
		return 0, nil, err
	}
	if pkt.Type != PacketData {
		return 0, nil, &unexpectedPacketType{got: pkt.Type, want: PacketData}
	}
	if len(pkt.Body) < 2 {
		return 0, nil, &ProtocolViolationError{Reason: "data packet shorter than data-flags field"}
	}
	flags = binary.BigEndian.Uint16(pkt.Body[:2])
	return flags, pkt.Body[2:], nil
}

// ReadMessage reads exactly one Data packet and returns its payload as
// one TTC message; payloads of consecutive packets are not joined. When
// the end-of-request capability is negotiated, final reports whether
// the packet's data-flags carry DataFlagEndOfRequest. When it is not
// negotiated, final is always false and the caller decides from the
// decoded message whether the logical request is complete.
func (f *Framer) ReadMessage() (body []byte, final bool, err error) {
	flags, frag, err := f.ReadDataFragment()
	if err != nil {
		return nil, false, err
	}
	if !f.eorCap {
		return frag, false, nil
	}
	final = flags&DataFlagEndOfRequest != 0
	return frag, final, nil
}

// WriteRequest splits payload into SDU-sized Data packets and writes
// them in order, setting DataFlagEndOfRequest on the final fragment
// only if the end-of-request capability was negotiated.
func (f *Framer) WriteRequest(payload []byte) error {
	maxBody := f.sdu - packetHeaderSize - 2 // 2-byte data-flags field
	if maxBody <= 0 {
		return fmt.Errorf("tnscore: negotiated SDU %d too small for any payload", f.sdu)
	}
	if len(payload) == 0 {
		return f.writeFragment(nil, true)
	}
	for len(payload) > 0 {
		n := len(payload)
		if n > maxBody {
			n = maxBody
		}
		last := n == len(payload)
		if err := f.writeFragment(payload[:n], last); err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

func (f *Framer) writeFragment(chunk []byte, last bool) error {
	var flags uint16
	if last && f.eorCap {
		flags = DataFlagEndOfRequest
	}
	body := make([]byte, 2+len(chunk))
	binary.BigEndian.PutUint16(body[:2], flags)
	copy(body[2:], chunk)
	return WritePacket(f.w, &Packet{Type: PacketData, Body: body}, f.largeSDU, f.sdu)
}

// WriteControlPacket writes a whole non-Data packet (Connect, Marker,
// ...), which are always single-packet messages.
func (f *Framer) WriteControlPacket(typ PacketType, flags byte, body []byte) error {
	return WritePacket(f.w, &Packet{Type: typ, Flags: flags, Body: body}, f.largeSDU, f.sdu)
}

type unexpectedPacketType struct{ got, want PacketType }

func (e *unexpectedPacketType) Error() string {
	return fmt.Sprintf("tnscore: unexpected packet type %s, expected %s", e.got, e.want)
}
