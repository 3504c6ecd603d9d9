package protocol

import (
	"bytes"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// ConnectParams carries the fields needed to build the Connect packet
// body: the protocol version range, service options, SDU/TDU sizing,
// NSI flags and the Net-Services connect-string descriptor.
type ConnectParams struct {
	VersionDesired  uint16
	VersionMin      uint16
	ServiceOptions  uint16
	SDU             uint16
	TDU             uint16
	NSIFlags1       byte
	NSIFlags2       byte
	ConnectString   string
}

const connectFixedHeaderSize = 74

// EncodeConnect builds a Connect packet body: the fixed 74-byte header
// followed by the connect-string. The body is sent as a single Connect
// packet; it is not split across packets, and WritePacket rejects it
// if it exceeds the SDU.
func EncodeConnect(p ConnectParams) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Uint16BE(p.VersionDesired)
	e.Uint16BE(p.VersionMin)
	e.Uint16BE(p.ServiceOptions)
	e.Uint16BE(p.SDU)
	e.Uint16BE(p.TDU)
	e.Byte(p.NSIFlags1)
	e.Byte(p.NSIFlags2)
	e.Uint16BE(uint16(len(p.ConnectString)))
	// pad the remainder of the fixed header with zeros
	written := 2 + 2 + 2 + 2 + 2 + 1 + 1 + 2
	if pad := connectFixedHeaderSize - written; pad > 0 {
		e.Bytes(make([]byte, pad))
	}
	e.Bytes([]byte(p.ConnectString))
	return buf.Bytes()
}

const protocolVersion = 6

// EncodeProtocol builds the protocol-negotiation request: message ID,
// fixed version byte, then the driver's identifying name as a
// NUL-terminated string.
func EncodeProtocol(driverName string) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgProtocol))
	e.Byte(protocolVersion)
	e.CString(driverName)
	return buf.Bytes()
}

// EncodeDataTypes builds the data-type negotiation request: one 6-tuple
// {type code, representation, charset form, buffer size, 2 reserved
// bytes} per type the driver supports, preceded by a count.
func EncodeDataTypes(types []TypeCode) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgDataTypes))
	e.VarUint(uint64(len(types)))
	for _, tc := range types {
		e.Byte(byte(tc))
		e.Byte(0) // representation, always native
		e.Byte(byte(CSFormImplicit))
		e.VarUint(0) // buffer size, negotiated per-bind instead
		e.Uint16BE(0)
	}
	return buf.Bytes()
}

// AuthMode bits for phase-one's auth-mode flags field.
type AuthMode uint32

const (
	AuthModeWithPassword AuthMode = 1 << 0
	AuthModeChangePassword AuthMode = 1 << 1
	AuthModeSysDBA       AuthMode = 1 << 2
	AuthModeOAuth2Token  AuthMode = 1 << 3
)

// IdentityInfo carries the driver-identity KV pairs sent in phase one,
// constructed once per Config rather than read from process globals.
type IdentityInfo struct {
	Terminal string
	Program  string
	Machine  string
	User     string
	PID      string
}

func (id IdentityInfo) kv() map[string]string {
	return map[string]string{
		"AUTH_TERMINAL": id.Terminal,
		"AUTH_PROGNM":   id.Program,
		"AUTH_MACHINE":  id.Machine,
		"AUTH_PROCESS_USER": id.User,
		"AUTH_PID":      id.PID,
	}
}

// EncodeAuthPhaseOne builds the authentication phase-one request:
// username, auth-mode bitmask and the five identifying KV pairs.
func EncodeAuthPhaseOne(username string, mode AuthMode, id IdentityInfo) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(0xDE) // OAUTH/OSESSKEY auth-phase-one function opcode
	e.ChunkedBytes([]byte(username), 0)
	e.Uint32BE(uint32(mode))
	writeKV(e, id.kv())
	return buf.Bytes()
}

// EncodeAuthPhaseTwo builds the authentication phase-two request from
// the KV pairs computed by the auth package (AUTH_SESSKEY_client,
// AUTH_PASSWORD, AUTH_PBKDF2_SPEEDY_KEY, AUTH_TOKEN, AUTH_SIGNATURE, ...).
func EncodeAuthPhaseTwo(kv map[string]string) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(0xDF) // auth-phase-two function opcode
	writeKV(e, kv)
	return buf.Bytes()
}

func writeKV(e *encoding.Encoder, kv map[string]string) {
	e.VarUint(uint64(len(kv)))
	for k, v := range kv {
		e.ChunkedBytes([]byte(k), 0)
		e.ChunkedBytes([]byte(v), 0)
	}
}

// ExecuteParams bundles an execute request's fields: the bitmask of
// operations to perform, the target cursor (0 to parse a new one), the
// SQL text (sent only when parsing), and the bind row(s).
type ExecuteParams struct {
	Options   ExecuteOption
	CursorID  uint16
	SQLText   string
	Binds     []Bind
	RowCount  uint32 // requested fetch row count when ExecFetch is set
}

// al8i4Size is the fixed 13-entry parse/execute/fetch counters array
// that rides with every execute request.
const al8i4Size = 13

// EncodeExecute builds a Function/Execute request.
func EncodeExecute(p ExecuteParams) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(FnExecute))
	e.Uint16BE(p.CursorID)
	e.Uint32BE(uint32(p.Options))

	counts := buildAl8i4(p)
	for _, c := range counts {
		e.Uint32BE(c)
	}

	if p.Options&ExecParse != 0 {
		e.ChunkedBytes([]byte(p.SQLText), 0)
	}
	if p.Options&ExecDefineFromDesc != 0 || len(p.Binds) > 0 {
		e.VarUint(uint64(len(p.Binds)))
		for _, b := range p.Binds {
			if p.Options&ExecParse != 0 {
				encodeBindMetadata(e, b.Metadata)
			}
			rows := len(b.Values)
			if rows == 0 {
				rows = 1
			}
			e.VarUint(uint64(rows))
			for _, v := range b.Values {
				if v == nil {
					e.Null()
					continue
				}
				e.ChunkedBytes(v, 0)
			}
		}
	}
	return buf.Bytes()
}

func buildAl8i4(p ExecuteParams) [al8i4Size]uint32 {
	var a [al8i4Size]uint32
	if p.Options&ExecParse != 0 {
		a[0] = 1
	}
	if p.Options&ExecExecute != 0 {
		a[1] = 1
	}
	if p.Options&ExecFetch != 0 {
		a[2] = p.RowCount
	}
	if p.Options&ExecArrayDML != 0 && len(p.Binds) > 0 {
		a[3] = uint32(len(p.Binds[0].Values))
	}
	return a
}

func encodeBindMetadata(e *encoding.Encoder, m BindMetadata) {
	e.Byte(byte(m.Type))
	e.Byte(byte(m.CharsetForm))
	e.Uint32BE(m.BufferSize)
	e.Uint32BE(m.MaxArrayLen)
	e.Bool(m.IsArray)
	e.VarInt(int64(m.Precision))
	e.VarInt(int64(m.Scale))
}

// EncodeReExecute re-runs a previously parsed cursor without resending
// its SQL text or bind metadata.
func EncodeReExecute(cursorID uint16, binds []Bind, options ExecuteOption) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(FnReExecute))
	e.Uint16BE(cursorID)
	e.Uint32BE(uint32(options))
	e.VarUint(uint64(len(binds)))
	for _, b := range binds {
		rows := len(b.Values)
		if rows == 0 {
			rows = 1
		}
		e.VarUint(uint64(rows))
		for _, v := range b.Values {
			if v == nil {
				e.Null()
				continue
			}
			e.ChunkedBytes(v, 0)
		}
	}
	return buf.Bytes()
}

// EncodeFetch requests the next rowCount rows from cursorID.
func EncodeFetch(cursorID uint16, rowCount uint32) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(FnFetch))
	e.Uint16BE(cursorID)
	e.Uint32BE(rowCount)
	return buf.Bytes()
}

// EncodeLOBOp builds a LOB-op request (read/write/trim/getLength/
// createTemporary/freeTemporary).
func EncodeLOBOp(op LOBOpCode, locator []byte, offset, amount uint64, data []byte) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(FnLOBOp))
	e.Byte(byte(op))
	e.ChunkedBytes(locator, 0)
	e.VarUint(offset)
	e.VarUint(amount)
	if data != nil {
		e.ChunkedBytes(data, 1<<16)
	} else {
		e.Null()
	}
	return buf.Bytes()
}

// EncodeCloseCursors builds the close-cursors piggyback body.
func EncodeCloseCursors(ids []uint16) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(FnCloseCursors))
	e.VarUint(uint64(len(ids)))
	for _, id := range ids {
		e.Uint16BE(id)
	}
	return buf.Bytes()
}

// EncodeFreeTempLOBs builds the free-temporary-LOBs piggyback body.
func EncodeFreeTempLOBs(locators [][]byte) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(LOBOpFreeTemporary))
	e.VarUint(uint64(len(locators)))
	for _, l := range locators {
		e.ChunkedBytes(l, 0)
	}
	return buf.Bytes()
}

// EncodeLogoff builds the logoff request.
func EncodeLogoff() []byte { return encodeBareFunction(FnLogoff) }

// EncodeCommit builds the commit request.
func EncodeCommit() []byte { return encodeBareFunction(FnCommit) }

// EncodeRollback builds the rollback request.
func EncodeRollback() []byte { return encodeBareFunction(FnRollback) }

// EncodeCancel builds the cancel (attention) follow-up request.
func EncodeCancel() []byte { return encodeBareFunction(FnCancel) }

// EncodePing builds the zero-body ping request used by the pool
// contract's validate operation.
func EncodePing() []byte { return encodeBareFunction(FnPing) }

// EncodeSetSchema builds the ALTER SESSION SET CURRENT_SCHEMA request.
func EncodeSetSchema(schema string) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(FnSetSchema))
	e.ChunkedBytes([]byte(schema), 0)
	return buf.Bytes()
}

func encodeBareFunction(fn FunctionCode) []byte {
	var buf bytes.Buffer
	e := encoding.NewEncoder(&buf)
	e.Byte(byte(MsgFunction))
	e.Byte(byte(fn))
	return buf.Bytes()
}
