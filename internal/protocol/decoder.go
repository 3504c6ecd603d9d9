package protocol

import (
	"bytes"
	"fmt"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// Message is implemented by every decoded backend message type.
type Message interface {
	MessageKind() MessageID
}

// ErrorMessage is the decoded form of an Error message: a single ORA
// diagnostic plus, for a batched DML execute, the per-row failures that
// rode along with it.
type ErrorMessage struct {
	Err         *OraError
	BatchErrors []*OraError
}

func (*ErrorMessage) MessageKind() MessageID { return MsgError }

// WarningMessage is the decoded form of a Warning message.
type WarningMessage struct {
	Warning *OraWarning
}

func (*WarningMessage) MessageKind() MessageID { return MsgWarning }

// ParameterMessage carries the KV pairs exchanged during authentication
// and session negotiation.
type ParameterMessage struct {
	Values map[string]string
}

func (*ParameterMessage) MessageKind() MessageID { return MsgParameter }

// DescribeInfoMessage carries the column list for a newly parsed or
// re-described cursor.
type DescribeInfoMessage struct {
	Info *DescribeInfo
}

func (*DescribeInfoMessage) MessageKind() MessageID { return MsgDescribeInfo }

// RowDataMessage is one fragment of row data. Column boundaries require
// the active DescribeInfo, so the payload is kept opaque here; the
// statement engine splits each RowData payload into one Row's column
// values via DataRow.Iter when it arrives.
type RowDataMessage struct {
	Raw []byte
}

func (*RowDataMessage) MessageKind() MessageID { return MsgRowData }

// BitVectorMessage flags, per column, whether the next row repeats the
// previous row's value.
type BitVectorMessage struct {
	Bits BitVector
}

func (*BitVectorMessage) MessageKind() MessageID { return MsgBitVector }

// LOBDataMessage carries one chunk of a LOB-op response.
type LOBDataMessage struct {
	Locator []byte
	Chunk   []byte
	IsLast  bool
}

func (*LOBDataMessage) MessageKind() MessageID { return MsgLOBData }

// StatusMessage ends a logical request, reporting the cumulative DML row
// count, whether the fetch that produced it exhausted the cursor, and,
// for a first-time parse, the server-assigned cursor ID to use for
// subsequent fetch/re-execute requests.
type StatusMessage struct {
	RowsAffected uint64
	EndOfFetch   bool
	CursorID     uint16
}

func (*StatusMessage) MessageKind() MessageID { return MsgStatus }

// RawMessage is the fallback for message kinds this module does not
// interpret further (IOVector, IOCallAdvNFS): the payload is preserved
// so a caller doing protocol-level diagnostics can still see it.
type RawMessage struct {
	ID  MessageID
	Raw []byte
}

func (m *RawMessage) MessageKind() MessageID { return m.ID }

// AuthPhaseMessage wraps the Parameter-message KV pairs returned during
// an authentication round, tagged separately from MsgParameter so the
// connection state machine can route it without re-sniffing content.
type AuthPhaseMessage struct {
	Values map[string]string
}

func (*AuthPhaseMessage) MessageKind() MessageID { return MsgAuthPhase }

// DecodeMessage dispatches on the leading message-ID byte of body and
// decodes the rest according to ctx. body holds a single message: the
// Framer in packet.go returns one Data packet per ReadMessage call.
// Error, like every message other than RowData and BitVector, clears
// ctx.InRowData; it gets no other special handling here.
func DecodeMessage(body []byte, ctx *MessageContext) (Message, error) {
	if len(body) == 0 {
		return nil, &ProtocolViolationError{Reason: "empty message body"}
	}
	id := MessageID(body[0])
	payload := body[1:]
	d := encoding.NewDecoder(bytes.NewReader(payload))

	switch id {
	case MsgError:
		ctx.InRowData = false
		return decodeErrorMessage(d)
	case MsgWarning:
		ctx.InRowData = false
		return decodeWarningMessage(d)
	case MsgParameter:
		ctx.InRowData = false
		return decodeParameterMessage(d)
	case MsgAuthPhase:
		ctx.InRowData = false
		pm, err := decodeParameterMessage(d)
		if err != nil {
			return nil, err
		}
		return &AuthPhaseMessage{Values: pm.Values}, nil
	case MsgDescribeInfo:
		ctx.InRowData = false
		info, err := decodeDescribeInfo(d)
		if err != nil {
			return nil, err
		}
		ctx.Describe = info
		return &DescribeInfoMessage{Info: info}, nil
	case MsgRowData:
		ctx.InRowData = true
		return &RowDataMessage{Raw: payload}, nil
	case MsgBitVector:
		n := 0
		if ctx.Describe != nil {
			n = len(ctx.Describe.Columns)
		}
		bits, err := decodeBitVector(d, n)
		if err != nil {
			return nil, err
		}
		ctx.Bits = bits
		return &BitVectorMessage{Bits: bits}, nil
	case MsgLOBData:
		ctx.InRowData = false
		return decodeLOBData(d)
	case MsgStatus:
		ctx.InRowData = false
		return decodeStatus(d)
	case MsgIOVector, MsgIOCallAdvNFS:
		return &RawMessage{ID: id, Raw: payload}, nil
	default:
		return nil, &ProtocolViolationError{Reason: fmt.Sprintf("unknown message id %d", byte(id))}
	}
}

func decodeErrorMessage(d *encoding.Decoder) (*ErrorMessage, error) {
	e, err := decodeSingleOraError(d)
	if err != nil {
		return nil, err
	}
	msg := &ErrorMessage{Err: e}
	batchCount := int(d.VarUint())
	if d.Error() != nil {
		return nil, &MissingDataError{}
	}
	for i := 0; i < batchCount; i++ {
		be, err := decodeSingleOraError(d)
		if err != nil {
			return nil, err
		}
		msg.BatchErrors = append(msg.BatchErrors, be)
	}
	return msg, nil
}

func decodeSingleOraError(d *encoding.Decoder) (*OraError, error) {
	code := d.VarInt()
	isWarning := d.Bool()
	offset := d.VarInt()
	position := d.VarInt()
	hasRowID := d.Bool()
	var rowID *RowID
	if hasRowID {
		rowID = &RowID{
			ObjectID: d.Uint32BE(),
			FileID:   d.Uint16BE(),
			BlockID:  d.Uint32BE(),
			SlotID:   d.Uint16BE(),
		}
	}
	msgBytes, isNull := d.ChunkedBytes()
	if d.Error() != nil {
		return nil, &MissingDataError{}
	}
	message := ""
	if !isNull {
		message = string(msgBytes)
	}
	return &OraError{
		Code:      int32(code),
		Offset:    int32(offset),
		Position:  int32(position),
		Message:   message,
		RowID:     rowID,
		IsWarning: isWarning,
	}, nil
}

func decodeWarningMessage(d *encoding.Decoder) (*WarningMessage, error) {
	code := d.VarInt()
	msgBytes, isNull := d.ChunkedBytes()
	if d.Error() != nil {
		return nil, &MissingDataError{}
	}
	message := ""
	if !isNull {
		message = string(msgBytes)
	}
	return &WarningMessage{Warning: &OraWarning{Code: int32(code), Message: message}}, nil
}

func decodeParameterMessage(d *encoding.Decoder) (*ParameterMessage, error) {
	count := int(d.VarUint())
	if d.Error() != nil {
		return nil, &MissingDataError{}
	}
	values := make(map[string]string, count)
	for i := 0; i < count; i++ {
		keyBytes, _ := d.ChunkedBytes()
		valBytes, isNull := d.ChunkedBytes()
		if d.Error() != nil {
			return nil, &MissingDataError{}
		}
		if isNull {
			values[string(keyBytes)] = ""
			continue
		}
		values[string(keyBytes)] = string(valBytes)
	}
	return &ParameterMessage{Values: values}, nil
}

func decodeDescribeInfo(d *encoding.Decoder) (*DescribeInfo, error) {
	count := int(d.VarUint())
	if d.Error() != nil {
		return nil, &MissingDataError{}
	}
	info := &DescribeInfo{Columns: make([]ColumnMetadata, count)}
	for i := 0; i < count; i++ {
		nameBytes, _ := d.ChunkedBytes()
		col := ColumnMetadata{
			Name:        string(nameBytes),
			Type:        TypeCode(d.Byte()),
			CharsetForm: CharsetForm(d.Byte()),
			DataSize:    uint32(d.VarUint()),
			Precision:   int8(d.VarInt()),
			Scale:       int8(d.VarInt()),
			BufferSize:  uint32(d.VarUint()),
		}
		col.NullsAllowed = d.Bool()
		schemaBytes, _ := d.ChunkedBytes()
		col.SchemaName = string(schemaBytes)
		domainBytes, _ := d.ChunkedBytes()
		col.DomainName = string(domainBytes)
		col.HasVectorInfo = d.Bool()
		if col.HasVectorInfo {
			col.VectorDims = uint32(d.VarUint())
			col.VectorFormat = VectorFormat(d.Byte())
		}
		if d.Error() != nil {
			return nil, &MissingDataError{}
		}
		info.Columns[i] = col
	}
	return info, nil
}

func decodeBitVector(d *encoding.Decoder, n int) (BitVector, error) {
	l := int(d.VarUint())
	if d.Error() != nil {
		return BitVector{}, &MissingDataError{}
	}
	raw := make([]byte, l)
	d.Bytes(raw)
	if d.Error() != nil {
		return BitVector{}, &MissingDataError{}
	}
	return NewBitVector(raw, n), nil
}

func decodeLOBData(d *encoding.Decoder) (*LOBDataMessage, error) {
	locator, _ := d.ChunkedBytes()
	chunk, _ := d.ChunkedBytes()
	isLast := d.Bool()
	if d.Error() != nil {
		return nil, &MissingDataError{}
	}
	return &LOBDataMessage{Locator: locator, Chunk: chunk, IsLast: isLast}, nil
}

func decodeStatus(d *encoding.Decoder) (*StatusMessage, error) {
	rowsAffected := d.VarUint()
	endOfFetch := d.Bool()
	cursorID := d.Uint16BE()
	if d.Error() != nil {
		return nil, &MissingDataError{}
	}
	return &StatusMessage{RowsAffected: rowsAffected, EndOfFetch: endOfFetch, CursorID: cursorID}, nil
}
