package protocol

import (
	"bytes"
	"testing"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

func encodeBody(id MessageID, fill func(e *encoding.Encoder)) []byte {
	var buf bytes.Buffer
	buf.WriteByte(byte(id))
	e := encoding.NewEncoder(&buf)
	fill(e)
	return buf.Bytes()
}

func TestDecodeMessageStatus(t *testing.T) {
	body := encodeBody(MsgStatus, func(e *encoding.Encoder) {
		e.VarUint(3)
		e.Bool(true)
		e.Uint16BE(42)
	})
	ctx := &MessageContext{}
	msg, err := DecodeMessage(body, ctx)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sm, ok := msg.(*StatusMessage)
	if !ok {
		t.Fatalf("wrong type %T", msg)
	}
	if sm.RowsAffected != 3 || !sm.EndOfFetch || sm.CursorID != 42 {
		t.Fatalf("unexpected status %+v", sm)
	}
	if ctx.InRowData {
		t.Fatalf("InRowData should be cleared by Status")
	}
}

func TestDecodeMessageError(t *testing.T) {
	body := encodeBody(MsgError, func(e *encoding.Encoder) {
		e.VarInt(-942)
		e.Bool(false)
		e.VarInt(0)
		e.VarInt(15)
		e.Bool(false)
		e.ChunkedBytes([]byte("ORA-00942: table or view does not exist"), 0)
		e.VarUint(0)
	})
	ctx := &MessageContext{}
	msg, err := DecodeMessage(body, ctx)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	em := msg.(*ErrorMessage)
	if em.Err.Code != -942 {
		t.Fatalf("code = %d, want -942", em.Err.Code)
	}
	if em.Err.Position != 15 {
		t.Fatalf("position = %d, want 15", em.Err.Position)
	}
	if len(em.BatchErrors) != 0 {
		t.Fatalf("expected no batch errors")
	}
}

func TestDecodeMessageRowDataSetsInRowData(t *testing.T) {
	body := append([]byte{byte(MsgRowData)}, []byte{1, 2, 3}...)
	ctx := &MessageContext{}
	msg, err := DecodeMessage(body, ctx)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rm := msg.(*RowDataMessage)
	if !bytes.Equal(rm.Raw, []byte{1, 2, 3}) {
		t.Fatalf("raw mismatch: %v", rm.Raw)
	}
	if !ctx.InRowData {
		t.Fatalf("InRowData should be set by RowData")
	}
}

func TestDecodeMessageDescribeInfo(t *testing.T) {
	body := encodeBody(MsgDescribeInfo, func(e *encoding.Encoder) {
		e.VarUint(1)
		e.ChunkedBytes([]byte("ID"), 0)
		e.Byte(byte(TCNumber))
		e.Byte(byte(CSFormImplicit))
		e.VarUint(22)
		e.VarInt(10)
		e.VarInt(0)
		e.VarUint(22)
		e.Bool(true)
		e.ChunkedBytes([]byte("SCOTT"), 0)
		e.ChunkedBytes(nil, 0)
		e.Bool(false)
	})
	ctx := &MessageContext{}
	msg, err := DecodeMessage(body, ctx)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	dm := msg.(*DescribeInfoMessage)
	if len(dm.Info.Columns) != 1 {
		t.Fatalf("column count = %d, want 1", len(dm.Info.Columns))
	}
	col := dm.Info.Columns[0]
	if col.Name != "ID" || col.Type != TCNumber || col.Precision != 10 {
		t.Fatalf("unexpected column: %+v", col)
	}
	if ctx.Describe != dm.Info {
		t.Fatalf("ctx.Describe not updated")
	}
}

func TestDecodeMessageBitVectorUsesActiveDescribe(t *testing.T) {
	ctx := &MessageContext{Describe: &DescribeInfo{Columns: make([]ColumnMetadata, 3)}}
	body := encodeBody(MsgBitVector, func(e *encoding.Encoder) {
		e.VarUint(1)
		e.Bytes([]byte{0b10100000})
	})
	msg, err := DecodeMessage(body, ctx)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	bm := msg.(*BitVectorMessage)
	if !bm.Bits.Duplicate(0) || bm.Bits.Duplicate(1) || !bm.Bits.Duplicate(2) {
		t.Fatalf("bit vector decoded wrong: col0=%v col1=%v col2=%v",
			bm.Bits.Duplicate(0), bm.Bits.Duplicate(1), bm.Bits.Duplicate(2))
	}
}

func TestDecodeMessageEmptyBodyIsProtocolViolation(t *testing.T) {
	_, err := DecodeMessage(nil, &MessageContext{})
	if _, ok := err.(*ProtocolViolationError); !ok {
		t.Fatalf("expected ProtocolViolationError, got %v", err)
	}
}

func TestDecodeMessageUnknownID(t *testing.T) {
	_, err := DecodeMessage([]byte{99}, &MessageContext{})
	if _, ok := err.(*ProtocolViolationError); !ok {
		t.Fatalf("expected ProtocolViolationError, got %v", err)
	}
}
