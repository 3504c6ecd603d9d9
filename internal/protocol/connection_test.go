package protocol

import (
	"net"
	"testing"
	"time"

	"github.com/oratns/tnscore/internal/protocol/auth"
	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// fakeServer drives the server side of a Dial+Execute exchange over an
// in-memory net.Pipe, scripted to follow exactly the request sequence
// Connection.Dial and Connection.Execute issue. It is not a general
// protocol simulator, only enough of one to exercise the client state
// machine end to end without a real listener.
type fakeServer struct {
	conn   net.Conn
	framer *Framer
}

func newFakeServer(conn net.Conn) *fakeServer {
	return &fakeServer{conn: conn, framer: NewFramer(conn, conn, DefaultSDU, false, false)}
}

func (s *fakeServer) runHandshakeAndAuth(t *testing.T) {
	t.Helper()
	pkt, err := s.framer.ReadPacket()
	if err != nil {
		t.Errorf("server: read connect: %v", err)
		return
	}
	if pkt.Type != PacketConnect {
		t.Errorf("server: expected Connect, got %s", pkt.Type)
		return
	}
	if err := s.framer.WriteControlPacket(PacketAccept, 0, nil); err != nil {
		t.Errorf("server: write accept: %v", err)
		return
	}

	// protocol negotiation
	if _, _, err := s.framer.ReadMessage(); err != nil {
		t.Errorf("server: read protocol request: %v", err)
		return
	}
	protoReply := append([]byte{byte(MsgProtocol), 6}, []byte("fakeserver\x00")...)
	if err := s.framer.WriteRequest(protoReply); err != nil {
		t.Errorf("server: write protocol reply: %v", err)
		return
	}

	// data-type negotiation
	if _, _, err := s.framer.ReadMessage(); err != nil {
		t.Errorf("server: read datatypes request: %v", err)
		return
	}
	caps := NegotiatedCaps(CapEndOfRequest)
	dtReply := append([]byte{byte(MsgDataTypes), byte(len(caps))}, caps...)
	if err := s.framer.WriteRequest(dtReply); err != nil {
		t.Errorf("server: write datatypes reply: %v", err)
		return
	}
	s.framer.SetCapabilities(DefaultSDU, false, true)

	// auth phase one: reply with an empty parameter set (token flow
	// does not need server challenge material)
	if _, _, err := s.framer.ReadMessage(); err != nil {
		t.Errorf("server: read auth phase one: %v", err)
		return
	}
	if err := s.framer.WriteRequest(emptyAuthReply()); err != nil {
		t.Errorf("server: write auth phase one reply: %v", err)
		return
	}

	// auth phase two
	if _, _, err := s.framer.ReadMessage(); err != nil {
		t.Errorf("server: read auth phase two: %v", err)
		return
	}
	if err := s.framer.WriteRequest(emptyAuthReply()); err != nil {
		t.Errorf("server: write auth phase two reply: %v", err)
		return
	}
}

func emptyAuthReply() []byte {
	return []byte{byte(MsgAuthPhase), 0}
}

func (s *fakeServer) runInsertExecute(t *testing.T) {
	t.Helper()
	if _, _, err := s.framer.ReadMessage(); err != nil {
		t.Errorf("server: read execute request: %v", err)
		return
	}
	body := statusReplyBody(1, true, 5)
	if err := s.framer.WriteRequest(body); err != nil {
		t.Errorf("server: write status reply: %v", err)
	}
}

func statusReplyBody(rowsAffected uint64, endOfFetch bool, cursorID uint16) []byte {
	return encodeBody(MsgStatus, func(e *encoding.Encoder) {
		e.VarUint(rowsAffected)
		e.Bool(endOfFetch)
		e.Uint16BE(cursorID)
	})
}

func TestDialAndExecuteInsert(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	srv := newFakeServer(serverConn)
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.runHandshakeAndAuth(t)
		srv.runInsertExecute(t)
	}()

	cfg := Config{
		Token: &auth.TokenCredentials{Token: "bearer-token"},
	}
	conn, err := Dial(clientConn, "(DESCRIPTION=(CONNECT_DATA=(SERVICE_NAME=orcl)))", cfg)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if conn.State() != Idle {
		t.Fatalf("state after dial = %s, want Idle", conn.State())
	}

	result, stream, err := conn.Execute("INSERT INTO t(a) VALUES (1)", nil, ExecOptions{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stream != nil {
		t.Fatalf("expected no row stream for an INSERT")
	}
	if result.RowsAffected != 1 {
		t.Fatalf("rows affected = %d, want 1", result.RowsAffected)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("server goroutine did not finish")
	}
}
