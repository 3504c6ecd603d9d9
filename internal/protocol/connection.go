package protocol

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"github.com/oratns/tnscore/internal/protocol/auth"
)

// ConnState is one state of the connection lifecycle state machine.
type ConnState int

const (
	Unstarted ConnState = iota
	ConnectSent
	AcceptReceived
	RefuseReceived
	ResendRequested
	ProtocolNegotiating
	DataTypesNegotiating
	AuthenticatingPhaseOne
	AuthenticatingPhaseTwo
	Authenticated
	Idle
	StatementActive
	LobActive
	Cancelling
	Closing
	Closed
)

func (s ConnState) String() string {
	switch s {
	case Unstarted:
		return "Unstarted"
	case ConnectSent:
		return "ConnectSent"
	case AcceptReceived:
		return "AcceptReceived"
	case RefuseReceived:
		return "RefuseReceived"
	case ResendRequested:
		return "ResendRequested"
	case ProtocolNegotiating:
		return "ProtocolNegotiating"
	case DataTypesNegotiating:
		return "DataTypesNegotiating"
	case AuthenticatingPhaseOne:
		return "AuthenticatingPhaseOne"
	case AuthenticatingPhaseTwo:
		return "AuthenticatingPhaseTwo"
	case Authenticated:
		return "Authenticated"
	case Idle:
		return "Idle"
	case StatementActive:
		return "StatementActive"
	case LobActive:
		return "LobActive"
	case Cancelling:
		return "Cancelling"
	case Closing:
		return "Closing"
	case Closed:
		return "Closed"
	default:
		return fmt.Sprintf("ConnState(%d)", int(s))
	}
}

// Transport is the duplex byte stream this package consumes. TLS, if
// any, is applied below this interface; the connection state machine
// makes no assumption about it.
type Transport interface {
	io.Reader
	io.Writer
	Close() error
}

// Identity carries the driver-identity strings sent during phase one,
// replacing the teacher's process-global lookups with an explicit
// value supplied by the caller.
type Identity struct {
	Terminal string
	Program  string
	Machine  string
	User     string
	PID      string
}

// Config is the explicit, caller-supplied connection configuration:
// the teacher's sessionconfig.go pattern generalized from an hdb://
// DSN to an Oracle connect descriptor.
type Config struct {
	Username       string
	Password       string
	Token          *auth.TokenCredentials
	Identity       Identity
	SDU            int
	SupportedTypes []TypeCode
	Logger         *slog.Logger
	DriverName     string
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// Connection drives one TNS/TTC session end to end: handshake,
// capability negotiation, authentication, and the request/response
// cycles of statement execution. It is single-threaded: the caller
// must not invoke two operations concurrently.
type Connection struct {
	cfg      Config
	tr       Transport
	framer   *Framer
	caps     Capabilities
	state    ConnState
	ctx      *MessageContext
	cursors  *CursorCache
	pendingFreeLOBs [][]byte
	log      *slog.Logger
}

// DefaultSupportedTypes is the type list advertised during data-type
// negotiation when Config.SupportedTypes is empty.
func DefaultSupportedTypes() []TypeCode {
	return []TypeCode{
		TCVarchar2, TCNumber, TCLong, TCRowID, TCDate, TCRaw, TCLongRaw,
		TCBinaryFloat, TCBinaryDouble, TCCursor, TCClob, TCBlob, TCBfile,
		TCChar, TCTimestamp, TCTimestampTZ, TCIntervalYM, TCIntervalDS,
		TCTimestampLTZ, TCBoolean, TCJSON, TCVector,
	}
}

// Dial performs the full handshake/negotiation/authentication sequence
// over tr and returns a Connection in the Idle state, ready to execute
// statements.
func Dial(tr Transport, connectString string, cfg Config) (*Connection, error) {
	if cfg.SDU == 0 {
		cfg.SDU = DefaultSDU
	}
	if len(cfg.SupportedTypes) == 0 {
		cfg.SupportedTypes = DefaultSupportedTypes()
	}
	if cfg.DriverName == "" {
		cfg.DriverName = "tnscore"
	}
	log := cfg.logger()

	c := &Connection{
		cfg:     cfg,
		tr:      tr,
		state:   Unstarted,
		cursors: NewCursorCache(32),
		log:     log,
	}
	c.framer = NewFramer(tr, tr, cfg.SDU, false, false)

	if err := c.handshake(connectString); err != nil {
		c.state = Closed
		return nil, err
	}
	if err := c.negotiateProtocol(); err != nil {
		c.state = Closed
		return nil, err
	}
	if err := c.negotiateDataTypes(); err != nil {
		c.state = Closed
		return nil, err
	}
	if err := c.authenticate(); err != nil {
		c.state = Closed
		return nil, err
	}
	c.state = Idle
	c.ctx = &MessageContext{Caps: c.caps}
	log.Debug("tnscore: connection established", "sdu", c.caps.RuntimeCaps != nil)
	return c, nil
}

func (c *Connection) handshake(connectString string) error {
	c.state = ConnectSent
	body := EncodeConnect(ConnectParams{
		VersionDesired: 0x0139,
		VersionMin:     0x0133,
		ServiceOptions: 0x0c41,
		SDU:            uint16(c.cfg.SDU),
		TDU:            uint16(c.cfg.SDU),
		ConnectString:  connectString,
	})
	if err := c.framer.WriteControlPacket(PacketConnect, 0, body); err != nil {
		return err
	}
	for {
		pkt, err := c.framer.ReadPacket()
		if err != nil {
			return err
		}
		switch pkt.Type {
		case PacketAccept:
			c.state = AcceptReceived
			return nil
		case PacketResend:
			c.state = ResendRequested
			if err := c.framer.WriteControlPacket(PacketConnect, 0, body); err != nil {
				return err
			}
			c.state = ConnectSent
			continue
		case PacketRefuse:
			c.state = RefuseReceived
			return &ProtocolViolationError{Reason: "server refused connect request"}
		default:
			return &ProtocolViolationError{Reason: fmt.Sprintf("unexpected packet %s during handshake", pkt.Type)}
		}
	}
}

func (c *Connection) negotiateProtocol() error {
	c.state = ProtocolNegotiating
	if err := c.sendMessage(EncodeProtocol(c.cfg.DriverName)); err != nil {
		return err
	}
	body, _, err := c.framer.ReadMessage()
	if err != nil {
		return err
	}
	if len(body) == 0 || MessageID(body[0]) != MsgProtocol {
		return &ProtocolViolationError{Reason: "expected Protocol reply"}
	}
	// payload: body[1] is the server's protocol version; the rest (the
	// server banner) is not parsed. The runtime capability vector
	// arrives in the data-types reply instead.
	if len(body) < 2 {
		return &ServerVersionUnsupportedError{}
	}
	c.caps.ProtocolVersion = uint16(body[1])
	if c.caps.ProtocolVersion < 6 {
		return &ServerVersionUnsupportedError{ProtocolVersion: c.caps.ProtocolVersion}
	}
	return nil
}

func (c *Connection) negotiateDataTypes() error {
	c.state = DataTypesNegotiating
	if err := c.sendMessage(EncodeDataTypes(c.cfg.SupportedTypes)); err != nil {
		return err
	}
	body, _, err := c.framer.ReadMessage()
	if err != nil {
		return err
	}
	if len(body) == 0 || MessageID(body[0]) != MsgDataTypes {
		return &ProtocolViolationError{Reason: "expected DataTypes reply"}
	}
	payload := body[1:]
	runtimeLen := 0
	if len(payload) > 0 {
		runtimeLen = int(payload[0])
	}
	if runtimeLen > 0 && len(payload) >= 1+runtimeLen {
		c.caps.RuntimeCaps = append([]byte{}, payload[1:1+runtimeLen]...)
	} else {
		c.caps.RuntimeCaps = NegotiatedCaps(CapEndOfRequest)
	}
	c.framer.SetCapabilities(c.cfg.SDU, c.caps.LargeSDUSupported(), c.caps.EndOfRequestSupported())
	return nil
}

func (c *Connection) authenticate() error {
	c.state = AuthenticatingPhaseOne
	id := c.cfg.Identity
	mode := AuthModeWithPassword
	if c.cfg.Token != nil {
		mode = AuthModeOAuth2Token
	}
	p1 := EncodeAuthPhaseOne(c.cfg.Username, mode, IdentityInfo{
		Terminal: id.Terminal,
		Program:  id.Program,
		Machine:  id.Machine,
		User:     id.User,
		PID:      id.PID,
	})
	if err := c.sendMessage(p1); err != nil {
		return err
	}
	kv, err := c.readAuthParameters()
	if err != nil {
		return err
	}

	c.state = AuthenticatingPhaseTwo
	var p2 []byte
	if c.cfg.Token != nil {
		tr, err := auth.ComputeToken(*c.cfg.Token)
		if err != nil {
			return err
		}
		values := map[string]string{"AUTH_TOKEN": tr.Token}
		if tr.Signature != "" {
			values["AUTH_SIGNATURE"] = tr.Signature
		}
		p2 = EncodeAuthPhaseTwo(values)
	} else {
		challenge, err := parseServerChallenge(kv)
		if err != nil {
			return err
		}
		resp, err := auth.ComputePhaseTwo(auth.Credentials{Username: c.cfg.Username, Password: c.cfg.Password}, challenge)
		if err != nil {
			return err
		}
		values := map[string]string{
			"AUTH_SESSKEY_client": resp.SessKeyClient,
			"AUTH_PASSWORD":       resp.Password,
		}
		if resp.PBKDF2SpeedyKey != "" {
			values["AUTH_PBKDF2_SPEEDY_KEY"] = resp.PBKDF2SpeedyKey
		}
		p2 = EncodeAuthPhaseTwo(values)
	}
	if err := c.sendMessage(p2); err != nil {
		return err
	}
	if _, err := c.readAuthParameters(); err != nil {
		return err
	}
	c.state = Authenticated
	return nil
}

func (c *Connection) readAuthParameters() (map[string]string, error) {
	body, _, err := c.framer.ReadMessage()
	if err != nil {
		return nil, err
	}
	ctx := &MessageContext{Caps: c.caps}
	msg, err := DecodeMessage(body, ctx)
	if err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case *AuthPhaseMessage:
		return m.Values, nil
	case *ParameterMessage:
		return m.Values, nil
	case *ErrorMessage:
		return nil, &AuthenticationError{OraCode: m.Err.Code, Message: m.Err.Message}
	default:
		return nil, &ProtocolViolationError{Reason: "expected auth Parameter reply"}
	}
}

func hexBytes(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil
	}
	return b
}

func parseServerChallenge(kv map[string]string) (auth.ServerChallenge, error) {
	verifier := auth.Verifier11g
	if _, ok := kv["AUTH_PBKDF2_VGEN_COUNT"]; ok {
		verifier = auth.Verifier12c
	}
	ch := auth.ServerChallenge{
		Verifier: verifier,
		VfrData:  hexBytes(kv["AUTH_VFR_DATA"]),
		SessKey:  hexBytes(kv["AUTH_SESSKEY"]),
	}
	fmt.Sscanf(kv["AUTH_PBKDF2_VGEN_COUNT"], "%d", &ch.PBKDF2VGenCount)
	fmt.Sscanf(kv["AUTH_PBKDF2_SDER_COUNT"], "%d", &ch.PBKDF2SderCount)
	ch.PBKDF2CskSalt = hexBytes(kv["AUTH_PBKDF2_CSK_SALT"])
	return ch, nil
}

// sendMessage writes one message as-is, without attaching any queued
// close-cursors/free-LOB piggybacks; sendRequest is the variant that
// attaches them.
func (c *Connection) sendMessage(body []byte) error {
	return c.framer.WriteRequest(body)
}

// sendRequest writes body with any pending piggybacks attached ahead
// of it, then clears the piggyback queues.
func (c *Connection) sendRequest(body []byte) error {
	full := body
	if ids := c.cursors.DrainPendingCloses(); len(ids) > 0 {
		full = append(EncodeCloseCursors(ids), full...)
	}
	if len(c.pendingFreeLOBs) > 0 {
		full = append(EncodeFreeTempLOBs(c.pendingFreeLOBs), full...)
		c.pendingFreeLOBs = nil
	}
	return c.framer.WriteRequest(full)
}

// Ping implements the pool contract's validate operation: a zero-body
// function call with function code 0x93.
func (c *Connection) Ping() error {
	if c.state != Idle {
		return &ProtocolViolationError{Reason: "ping requires an Idle connection"}
	}
	if err := c.sendRequest(EncodePing()); err != nil {
		return err
	}
	_, msg, err := c.readOneMessage()
	if err != nil {
		return err
	}
	if em, ok := msg.(*ErrorMessage); ok {
		return em.Err
	}
	return nil
}

// Commit commits the current transaction.
func (c *Connection) Commit() error { return c.runBareFunction(EncodeCommit()) }

// Rollback rolls back the current transaction.
func (c *Connection) Rollback() error { return c.runBareFunction(EncodeRollback()) }

// SetSchema issues an ALTER SESSION SET CURRENT_SCHEMA.
func (c *Connection) SetSchema(schema string) error {
	return c.runBareFunction(EncodeSetSchema(schema))
}

func (c *Connection) runBareFunction(body []byte) error {
	if c.state != Idle {
		return &ProtocolViolationError{Reason: "connection is not Idle"}
	}
	if err := c.sendRequest(body); err != nil {
		return err
	}
	final, msg, err := c.readOneMessage()
	for !final && err == nil {
		final, msg, err = c.readOneMessage()
	}
	if err != nil {
		return err
	}
	if em, ok := msg.(*ErrorMessage); ok {
		return em.Err
	}
	return nil
}

// Cancel sends an attention Marker, draining any in-flight reply
// without delivering it, and returns the connection to Idle.
func (c *Connection) Cancel() error {
	c.state = Cancelling
	if err := c.framer.WriteControlPacket(PacketMarker, 1, nil); err != nil {
		c.state = Closed
		return err
	}
	for {
		body, final, err := c.framer.ReadMessage()
		if err != nil {
			c.state = Closed
			return err
		}
		ctx := &MessageContext{Caps: c.caps}
		msg, err := DecodeMessage(body, ctx)
		if err == nil {
			if em, ok := msg.(*ErrorMessage); ok && em.Err.Code == 1013 {
				break
			}
		}
		if final {
			break
		}
	}
	c.state = Idle
	return nil
}

// Close sends logoff and releases the transport.
func (c *Connection) Close() error {
	if c.state == Closed {
		return nil
	}
	c.state = Closing
	_ = c.sendRequest(EncodeLogoff())
	c.state = Closed
	return c.tr.Close()
}

// State reports the connection's current lifecycle state.
func (c *Connection) State() ConnState { return c.state }

// readOneMessage reads and decodes exactly one backend message,
// updating ctx as a side effect.
func (c *Connection) readOneMessage() (final bool, msg Message, err error) {
	body, final, err := c.framer.ReadMessage()
	if err != nil {
		return false, nil, err
	}
	msg, err = DecodeMessage(body, c.ctx)
	if err != nil {
		return false, nil, err
	}
	return final, msg, nil
}
