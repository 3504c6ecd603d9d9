package protocol

// defaultLOBChunkSize bounds how much a single LOB write batches into
// one lobOp request; TNS_MAX_LONG_LENGTH on the wire is far larger.
// A 64 KiB request is larger than the default SDU, so the Framer
// splits each one into SDU-sized Data packets.
const defaultLOBChunkSize = 1 << 16

// ReadLOB streams amount bytes of loc starting at offset, issuing one
// lobOp(read) round-trip and returning the chunk the server replies
// with (which may be shorter than amount at end of LOB).
func (c *Connection) ReadLOB(loc LOBLocator, offset, amount uint64) ([]byte, bool, error) {
	if c.state != Idle {
		return nil, false, &ProtocolViolationError{Reason: "LOB read requires an Idle connection"}
	}
	c.state = LobActive
	c.ctx.LOBOp = &LOBOpContext{Op: LOBOpRead, Locator: loc, Offset: offset, Amount: amount}
	if err := c.sendRequest(EncodeLOBOp(LOBOpRead, loc.Bytes, offset, amount, nil)); err != nil {
		c.state = Closed
		return nil, false, err
	}
	var chunk []byte
	var isLast bool
	for {
		final, msg, err := c.readOneMessage()
		if err != nil {
			c.state = Closed
			return nil, false, err
		}
		switch m := msg.(type) {
		case *LOBDataMessage:
			chunk = append(chunk, m.Chunk...)
			isLast = m.IsLast
		case *ErrorMessage:
			c.state = Idle
			return nil, false, m.Err
		}
		if final || msg.MessageKind() == MsgStatus || isLast {
			break
		}
	}
	c.state = Idle
	return chunk, isLast, nil
}

// WriteLOB writes data to loc at offset, splitting into
// defaultLOBChunkSize pieces, one lobOp(write) request per piece.
func (c *Connection) WriteLOB(loc LOBLocator, offset uint64, data []byte) error {
	if c.state != Idle {
		return &ProtocolViolationError{Reason: "LOB write requires an Idle connection"}
	}
	for len(data) > 0 {
		n := len(data)
		if n > defaultLOBChunkSize {
			n = defaultLOBChunkSize
		}
		piece := data[:n]
		data = data[n:]
		c.state = LobActive
		if err := c.sendRequest(EncodeLOBOp(LOBOpWrite, loc.Bytes, offset, uint64(n), piece)); err != nil {
			c.state = Closed
			return err
		}
		offset += uint64(n)
		if err := c.drainBareLOBReply(); err != nil {
			return err
		}
	}
	c.state = Idle
	return nil
}

// CreateTemporaryLOB allocates a server-side temporary LOB of the
// given kind, counted into the free-temp-LOBs piggyback on release.
func (c *Connection) CreateTemporaryLOB(kind LOBKind, form CharsetForm) (LOBLocator, error) {
	if c.state != Idle {
		return LOBLocator{}, &ProtocolViolationError{Reason: "LOB create requires an Idle connection"}
	}
	c.state = LobActive
	if err := c.sendRequest(EncodeLOBOp(LOBOpCreateTemporary, nil, 0, uint64(kind), nil)); err != nil {
		c.state = Closed
		return LOBLocator{}, err
	}
	var loc LOBLocator
	for {
		final, msg, err := c.readOneMessage()
		if err != nil {
			c.state = Closed
			return LOBLocator{}, err
		}
		switch m := msg.(type) {
		case *LOBDataMessage:
			loc = LOBLocator{Bytes: m.Locator, Kind: kind, CharsetForm: form, Temporary: true}
		case *ErrorMessage:
			c.state = Idle
			return LOBLocator{}, m.Err
		}
		if final || msg.MessageKind() == MsgStatus {
			break
		}
	}
	c.state = Idle
	return loc, nil
}

// FreeTemporaryLOB queues loc for the free-temp-LOBs piggyback sent on
// the next outbound request, rather than spending a round-trip on it
// immediately.
func (c *Connection) FreeTemporaryLOB(loc LOBLocator) {
	c.pendingFreeLOBs = append(c.pendingFreeLOBs, loc.Bytes)
}

func (c *Connection) drainBareLOBReply() error {
	for {
		final, msg, err := c.readOneMessage()
		if err != nil {
			c.state = Closed
			return err
		}
		if em, ok := msg.(*ErrorMessage); ok {
			c.state = Idle
			return em.Err
		}
		if final || msg.MessageKind() == MsgStatus {
			return nil
		}
	}
}
