package protocol

import (
	"fmt"
	"io"

	"github.com/oratns/tnscore/internal/arena"
)

// ExecOptions bundles the caller-supplied knobs that influence how an
// execute request and its subsequent fetches are shaped.
type ExecOptions struct {
	PrefetchRows      int
	ArraySize         int
	AutoCommit        bool
	BatchErrors       bool
	ArrayDMLRowCounts bool
	FetchLOBs         bool
}

func (o ExecOptions) normalized() ExecOptions {
	if o.ArraySize <= 0 {
		o.ArraySize = 100
	}
	if o.PrefetchRows < 0 {
		o.PrefetchRows = 0
	}
	return o
}

// ExecutionResult is returned for DML/DDL/PLSQL executes: no row
// stream, just the affected-row count and any warnings. Execute does
// not fill in OutBinds or ImplicitCursors; both stay empty.
type ExecutionResult struct {
	RowsAffected    uint64
	OutBinds        []Bind
	ImplicitCursors []uint16
	warnings        []*OraWarning
}

// Warnings returns the non-fatal server diagnostics collected while
// this statement executed.
func (r *ExecutionResult) Warnings() []*OraWarning { return r.warnings }

// Row is one fetched row, holding its column values decoded from the
// wire's flat DataRow buffer plus any bit-vector-resolved repeats.
type Row struct {
	values   [][]byte
	nulls    []bool
	describe *DescribeInfo
	caps     Capabilities
}

// Column returns the raw wire bytes for column i (0-based) and whether
// it is NULL. Value decodes the same column into its typed Go form.
func (r *Row) Column(i int) ([]byte, bool) {
	if i < 0 || i >= len(r.values) {
		return nil, true
	}
	return r.values[i], r.nulls[i]
}

// Value decodes column i into the Go value appropriate for its wire
// TypeCode, dispatching through DecodeColumnValue against this row's
// DescribeInfo. It returns (nil, nil) for a NULL column.
func (r *Row) Value(i int) (any, error) {
	raw, isNull := r.Column(i)
	if isNull {
		return nil, nil
	}
	if r.describe == nil || i < 0 || i >= len(r.describe.Columns) {
		return nil, fmt.Errorf("tnscore: column %d has no type metadata", i)
	}
	return DecodeColumnValue(r.describe.Columns[i], raw, r.caps)
}

// NumColumns reports how many columns this row carries.
func (r *Row) NumColumns() int { return len(r.values) }

// RowStream is the lazy, server-emission-ordered iterator over a
// query's results. Prefetched rows fill an internal buffer eagerly;
// once drained, Next issues further Fetch round-trips of ArraySize
// rows until the server signals end of fetch.
type RowStream struct {
	conn      *Connection
	handle    arena.Handle
	cursorID  uint16
	describe  *DescribeInfo
	opts      ExecOptions
	buffered  []*Row
	pos       int
	exhausted bool
	prevRow   *Row
	closed    bool
}

// Describe returns the column metadata for this stream's result set.
func (s *RowStream) Describe() *DescribeInfo { return s.describe }

// Next returns the next row, or (nil, io.EOF) once the cursor is
// exhausted.
func (s *RowStream) Next() (*Row, error) {
	if s.closed {
		return nil, io.EOF
	}
	if s.pos >= len(s.buffered) {
		if s.exhausted {
			_ = s.Close()
			return nil, io.EOF
		}
		if err := s.fetchMore(); err != nil {
			return nil, err
		}
		if s.pos >= len(s.buffered) {
			_ = s.Close()
			return nil, io.EOF
		}
	}
	row := s.buffered[s.pos]
	s.pos++
	s.prevRow = row
	return row, nil
}

func (s *RowStream) fetchMore() error {
	s.buffered = s.buffered[:0]
	s.pos = 0
	if err := s.conn.sendRequest(EncodeFetch(s.cursorID, uint32(s.opts.ArraySize))); err != nil {
		return err
	}
	return s.conn.drainFetchReplies(s)
}

// appendRow decodes one RowData fragment into a Row, resolving any
// bit-vector-flagged duplicate columns against the previous row.
func (s *RowStream) appendRow(raw []byte, bits BitVector) {
	iter := NewDataRow(raw).Iter()
	n := len(s.describe.Columns)
	row := &Row{values: make([][]byte, n), nulls: make([]bool, n), describe: s.describe, caps: s.conn.caps}
	for i := 0; i < n; i++ {
		if bits.Duplicate(i) && s.prevRow != nil {
			row.values[i] = s.prevRow.values[i]
			row.nulls[i] = s.prevRow.nulls[i]
			continue
		}
		v, isNull, ok := iter.Next()
		if !ok {
			break
		}
		row.values[i] = v
		row.nulls[i] = isNull
	}
	s.buffered = append(s.buffered, row)
	s.prevRow = row
}

// Cancel sends an attention Marker, drains the in-flight fetch without
// delivering further rows, and returns the connection to Idle.
func (s *RowStream) Cancel() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.exhausted = true
	return s.conn.Cancel()
}

// Close releases this stream's cursor, queuing it for the
// close-cursors piggyback on the next outbound request, and returns
// the connection to Idle.
func (s *RowStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.conn.cursors.Evict(s.handle)
	if s.conn.state == StatementActive {
		s.conn.state = Idle
	}
	return nil
}

// Execute runs sql with the given binds and options. DML/DDL/PLSQL
// statements return a non-nil *ExecutionResult and a nil *RowStream;
// queries return a nil *ExecutionResult and a non-nil *RowStream.
func (c *Connection) Execute(sql string, binds []Bind, opts ExecOptions) (*ExecutionResult, *RowStream, error) {
	if c.state != Idle {
		return nil, nil, &ProtocolViolationError{Reason: "execute requires an Idle connection"}
	}
	opts = opts.normalized()
	c.state = StatementActive

	cur, handle, hit := c.cursors.Lookup(sql)
	var reqBody []byte
	execOpt := ExecExecute | ExecDescribe
	if opts.PrefetchRows > 0 {
		execOpt |= ExecFetch
	}
	if opts.BatchErrors {
		execOpt |= ExecBatchErrors
	}
	if len(binds) > 0 && len(binds[0].Values) > 1 {
		execOpt |= ExecArrayDML
	}

	if hit {
		reqBody = EncodeReExecute(cur.ID, binds, execOpt)
	} else {
		execOpt |= ExecParse
		reqBody = EncodeExecute(ExecuteParams{
			Options:  execOpt,
			CursorID: 0,
			SQLText:  sql,
			Binds:    binds,
			RowCount: uint32(opts.PrefetchRows),
		})
	}

	if err := c.sendRequest(reqBody); err != nil {
		c.state = Closed
		return nil, nil, err
	}

	result := &ExecutionResult{}
	var describe *DescribeInfo
	var cursorID uint16
	var bits BitVector
	var prefetched []*Row
	var endOfFetch bool

	for {
		final, msg, err := c.readOneMessage()
		if err != nil {
			c.state = Closed
			return nil, nil, err
		}
		switch m := msg.(type) {
		case *DescribeInfoMessage:
			describe = m.Info
		case *BitVectorMessage:
			bits = m.Bits
		case *RowDataMessage:
			if describe != nil {
				prefetched = append(prefetched, decodeOneRow(describe, bits, prefetched, m.Raw, c.caps))
				bits = BitVector{}
			}
		case *StatusMessage:
			result.RowsAffected = m.RowsAffected
			endOfFetch = m.EndOfFetch
			if m.CursorID != 0 {
				cursorID = m.CursorID
			}
		case *WarningMessage:
			result.warnings = append(result.warnings, m.Warning)
		case *ErrorMessage:
			if m.Err.IsWarning {
				result.warnings = append(result.warnings, &OraWarning{Code: m.Err.Code, Message: m.Err.Message})
				break
			}
			c.cursors.Evict(handle)
			if m.Err.Fatal() {
				c.state = Closed
			} else {
				c.state = Idle
			}
			return nil, nil, m.Err
		}
		// Status always ends the logical request in this design, whether
		// or not the end-of-request packet flag was negotiated.
		if final || msg.MessageKind() == MsgStatus {
			break
		}
	}

	if !hit {
		handle = c.cursors.Insert(sql, Cursor{ID: cursorID, SQLText: sql, Describe: describe})
	} else {
		cursorID = cur.ID
		_ = c.cursors.Update(handle, Cursor{ID: cursorID, SQLText: sql, Describe: describe})
	}

	if describe == nil || len(describe.Columns) == 0 {
		c.state = Idle
		return result, nil, nil
	}

	stream := &RowStream{
		conn:      c,
		handle:    handle,
		cursorID:  cursorID,
		describe:  describe,
		opts:      opts,
		buffered:  prefetched,
		exhausted: endOfFetch,
	}
	return nil, stream, nil
}

// decodeOneRow is the free-function form of RowStream.appendRow used
// during the initial execute's prefetch, before a RowStream exists to
// track prevRow itself.
func decodeOneRow(describe *DescribeInfo, bits BitVector, prior []*Row, raw []byte, caps Capabilities) *Row {
	var prev *Row
	if len(prior) > 0 {
		prev = prior[len(prior)-1]
	}
	iter := NewDataRow(raw).Iter()
	n := len(describe.Columns)
	row := &Row{values: make([][]byte, n), nulls: make([]bool, n), describe: describe, caps: caps}
	for i := 0; i < n; i++ {
		if bits.Duplicate(i) && prev != nil {
			row.values[i] = prev.values[i]
			row.nulls[i] = prev.nulls[i]
			continue
		}
		v, isNull, ok := iter.Next()
		if !ok {
			break
		}
		row.values[i] = v
		row.nulls[i] = isNull
	}
	return row
}

// drainFetchReplies reads messages for a Fetch round-trip, appending
// rows to stream and recording whether the cursor is now exhausted.
func (c *Connection) drainFetchReplies(stream *RowStream) error {
	var bits BitVector
	for {
		final, msg, err := c.readOneMessage()
		if err != nil {
			c.state = Closed
			return err
		}
		switch m := msg.(type) {
		case *BitVectorMessage:
			bits = m.Bits
		case *RowDataMessage:
			stream.appendRow(m.Raw, bits)
			bits = BitVector{}
		case *StatusMessage:
			stream.exhausted = m.EndOfFetch
		case *ErrorMessage:
			c.cursors.Evict(stream.handle)
			if m.Err.Fatal() {
				c.state = Closed
			}
			return m.Err
		}
		if final || msg.MessageKind() == MsgStatus {
			break
		}
	}
	return nil
}
