package protocol

import "fmt"

// ProtocolViolationError is fatal: the connection is closed.
type ProtocolViolationError struct {
	Reason string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("tnscore: protocol violation: %s", e.Reason)
}

// ServerVersionUnsupportedError is fatal at handshake.
type ServerVersionUnsupportedError struct {
	ProtocolVersion uint16
}

func (e *ServerVersionUnsupportedError) Error() string {
	return fmt.Sprintf("tnscore: server protocol version %d unsupported", e.ProtocolVersion)
}

// AuthenticationError is surfaced to the caller; the connection is
// closed afterwards.
type AuthenticationError struct {
	OraCode int32
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("ORA-%05d: authentication failed: %s", e.OraCode, e.Message)
}

// oraFatalCodes is the known-fatal ORA code set; on
// these the connection transitions to Closed instead of remaining Idle.
var oraFatalCodes = map[int32]bool{
	3113: true,
	3114: true,
	28:   true,
	600:  true,
	1092: true,
}

// OraError is a single server-reported error, carrying enough
// identification (code, position) to locate the offending statement
// without leaking raw server bytes.
type OraError struct {
	Code      int32
	Offset    int32
	Position  int32
	Message   string
	RowID     *RowID
	IsWarning bool
}

func (e *OraError) Error() string {
	return fmt.Sprintf("ORA-%05d: %s", e.Code, e.Message)
}

// Fatal reports whether this error's code forces the connection closed.
func (e *OraError) Fatal() bool { return oraFatalCodes[e.Code] }

// OraErrors aggregates the batch-errors array that a single DML-array
// execute may return, one per failed
// row. It implements Unwrap() []error for errors.As/errors.Is
// composition.
type OraErrors struct {
	Errs []*OraError
}

func (e *OraErrors) Error() string {
	if len(e.Errs) == 1 {
		return e.Errs[0].Error()
	}
	s := ""
	for i, err := range e.Errs {
		if i > 0 {
			s += "; "
		}
		s += err.Error()
	}
	return s
}

// Unwrap exposes the individual errors for errors.As/errors.Is.
func (e *OraErrors) Unwrap() []error {
	errs := make([]error, len(e.Errs))
	for i, err := range e.Errs {
		errs[i] = err
	}
	return errs
}

// Fatal reports whether any contained error forces the connection
// closed.
func (e *OraErrors) Fatal() bool {
	for _, err := range e.Errs {
		if err.Fatal() {
			return true
		}
	}
	return false
}

// OraWarning is a non-fatal server diagnostic. Execute collects one from
// each Warning message, and from each Error message with isWarning set,
// into ExecutionResult.Warnings instead of failing the statement.
type OraWarning struct {
	Code    int32
	Message string
}

// MissingDataError reports that a message body ended before all of its
// fields were read. The decoders return it and callers receive it like
// any other decode error; nothing waits for more bytes on it.
type MissingDataError struct{}

func (e *MissingDataError) Error() string { return "tnscore: missing data" }

// CancelledError is surfaced to the caller; the connection returns to
// Idle.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "tnscore: operation cancelled" }

// TimeoutError is surfaced to the caller; the connection is closed.
type TimeoutError struct{ Op string }

func (e *TimeoutError) Error() string { return fmt.Sprintf("tnscore: timeout during %s", e.Op) }

// UnsupportedTypeError is surfaced when a column or bind uses a type
// code outside the supported set.
type UnsupportedTypeError struct {
	TypeCode byte
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("tnscore: unsupported type code %d", e.TypeCode)
}

// EncodingError represents invalid caller input, e.g. a field name
// longer than a configured maximum. It is not fatal.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string { return fmt.Sprintf("tnscore: encoding error: %s", e.Reason) }
