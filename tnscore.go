// Package tnscore is the public surface of the driver: a thin
// re-export of internal/protocol's connection and statement types, the
// way go-hdb's top-level driver package sits over its internal wire
// code. Callers outside this module see only this package; internal/
// stays free to change shape between releases.
package tnscore

import (
	"github.com/oratns/tnscore/internal/protocol"
	"github.com/oratns/tnscore/internal/protocol/auth"
)

type (
	Connection       = protocol.Connection
	Config           = protocol.Config
	Identity         = protocol.Identity
	Transport        = protocol.Transport
	ConnState        = protocol.ConnState
	ExecOptions      = protocol.ExecOptions
	ExecutionResult  = protocol.ExecutionResult
	RowStream        = protocol.RowStream
	Row              = protocol.Row
	Bind             = protocol.Bind
	BindMetadata     = protocol.BindMetadata
	BindDirection    = protocol.BindDirection
	LOBLocator       = protocol.LOBLocator
	LOBKind          = protocol.LOBKind
	TokenCredentials = auth.TokenCredentials
)

const (
	BindIn    = protocol.BindIn
	BindOut   = protocol.BindOut
	BindInOut = protocol.BindInOut
)

// Dial opens a connection over tr to the service named by
// connectString, running the full TNS/TTC
// handshake, negotiation, and authentication before returning.
func Dial(tr Transport, connectString string, cfg Config) (*Connection, error) {
	return protocol.Dial(tr, connectString, cfg)
}
