package protocol

// BindDirection identifies which way a bind variable's value flows.
type BindDirection byte

const (
	BindIn BindDirection = iota
	BindOut
	BindInOut
)

// BindMetadata is the type/shape information sent ahead of a bind's
// value(s) on first parse of a statement.
type BindMetadata struct {
	Type        TypeCode
	CharsetForm CharsetForm
	BufferSize  uint32
	MaxArrayLen uint32
	IsArray     bool
	Precision   int8
	Scale       int8
}

// Bind is one parameter of an execute request. Values holds one entry
// per row for an array (batched DML) bind, and exactly one entry
// otherwise. OUT binds carry their metadata up front; Execute does not
// write server-returned values back into Values.
type Bind struct {
	Metadata BindMetadata
	Values   [][]byte
	Direction BindDirection
}
