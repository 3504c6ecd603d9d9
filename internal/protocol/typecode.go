package protocol

import "fmt"

// TypeCode identifies the wire type of a bind or column value. Naming
// and the "isLob"/"isVariableLength" style helpers follow the pattern
// used throughout this package, generalized to the Oracle type set.
type TypeCode byte

const (
	TCVarchar2      TypeCode = 1
	TCNumber        TypeCode = 2
	TCLong          TypeCode = 8
	TCRowID         TypeCode = 11
	TCDate          TypeCode = 12
	TCRaw           TypeCode = 23
	TCLongRaw       TypeCode = 24
	TCBinaryFloat   TypeCode = 100
	TCBinaryDouble  TypeCode = 101
	TCCursor        TypeCode = 102
	TCClob          TypeCode = 112
	TCBlob          TypeCode = 113
	TCBfile         TypeCode = 114
	TCChar          TypeCode = 96
	TCVarchar       TypeCode = 1 // alias, server sends same code as Varchar2 over wire
	TCNVarchar2     TypeCode = 1
	TCNChar         TypeCode = 96
	TCTimestamp     TypeCode = 180
	TCTimestampTZ   TypeCode = 181
	TCIntervalYM    TypeCode = 182
	TCIntervalDS    TypeCode = 183
	TCTimestampLTZ  TypeCode = 231
	TCBoolean       TypeCode = 252
	TCJSON          TypeCode = 119
	TCVector        TypeCode = 127
)

// DataType is the driver's logical value category, independent of the
// specific wire TypeCode, used for database/sql scanning decisions.
type DataType int

const (
	DTString DataType = iota
	DTNumber
	DTBytes
	DTTime
	DTIntervalDS
	DTIntervalYM
	DTRowID
	DTLob
	DTCursor
	DTJSON
	DTVector
	DTBoolean
)

// DataType maps a wire type code to the logical value category the
// data-type codec (datatype.go) decodes it into.
func (tc TypeCode) DataType() DataType {
	switch tc {
	case TCVarchar2, TCChar, TCLong:
		return DTString
	case TCNumber, TCBinaryFloat, TCBinaryDouble:
		return DTNumber
	case TCRaw, TCLongRaw:
		return DTBytes
	case TCDate, TCTimestamp, TCTimestampTZ, TCTimestampLTZ:
		return DTTime
	case TCIntervalDS:
		return DTIntervalDS
	case TCIntervalYM:
		return DTIntervalYM
	case TCRowID:
		return DTRowID
	case TCClob, TCBlob, TCBfile:
		return DTLob
	case TCCursor:
		return DTCursor
	case TCJSON:
		return DTJSON
	case TCVector:
		return DTVector
	case TCBoolean:
		return DTBoolean
	default:
		panic(fmt.Sprintf("tnscore: missing DataType mapping for type code %d", tc))
	}
}

// IsLob reports whether tc identifies a LOB-family type.
func (tc TypeCode) IsLob() bool {
	return tc == TCClob || tc == TCBlob || tc == TCBfile
}

// IsLong reports whether tc identifies a LONG/LONG RAW piecewise type,
// which streams like a LOB on the wire even though it is not one.
func (tc TypeCode) IsLong() bool { return tc == TCLong || tc == TCLongRaw }

// String implements fmt.Stringer for diagnostics and trace logging.
func (tc TypeCode) String() string {
	switch tc {
	case TCVarchar2:
		return "VARCHAR2"
	case TCNumber:
		return "NUMBER"
	case TCLong:
		return "LONG"
	case TCRowID:
		return "ROWID"
	case TCDate:
		return "DATE"
	case TCRaw:
		return "RAW"
	case TCLongRaw:
		return "LONG RAW"
	case TCBinaryFloat:
		return "BINARY_FLOAT"
	case TCBinaryDouble:
		return "BINARY_DOUBLE"
	case TCCursor:
		return "CURSOR"
	case TCClob:
		return "CLOB"
	case TCBlob:
		return "BLOB"
	case TCBfile:
		return "BFILE"
	case TCChar:
		return "CHAR"
	case TCTimestamp:
		return "TIMESTAMP"
	case TCTimestampTZ:
		return "TIMESTAMP WITH TIME ZONE"
	case TCTimestampLTZ:
		return "TIMESTAMP WITH LOCAL TIME ZONE"
	case TCIntervalYM:
		return "INTERVAL YEAR TO MONTH"
	case TCIntervalDS:
		return "INTERVAL DAY TO SECOND"
	case TCBoolean:
		return "BOOLEAN"
	case TCJSON:
		return "JSON"
	case TCVector:
		return "VECTOR"
	default:
		return fmt.Sprintf("TypeCode(%d)", byte(tc))
	}
}

// CharsetForm distinguishes the character-set form of string-like
// columns/binds.
type CharsetForm byte

const (
	CSFormImplicit CharsetForm = 1 // AL32UTF8 (873)
	CSFormNChar    CharsetForm = 2 // AL16UTF16 (2000)
)
