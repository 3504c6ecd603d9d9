// Package charset converts between Go's native UTF-8 strings and the two
// character sets Oracle requires on the wire: AL32UTF8 (session
// charset 873) for VARCHAR2/CHAR/CLOB, and AL16UTF16 (charset 2000) for
// NVARCHAR2/NCHAR/NCLOB. Each direction is exposed as a
// `func() transform.Transformer` factory rather than a single shared,
// non-reentrant Transformer value, so concurrent binds never race over
// internal decoder/encoder state.
package charset

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// AL32UTF8 is a no-op on Go's native encoding: UTF-8 in, UTF-8 out. It
// still participates in the same transform.Transformer pipeline as
// AL16UTF16 so the data-type codec can treat both charset forms
// uniformly by the bind metadata's character-set form.
func AL32UTF8Decoder() transform.Transformer { return transform.Nop }

// AL32UTF8Encoder mirrors AL32UTF8Decoder for the write path.
func AL32UTF8Encoder() transform.Transformer { return transform.Nop }

var al16utf16 = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// AL16UTF16Decoder converts wire bytes in AL16UTF16 (big-endian UTF-16,
// Oracle's NCHAR character set) into UTF-8.
func AL16UTF16Decoder() transform.Transformer { return al16utf16.NewDecoder() }

// AL16UTF16Encoder converts UTF-8 text into AL16UTF16 for NVARCHAR2/
// NCHAR/NCLOB binds.
func AL16UTF16Encoder() transform.Transformer { return al16utf16.NewEncoder() }

// Decode runs b through tr and returns the resulting UTF-8 bytes.
func Decode(tr transform.Transformer, b []byte) ([]byte, error) {
	out, _, err := transform.Bytes(tr, b)
	return out, err
}

// Encode runs UTF-8 text s through tr and returns the wire bytes.
func Encode(tr transform.Transformer, s string) ([]byte, error) {
	out, _, err := transform.Bytes(tr, []byte(s))
	return out, err
}
