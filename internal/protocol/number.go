package protocol

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

// Number is the driver's in-memory representation of an Oracle NUMBER:
// a sign, a sequence of base-100 mantissa digits (most significant
// first, each in 0..99) and the base-100 exponent of the leading digit,
// so that the represented value is
//
//	sign * sum(digits[i] * 100^(exp-i))  for i in 0..len(digits)-1
//
// This uses a base-100 mantissa plus a biased exponent so the
// on-the-wire biasing is applied only in encode/decode.
type Number struct {
	Negative bool
	Zero     bool
	Exp      int16
	Digits   []byte
}

const numberExpBias = 16384

// DecodeNumber reads a Number from the wire (flags byte, optional biased
// exponent and digit count/digits).
func DecodeNumber(d *encoding.Decoder) Number {
	flags := d.Byte()
	var n Number
	n.Negative = flags&0x01 != 0
	n.Zero = flags&0x02 != 0
	if n.Zero || d.Error() != nil {
		return n
	}
	n.Exp = int16(int(d.Uint16BE()) - numberExpBias)
	cnt := int(d.Byte())
	n.Digits = make([]byte, cnt)
	for i := range n.Digits {
		n.Digits[i] = d.Byte()
	}
	return n
}

// Encode writes n to the wire.
func (n Number) Encode(e *encoding.Encoder) {
	var flags byte
	if n.Negative {
		flags |= 0x01
	}
	if n.Zero {
		flags |= 0x02
	}
	e.Byte(flags)
	if n.Zero {
		return
	}
	e.Uint16BE(uint16(int(n.Exp) + numberExpBias))
	e.Byte(byte(len(n.Digits)))
	e.Bytes(n.Digits)
}

// NumberFromBigInt converts an arbitrary-precision integer to a Number.
// It is lossless for all values in the representable range of a NUMBER,
// roughly [-1e126, 1e126].
func NumberFromBigInt(v *big.Int) Number {
	if v.Sign() == 0 {
		return Number{Zero: true}
	}
	neg := v.Sign() < 0
	mag := new(big.Int).Abs(v)
	digits, exp := base100Digits(mag, 0)
	return Number{Negative: neg, Exp: int16(exp), Digits: digits}
}

// BigInt reconstructs the exact integer value of n. It panics if n
// represents a non-integral value (negative effective decimal exponent);
// callers that may hold fractional NUMBERs must use Float64 instead.
func (n Number) BigInt() *big.Int {
	if n.Zero {
		return big.NewInt(0)
	}
	mantissa, decExp := n.decimalMantissa()
	if decExp < 0 {
		panic("tnscore: NUMBER has fractional value, cannot represent as integer")
	}
	if decExp > 0 {
		mantissa = new(big.Int).Mul(mantissa, pow10(decExp))
	}
	if n.Negative {
		mantissa.Neg(mantissa)
	}
	return mantissa
}

// Float64 reconstructs n as the nearest float64, exact whenever n was
// produced by NumberFromFloat64 for a value that fits a float64.
func (n Number) Float64() (float64, error) {
	if n.Zero {
		return 0, nil
	}
	mantissa, decExp := n.decimalMantissa()
	s := mantissa.String()
	if n.Negative {
		s = "-" + s
	}
	s += "e" + strconv.Itoa(decExp)
	return strconv.ParseFloat(s, 64)
}

// NumberFromFloat64 converts f to a Number using Go's shortest
// round-trip decimal representation, so Float64(NumberFromFloat64(f)) == f.
func NumberFromFloat64(f float64) (Number, error) {
	if f == 0 {
		return Number{Zero: true}, nil
	}
	neg := f < 0
	if neg {
		f = -f
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissaPart, expPart, ok := strings.Cut(s, "e")
	if !ok {
		return Number{}, fmt.Errorf("tnscore: unexpected float format %q", s)
	}
	mantissaPart = strings.Replace(mantissaPart, ".", "", 1)
	pointExp, err := strconv.Atoi(expPart)
	if err != nil {
		return Number{}, err
	}
	// mantissaPart digit i has decimal place value 10^(pointExp-i)
	digitsBig, ok := new(big.Int).SetString(mantissaPart, 10)
	if !ok {
		return Number{}, fmt.Errorf("tnscore: invalid mantissa %q", mantissaPart)
	}
	exp10 := pointExp - (len(mantissaPart) - 1)
	digits, exp := base100Digits(digitsBig, exp10)
	return Number{Negative: neg, Exp: int16(exp), Digits: digits}, nil
}

// base100Digits converts the integer value digitsBig * 10^exp10 into
// normalized base-100 digits (most significant first, leading digit
// non-zero) plus the base-100 exponent of the leading digit.
func base100Digits(digitsBig *big.Int, exp10 int) ([]byte, int) {
	p := 0
	if ((exp10 % 2) + 2) % 2 != 0 {
		p = 1
	}
	scaled := new(big.Int).Set(digitsBig)
	if p != 0 {
		scaled.Mul(scaled, pow10(p))
	}
	effExp := (exp10 - p) / 2

	var rev []byte
	hundred := big.NewInt(100)
	n := new(big.Int).Set(scaled)
	if n.Sign() == 0 {
		rev = []byte{0}
	}
	m := new(big.Int)
	for n.Sign() > 0 {
		n.DivMod(n, hundred, m)
		rev = append(rev, byte(m.Int64()))
	}
	digits := make([]byte, len(rev))
	for i, b := range rev {
		digits[len(rev)-1-i] = b
	}
	groupExp := effExp + (len(digits) - 1)
	return digits, groupExp
}

// decimalMantissa returns (mantissa, decExp) such that the unsigned
// magnitude of n equals mantissa * 10^decExp.
func (n Number) decimalMantissa() (*big.Int, int) {
	mantissa := new(big.Int)
	for _, d := range n.Digits {
		mantissa.Mul(mantissa, big.NewInt(100))
		mantissa.Add(mantissa, big.NewInt(int64(d)))
	}
	decExp := 2 * (int(n.Exp) - (len(n.Digits) - 1))
	return mantissa, decExp
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
