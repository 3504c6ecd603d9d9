package protocol

import (
	"bytes"
	"math/big"
	"math/rand"
	"testing"

	"github.com/oratns/tnscore/internal/protocol/encoding"
)

func encodeDecodeNumber(t *testing.T, n Number) Number {
	t.Helper()
	var buf bytes.Buffer
	n.Encode(encoding.NewEncoder(&buf))
	d := encoding.NewDecoder(bytes.NewReader(buf.Bytes()))
	got := DecodeNumber(d)
	if d.Error() != nil {
		t.Fatalf("decode: %v", d.Error())
	}
	return got
}

func TestNumberIntegerRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		mag := new(big.Int).Rand(r, new(big.Int).Exp(big.NewInt(10), big.NewInt(38), nil))
		if r.Intn(2) == 0 {
			mag.Neg(mag)
		}
		want := mag
		n := NumberFromBigInt(want)
		got := encodeDecodeNumber(t, n)
		gotInt := got.BigInt()
		if gotInt.Cmp(want) != 0 {
			t.Fatalf("round trip mismatch: want %s, got %s", want, gotInt)
		}
	}
}

func TestNumberZeroRoundTrip(t *testing.T) {
	n := NumberFromBigInt(big.NewInt(0))
	if !n.Zero {
		t.Fatalf("expected Zero flag for 0")
	}
	got := encodeDecodeNumber(t, n)
	if got.BigInt().Sign() != 0 {
		t.Fatalf("expected zero, got %s", got.BigInt())
	}
}

func TestNumberFloat64RoundTrip(t *testing.T) {
	cases := []float64{1.5, -1.5, 3.14159, 1e30, -1e-10, 123456.789}
	for _, f := range cases {
		n, err := NumberFromFloat64(f)
		if err != nil {
			t.Fatalf("NumberFromFloat64(%v): %v", f, err)
		}
		got := encodeDecodeNumber(t, n)
		gf, err := got.Float64()
		if err != nil {
			t.Fatalf("Float64: %v", err)
		}
		if gf != f {
			t.Fatalf("round trip mismatch: want %v, got %v", f, gf)
		}
	}
}

func TestNumberToGoValuePrefersExactInt(t *testing.T) {
	n := NumberFromBigInt(big.NewInt(42))
	v, err := numberToGoValue(n)
	if err != nil {
		t.Fatalf("numberToGoValue: %v", err)
	}
	bi, ok := v.(*big.Int)
	if !ok || bi.Int64() != 42 {
		t.Fatalf("expected *big.Int(42), got %#v", v)
	}
}

func TestNumberToGoValueFallsBackToFloatForFractional(t *testing.T) {
	n, err := NumberFromFloat64(1.5)
	if err != nil {
		t.Fatalf("NumberFromFloat64: %v", err)
	}
	v, err := numberToGoValue(n)
	if err != nil {
		t.Fatalf("numberToGoValue: %v", err)
	}
	f, ok := v.(float64)
	if !ok || f != 1.5 {
		t.Fatalf("expected float64(1.5), got %#v", v)
	}
}
