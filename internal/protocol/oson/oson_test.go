package oson

import "testing"

func nodesEqual(t *testing.T, a, b *Node) {
	t.Helper()
	if a.Kind != b.Kind {
		t.Fatalf("kind mismatch: %v != %v", a.Kind, b.Kind)
	}
	switch a.Kind {
	case KindNull:
	case KindBool:
		if a.Bool != b.Bool {
			t.Fatalf("bool mismatch: %v != %v", a.Bool, b.Bool)
		}
	case KindString:
		if a.Str != b.Str {
			t.Fatalf("string mismatch: %q != %q", a.Str, b.Str)
		}
	case KindInt64:
		if a.Int64 != b.Int64 {
			t.Fatalf("int64 mismatch: %d != %d", a.Int64, b.Int64)
		}
	case KindFloat64:
		if a.Float64 != b.Float64 {
			t.Fatalf("float64 mismatch: %v != %v", a.Float64, b.Float64)
		}
	case KindArray:
		if len(a.Array) != len(b.Array) {
			t.Fatalf("array length mismatch: %d != %d", len(a.Array), len(b.Array))
		}
		for i := range a.Array {
			nodesEqual(t, a.Array[i], b.Array[i])
		}
	case KindObject:
		if len(a.Object) != len(b.Object) {
			t.Fatalf("object size mismatch: %d != %d", len(a.Object), len(b.Object))
		}
		for k, av := range a.Object {
			bv, ok := b.Object[k]
			if !ok {
				t.Fatalf("missing key %q after round trip", k)
			}
			nodesEqual(t, av, bv)
		}
	}
}

func TestRoundTripSimpleDocument(t *testing.T) {
	doc := Object().
		Set("foo", String("bar1")).
		Set("foo2", Int64(123)).
		Set("list", Array(Bool(true), Null(), Float64(1.5)))

	encoded, err := Write(doc)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	decoded, err := Parse(encoded, Capabilities{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	nodesEqual(t, doc, decoded)
}

func TestRoundTripScalarDocument(t *testing.T) {
	encoded, err := Write(String("just a string"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, err := Parse(encoded, Capabilities{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	nodesEqual(t, String("just a string"), decoded)
}

func TestRoundTripManyFieldNames(t *testing.T) {
	// Exercises the 1-byte/2-byte boundary of the hash-ID and field-ID widths (256 names).
	doc := Object()
	for i := 0; i < 256; i++ {
		doc.Set(nthFieldName(i), Int64(int64(i)))
	}
	encoded, err := Write(doc)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	decoded, err := Parse(encoded, Capabilities{})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	nodesEqual(t, doc, decoded)
}

func nthFieldName(i int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	return string(alphabet[i%len(alphabet)]) + string(rune('0'+i/len(alphabet)))
}

func TestUnknownFieldNameIsDefensiveOnly(t *testing.T) {
	// Write always examines the exact tree it encodes, so a caller using
	// the public API can never trigger unknownFieldNameError; this just
	// documents that Write succeeds for a tree built through Set.
	doc := Object().Set("a", Null())
	if _, err := Write(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
