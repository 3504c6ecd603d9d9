package protocol

import "testing"

func TestRowIDStringParseRoundTrip(t *testing.T) {
	r := RowID{ObjectID: 0x1234ABCD, FileID: 7, BlockID: 0x00112233, SlotID: 42}
	s := r.String()
	if len(s) != 18 {
		t.Fatalf("ROWID string length = %d, want 18", len(s))
	}
	got, err := ParseRowID(s)
	if err != nil {
		t.Fatalf("ParseRowID: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: want %+v, got %+v", r, got)
	}
}

func TestRowIDBinaryRoundTrip(t *testing.T) {
	r := RowID{ObjectID: 1, FileID: 2, BlockID: 3, SlotID: 4}
	got, err := DecodeRowID(EncodeRowID(r))
	if err != nil {
		t.Fatalf("DecodeRowID: %v", err)
	}
	if got != r {
		t.Fatalf("round trip mismatch: want %+v, got %+v", r, got)
	}
}

func TestParseRowIDRejectsWrongLength(t *testing.T) {
	if _, err := ParseRowID("tooshort"); err == nil {
		t.Fatalf("expected error for wrong-length ROWID")
	}
}

func TestDecodeRowIDRejectsWrongLength(t *testing.T) {
	if _, err := DecodeRowID([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for wrong-length binary ROWID")
	}
}
