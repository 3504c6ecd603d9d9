package oson

// fieldNameHash assigns each field name a stable 32-bit identifier used
// only for dictionary ordering (sort by the hash's low byte, then name
// length, then bytes). Nothing in the wire format depends on the
// specific hash function, only on the writer and parser agreeing on an
// order, so a plain FNV-1a is enough; it is stdlib because no codec
// library in this project's dependency set offers (or should offer) a
// bespoke string-hash primitive.
func fieldNameHash(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
