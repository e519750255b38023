package rng

import "golang.org/x/crypto/blake2b"

// SeedFromString derives a 64-bit seed from an arbitrary string, the way
// MapGen turns a human-supplied seed string into the RNG's numeric seed
// (grounded in the teacher's sha256-based hash-to-int64; here using the
// pack's own golang.org/x/crypto for the digest instead of crypto/sha256).
func SeedFromString(s string) uint64 {
	h := blake2b.Sum512([]byte(s))
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(h[i])
	}
	return v
}

// DeriveAttemptSeed mixes a base seed with a regeneration attempt counter,
// used by MapGen to retry with a new, still-deterministic seed when a
// generated map fails the connectivity check (spec.md §7, MapGenFailure).
func DeriveAttemptSeed(base uint64, attempt int) uint64 {
	sm := splitmix64{state: base ^ uint64(attempt)*0x2545F4914F6CDD1D}
	return sm.next()
}
