package project

import (
	"crypto/sha256"
)

// Digest is a fixed 256-bit content hash.
type Digest [32]byte

// HashBytes digests raw file content.
func HashBytes(content []byte) Digest {
	return sha256.Sum256(content)
}

// Combine builds an aggregate hash: H(content || part1 || part2 ...).
// The part order must be deterministic.
func Combine(content Digest, parts ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range parts {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
