// Package hash wraps xxHash64 for value fingerprints.
package hash

import "github.com/cespare/xxhash/v2"

// String computes the xxHash64 of s.
func String(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Bytes computes the xxHash64 of b.
func Bytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// NewDigest returns a streaming xxHash64 digest.
func NewDigest() *xxhash.Digest {
	return xxhash.New()
}

// Unordered folds element hashes into one value that does not depend on the
// order in which they are supplied.
func Unordered(hashes ...uint64) uint64 {
	var sum, xor uint64
	for _, h := range hashes {
		sum += h
		xor ^= h * 0x9e3779b97f4a7c15
	}

	return sum ^ (xor<<31 | xor>>33)
}
