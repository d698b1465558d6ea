// Package hash provides the xxHash64 content hashing used to deduplicate columns.
package hash

import "github.com/cespare/xxhash/v2"

// Func hashes a byte slice. Archive builders accept one so tests can force
// collisions.
type Func func(data []byte) uint64

// Bytes computes the xxHash64 of data.
func Bytes(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// String computes the xxHash64 of s.
func String(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Digest accumulates a hash over several writes.
type Digest struct {
	d *xxhash.Digest
}

// NewDigest returns an empty digest.
func NewDigest() Digest {
	return Digest{d: xxhash.New()}
}

// Write adds p to the digest.
func (d Digest) Write(p []byte) {
	_, _ = d.d.Write(p)
}

// Sum64 returns the current hash.
func (d Digest) Sum64() uint64 {
	return d.d.Sum64()
}
