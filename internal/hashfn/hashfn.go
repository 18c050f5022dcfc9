// Package hashfn provides the pluggable hash algorithm C1 depends on: a
// single incremental hasher selected once per deployment (spec §4.1), plus
// the composite string-hashing helper used for directories and symlinks.
package hashfn

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Algorithm names a selectable hash function.
type Algorithm string

const (
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

// Function is the single hash algorithm in effect for this process. Every
// component that fingerprints content (file hasher, symlink hasher,
// directory composer) is constructed with the same Function instance.
type Function interface {
	// NewHasher returns a fresh incremental hasher.
	NewHasher() hash.Hash
	// HashString hashes the UTF-8 bytes of s and returns lowercase hex,
	// per invariants 3 and 4.
	HashString(s string) string
	// Algorithm reports which algorithm this Function implements.
	Algorithm() Algorithm
}

type stdFunction struct {
	alg     Algorithm
	factory func() hash.Hash
}

func (f *stdFunction) NewHasher() hash.Hash { return f.factory() }
func (f *stdFunction) Algorithm() Algorithm { return f.alg }
func (f *stdFunction) HashString(s string) string {
	h := f.factory()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

type blake3Function struct{}

func (blake3Function) NewHasher() hash.Hash { return blake3.New() }
func (blake3Function) Algorithm() Algorithm { return BLAKE3 }
func (blake3Function) HashString(s string) string {
	h := blake3.New()
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

// New constructs the Function for the named algorithm.
func New(alg Algorithm) (Function, error) {
	switch alg {
	case SHA1:
		return &stdFunction{alg: SHA1, factory: func() hash.Hash { return sha1.New() }}, nil
	case SHA256:
		return &stdFunction{alg: SHA256, factory: func() hash.Hash { return sha256.New() }}, nil
	case BLAKE3:
		return blake3Function{}, nil
	default:
		return nil, fmt.Errorf("hashfn: unknown algorithm %q", alg)
	}
}

// Sum hashes a single byte slice in one call, a convenience over NewHasher
// for callers that already hold the full content in memory (e.g. hashing a
// symlink's "path -> target" representation).
func Sum(f Function, b []byte) string {
	h := f.NewHasher()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
