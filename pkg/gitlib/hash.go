// Package gitlib provides the git plumbing used by resume, backed by libgit2.
package gitlib

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	git2go "github.com/libgit2/git2go/v34"
)

// Constants for hash operations.
const (
	// HashSize is the size of a SHA-1 hash in bytes.
	HashSize = 20
	// HashHexSize is the size of a hex-encoded SHA-1 hash.
	HashHexSize = 40
	// HexBase is the base for hexadecimal digits a-f.
	hexBase = 10
	// HexShift is the bit shift for the high nibble.
	hexShift = 4
)

// ErrInvalidHash is returned when a string is not a canonical commit id.
var ErrInvalidHash = errors.New("invalid commit hash")

// Hash represents a git object hash (SHA-1).
type Hash [HashSize]byte

// ZeroHash returns the zero value hash.
func ZeroHash() Hash {
	return Hash{}
}

// NewHash creates a Hash from a hex string without validation.
// Used for testing and initialization.
func NewHash(hexStr string) Hash {
	var hash Hash

	for i := 0; i < HashSize && i*2+1 < len(hexStr); i++ {
		c1, c2 := hexStr[i*2], hexStr[i*2+1]
		hash[i] = hexCharToNibble(c1)<<hexShift | hexCharToNibble(c2)
	}

	return hash
}

// ParseHash decodes the canonical 40 character hex form of a commit id.
func ParseHash(hexStr string) (Hash, error) {
	if len(hexStr) != HashHexSize {
		return Hash{}, fmt.Errorf("%w: %q has length %d", ErrInvalidHash, hexStr, len(hexStr))
	}

	var hash Hash

	_, err := hex.Decode(hash[:], []byte(hexStr))
	if err != nil {
		return Hash{}, fmt.Errorf("%w: %q: %w", ErrInvalidHash, hexStr, err)
	}

	return hash, nil
}

// hexCharToNibble converts a hex character to its 4-bit value.
func hexCharToNibble(char byte) byte {
	switch {
	case char >= '0' && char <= '9':
		return char - '0'
	case char >= 'a' && char <= 'f':
		return char - 'a' + hexBase
	case char >= 'A' && char <= 'F':
		return char - 'A' + hexBase
	default:
		return 0
	}
}

// HashFromOid converts a libgit2 Oid to Hash.
func HashFromOid(oid *git2go.Oid) Hash {
	var h Hash
	copy(h[:], oid[:])

	return h
}

// String returns the hex representation of the hash.
func (h Hash) String() string {
	const hexChars = "0123456789abcdef"

	buf := make([]byte, HashHexSize)

	for i, byteVal := range h {
		buf[i*2] = hexChars[byteVal>>hexShift]
		buf[i*2+1] = hexChars[byteVal&0x0f]
	}

	return string(buf)
}

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// ToOid converts Hash back to libgit2 Oid.
func (h Hash) ToOid() *git2go.Oid {
	oid := new(git2go.Oid)
	copy(oid[:], h[:])

	return oid
}

// HashSet is an unordered set of commit ids.
type HashSet map[Hash]struct{}

// NewHashSet returns a set holding the given hashes.
func NewHashSet(hashes ...Hash) HashSet {
	set := make(HashSet, len(hashes))
	for _, h := range hashes {
		set[h] = struct{}{}
	}

	return set
}

// Add inserts h into the set.
func (s HashSet) Add(h Hash) {
	s[h] = struct{}{}
}

// Contains reports whether h is a member of the set.
func (s HashSet) Contains(h Hash) bool {
	_, ok := s[h]

	return ok
}

// Merge adds every member of other to the set.
func (s HashSet) Merge(other HashSet) {
	for h := range other {
		s[h] = struct{}{}
	}
}

// Clone returns an independent copy of the set.
func (s HashSet) Clone() HashSet {
	out := make(HashSet, len(s))
	out.Merge(s)

	return out
}

// IsSupersetOf reports whether every member of other is in s.
func (s HashSet) IsSupersetOf(other HashSet) bool {
	for h := range other {
		if !s.Contains(h) {
			return false
		}
	}

	return true
}

// Sorted returns the members in ascending byte order.
func (s HashSet) Sorted() []Hash {
	out := make([]Hash, 0, len(s))
	for h := range s {
		out = append(out, h)
	}

	slices.SortFunc(out, func(a, b Hash) int {
		return slices.Compare(a[:], b[:])
	})

	return out
}
