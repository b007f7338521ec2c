// Package random generates obfuscated node identifiers (RFC 7239 section 6.3).
package random

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
)

// ObfuscatedChars is the character set allowed in an obfuscated node or port:
// ALPHA / DIGIT / "." / "_" / "-".
const ObfuscatedChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789._-"

// Source draws characters from a fixed set using crypto/rand.
// It is safe for concurrent use.
type Source struct {
	mu    sync.Mutex
	chars []rune
}

// NewSource creates a source over charSet. An empty charSet selects
// ObfuscatedChars.
func NewSource(charSet string) *Source {
	if charSet == "" {
		charSet = ObfuscatedChars
	}
	return &Source{chars: []rune(charSet)}
}

// Intn returns a uniformly distributed integer in [0, n). It panics if n <= 0.
func (s *Source) Intn(n int) int {
	if n <= 0 {
		panic("invalid argument to Intn")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Rejection sampling keeps the distribution uniform for any n.
	limit := ^uint64(0) - ^uint64(0)%uint64(n)
	var b [8]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic(err) // crypto/rand.Read does not fail on supported platforms
		}
		if v := binary.BigEndian.Uint64(b[:]); v < limit {
			// #nosec G115 -- result is below n, which fits in int
			return int(v % uint64(n))
		}
	}
}

// RandString returns length characters drawn from the source's set.
func (s *Source) RandString(length int) string {
	b := make([]rune, length)
	for i := range b {
		b[i] = s.chars[s.Intn(len(s.chars))]
	}
	return string(b)
}

// Identifier returns an obfuscated node identifier: "_" followed by length
// random characters. It returns an error when length is not positive.
func (s *Source) Identifier(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid identifier length: %d", length)
	}
	return "_" + s.RandString(length), nil
}
