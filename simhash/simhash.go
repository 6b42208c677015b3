// Package simhash fingerprints page content so near-identical pages served
// under different URLs can be recognised.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"sync"
	"unicode"
)

// Fingerprint computes a 64-bit SimHash of text. Tokens are lower-cased
// letter and digit runs, so markup punctuation does not move the hash.
func Fingerprint(text string) uint64 {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return 0
	}

	var vector [64]int
	h := fnv.New64a()
	for _, tok := range tokens {
		h.Reset()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		for i := range 64 {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i, v := range vector {
		if v > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance is the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Set remembers fingerprints and reports near duplicates. It is safe for
// concurrent use.
type Set struct {
	mu        sync.Mutex
	threshold int
	prints    []uint64
}

// NewSet creates a Set treating fingerprints within threshold bits as
// duplicates.
func NewSet(threshold int) *Set {
	return &Set{threshold: threshold}
}

// Seen reports whether text is within the threshold of a remembered
// fingerprint, and remembers it when it is not. Empty text is never a
// duplicate.
func (s *Set) Seen(text string) bool {
	fp := Fingerprint(text)
	if fp == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prints {
		if Distance(p, fp) <= s.threshold {
			return true
		}
	}
	s.prints = append(s.prints, fp)
	return false
}
