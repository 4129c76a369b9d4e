package textutil

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// Fingerprint is a 64-bit SimHash over case- and punctuation-folded words.
// Blocks that differ by a word or two land a few bits apart, so the same
// paragraph rendered twice (mobile and desktop markup) can be detected.
func Fingerprint(text string) uint64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return 0
	}

	var weights [64]int
	h := fnv.New64a()
	for _, w := range words {
		h.Reset()
		h.Write([]byte(w))
		sum := h.Sum64()
		for bit := range 64 {
			if sum>>bit&1 == 1 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}

	var fp uint64
	for bit, w := range weights {
		if w > 0 {
			fp |= 1 << bit
		}
	}
	return fp
}

// Distance is the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether a and b differ in at most threshold bits.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}
