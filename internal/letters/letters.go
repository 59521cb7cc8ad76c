// Package letters produces the fixed-size letter pool for a round and owns
// the per-letter point table used by the scoring engine.
package letters

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/rs/zerolog/log"
)

// Pool configuration constants
const (
	DefaultPoolSize  = 8
	DefaultMinVowels = 2
)

const (
	vowels     = "AEIOU"
	consonants = "BCDFGHJKLMNPQRSTVWXYZ"
)

// Tile is a single letter plus its position in the pool. Index identity
// matters: a physical tile may be used at most once per word even when the
// same letter appears on several tiles.
type Tile struct {
	Letter string `json:"letter"`
	Index  int    `json:"index"`
}

// pointTable maps each letter to its score, 1 for common letters up to 8 for
// the rarest.
var pointTable = map[rune]int{
	'A': 1, 'B': 3, 'C': 3, 'D': 2, 'E': 1, 'F': 4, 'G': 2, 'H': 4,
	'I': 1, 'J': 8, 'K': 5, 'L': 1, 'M': 3, 'N': 1, 'O': 1, 'P': 3,
	'Q': 8, 'R': 1, 'S': 1, 'T': 1, 'U': 1, 'V': 4, 'W': 3, 'X': 8,
	'Y': 4, 'Z': 8,
}

// randInt is a function variable so tests can substitute a deterministic
// source, mirroring how the session file helpers are stubbed elsewhere.
var randInt = func(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		log.Warn().Err(err).Msg("crypto/rand failed, using fallback index 0")
		return 0
	}
	return int(v.Int64())
}

// Points returns the score of a single letter, or 0 for anything outside A-Z.
func Points(r rune) int {
	if r >= 'a' && r <= 'z' {
		r -= 'a' - 'A'
	}
	return pointTable[r]
}

// WordScore returns the sum of letter points for a word, case-insensitive.
func WordScore(word string) int {
	total := 0
	for _, r := range strings.ToUpper(word) {
		total += pointTable[r]
	}
	return total
}

// Generate draws minVowels letters from the vowel set and size-minVowels from
// the consonant set, then applies a Fisher-Yates shuffle and assigns pool
// indexes in the shuffled order.
func Generate(size, minVowels int) []Tile {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if minVowels < 0 || minVowels > size {
		minVowels = DefaultMinVowels
	}

	pool := make([]string, 0, size)
	for range minVowels {
		pool = append(pool, string(vowels[randInt(len(vowels))]))
	}
	for range size - minVowels {
		pool = append(pool, string(consonants[randInt(len(consonants))]))
	}

	for i := len(pool) - 1; i > 0; i-- {
		j := randInt(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}

	tiles := make([]Tile, size)
	for i, letter := range pool {
		tiles[i] = Tile{Letter: letter, Index: i}
	}
	return tiles
}
