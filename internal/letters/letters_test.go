package letters

import (
	"strings"
	"testing"
)

const (
	TestWordWords = "words"
	TestWordQuiz  = "quiz"
	TestWordEmpty = ""
)

// TestWordScore checks the per-letter point table sums.
func TestWordScore(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{TestWordWords, 8}, // w3 o1 r1 d2 s1
		{"WORDS", 8},       // case-insensitive
		{TestWordQuiz, 18}, // q8 u1 i1 z8
		{"at", 2},
		{TestWordEmpty, 0},
		{"x9!", 8}, // non-letters score zero
	}
	for _, tt := range tests {
		if got := WordScore(tt.word); got != tt.want {
			t.Errorf("WordScore(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

// TestPoints checks single-letter lookups across both cases.
func TestPoints(t *testing.T) {
	tests := []struct {
		letter rune
		want   int
	}{
		{'a', 1},
		{'A', 1},
		{'w', 3},
		{'z', 8},
		{'?', 0},
	}
	for _, tt := range tests {
		if got := Points(tt.letter); got != tt.want {
			t.Errorf("Points(%q) = %d, want %d", tt.letter, got, tt.want)
		}
	}
}

// TestGeneratePoolShape checks size, index assignment and the minimum vowel
// guarantee across many draws.
func TestGeneratePoolShape(t *testing.T) {
	for range 50 {
		tiles := Generate(DefaultPoolSize, DefaultMinVowels)
		if len(tiles) != DefaultPoolSize {
			t.Fatalf("pool size = %d, want %d", len(tiles), DefaultPoolSize)
		}
		vowelCount := 0
		for i, tile := range tiles {
			if tile.Index != i {
				t.Errorf("tile %d has index %d", i, tile.Index)
			}
			if len(tile.Letter) != 1 {
				t.Errorf("tile %d letter %q is not a single character", i, tile.Letter)
			}
			if strings.Contains(vowels, tile.Letter) {
				vowelCount++
			} else if !strings.Contains(consonants, tile.Letter) {
				t.Errorf("tile %d letter %q outside both letter sets", i, tile.Letter)
			}
		}
		if vowelCount < DefaultMinVowels {
			t.Errorf("pool has %d vowels, want at least %d", vowelCount, DefaultMinVowels)
		}
	}
}

// TestGenerateDeterministic pins the random source and checks the draw and
// shuffle order exactly.
func TestGenerateDeterministic(t *testing.T) {
	orig := randInt
	defer func() { randInt = orig }()
	randInt = func(n int) int { return 0 }

	tiles := Generate(4, 2)
	// Two vowels "A","A" then two consonants "B","B"; a zero-source
	// Fisher-Yates rotates the sequence.
	if len(tiles) != 4 {
		t.Fatalf("pool size = %d, want 4", len(tiles))
	}
	letterCounts := map[string]int{}
	for _, tile := range tiles {
		letterCounts[tile.Letter]++
	}
	if letterCounts["A"] != 2 || letterCounts["B"] != 2 {
		t.Errorf("unexpected letters: %v", letterCounts)
	}
}

// TestGenerateDefaults checks out-of-range arguments fall back.
func TestGenerateDefaults(t *testing.T) {
	tests := []struct {
		size, minVowels int
		wantSize        int
	}{
		{0, 2, DefaultPoolSize},
		{-3, 2, DefaultPoolSize},
		{6, -1, 6},
		{6, 9, 6},
	}
	for _, tt := range tests {
		tiles := Generate(tt.size, tt.minVowels)
		if len(tiles) != tt.wantSize {
			t.Errorf("Generate(%d, %d) returned %d tiles, want %d",
				tt.size, tt.minVowels, len(tiles), tt.wantSize)
		}
	}
}
