// Package dictionary provides the word-membership oracle. The game engine
// only ever asks "is this string a word?"; where the words come from is an
// implementation detail behind the Oracle interface.
package dictionary

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Oracle is the membership test the engine depends on. Candidates exists for
// the robot power-up, which needs to scan for words it could suggest.
type Oracle interface {
	Contains(word string) bool
	Candidates(minLen, maxLen int) []string
}

// WordList is the JSON structure of the dictionary file.
type WordList struct {
	Words []string `json:"words"`
}

// Dictionary is a file-backed Oracle. It holds no mutable state after load.
type Dictionary struct {
	words   []string
	wordSet map[string]struct{}
}

// Load reads a word list from a JSON file and normalizes entries to upper
// case. Entries shorter than two letters are skipped; they can never be
// submitted.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var wl WordList
	if err := json.Unmarshal(data, &wl); err != nil {
		return nil, err
	}
	return New(wl.Words), nil
}

// New builds a Dictionary from a word slice. Used directly by tests.
func New(words []string) *Dictionary {
	normalized := lo.FilterMap(words, func(w string, _ int) (string, bool) {
		w = strings.ToUpper(strings.TrimSpace(w))
		return w, len(w) >= 2
	})
	normalized = lo.Uniq(normalized)
	set := make(map[string]struct{}, len(normalized))
	lo.ForEach(normalized, func(w string, _ int) {
		set[w] = struct{}{}
	})
	log.Info().Int("words", len(normalized)).Msg("dictionary loaded")
	return &Dictionary{words: normalized, wordSet: set}
}

// Contains reports case-insensitive membership.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.wordSet[strings.ToUpper(word)]
	return ok
}

// Candidates returns every word whose length is within [minLen, maxLen].
func (d *Dictionary) Candidates(minLen, maxLen int) []string {
	return lo.Filter(d.words, func(w string, _ int) bool {
		return len(w) >= minLen && len(w) <= maxLen
	})
}

// IsDuplicate reports whether word was already submitted this round. A pure
// predicate over the session's submitted set; the caller owns the set.
func IsDuplicate(word string, submitted map[string]struct{}) bool {
	_, ok := submitted[strings.ToLower(word)]
	return ok
}
