// Package powerup implements the two assistive abilities: a dictionary
// lookup on the staged word and a robot that suggests a formable word from
// the letter pool. Both carry progressive pricing (the Nth use in a round
// costs 2*N) and a single-use cooldown.
package powerup

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"wordstake/internal/dictionary"
	"wordstake/internal/game"
)

// Ability tuning constants
const (
	RobotMinWordLen    = 3
	RobotMaxWordLen    = 8
	RobotTopCandidates = 5
	DictionaryCooldown = 5 * time.Second
	RobotCooldown      = 10 * time.Second
)

var (
	ErrNoStagedWord        = errors.New("no staged word of at least two letters")
	ErrInsufficientBalance = errors.New("insufficient power-up balance")
	ErrOnCooldown          = errors.New("ability is on cooldown")
	ErrNoCandidate         = errors.New("no eligible word to suggest")
)

// CostOfUse returns the cost of the nth use within a round, 1-indexed.
func CostOfUse(n int) int {
	return 2 * n
}

// PlayerState is a player's power-up wallet plus the round-scoped counters.
// Balances outlive rounds; counters, cooldowns and the suggestion set reset
// with ResetRound. The profile store hands the same pointer to every request
// for an identity, so all mutation happens under mu.
type PlayerState struct {
	mu sync.Mutex

	Identity          string              `json:"identity"`
	DictionaryBalance int                 `json:"dictionaryBalance"`
	RobotBalance      int                 `json:"robotBalance"`
	DictionaryUses    int                 `json:"dictionaryUsesThisRound"`
	RobotUses         int                 `json:"robotUsesThisRound"`
	DictionaryCoolded time.Time           `json:"-"`
	RobotCoolded      time.Time           `json:"-"`
	Suggested         map[string]struct{} `json:"-"`
}

// ResetRound clears everything round-scoped. Balances are untouched.
func (ps *PlayerState) ResetRound() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.DictionaryUses = 0
	ps.RobotUses = 0
	ps.DictionaryCoolded = time.Time{}
	ps.RobotCoolded = time.Time{}
	ps.Suggested = make(map[string]struct{})
}

// Balances returns both balances under the state lock.
func (ps *PlayerState) Balances() (dictionary, robot int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.DictionaryBalance, ps.RobotBalance
}

// DictionaryResult reports a dictionary lookup. The word is not submitted.
type DictionaryResult struct {
	Word  string `json:"word"`
	Valid bool   `json:"valid"`
	Cost  int    `json:"cost"`
}

// RobotResult reports a suggestion and the window it stays visible for.
type RobotResult struct {
	Word      string    `json:"word"`
	Cost      int       `json:"cost"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Economy evaluates ability uses. The clock and random pick are function
// fields so tests can pin them.
type Economy struct {
	oracle  dictionary.Oracle
	now     func() time.Time
	pickIdx func(n int) int
}

// NewEconomy returns an Economy backed by the given oracle.
func NewEconomy(oracle dictionary.Oracle) *Economy {
	return &Economy{
		oracle:  oracle,
		now:     time.Now,
		pickIdx: defaultPick,
	}
}

// UseDictionary checks the staged word against the dictionary. Requires a
// staged word of at least two letters, enough balance for the next cost and
// no active cooldown. On success the balance is debited, the use counter
// increments and the cooldown starts. The word is only checked, never
// submitted.
func (e *Economy) UseDictionary(sess *game.Session, ps *PlayerState) (DictionaryResult, error) {
	staged := sess.StagedWord()
	if len(staged) < game.MinWordLength {
		return DictionaryResult{}, ErrNoStagedWord
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := e.now()
	if now.Before(ps.DictionaryCoolded) {
		return DictionaryResult{}, ErrOnCooldown
	}
	cost := CostOfUse(ps.DictionaryUses + 1)
	if ps.DictionaryBalance < cost {
		return DictionaryResult{}, ErrInsufficientBalance
	}

	ps.DictionaryBalance -= cost
	ps.DictionaryUses++
	ps.DictionaryCoolded = now.Add(DictionaryCooldown)

	valid := e.oracle.Contains(staged)
	log.Info().Str("player", ps.Identity).Str("word", staged).Bool("valid", valid).Int("cost", cost).Msg("dictionary power-up used")
	return DictionaryResult{Word: staged, Valid: valid, Cost: cost}, nil
}

// UseRobot suggests a dictionary word of length 3-8 formable from the pool's
// letter multiset that has been neither suggested nor submitted this round.
// Longer candidates are preferred; the pick is uniform among the five longest
// eligible words. When nothing is eligible the player is not charged.
func (e *Economy) UseRobot(sess *game.Session, ps *PlayerState) (RobotResult, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := e.now()
	if now.Before(ps.RobotCoolded) {
		return RobotResult{}, ErrOnCooldown
	}
	cost := CostOfUse(ps.RobotUses + 1)
	if ps.RobotBalance < cost {
		return RobotResult{}, ErrInsufficientBalance
	}

	if ps.Suggested == nil {
		ps.Suggested = make(map[string]struct{})
	}
	counts := poolCounts(sess)
	submitted := make(map[string]struct{})
	for _, w := range sess.SubmittedWords() {
		submitted[strings.ToUpper(w)] = struct{}{}
	}

	eligible := lo.Filter(e.oracle.Candidates(RobotMinWordLen, RobotMaxWordLen), func(w string, _ int) bool {
		upper := strings.ToUpper(w)
		if _, done := submitted[upper]; done {
			return false
		}
		if _, seen := ps.Suggested[upper]; seen {
			return false
		}
		return formable(upper, counts)
	})
	if len(eligible) == 0 {
		return RobotResult{}, ErrNoCandidate
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		return len(eligible[i]) > len(eligible[j])
	})
	top := eligible
	if len(top) > RobotTopCandidates {
		top = top[:RobotTopCandidates]
	}
	word := strings.ToUpper(top[e.pickIdx(len(top))])

	ps.RobotBalance -= cost
	ps.RobotUses++
	ps.RobotCoolded = now.Add(RobotCooldown)
	ps.Suggested[word] = struct{}{}

	log.Info().Str("player", ps.Identity).Str("word", word).Int("cost", cost).Msg("robot power-up used")
	return RobotResult{Word: word, Cost: cost, ExpiresAt: now.Add(RobotCooldown)}, nil
}

// defaultPick draws a uniform index in [0, n).
func defaultPick(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		log.Warn().Err(err).Msg("crypto/rand failed, using fallback index 0")
		return 0
	}
	return int(v.Int64())
}

// poolCounts builds the letter multiset of the session's pool.
func poolCounts(sess *game.Session) map[rune]int {
	counts := make(map[rune]int)
	for _, tile := range sess.Letters() {
		for _, r := range strings.ToUpper(tile.Letter) {
			counts[r]++
		}
	}
	return counts
}

// formable reports whether word can be spelled from the multiset counts.
func formable(word string, counts map[rune]int) bool {
	need := make(map[rune]int)
	for _, r := range word {
		need[r]++
		if need[r] > counts[r] {
			return false
		}
	}
	return true
}
