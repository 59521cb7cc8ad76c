// Package game owns the round lifecycle: an explicit state machine that seeds
// the letter pool, ticks the countdown, evaluates submissions and freezes a
// final score report. All session invariants (tile uniqueness, non-negative
// score, duplicate rejection) are enforced here, at the single mutation entry
// point for each transition, never at call sites.
package game

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"wordstake/internal/dictionary"
	"wordstake/internal/letters"
)

// Session status values. These appear verbatim in persisted snapshots.
const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusEnded   = "ended"
)

// Round configuration constants
const (
	MinWordLength   = 2
	InvalidPenalty  = 1
	DefaultDuration = 120 * time.Second
	TickInterval    = time.Second
)

var (
	ErrNotRunning    = errors.New("session is not running")
	ErrTileSelected  = errors.New("tile already selected")
	ErrTileOutOfPool = errors.New("tile index outside letter pool")
)

// FoundWord is one scored entry in a round.
type FoundWord struct {
	Word      string    `json:"word"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidationResult is one entry of the finalize report. Every word that ever
// reaches foundWords is already known-valid, so IsValid is always true and
// the report's InvalidWords list stays empty; the field is kept because the
// report schema carries it.
type ValidationResult struct {
	Word      string    `json:"word"`
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
	IsValid   bool      `json:"isValid"`
}

// Report is the frozen outcome of a finished round.
type Report struct {
	ValidWords     []ValidationResult `json:"validWords"`
	InvalidWords   []ValidationResult `json:"invalidWords"`
	FinalScore     int                `json:"finalScore"`
	TotalSubmitted int                `json:"totalSubmitted"`
}

// Session is a single round of play. All exported methods are safe for
// concurrent use; the tick loop and HTTP handlers share one instance.
type Session struct {
	mu     sync.Mutex
	oracle dictionary.Oracle

	letters     []letters.Tile
	startedAt   time.Time
	duration    time.Duration
	currentWord []int // selected tile indexes, in selection order
	submitted   map[string]struct{}
	found       []FoundWord
	totalScore  int
	status      string
	report      *Report

	tickBusy atomic.Bool
	stopTick chan struct{}
	onEnded  func(*Report)
}

// New returns an idle session backed by the given oracle.
func New(oracle dictionary.Oracle) *Session {
	return &Session{
		oracle:    oracle,
		status:    StatusIdle,
		submitted: make(map[string]struct{}),
	}
}

// OnEnded registers a callback invoked exactly once when the session reaches
// Ended, whether by clock expiry or an explicit end.
func (s *Session) OnEnded(fn func(*Report)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

// Start transitions Idle -> Running: seeds a fresh letter pool, resets every
// round-scoped counter and records the start timestamp. Starting over a
// Running session abandons the old round first.
func (s *Session) Start(duration time.Duration) []letters.Tile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if duration <= 0 {
		duration = DefaultDuration
	}
	s.stopClockLocked()

	s.letters = letters.Generate(letters.DefaultPoolSize, letters.DefaultMinVowels)
	s.startedAt = time.Now()
	s.duration = duration
	s.currentWord = nil
	s.submitted = make(map[string]struct{})
	s.found = nil
	s.totalScore = 0
	s.report = nil
	s.status = StatusRunning

	s.startClockLocked()
	log.Info().Dur("duration", duration).Msg("round started")
	return append([]letters.Tile(nil), s.letters...)
}

// SelectTile stages a tile into the current word buffer. The same pool index
// can never appear twice.
func (s *Session) SelectTile(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return ErrNotRunning
	}
	if index < 0 || index >= len(s.letters) {
		return ErrTileOutOfPool
	}
	for _, sel := range s.currentWord {
		if sel == index {
			return ErrTileSelected
		}
	}
	s.currentWord = append(s.currentWord, index)
	return nil
}

// ClearSelection empties the current word buffer.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentWord = nil
}

// StagedWord returns the word spelled by the current tile selection.
func (s *Session) StagedWord() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stagedWordLocked()
}

func (s *Session) stagedWordLocked() string {
	word := ""
	for _, idx := range s.currentWord {
		word += s.letters[idx].Letter
	}
	return word
}

// Tick reconciles the countdown against the wall clock. When the remaining
// time hits zero the session self-transitions to Ended and finalizes.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return
	}
	if s.remainingLocked(now) > 0 {
		return
	}
	log.Info().Int("score", s.totalScore).Msg("round clock expired, finalizing")
	s.endLocked()
}

// Remaining returns the time left in the round, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return 0
	}
	return s.remainingLocked(now)
}

func (s *Session) remainingLocked(now time.Time) time.Duration {
	remaining := s.duration - now.Sub(s.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Cancel abandons a Running round: Running -> Idle, clock stopped, no report.
// It has no effect on an Idle or Ended session.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return
	}
	s.stopClockLocked()
	s.status = StatusIdle
	s.currentWord = nil
	s.report = nil
	log.Info().Msg("round cancelled")
}

// End finishes a Running round early (explicit end or disconnection):
// Running -> Ended with a finalized report.
func (s *Session) End() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusRunning {
		s.endLocked()
	}
	return s.report
}

func (s *Session) endLocked() {
	s.stopClockLocked()
	s.status = StatusEnded
	s.currentWord = nil
	report := s.finalizeLocked()
	if s.onEnded != nil {
		// Callback runs outside the lock; it may call back into the session.
		fn := s.onEnded
		s.onEnded = nil
		go fn(report)
	}
}

// Finalize builds the score report. Idempotent: a second call returns the
// same report and never double-counts.
func (s *Session) Finalize() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finalizeLocked()
}

func (s *Session) finalizeLocked() *Report {
	if s.report != nil {
		return s.report
	}
	valid := make([]ValidationResult, len(s.found))
	for i, fw := range s.found {
		valid[i] = ValidationResult{
			Word:      fw.Word,
			Score:     fw.Score,
			Timestamp: fw.Timestamp,
			IsValid:   true,
		}
	}
	s.report = &Report{
		ValidWords:     valid,
		InvalidWords:   []ValidationResult{},
		FinalScore:     s.totalScore,
		TotalSubmitted: len(s.submitted),
	}
	return s.report
}

// Status returns the current lifecycle state.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Letters returns a copy of the round's letter pool.
func (s *Session) Letters() []letters.Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]letters.Tile(nil), s.letters...)
}

// CurrentWord returns a copy of the staged tile indexes.
func (s *Session) CurrentWord() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.currentWord...)
}

// SubmittedWords returns the lower-cased words submitted so far.
func (s *Session) SubmittedWords() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	words := make([]string, 0, len(s.submitted))
	for w := range s.submitted {
		words = append(words, w)
	}
	return words
}

// FoundWords returns a copy of the scored entries so far.
func (s *Session) FoundWords() []FoundWord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FoundWord(nil), s.found...)
}

// TotalScore returns the running score, always >= 0.
func (s *Session) TotalScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalScore
}

// Report returns the frozen report, or nil before finalize.
func (s *Session) Report() *Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// StartedAt returns the round's start timestamp.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Duration returns the round's configured length.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}
