package game

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"wordstake/internal/dictionary"
	"wordstake/internal/letters"
)

// Submission outcomes. A closed vocabulary: each value drives a distinct
// user-visible reaction.
const (
	OutcomeScored    = "scored"
	OutcomeTooShort  = "too-short"
	OutcomeDuplicate = "duplicate"
	OutcomePenalty   = "penalty"
	OutcomeRejected  = "rejected"
)

// ScoreEvent describes the score effect of one submission.
type ScoreEvent struct {
	Word    string `json:"word"`
	Delta   int    `json:"delta"`
	Outcome string `json:"outcome"`
	Total   int    `json:"total"`
}

// Submit evaluates a word against the round rules:
//
//   - shorter than two letters: rejected, no state change;
//   - already submitted this round (case-insensitive): rejected as duplicate;
//   - in the dictionary: scored and credited exactly once;
//   - otherwise: a penalty of one point, clamped so the total never goes
//     negative; at zero the rejection is still signalled but nothing is
//     deducted.
//
// The staged word buffer is cleared in every branch.
func (s *Session) Submit(word string) (ScoreEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusRunning {
		return ScoreEvent{}, ErrNotRunning
	}

	// Whatever happens below, the composed word and tile selection reset.
	defer func() { s.currentWord = nil }()

	normalized := strings.ToLower(strings.TrimSpace(word))

	if len(normalized) < MinWordLength {
		return ScoreEvent{Word: normalized, Outcome: OutcomeTooShort, Total: s.totalScore}, nil
	}

	if dictionary.IsDuplicate(normalized, s.submitted) {
		log.Info().Str("word", normalized).Msg("duplicate submission rejected")
		return ScoreEvent{Word: normalized, Outcome: OutcomeDuplicate, Total: s.totalScore}, nil
	}

	if s.oracle.Contains(normalized) {
		score := letters.WordScore(normalized)
		s.found = append(s.found, FoundWord{
			Word:      normalized,
			Score:     score,
			Timestamp: time.Now(),
		})
		s.submitted[normalized] = struct{}{}
		s.totalScore += score
		log.Info().Str("word", normalized).Int("score", score).Int("total", s.totalScore).Msg("word scored")
		return ScoreEvent{Word: normalized, Delta: score, Outcome: OutcomeScored, Total: s.totalScore}, nil
	}

	if s.totalScore > 0 {
		s.totalScore -= InvalidPenalty
		if s.totalScore < 0 {
			s.totalScore = 0
		}
		log.Info().Str("word", normalized).Int("total", s.totalScore).Msg("invalid word, penalty applied")
		return ScoreEvent{Word: normalized, Delta: -InvalidPenalty, Outcome: OutcomePenalty, Total: s.totalScore}, nil
	}

	return ScoreEvent{Word: normalized, Outcome: OutcomeRejected, Total: s.totalScore}, nil
}

// SubmitStaged submits whatever word the tile selection currently spells.
func (s *Session) SubmitStaged() (ScoreEvent, error) {
	s.mu.Lock()
	staged := s.stagedWordLocked()
	s.mu.Unlock()
	return s.Submit(staged)
}
