// Package snapshot persists a session across reloads and disconnects. A
// Blob captures the full round plus its wall-clock start timestamp; Restore
// is a pure function of (blob, now) that reconciles elapsed time, so the
// same blob always rebuilds the same session no matter how many times it is
// replayed.
package snapshot

import (
	"errors"
	"time"

	"wordstake/internal/dictionary"
	"wordstake/internal/game"
	"wordstake/internal/letters"
)

// ErrNoSession means the blob is absent or missing required fields and must
// be treated as if nothing was saved.
var ErrNoSession = errors.New("no saved session")

// Blob is the persisted session schema.
type Blob struct {
	Status          string           `json:"status"`
	StartTimestamp  int64            `json:"startTimestamp"` // epoch millis
	DurationSeconds int              `json:"durationSeconds"`
	Letters         []string         `json:"letters"`
	CurrentWord     []int            `json:"currentWord"`
	FoundWords      []game.FoundWord `json:"foundWords"`
	SubmittedWords  []string         `json:"submittedWords"`
	TotalScore      int              `json:"totalScore"`
	Report          *game.Report     `json:"report,omitempty"`
}

// Outcome is the result of a restore.
type Outcome struct {
	Session *game.Session
	// Corrected is set when the blob claimed Running but its time had
	// already expired; the caller should persist Blob back so the next
	// restore takes the Ended path directly.
	Corrected bool
	Blob      Blob
}

// Capture serializes a session into a Blob.
func Capture(s *game.Session) Blob {
	tiles := s.Letters()
	chars := make([]string, len(tiles))
	for i, t := range tiles {
		chars[i] = t.Letter
	}
	return Blob{
		Status:          s.Status(),
		StartTimestamp:  s.StartedAt().UnixMilli(),
		DurationSeconds: int(s.Duration().Seconds()),
		Letters:         chars,
		CurrentWord:     s.CurrentWord(),
		FoundWords:      s.FoundWords(),
		SubmittedWords:  s.SubmittedWords(),
		TotalScore:      s.TotalScore(),
		Report:          s.Report(),
	}
}

// Restore rebuilds a session from a blob. Three outcomes:
//
//	(a) blob marked Ended: restored as Ended with its frozen report;
//	(b) blob marked Running with time remaining: restored as Running with
//	    the remaining time recomputed from the wall clock;
//	(c) blob marked Running but expired: transitioned to Ended now, with a
//	    report synthesized if the blob did not carry one, and Corrected set
//	    so the caller persists the fixed blob back.
func Restore(oracle dictionary.Oracle, blob Blob, now time.Time) (*Outcome, error) {
	if len(blob.Letters) == 0 || blob.StartTimestamp == 0 {
		return nil, ErrNoSession
	}
	if blob.Status != game.StatusRunning && blob.Status != game.StatusEnded {
		return nil, ErrNoSession
	}

	tiles := make([]letters.Tile, len(blob.Letters))
	for i, ch := range blob.Letters {
		tiles[i] = letters.Tile{Letter: ch, Index: i}
	}

	state := game.RestoredState{
		Letters:     tiles,
		StartedAt:   time.UnixMilli(blob.StartTimestamp),
		Duration:    time.Duration(blob.DurationSeconds) * time.Second,
		CurrentWord: blob.CurrentWord,
		Submitted:   blob.SubmittedWords,
		Found:       blob.FoundWords,
		TotalScore:  blob.TotalScore,
		Report:      blob.Report,
	}

	if blob.Status == game.StatusEnded {
		state.Status = game.StatusEnded
		sess := game.Rehydrate(oracle, state)
		sess.Finalize()
		return &Outcome{Session: sess, Blob: blob}, nil
	}

	elapsed := now.Sub(state.StartedAt)
	remaining := state.Duration - elapsed
	if remaining > 0 {
		state.Status = game.StatusRunning
		return &Outcome{Session: game.Rehydrate(oracle, state), Blob: blob}, nil
	}

	// Expired while away: end it now and hand back the corrected blob.
	state.Status = game.StatusEnded
	sess := game.Rehydrate(oracle, state)
	sess.Finalize()
	corrected := Capture(sess)
	return &Outcome{Session: sess, Corrected: true, Blob: corrected}, nil
}
