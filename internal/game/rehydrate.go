package game

import (
	"strings"
	"time"

	"wordstake/internal/dictionary"
	"wordstake/internal/letters"
)

// RestoredState carries everything needed to rebuild a Session from a
// persisted snapshot. The snapshot package validates the blob and computes
// the target status; this constructor just assembles the machine.
type RestoredState struct {
	Status      string
	Letters     []letters.Tile
	StartedAt   time.Time
	Duration    time.Duration
	CurrentWord []int
	Submitted   []string
	Found       []FoundWord
	TotalScore  int
	Report      *Report
}

// Rehydrate builds a Session in the given state. A Running state gets a live
// tick loop; an Ended state keeps its frozen report.
func Rehydrate(oracle dictionary.Oracle, state RestoredState) *Session {
	submitted := make(map[string]struct{}, len(state.Submitted))
	for _, w := range state.Submitted {
		submitted[strings.ToLower(w)] = struct{}{}
	}

	s := &Session{
		oracle:      oracle,
		status:      state.Status,
		letters:     append([]letters.Tile(nil), state.Letters...),
		startedAt:   state.StartedAt,
		duration:    state.Duration,
		currentWord: append([]int(nil), state.CurrentWord...),
		submitted:   submitted,
		found:       append([]FoundWord(nil), state.Found...),
		totalScore:  state.TotalScore,
		report:      state.Report,
	}
	if s.totalScore < 0 {
		s.totalScore = 0
	}
	if s.status == StatusRunning {
		s.mu.Lock()
		s.startClockLocked()
		s.mu.Unlock()
	}
	return s
}
