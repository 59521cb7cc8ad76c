package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wordstake/internal/dictionary"
	"wordstake/internal/game"
)

const TestSessionID = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"

var testWords = []string{"words", "stake", "at", "word"}

func testOracle() *dictionary.Dictionary {
	return dictionary.New(testWords)
}

func runningBlob(startedAgo time.Duration, durationSeconds int) Blob {
	return Blob{
		Status:          game.StatusRunning,
		StartTimestamp:  time.Now().Add(-startedAgo).UnixMilli(),
		DurationSeconds: durationSeconds,
		Letters:         []string{"W", "O", "R", "D", "S", "T", "A", "K"},
		CurrentWord:     []int{},
		FoundWords: []game.FoundWord{
			{Word: "words", Score: 8, Timestamp: time.Now().Add(-startedAgo)},
		},
		SubmittedWords: []string{"words"},
		TotalScore:     8,
	}
}

// TestRestoreMissingFields checks incomplete blobs read as "no saved session".
func TestRestoreMissingFields(t *testing.T) {
	tests := []struct {
		name string
		blob Blob
	}{
		{"empty", Blob{}},
		{"no letters", Blob{Status: game.StatusRunning, StartTimestamp: time.Now().UnixMilli(), DurationSeconds: 120}},
		{"no start timestamp", Blob{Status: game.StatusRunning, Letters: []string{"A", "B"}, DurationSeconds: 120}},
		{"unknown status", Blob{Status: "paused", StartTimestamp: time.Now().UnixMilli(), Letters: []string{"A", "B"}}},
	}
	for _, tt := range tests {
		if _, err := Restore(testOracle(), tt.blob, time.Now()); err != ErrNoSession {
			t.Errorf("%s: Restore = %v, want ErrNoSession", tt.name, err)
		}
	}
}

// TestRestoreRunning checks a mid-round blob resumes with recomputed time.
func TestRestoreRunning(t *testing.T) {
	blob := runningBlob(20*time.Second, 120)
	outcome, err := Restore(testOracle(), blob, time.Now())
	if err != nil {
		t.Fatalf("Restore = %v", err)
	}
	defer outcome.Session.End()

	if outcome.Corrected {
		t.Errorf("mid-round restore marked corrected")
	}
	sess := outcome.Session
	if sess.Status() != game.StatusRunning {
		t.Fatalf("status = %q, want running", sess.Status())
	}
	remaining := sess.Remaining(time.Now())
	if remaining <= 95*time.Second || remaining > 100*time.Second {
		t.Errorf("remaining = %v, want about 100s", remaining)
	}
	if sess.TotalScore() != 8 {
		t.Errorf("total = %d, want 8", sess.TotalScore())
	}

	// The submitted set survives: resubmitting is a duplicate.
	event, err := sess.Submit("words")
	if err != nil {
		t.Fatal(err)
	}
	if event.Outcome != game.OutcomeDuplicate {
		t.Errorf("resubmit outcome = %q, want duplicate", event.Outcome)
	}
}

// TestRestoreExpired checks scenario: snapshot Running, restored after the
// clock ran out -> Ended with a synthesized report and a corrected blob.
func TestRestoreExpired(t *testing.T) {
	for _, overshoot := range []time.Duration{0, 30 * time.Second, 24 * time.Hour} {
		blob := runningBlob(120*time.Second+overshoot, 120)
		outcome, err := Restore(testOracle(), blob, time.Now())
		if err != nil {
			t.Fatalf("overshoot %v: Restore = %v", overshoot, err)
		}
		sess := outcome.Session
		if sess.Status() != game.StatusEnded {
			t.Fatalf("overshoot %v: status = %q, want ended", overshoot, sess.Status())
		}
		if sess.Remaining(time.Now()) != 0 {
			t.Errorf("overshoot %v: remaining != 0", overshoot)
		}
		report := sess.Report()
		if report == nil || report.FinalScore != 8 {
			t.Fatalf("overshoot %v: report = %+v, want final score 8", overshoot, report)
		}
		if !outcome.Corrected {
			t.Errorf("overshoot %v: expired restore not marked corrected", overshoot)
		}
		if outcome.Blob.Status != game.StatusEnded || outcome.Blob.Report == nil {
			t.Errorf("overshoot %v: corrected blob = %+v", overshoot, outcome.Blob)
		}
	}
}

// TestRestoreIdempotent checks restoring the same blob twice yields the same
// state, including the corrected-blob round trip.
func TestRestoreIdempotent(t *testing.T) {
	blob := runningBlob(10*time.Minute, 120)
	first, err := Restore(testOracle(), blob, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	second, err := Restore(testOracle(), first.Blob, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if second.Corrected {
		t.Errorf("restoring the corrected blob corrected it again")
	}
	if second.Session.Status() != game.StatusEnded {
		t.Errorf("second restore status = %q, want ended", second.Session.Status())
	}
	if first.Session.Report().FinalScore != second.Session.Report().FinalScore {
		t.Errorf("restore not idempotent: %d vs %d",
			first.Session.Report().FinalScore, second.Session.Report().FinalScore)
	}
}

// TestRestoreEnded checks an ended blob keeps its frozen report.
func TestRestoreEnded(t *testing.T) {
	blob := runningBlob(10*time.Second, 120)
	blob.Status = game.StatusEnded
	blob.Report = &game.Report{
		ValidWords:     []game.ValidationResult{{Word: "words", Score: 8, IsValid: true}},
		InvalidWords:   []game.ValidationResult{},
		FinalScore:     8,
		TotalSubmitted: 1,
	}
	outcome, err := Restore(testOracle(), blob, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Corrected {
		t.Errorf("ended restore marked corrected")
	}
	report := outcome.Session.Report()
	if report == nil || report.FinalScore != 8 || report.TotalSubmitted != 1 {
		t.Errorf("frozen report not preserved: %+v", report)
	}
}

// TestCaptureRestoreRoundTrip checks Capture(Restore(x)) preserves the round.
func TestCaptureRestoreRoundTrip(t *testing.T) {
	blob := runningBlob(20*time.Second, 120)
	outcome, err := Restore(testOracle(), blob, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	defer outcome.Session.End()

	captured := Capture(outcome.Session)
	if captured.Status != blob.Status ||
		captured.StartTimestamp != blob.StartTimestamp ||
		captured.DurationSeconds != blob.DurationSeconds ||
		captured.TotalScore != blob.TotalScore ||
		len(captured.Letters) != len(blob.Letters) {
		t.Errorf("round trip changed the blob:\n got %+v\nwant %+v", captured, blob)
	}
}

// TestStoreSaveLoadDelete exercises the file store.
func TestStoreSaveLoadDelete(t *testing.T) {
	store := NewStore(t.TempDir(), time.Hour)
	blob := runningBlob(5*time.Second, 120)

	if err := store.Save(TestSessionID, blob); err != nil {
		t.Fatalf("Save = %v", err)
	}
	loaded, err := store.Load(TestSessionID)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if loaded.TotalScore != blob.TotalScore || loaded.Status != blob.Status {
		t.Errorf("loaded blob differs: %+v", loaded)
	}

	store.Delete(TestSessionID)
	if _, err := store.Load(TestSessionID); err != ErrNoSession {
		t.Errorf("Load after Delete = %v, want ErrNoSession", err)
	}
}

// TestStoreRejectsNonUUIDIDs checks that only UUID session IDs ever touch
// disk. Path-shaped IDs must not place a file anywhere, inside the store
// directory or out of it.
func TestStoreRejectsNonUUIDIDs(t *testing.T) {
	parent := t.TempDir()
	dir := filepath.Join(parent, "sessions")
	store := NewStore(dir, time.Hour)

	for _, bad := range []string{
		"", "short",
		"not-a-uuid-but-long-enough",
		"../escape-x",
		"../../escape-x",
		"sub/dir-session-00000000",
	} {
		if err := store.Save(bad, runningBlob(time.Second, 120)); err != nil {
			t.Errorf("Save(%q) = %v, want nil no-op", bad, err)
		}
		if _, err := store.Load(bad); err != ErrNoSession {
			t.Errorf("Load(%q) = %v, want ErrNoSession", bad, err)
		}
	}

	if _, err := os.Stat(filepath.Join(parent, "escape-x.json")); !os.IsNotExist(err) {
		t.Fatalf("snapshot file written outside the store directory")
	}
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) != 0 {
		t.Errorf("rejected IDs left %d files in the store directory", len(entries))
	}
}

// TestStoreCorruptFile checks corrupted snapshots are removed on load.
func TestStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, time.Hour)
	if err := store.Save(TestSessionID, runningBlob(time.Second, 120)); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(store.path(TestSessionID), "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load(TestSessionID); err != ErrNoSession {
		t.Errorf("Load of corrupt file = %v, want ErrNoSession", err)
	}
	if _, err := store.Load(TestSessionID); err != ErrNoSession {
		t.Errorf("corrupt file not removed")
	}
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0644)
}
