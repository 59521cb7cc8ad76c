package dictionary

import (
	"os"
	"path/filepath"
	"testing"
)

func TestContains(t *testing.T) {
	d := New([]string{"words", " stake ", "AT", "a", "", "words"})

	tests := []struct {
		word string
		want bool
	}{
		{"words", true},
		{"WORDS", true},
		{"WoRdS", true},
		{"stake", true},
		{"at", true},
		{"a", false}, // below minimum length, dropped at load
		{"", false},
		{"zzz", false},
	}
	for _, tt := range tests {
		if got := d.Contains(tt.word); got != tt.want {
			t.Errorf("Contains(%q) = %v, want %v", tt.word, got, tt.want)
		}
	}
}

func TestCandidates(t *testing.T) {
	d := New([]string{"at", "rod", "word", "words", "strange"})

	got := d.Candidates(3, 5)
	want := map[string]bool{"ROD": true, "WORD": true, "WORDS": true}
	if len(got) != len(want) {
		t.Fatalf("Candidates(3, 5) = %v, want %v entries", got, len(want))
	}
	for _, w := range got {
		if !want[w] {
			t.Errorf("unexpected candidate %q", w)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.json")
	if err := os.WriteFile(path, []byte(`{"words":["words","stake","at"]}`), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if !d.Contains("stake") {
		t.Errorf("loaded dictionary missing 'stake'")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Errorf("Load of missing file succeeded")
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Errorf("Load of malformed file succeeded")
	}
}

func TestIsDuplicate(t *testing.T) {
	submitted := map[string]struct{}{"words": {}}

	if !IsDuplicate("WORDS", submitted) {
		t.Errorf("IsDuplicate missed a case-folded repeat")
	}
	if IsDuplicate("stake", submitted) {
		t.Errorf("IsDuplicate flagged a fresh word")
	}
}
