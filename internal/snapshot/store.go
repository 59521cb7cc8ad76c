package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store keeps one blob file per session ID under a directory, with age-based
// cleanup. Session IDs that do not parse as UUIDs are rejected outright, so
// an ID can never carry path separators into the file name.
type Store struct {
	Dir    string
	MaxAge time.Duration
}

// NewStore returns a file-backed snapshot store rooted at dir.
func NewStore(dir string, maxAge time.Duration) *Store {
	return &Store{Dir: dir, MaxAge: maxAge}
}

func (st *Store) path(sessionID string) string {
	return filepath.Join(st.Dir, sessionID+".json")
}

func validSessionID(sessionID string) bool {
	_, err := uuid.Parse(sessionID)
	return err == nil
}

// Save writes a blob to disk.
func (st *Store) Save(sessionID string, blob Blob) error {
	if !validSessionID(sessionID) {
		log.Warn().Str("session", sessionID).Msg("skipping save for invalid session ID")
		return nil
	}
	if err := os.MkdirAll(st.Dir, 0755); err != nil {
		log.Error().Err(err).Str("dir", st.Dir).Msg("failed to create snapshot directory")
		return err
	}
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(st.path(sessionID), data, 0644); err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("failed to write snapshot file")
		return err
	}
	return nil
}

// Load reads a blob from disk. A missing, stale or corrupted file is
// ErrNoSession; corrupted and stale files are removed on the way out.
func (st *Store) Load(sessionID string) (Blob, error) {
	if !validSessionID(sessionID) {
		return Blob{}, ErrNoSession
	}
	file := st.path(sessionID)

	info, err := os.Stat(file)
	if err != nil {
		return Blob{}, ErrNoSession
	}
	if st.MaxAge > 0 && time.Since(info.ModTime()) > st.MaxAge {
		log.Info().Str("session", sessionID).Dur("age", time.Since(info.ModTime())).Msg("snapshot too old, removing")
		os.Remove(file)
		return Blob{}, ErrNoSession
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return Blob{}, ErrNoSession
	}
	var blob Blob
	if err := json.Unmarshal(data, &blob); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("corrupted snapshot file, removing")
		os.Remove(file)
		return Blob{}, ErrNoSession
	}
	return blob, nil
}

// Delete removes a session's blob, if any.
func (st *Store) Delete(sessionID string) {
	if !validSessionID(sessionID) {
		return
	}
	os.Remove(st.path(sessionID))
}

// Cleanup removes blob files older than maxAge. Returns the first error
// encountered reading the directory; individual file errors are logged and
// counted but do not stop the sweep.
func (st *Store) Cleanup(maxAge time.Duration) error {
	entries, err := os.ReadDir(st.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	removed, errored := 0, 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errored++
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(st.Dir, entry.Name())); err != nil {
				errored++
			} else {
				removed++
			}
		}
	}
	log.Info().Int("removed", removed).Int("errors", errored).Msg("snapshot cleanup completed")
	return nil
}
