package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"wordstake/internal/dictionary"
	"wordstake/internal/game"
	"wordstake/internal/identity"
	"wordstake/internal/multiplayer"
	"wordstake/internal/powerup"
	"wordstake/internal/snapshot"
)

// App carries the wired services and runtime configuration.
type App struct {
	Oracle      *dictionary.Dictionary
	Snapshots   *snapshot.Store
	Economy     *powerup.Economy
	Profiles    *powerup.ProfileStore
	Coordinator *multiplayer.Coordinator
	Issuer      *identity.Issuer

	Sessions     map[string]*game.Session
	SessionMutex sync.RWMutex

	LimiterMap   map[string]*rate.Limiter
	LimiterMutex sync.Mutex

	RoundDuration  time.Duration
	CookieMaxAge   time.Duration
	SessionTimeout time.Duration
	RateLimitRPS   int
	RateLimitBurst int
	IsProduction   bool
	StartTime      time.Time
}

// activeSession returns the in-memory session for an ID, or nil.
func (app *App) activeSession(sessionID string) *game.Session {
	app.SessionMutex.RLock()
	defer app.SessionMutex.RUnlock()
	return app.Sessions[sessionID]
}

// rememberSession registers a session in memory and wires the end-of-round
// snapshot write, so a round that expires while nobody is polling still
// lands on disk finalized.
func (app *App) rememberSession(sessionID string, sess *game.Session) {
	sess.OnEnded(func(*game.Report) {
		app.persistSession(sessionID, sess)
	})
	app.SessionMutex.Lock()
	app.Sessions[sessionID] = sess
	app.SessionMutex.Unlock()
}

// forgetSession drops a session from memory and removes its snapshot.
func (app *App) forgetSession(sessionID string) {
	app.SessionMutex.Lock()
	delete(app.Sessions, sessionID)
	app.SessionMutex.Unlock()
	app.Snapshots.Delete(sessionID)
}

// persistSession captures the session to its snapshot file.
func (app *App) persistSession(sessionID string, sess *game.Session) {
	if sess.Status() == game.StatusIdle {
		return
	}
	if err := app.Snapshots.Save(sessionID, snapshot.Capture(sess)); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to persist session snapshot")
	}
}

// loadSession returns the session for an ID, restoring it from its snapshot
// when memory is cold (process restart, another instance, page reload after
// redeploy). Returns snapshot.ErrNoSession when nothing is saved.
func (app *App) loadSession(sessionID string) (*game.Session, error) {
	if sess := app.activeSession(sessionID); sess != nil {
		return sess, nil
	}

	blob, err := app.Snapshots.Load(sessionID)
	if err != nil {
		return nil, err
	}
	outcome, err := snapshot.Restore(app.Oracle, blob, time.Now())
	if err != nil {
		return nil, err
	}
	if outcome.Corrected {
		// The round expired while the player was away; persist the
		// finalized blob so the next restore is a straight read.
		if err := app.Snapshots.Save(sessionID, outcome.Blob); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("failed to write corrected snapshot")
		}
	}
	log.Info().Str("session", sessionID).Str("status", outcome.Session.Status()).Msg("session restored from snapshot")
	app.rememberSession(sessionID, outcome.Session)
	return outcome.Session, nil
}

// startCleanupLoop prunes stale snapshot files on an interval until stop is
// closed.
func (app *App) startCleanupLoop(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := app.Snapshots.Cleanup(app.SessionTimeout); err != nil {
					log.Warn().Err(err).Msg("snapshot cleanup failed")
				}
			}
		}
	}()
}
