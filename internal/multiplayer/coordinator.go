package multiplayer

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Join is the one operation that tolerates automatic retries on a busy
// store; everything else surfaces the first error.
const JoinRetries = 3

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 6

// ErrPlayerNotFound means the identity is not on the record.
var ErrPlayerNotFound = errors.New("player not on game record")

// errUnchanged is returned by a mutation closure when the operation was an
// idempotent no-op: the record is returned as-is, with no version bump and
// no broadcast.
var errUnchanged = errors.New("record unchanged")

// Coordinator owns every mutation of the authoritative game records. Writes
// to one code are serialized by a per-code lock; distinct codes are
// independent. Each applied mutation bumps the record version and publishes
// the full record to the code's topic.
type Coordinator struct {
	store RecordStore
	hub   *Hub

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewCoordinator returns a coordinator over the given store and hub.
func NewCoordinator(store RecordStore, hub *Hub) *Coordinator {
	return &Coordinator{
		store: store,
		hub:   hub,
		locks: make(map[string]*sync.Mutex),
	}
}

func (c *Coordinator) lockFor(code string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.locks[code]; ok {
		return l
	}
	l := &sync.Mutex{}
	c.locks[code] = l
	return l
}

// mutate loads, transforms, versions, persists and broadcasts one record
// under its code lock. The closure signals an idempotent no-op with
// errUnchanged.
func (c *Coordinator) mutate(code string, fn func(*GameRecord) error) (*GameRecord, error) {
	l := c.lockFor(code)
	l.Lock()
	defer l.Unlock()

	record, err := c.store.Get(code)
	if err != nil {
		return nil, err
	}
	if err := fn(record); err != nil {
		if errors.Is(err, errUnchanged) {
			cp := record.clone()
			return &cp, nil
		}
		return nil, err
	}
	record.Version++
	if err := c.store.Put(record); err != nil {
		return nil, err
	}
	c.hub.Publish(record.clone())
	cp := record.clone()
	return &cp, nil
}

// Create makes a new game record with a unique code and the host as its
// first player. The collision check and the insert happen under the same
// code lock, so two creates drawing the same code cannot overwrite each
// other.
func (c *Coordinator) Create(settings Settings, hostIdentity string) (*GameRecord, error) {
	for {
		code := randomCode()
		l := c.lockFor(code)
		l.Lock()
		if _, err := c.store.Get(code); err == nil {
			l.Unlock()
			continue // collision, draw again
		}

		record := &GameRecord{
			Code:            code,
			Title:           settings.Title,
			Type:            settings.Type,
			DurationSeconds: settings.DurationSeconds,
			Stake:           settings.Stake,
			Host:            hostIdentity,
			Status:          StatusPending,
			Version:         1,
			CreatedAt:       time.Now(),
			Players: []Player{{
				Identity:    hostIdentity,
				DisplayName: settings.HostDisplayName,
				IsHost:      true,
			}},
		}

		err := c.store.Put(record)
		l.Unlock()
		if err != nil {
			return nil, err
		}
		c.hub.Publish(record.clone())
		log.Info().Str("game_code", code).Str("type", record.Type).Msg("game created")
		cp := record.clone()
		return &cp, nil
	}
}

// Join appends a non-host player. Joining an ended game fails with
// ErrGameEnded; rejoining with a known identity returns the record
// unchanged. Busy-store errors are retried up to JoinRetries times.
func (c *Coordinator) Join(code, identity, displayName string) (*GameRecord, error) {
	var record *GameRecord
	var err error
	for attempt := 1; attempt <= JoinRetries; attempt++ {
		record, err = c.mutate(code, func(r *GameRecord) error {
			if r.Status == StatusEnded {
				return ErrGameEnded
			}
			if r.player(identity) != nil {
				return errUnchanged
			}
			r.Players = append(r.Players, Player{
				Identity:    identity,
				DisplayName: displayName,
			})
			return nil
		})
		if err == nil || !isBusy(err) {
			break
		}
		log.Warn().Str("game_code", code).Int("attempt", attempt).Msg("join hit busy store, retrying")
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ConfirmPayment marks one player's stake as paid.
func (c *Coordinator) ConfirmPayment(code, identity string) (*GameRecord, error) {
	return c.mutate(code, func(r *GameRecord) error {
		p := r.player(identity)
		if p == nil {
			return ErrPlayerNotFound
		}
		if p.HasPaid {
			return errUnchanged
		}
		p.HasPaid = true
		return nil
	})
}

// Start moves the game Pending -> Ongoing. Host only.
func (c *Coordinator) Start(code, hostIdentity string) (*GameRecord, error) {
	return c.mutate(code, func(r *GameRecord) error {
		if r.Host != hostIdentity {
			return ErrNotHost
		}
		switch r.Status {
		case StatusEnded:
			return ErrGameEnded
		case StatusOngoing:
			return errUnchanged
		}
		r.Status = StatusOngoing
		return nil
	})
}

// SubmitScore writes a player's final score exactly once. A repeat for the
// same identity is a no-op whatever the value: the first write wins, which
// makes duplicate network retries safe.
func (c *Coordinator) SubmitScore(code, identity string, score int) (*GameRecord, error) {
	return c.mutate(code, func(r *GameRecord) error {
		p := r.player(identity)
		if p == nil {
			return ErrPlayerNotFound
		}
		if p.HasPlayed {
			return errUnchanged
		}
		p.Score = score
		p.HasPlayed = true
		log.Info().Str("game_code", code).Str("player", identity).Int("score", score).Msg("score submitted")
		return nil
	})
}

// Delete terminates a record. Host only. The final Ended snapshot is
// broadcast before the row disappears so subscribers learn the outcome.
func (c *Coordinator) Delete(code, hostIdentity string) error {
	record, err := c.mutate(code, func(r *GameRecord) error {
		if r.Host != hostIdentity {
			return ErrNotHost
		}
		r.Status = StatusEnded
		return nil
	})
	if err != nil {
		return err
	}
	l := c.lockFor(code)
	l.Lock()
	defer l.Unlock()
	if err := c.store.Delete(record.Code); err != nil {
		return err
	}
	log.Info().Str("game_code", code).Msg("game deleted")
	return nil
}

// Get returns the current record for a code.
func (c *Coordinator) Get(code string) (*GameRecord, error) {
	return c.store.Get(code)
}

// PlayStatus answers the solo "can I play this code" request with the
// closed status vocabulary. A player who already played sees their result
// regardless of whether the game has since ended.
func (c *Coordinator) PlayStatus(code, identity string) (string, error) {
	record, err := c.store.Get(code)
	if err != nil {
		return "", err
	}
	if p := record.player(identity); p != nil && p.HasPlayed {
		return PlayAlreadyPlayed, nil
	}
	switch record.Status {
	case StatusEnded:
		return PlayGameEnded, nil
	case StatusPending:
		return PlayNotStarted, nil
	default:
		return PlayReadyToPlay, nil
	}
}

// Subscribe joins the live feed for a code.
func (c *Coordinator) Subscribe(code string) Subscriber {
	return c.hub.Subscribe(code)
}

// Unsubscribe leaves the live feed.
func (c *Coordinator) Unsubscribe(sub Subscriber) {
	c.hub.Unsubscribe(sub)
}

// randomCode draws a short uppercase code, e.g. "7KQ2MB". A function
// variable so tests can force collisions.
var randomCode = func() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			code[i] = codeAlphabet[0]
			continue
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code)
}
