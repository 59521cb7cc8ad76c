package powerup

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Starter balances granted to a first-seen player.
const (
	StarterDictionaryBalance = 20
	StarterRobotBalance      = 20
)

// ProfileStore persists power-up balances per player identity. Balances are
// the only durable part of PlayerState; round counters and cooldowns live in
// memory because they are meaningless outside a live round.
type ProfileStore struct {
	db *sql.DB

	mu     sync.Mutex
	cached map[string]*PlayerState
}

// NewProfileStore prepares the backing table and returns the store.
func NewProfileStore(db *sql.DB) (*ProfileStore, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS player_powerups (
		identity            TEXT PRIMARY KEY,
		dictionary_balance  INTEGER NOT NULL,
		robot_balance       INTEGER NOT NULL
	);`)
	if err != nil {
		return nil, fmt.Errorf("create player_powerups: %w", err)
	}
	return &ProfileStore{db: db, cached: make(map[string]*PlayerState)}, nil
}

// Get returns the live PlayerState for an identity, loading balances from
// the database and granting the starter amounts to new players. The same
// pointer is returned for repeated calls so round counters survive between
// requests.
func (ps *ProfileStore) Get(identity string) (*PlayerState, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if state, ok := ps.cached[identity]; ok {
		return state, nil
	}

	state := &PlayerState{Identity: identity, Suggested: make(map[string]struct{})}
	row := ps.db.QueryRow(`SELECT dictionary_balance, robot_balance FROM player_powerups WHERE identity = ?`, identity)
	err := row.Scan(&state.DictionaryBalance, &state.RobotBalance)
	switch {
	case err == sql.ErrNoRows:
		state.DictionaryBalance = StarterDictionaryBalance
		state.RobotBalance = StarterRobotBalance
		if _, err := ps.db.Exec(`INSERT INTO player_powerups (identity, dictionary_balance, robot_balance) VALUES (?, ?, ?)`,
			identity, state.DictionaryBalance, state.RobotBalance); err != nil {
			return nil, fmt.Errorf("insert player_powerups: %w", err)
		}
		log.Info().Str("player", identity).Msg("granted starter power-up balances")
	case err != nil:
		return nil, fmt.Errorf("query player_powerups: %w", err)
	}

	ps.cached[identity] = state
	return state, nil
}

// Save flushes a player's balances back to the database.
func (ps *ProfileStore) Save(state *PlayerState) error {
	dictBalance, robotBalance := state.Balances()
	_, err := ps.db.Exec(`UPDATE player_powerups SET dictionary_balance = ?, robot_balance = ? WHERE identity = ?`,
		dictBalance, robotBalance, state.Identity)
	if err != nil {
		return fmt.Errorf("update player_powerups: %w", err)
	}
	return nil
}
