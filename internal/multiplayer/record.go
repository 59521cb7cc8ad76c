// Package multiplayer coordinates the shared lobby/game record: players,
// payment and ready flags, per-player scores and game status. The coordinator
// is the sole writer of the authoritative record; everyone else holding the
// same game code is a read-only subscriber fed full-record snapshots.
package multiplayer

import (
	"errors"
	"time"
)

// Game types
const (
	TypeSoloPlay     = "solo-play"
	TypeHostReward   = "host-reward"
	TypeStakeAndPlay = "stake-and-play"
)

// Record statuses
const (
	StatusPending = "pending"
	StatusOngoing = "ongoing"
	StatusEnded   = "ended"
)

// Play-entry statuses: the closed vocabulary returned when a player asks
// whether they can play a code. Anything outside it is an unrecognized
// status at the client.
const (
	PlayAlreadyPlayed = "AlreadyPlayed"
	PlayGameEnded     = "GameEnded"
	PlayNotStarted    = "NotStarted"
	PlayReadyToPlay   = "ReadyToPlay"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrGameEnded    = errors.New("game has ended")
	ErrNotHost      = errors.New("caller is not the host")
)

// Player is one participant on a game record.
type Player struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
	IsHost      bool   `json:"isHost"`
	HasPaid     bool   `json:"hasPaid"`
	HasPlayed   bool   `json:"hasPlayed"`
	Score       int    `json:"score"`
}

// GameRecord is the authoritative shared state for one game code.
type GameRecord struct {
	Code            string    `json:"gameCode"`
	Title           string    `json:"title"`
	Type            string    `json:"gameType"`
	DurationSeconds int       `json:"durationSeconds"`
	Stake           float64   `json:"stake,omitempty"`
	Host            string    `json:"host"`
	Players         []Player  `json:"players"`
	Status          string    `json:"status"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"createdAt"`
}

// player returns a pointer into Players for the given identity, or nil.
func (r *GameRecord) player(identity string) *Player {
	for i := range r.Players {
		if r.Players[i].Identity == identity {
			return &r.Players[i]
		}
	}
	return nil
}

// clone returns a deep copy so subscribers never share slices with the
// authoritative record.
func (r *GameRecord) clone() GameRecord {
	cp := *r
	cp.Players = append([]Player(nil), r.Players...)
	return cp
}

// Settings is the host's input when creating a game.
type Settings struct {
	Title           string  `json:"title"`
	Type            string  `json:"gameType"`
	DurationSeconds int     `json:"durationSeconds"`
	Stake           float64 `json:"stake,omitempty"`
	HostDisplayName string  `json:"hostDisplayName"`
}
