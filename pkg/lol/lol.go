// Package lol contains the core domain types for the League of Legends activity monitor.
package lol

import (
	"errors"
	"time"
)

// Gateway errors. Anything not matching one of these is treated as transient.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Player is the monitored account, resolved once per run.
type Player struct {
	ID     string `json:"puuid"`
	Name   string `json:"riot_id"` // name#tag
	Region string `json:"region"`  // Platform routing value, e.g. eun1
	Level  int    `json:"level"`
}

// Team is one side of a match.
type Team struct {
	Name    string   // Blue or Red
	Players []string // Display names in lobby order
	ID      int      // 100 or 200
}

// Match is a completed match as seen by the monitored player.
type Match struct {
	Start    time.Time
	End      time.Time
	ID       string
	Champion string
	Role     string // TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY or empty
	Map      string
	Mode     string
	Teams    []Team
	Duration time.Duration
	Kills    int
	Deaths   int
	Assists  int
	Level    int
	Victory  bool
}

// LiveMatch is a transient view of a match in progress.
type LiveMatch struct {
	Start    time.Time // Zero while the match is still loading
	ID       string
	Champion string
	Mode     string
	Teams    []Team
	Elapsed  time.Duration
}

// ActivityState is the state machine's view of the player.
type ActivityState struct {
	InGameSince    time.Time `json:"in_game_since"`
	LastMatchStart time.Time `json:"last_match_start"`
	LastMatchStop  time.Time `json:"last_match_stop"`
	GameFinishedAt time.Time `json:"game_finished_at"`
	InGame         bool      `json:"in_game"`
}

// EventKind identifies what changed.
type EventKind int

const (
	MatchFinished EventKind = iota + 1
	MatchForbidden
	GameStarted
	GameStopped
	Error
)

func (k EventKind) String() string {
	switch k {
	case MatchFinished:
		return "match_finished"
	case MatchForbidden:
		return "match_forbidden"
	case GameStarted:
		return "game_started"
	case GameStopped:
		return "game_stopped"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Event is emitted by the state machine and rendered by the notifier.
type Event struct {
	At      time.Time
	Err     error
	Match   *Match     // MatchFinished
	Live    *LiveMatch // GameStarted, may be nil when the snapshot could not be fetched
	Player  Player
	MatchID string // MatchFinished, MatchForbidden
	State   ActivityState
	Kind    EventKind
}

// Field is one labelled line of a rendered report.
type Field struct {
	Name  string
	Value string
}

// Report is an event rendered for humans. Channels decide how to lay it out.
type Report struct {
	At      time.Time // When the event happened, zero for listings
	Subject string
	Heading string
	Fields  []Field
}
