// Package poll implements the player activity state machine.
//
// A Monitor runs one polling cycle at a time: it discovers newly completed matches,
// probes the live status, emits events for whatever changed and picks the next wait.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"lol-monitor/dedup"
	"lol-monitor/pkg/lol"
	"lol-monitor/settings"
)

// Gateway is the game API the monitor polls.
type Gateway interface {
	ResolvePlayer(ctx context.Context, riotID string) (lol.Player, error)
	// InGame returns an error when the status is unknown; that is never treated as false.
	InGame(ctx context.Context, p lol.Player) (bool, error)
	// RecentMatchIDs returns completed match ids, newest first.
	RecentMatchIDs(ctx context.Context, p lol.Player, count int) ([]string, error)
	// Match returns an error wrapping lol.ErrForbidden for matches the key may not read.
	Match(ctx context.Context, p lol.Player, id string) (*lol.Match, error)
	// LiveMatch returns nil when the player is not in a match.
	LiveMatch(ctx context.Context, p lol.Player) (*lol.LiveMatch, error)
}

// Notifier receives every event the monitor emits.
type Notifier interface {
	Notify(ctx context.Context, ev lol.Event)
}

// Settings exposes the operator-adjustable values, read once per cycle.
type Settings interface {
	Snapshot() settings.Snapshot
}

// Config holds the fixed monitor parameters.
type Config struct {
	RiotID        string        // name#tag
	RecentMatches int           // Completed match ids fetched per cycle
	HungThreshold time.Duration // In-game duration after which history is polled regardless
	AliveInterval time.Duration // How often to log an alive check
	CallTimeout   time.Duration // Per gateway call, 0 disables
}

// Monitor tracks one player.
type Monitor struct {
	gateway  Gateway
	notifier Notifier
	settings Settings
	seen     *dedup.Set
	logger   *slog.Logger
	now      func() time.Time
	player   lol.Player
	state    lol.ActivityState
	cfg      Config
	mu       sync.RWMutex
	cycles   int

	// authErrorSent suppresses repeated error events until a cycle completes without an auth failure.
	authErrorSent bool
	// seeded is false until the history window has been loaded once without announcing it.
	seeded bool
}

// cycleState is what a single cycle has learned so far.
type cycleState struct {
	snap       settings.Snapshot
	now        time.Time
	reported   int // Match events emitted
	authFailed bool
}

// New creates a monitor. Call Start before Cycle or Run.
func New(gateway Gateway, notifier Notifier, s Settings, seen *dedup.Set, cfg Config, logger *slog.Logger) *Monitor {
	if cfg.RecentMatches <= 0 {
		cfg.RecentMatches = 10
	}
	return &Monitor{
		gateway:  gateway,
		notifier: notifier,
		settings: s,
		seen:     seen,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Player returns the resolved player. It is zero before Start succeeds.
func (m *Monitor) Player() lol.Player {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.player
}

// State returns a copy of the current activity state.
func (m *Monitor) State() lol.ActivityState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Processed returns the number of match ids already handled.
func (m *Monitor) Processed() int {
	return m.seen.Len()
}

func (m *Monitor) update(fn func(st *lol.ActivityState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.state)
}

func (m *Monitor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.CallTimeout)
}

// Start resolves the player, loads the existing match history without announcing it
// and takes the first live probe. Only a player resolution failure is returned.
func (m *Monitor) Start(ctx context.Context) error {
	callCtx, cancel := m.withTimeout(ctx)
	player, err := m.gateway.ResolvePlayer(callCtx, m.cfg.RiotID)
	cancel()
	if err != nil {
		return fmt.Errorf("resolve player %q: %w", m.cfg.RiotID, err)
	}

	m.mu.Lock()
	m.player = player
	m.mu.Unlock()

	m.logger.Info("Monitoring player",
		"player", player.Name,
		"region", player.Region,
		"level", player.Level)

	callCtx, cancel = m.withTimeout(ctx)
	ids, err := m.gateway.RecentMatchIDs(callCtx, player, m.cfg.RecentMatches)
	cancel()
	if err != nil {
		m.logger.Warn("Could not load match history, will seed on next cycle", "error", err)
	} else {
		m.seed(ids)
		if len(ids) > 0 {
			m.backfill(ctx, ids[0])
		}
	}

	callCtx, cancel = m.withTimeout(ctx)
	inGame, err := m.gateway.InGame(callCtx, player)
	cancel()
	switch {
	case err != nil:
		m.logger.Warn("Initial live status unknown", "error", err)
	case inGame:
		now := m.now()
		m.update(func(st *lol.ActivityState) {
			st.InGame = true
			st.InGameSince = now
		})
		m.logger.Info("Player is currently in game", "player", player.Name)
	default:
		m.logger.Info("Player is not in game", "player", player.Name)
	}
	return nil
}

// seed marks the window processed, oldest first so the newest ids are the most recent.
func (m *Monitor) seed(ids []string) {
	for _, id := range slices.Backward(ids) {
		m.seen.Add(id)
	}
	m.seeded = true
	m.logger.Info("Match history loaded", "match_count", len(ids))
}

// backfill sets the last match bounds from the newest completed match.
func (m *Monitor) backfill(ctx context.Context, id string) {
	callCtx, cancel := m.withTimeout(ctx)
	match, err := m.gateway.Match(callCtx, m.player, id)
	cancel()
	if err != nil {
		m.logger.Warn("Could not fetch last played match", "match_id", id, "error", err)
		return
	}
	m.recordMatch(match)
	m.logger.Info("Last played match",
		"match_id", match.ID,
		"start", match.Start.Format(time.RFC3339),
		"end", match.End.Format(time.RFC3339),
		"duration", match.Duration.String(),
		"champion", match.Champion,
		"victory", match.Victory,
		"kda", fmt.Sprintf("%d/%d/%d", match.Kills, match.Deaths, match.Assists))
}

func (m *Monitor) recordMatch(match *lol.Match) {
	m.update(func(st *lol.ActivityState) {
		if match.End.Before(st.LastMatchStop) {
			return
		}
		st.LastMatchStart = match.Start
		st.LastMatchStop = match.End
	})
}

// Cycle runs one polling cycle and returns how long to wait before the next one.
// No error escapes a cycle.
func (m *Monitor) Cycle(ctx context.Context) time.Duration {
	cs := &cycleState{
		snap: m.settings.Snapshot(),
		now:  m.now(),
	}

	m.discover(ctx, cs)
	m.probe(ctx, cs)

	if m.hung(cs) {
		m.logger.Warn("Live status may be stuck, polling match history again",
			"in_game_since", m.State().InGameSince.Format(time.RFC3339),
			"threshold", m.cfg.HungThreshold.String())
		m.discover(ctx, cs)
	}

	if !cs.authFailed && m.authErrorSent {
		m.logger.Info("API access restored")
		m.authErrorSent = false
	}

	m.heartbeat(cs)
	return nextInterval(m.State(), cs.now, cs.snap)
}

// discover fetches recent match ids and reports the ones not seen before, oldest first.
func (m *Monitor) discover(ctx context.Context, cs *cycleState) {
	callCtx, cancel := m.withTimeout(ctx)
	ids, err := m.gateway.RecentMatchIDs(callCtx, m.player, m.cfg.RecentMatches)
	cancel()
	if err != nil {
		m.handleError(ctx, cs, "list recent matches", err)
		return
	}
	if !m.seeded {
		m.seed(ids)
		return
	}

	fresh := m.seen.Unseen(ids)
	if len(fresh) == 0 {
		return
	}
	slices.Reverse(fresh)
	m.logger.Info("New completed matches found", "count", len(fresh), "match_ids", fresh)

	var matches []*lol.Match
	var forbidden []string
	for _, id := range fresh {
		callCtx, cancel := m.withTimeout(ctx)
		match, err := m.gateway.Match(callCtx, m.player, id)
		cancel()

		switch {
		case err == nil:
			if match.ID == "" {
				match.ID = id
			}
			matches = append(matches, match)
		case errors.Is(err, lol.ErrForbidden):
			forbidden = append(forbidden, id)
		default:
			m.handleError(ctx, cs, "fetch match "+id, err)
		}
	}

	if len(forbidden) > 0 && m.keyValid(ctx, cs) {
		m.logger.Warn("Match details forbidden, marking processed", "count", len(forbidden), "match_ids", forbidden)
		for _, id := range forbidden {
			m.seen.Add(id)
			if cs.snap.ForbiddenNotifications {
				m.emit(ctx, cs, lol.Event{Kind: lol.MatchForbidden, MatchID: id})
				cs.reported++
			}
		}
	}

	// ids are newest first by contract, but order by start time anyway
	slices.SortStableFunc(matches, func(a, b *lol.Match) int {
		return a.Start.Compare(b.Start)
	})
	for _, match := range matches {
		m.seen.Add(match.ID)
		m.recordMatch(match)
		m.emit(ctx, cs, lol.Event{Kind: lol.MatchFinished, MatchID: match.ID, Match: match})
		cs.reported++
	}
}

// keyValid repeats a cheap authorized call so a key that expired mid-cycle is not
// mistaken for matches the key may never read. Forbidden ids stay unprocessed unless it succeeds.
func (m *Monitor) keyValid(ctx context.Context, cs *cycleState) bool {
	callCtx, cancel := m.withTimeout(ctx)
	_, err := m.gateway.RecentMatchIDs(callCtx, m.player, 1)
	cancel()
	if err != nil {
		m.handleError(ctx, cs, "confirm access after forbidden match", err)
		return false
	}
	return true
}

// probe checks the live status and emits start and stop transitions.
func (m *Monitor) probe(ctx context.Context, cs *cycleState) {
	callCtx, cancel := m.withTimeout(ctx)
	inGame, err := m.gateway.InGame(callCtx, m.player)
	cancel()
	if err != nil {
		m.handleError(ctx, cs, "live status probe", err)
		return
	}

	was := m.State().InGame
	switch {
	case inGame && !was:
		m.update(func(st *lol.ActivityState) {
			st.InGame = true
			st.InGameSince = cs.now
			st.GameFinishedAt = time.Time{}
		})
		m.logger.Info("Player started a match", "player", m.player.Name)
		m.emit(ctx, cs, lol.Event{Kind: lol.GameStarted, Live: m.liveMatch(ctx)})

	case !inGame && was:
		if cs.reported > 0 {
			m.update(func(st *lol.ActivityState) {
				st.InGame = false
				st.InGameSince = time.Time{}
			})
			m.logger.Info("Player stopped playing, already reported by match summary", "player", m.player.Name)
			return
		}
		m.update(func(st *lol.ActivityState) {
			st.InGame = false
			st.InGameSince = time.Time{}
			st.GameFinishedAt = cs.now
		})
		m.logger.Info("Player stopped playing", "player", m.player.Name)
		m.emit(ctx, cs, lol.Event{Kind: lol.GameStopped})
	}
}

func (m *Monitor) liveMatch(ctx context.Context) *lol.LiveMatch {
	callCtx, cancel := m.withTimeout(ctx)
	defer cancel()
	live, err := m.gateway.LiveMatch(callCtx, m.player)
	if err != nil {
		m.logger.Warn("Could not fetch live match", "error", err)
		return nil
	}
	return live
}

// hung reports whether the live status has been true for longer than the threshold
// with nothing reported this cycle.
func (m *Monitor) hung(cs *cycleState) bool {
	if m.cfg.HungThreshold <= 0 || cs.reported > 0 {
		return false
	}
	st := m.State()
	return st.InGame && !st.InGameSince.IsZero() && cs.now.Sub(st.InGameSince) > m.cfg.HungThreshold
}

func (m *Monitor) heartbeat(cs *cycleState) {
	every := 1
	if cs.snap.ActiveInterval > 0 {
		every = max(1, int(m.cfg.AliveInterval/cs.snap.ActiveInterval))
	}
	m.cycles++
	if m.cycles >= every {
		m.logger.Info("Alive check", "processed_matches", m.seen.Len(), "in_game", m.State().InGame)
		m.cycles = 0
	}
}

// handleError logs err. Authentication failures emit one error event until resolved.
func (m *Monitor) handleError(ctx context.Context, cs *cycleState, op string, err error) {
	if !errors.Is(err, lol.ErrUnauthorized) {
		m.logger.Warn("Gateway call failed, will retry next cycle", "operation", op, "error", err)
		return
	}
	cs.authFailed = true
	m.logger.Error("API key might not be valid anymore", "operation", op, "error", err)
	if m.authErrorSent {
		return
	}
	m.authErrorSent = true
	m.emit(ctx, cs, lol.Event{Kind: lol.Error, Err: err})
}

func (m *Monitor) emit(ctx context.Context, cs *cycleState, ev lol.Event) {
	ev.At = cs.now
	ev.Player = m.player
	ev.State = m.State()
	m.notifier.Notify(ctx, ev)
}

// nextInterval picks the active interval while in game or shortly after a game stopped.
func nextInterval(st lol.ActivityState, now time.Time, snap settings.Snapshot) time.Duration {
	if st.InGame {
		return snap.ActiveInterval
	}
	if !st.GameFinishedAt.IsZero() && now.Sub(st.GameFinishedAt) <= snap.CheckInterval {
		return snap.ActiveInterval
	}
	return snap.CheckInterval
}

// Run cycles until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		wait := m.Cycle(ctx)
		m.logger.Debug("Next check scheduled", "wait", wait.String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info("Monitor stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-timer.C:
		}
	}
}
