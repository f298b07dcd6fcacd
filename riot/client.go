// Package riot implements the game API gateway on top of the Riot Games REST API.
package riot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/samber/lo"

	"lol-monitor/pkg/lol"
)

// StatusError is a non-OK HTTP response from the Riot API.
type StatusError struct {
	kind       error
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Unwrap exposes the lol sentinel the status maps to, if any.
func (e *StatusError) Unwrap() error {
	return e.kind
}

func permanent(err error) bool {
	return errors.Is(err, lol.ErrNotFound) ||
		errors.Is(err, lol.ErrForbidden) ||
		errors.Is(err, lol.ErrUnauthorized)
}

// Client talks to account-v1, summoner-v4, spectator-v5 and match-v5.
type Client struct {
	httpClient  *http.Client
	logger      *slog.Logger
	champions   *Champions
	apiKey      string
	platform    string
	platformURL string
	regionalURL string
	delay       time.Duration
	attempts    uint
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sends both platform and regional requests to baseURL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.platformURL = strings.TrimRight(baseURL, "/")
		c.regionalURL = c.platformURL
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithRetry sets the attempt count and base delay for transient failures.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

// WithChampions resolves live-match champion ids through reg.
func WithChampions(reg *Champions) Option {
	return func(c *Client) {
		c.champions = reg
	}
}

// New creates a client for the given platform region (eun1, euw1, na1, ...).
func New(apiKey, region string, logger *slog.Logger, opts ...Option) (*Client, error) {
	platform := NormalizePlatform(region)
	if platform == "" {
		return nil, fmt.Errorf("unknown region %q", region)
	}
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		apiKey:      apiKey,
		platform:    platform,
		platformURL: "https://" + platform + ".api.riotgames.com",
		regionalURL: "https://" + RegionalRoute(platform) + ".api.riotgames.com",
		attempts:    4,
		delay:       time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Platform returns the normalized platform routing value.
func (c *Client) Platform() string {
	return c.platform
}

// get performs a GET with retry and decodes a JSON body into v.
// A 403 maps to forbidden, which callers pick per endpoint.
func (c *Client) get(ctx context.Context, rawURL, purpose string, forbidden error, v any) error {
	var last error
	err := retry.Do(
		func() error {
			last = c.do(ctx, rawURL, purpose, forbidden, v)
			return last
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(max(c.delay, time.Millisecond)),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying Riot API request after error", "attempt", n, "purpose", purpose, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return !permanent(err)
		}),
	)
	if err == nil {
		return nil
	}
	if last == nil || ctx.Err() != nil {
		return fmt.Errorf("%s: %w", purpose, err)
	}
	return fmt.Errorf("%s: %w", purpose, last)
}

func (c *Client) do(ctx context.Context, rawURL, purpose string, forbidden error, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return retry.Unrecoverable(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("X-Riot-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.Warn("Riot API request failed", "purpose", purpose, "duration_ms", duration.Milliseconds(), "error", err)
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Debug("Riot API request completed",
		"purpose", purpose,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return &StatusError{URL: req.URL.Path, StatusCode: resp.StatusCode, kind: lol.ErrNotFound}
	case http.StatusUnauthorized:
		return &StatusError{URL: req.URL.Path, StatusCode: resp.StatusCode, kind: lol.ErrUnauthorized}
	case http.StatusForbidden:
		return &StatusError{URL: req.URL.Path, StatusCode: resp.StatusCode, kind: forbidden}
	default:
		// 429 and 5xx are retried
		return &StatusError{URL: req.URL.Path, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return retry.Unrecoverable(fmt.Errorf("decode %s response: %w", purpose, err))
	}
	return nil
}

// ResolvePlayer looks up a Riot ID of the form name#tag.
func (c *Client) ResolvePlayer(ctx context.Context, riotID string) (lol.Player, error) {
	name, tag, ok := strings.Cut(riotID, "#")
	if !ok || name == "" || tag == "" {
		return lol.Player{}, fmt.Errorf("invalid Riot ID %q, want name#tag", riotID)
	}

	var acct accountResponse
	u := fmt.Sprintf("%s/riot/account/v1/accounts/by-riot-id/%s/%s",
		c.regionalURL, url.PathEscape(name), url.PathEscape(tag))
	if err := c.get(ctx, u, "resolve_player", lol.ErrUnauthorized, &acct); err != nil {
		return lol.Player{}, err
	}

	p := lol.Player{
		ID:     acct.PUUID,
		Name:   acct.GameName + "#" + acct.TagLine,
		Region: c.platform,
	}

	var summ summonerResponse
	u = fmt.Sprintf("%s/lol/summoner/v4/summoners/by-puuid/%s", c.platformURL, url.PathEscape(p.ID))
	if err := c.get(ctx, u, "summoner_level", lol.ErrUnauthorized, &summ); err != nil {
		if errors.Is(err, lol.ErrUnauthorized) {
			return lol.Player{}, err
		}
		c.logger.Warn("Could not fetch summoner level", "player", p.Name, "error", err)
		return p, nil
	}
	p.Level = summ.SummonerLevel
	return p, nil
}

// InGame reports whether the player is in an active match.
func (c *Client) InGame(ctx context.Context, p lol.Player) (bool, error) {
	g, err := c.activeGame(ctx, p)
	if err != nil {
		return false, err
	}
	return g != nil, nil
}

// LiveMatch returns the active match, or nil if the player is not in one.
func (c *Client) LiveMatch(ctx context.Context, p lol.Player) (*lol.LiveMatch, error) {
	g, err := c.activeGame(ctx, p)
	if err != nil || g == nil {
		return nil, err
	}

	live := &lol.LiveMatch{
		ID:      g.PlatformID + "_" + strconv.FormatInt(g.GameID, 10),
		Mode:    g.GameMode,
		Elapsed: time.Duration(g.GameLength) * time.Second,
	}
	if g.GameStartTime > 0 {
		live.Start = time.UnixMilli(g.GameStartTime)
	}

	for _, id := range lo.Uniq(lo.Map(g.Participants, func(gp activeGameParticipant, _ int) int { return gp.TeamID })) {
		members := lo.Filter(g.Participants, func(gp activeGameParticipant, _ int) bool { return gp.TeamID == id })
		live.Teams = append(live.Teams, lol.Team{
			ID:   id,
			Name: teamName(id),
			Players: lo.Map(members, func(gp activeGameParticipant, _ int) string {
				if gp.Bot && gp.RiotID == "" {
					return "Bot"
				}
				return gp.RiotID
			}),
		})
	}

	if self, ok := lo.Find(g.Participants, func(gp activeGameParticipant) bool { return gp.PUUID == p.ID }); ok {
		live.Champion = c.championName(ctx, self.ChampionID)
	}
	return live, nil
}

func (c *Client) activeGame(ctx context.Context, p lol.Player) (*activeGameResponse, error) {
	var g activeGameResponse
	u := fmt.Sprintf("%s/lol/spectator/v5/active-games/by-summoner/%s", c.platformURL, url.PathEscape(p.ID))
	err := c.get(ctx, u, "active_game", lol.ErrUnauthorized, &g)
	if errors.Is(err, lol.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *Client) championName(ctx context.Context, id int) string {
	if c.champions == nil {
		return fmt.Sprintf("Champion %d", id)
	}
	return c.champions.Name(ctx, id)
}

// RecentMatchIDs returns up to count match ids, newest first.
func (c *Client) RecentMatchIDs(ctx context.Context, p lol.Player, count int) ([]string, error) {
	var ids []string
	u := fmt.Sprintf("%s/lol/match/v5/matches/by-puuid/%s/ids?start=0&count=%d",
		c.regionalURL, url.PathEscape(p.ID), count)
	if err := c.get(ctx, u, "recent_match_ids", lol.ErrUnauthorized, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Match returns a completed match from the player's point of view.
// Matches the key may not read return an error wrapping lol.ErrForbidden.
func (c *Client) Match(ctx context.Context, p lol.Player, id string) (*lol.Match, error) {
	var mr matchResponse
	u := fmt.Sprintf("%s/lol/match/v5/matches/%s", c.regionalURL, url.PathEscape(id))
	if err := c.get(ctx, u, "match_detail", lol.ErrForbidden, &mr); err != nil {
		return nil, err
	}
	return convertMatch(id, p, &mr.Info)
}

func convertMatch(id string, p lol.Player, info *matchInfo) (*lol.Match, error) {
	self, ok := lo.Find(info.Participants, func(mp matchParticipant) bool { return mp.PUUID == p.ID })
	if !ok {
		return nil, fmt.Errorf("player %s not found in match %s", p.Name, id)
	}

	m := &lol.Match{
		ID:       id,
		Champion: self.ChampionName,
		Role:     self.TeamPosition,
		Map:      mapName(info.MapID),
		Mode:     info.GameMode,
		Kills:    self.Kills,
		Deaths:   self.Deaths,
		Assists:  self.Assists,
		Level:    self.ChampLevel,
		Victory:  self.Win,
	}

	startMs := info.GameStartTimestamp
	if startMs == 0 {
		startMs = info.GameCreation
	}
	m.Start = time.UnixMilli(startMs)

	// gameDuration switched from milliseconds to seconds when gameEndTimestamp was introduced.
	if info.GameEndTimestamp > 0 {
		m.Duration = time.Duration(info.GameDuration) * time.Second
		m.End = time.UnixMilli(info.GameEndTimestamp)
	} else {
		m.Duration = time.Duration(info.GameDuration) * time.Millisecond
		m.End = m.Start.Add(m.Duration)
	}

	teamIDs := lo.Uniq(lo.Map(info.Participants, func(mp matchParticipant, _ int) int { return mp.TeamID }))
	sort.Ints(teamIDs)
	for _, tid := range teamIDs {
		members := lo.Filter(info.Participants, func(mp matchParticipant, _ int) bool { return mp.TeamID == tid })
		m.Teams = append(m.Teams, lol.Team{
			ID:      tid,
			Name:    teamName(tid),
			Players: lo.Map(members, func(mp matchParticipant, _ int) string { return displayName(mp) }),
		})
	}
	return m, nil
}

func displayName(mp matchParticipant) string {
	if mp.RiotIDGameName != "" {
		if mp.RiotIDTagline != "" {
			return mp.RiotIDGameName + "#" + mp.RiotIDTagline
		}
		return mp.RiotIDGameName
	}
	return mp.SummonerName
}
