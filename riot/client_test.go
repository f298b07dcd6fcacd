package riot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"lol-monitor/pkg/lol"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL), WithRetry(1, time.Millisecond)}, opts...)
	c, err := New("test-key", "eune", quietLogger(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

var player = lol.Player{ID: "puuid-1", Name: "Faker#KR1", Region: "eun1"}

const matchJSON = `{
  "metadata": {"matchId": "EUN1_100", "participants": ["puuid-1", "puuid-2"]},
  "info": {
    "gameMode": "CLASSIC",
    "mapId": 11,
    "gameCreation": 1700000000000,
    "gameStartTimestamp": 1700000060000,
    "gameEndTimestamp": 1700001860000,
    "gameDuration": 1800,
    "participants": [
      {"puuid": "puuid-2", "riotIdGameName": "Enemy", "riotIdTagline": "EUW", "teamId": 200, "championName": "Zed"},
      {"puuid": "puuid-1", "riotIdGameName": "Faker", "riotIdTagline": "KR1", "teamId": 100,
       "championName": "Ahri", "teamPosition": "MIDDLE", "kills": 7, "deaths": 2, "assists": 9, "champLevel": 16, "win": true}
    ]
  }
}`

func TestMatchConversion(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/match/v5/matches/EUN1_100", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Riot-Token"); got != "test-key" {
			t.Errorf("X-Riot-Token = %q, want test-key", got)
		}
		fmt.Fprint(w, matchJSON)
	})
	c := newTestClient(t, mux)

	m, err := c.Match(context.Background(), player, "EUN1_100")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}

	if m.Champion != "Ahri" || m.Role != "MIDDLE" || m.Map != "Summoner's Rift" || m.Mode != "CLASSIC" {
		t.Errorf("unexpected match fields: %+v", m)
	}
	if m.Kills != 7 || m.Deaths != 2 || m.Assists != 9 || m.Level != 16 || !m.Victory {
		t.Errorf("unexpected stats: %+v", m)
	}
	if m.Duration != 30*time.Minute {
		t.Errorf("Duration = %v, want 30m", m.Duration)
	}
	if !m.Start.Equal(time.UnixMilli(1700000060000)) {
		t.Errorf("Start = %v", m.Start)
	}
	if !m.End.Equal(time.UnixMilli(1700001860000)) {
		t.Errorf("End = %v", m.End)
	}
	if len(m.Teams) != 2 || m.Teams[0].Name != "Blue" || m.Teams[1].Name != "Red" {
		t.Fatalf("Teams = %+v, want Blue then Red", m.Teams)
	}
	if m.Teams[0].Players[0] != "Faker#KR1" || m.Teams[1].Players[0] != "Enemy#EUW" {
		t.Errorf("unexpected team members: %+v", m.Teams)
	}
}

func TestLegacyMillisecondDuration(t *testing.T) {
	info := &matchInfo{
		GameCreation: 1600000000000,
		GameDuration: 1500000,
		Participants: []matchParticipant{{PUUID: "puuid-1", SummonerName: "OldName", TeamID: 100}},
	}
	m, err := convertMatch("EUN1_1", player, info)
	if err != nil {
		t.Fatalf("convertMatch() error = %v", err)
	}
	if m.Duration != 25*time.Minute {
		t.Errorf("Duration = %v, want 25m", m.Duration)
	}
	if !m.End.Equal(m.Start.Add(25 * time.Minute)) {
		t.Errorf("End = %v, want Start+25m", m.End)
	}
	if m.Teams[0].Players[0] != "OldName" {
		t.Errorf("expected summoner name fallback, got %q", m.Teams[0].Players[0])
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		call   func(c *Client) error
		status int
		want   error
	}{
		{
			name:   "match detail 403 is forbidden",
			path:   "/lol/match/v5/matches/EUN1_1",
			call:   func(c *Client) error { _, err := c.Match(context.Background(), player, "EUN1_1"); return err },
			status: http.StatusForbidden,
			want:   lol.ErrForbidden,
		},
		{
			name:   "match ids 403 is unauthorized",
			path:   "/lol/match/v5/matches/by-puuid/puuid-1/ids",
			call:   func(c *Client) error { _, err := c.RecentMatchIDs(context.Background(), player, 10); return err },
			status: http.StatusForbidden,
			want:   lol.ErrUnauthorized,
		},
		{
			name:   "match detail 401 is unauthorized",
			path:   "/lol/match/v5/matches/EUN1_1",
			call:   func(c *Client) error { _, err := c.Match(context.Background(), player, "EUN1_1"); return err },
			status: http.StatusUnauthorized,
			want:   lol.ErrUnauthorized,
		},
		{
			name:   "unknown account is not found",
			path:   "/riot/account/v1/accounts/by-riot-id/Nobody/EUNE",
			call:   func(c *Client) error { _, err := c.ResolvePlayer(context.Background(), "Nobody#EUNE"); return err },
			status: http.StatusNotFound,
			want:   lol.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc(tt.path, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			c := newTestClient(t, mux)

			err := tt.call(c)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != tt.status {
				t.Errorf("expected *StatusError with status %d, got %v", tt.status, err)
			}
		})
	}
}

func TestTransientErrorsAreRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/match/v5/matches/by-puuid/puuid-1/ids", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		if got := r.URL.Query().Get("count"); got != "5" {
			t.Errorf("count = %q, want 5", got)
		}
		fmt.Fprint(w, `["EUN1_3","EUN1_2"]`)
	})
	c := newTestClient(t, mux, WithRetry(3, time.Millisecond))

	ids, err := c.RecentMatchIDs(context.Background(), player, 5)
	if err != nil {
		t.Fatalf("RecentMatchIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "EUN1_3" {
		t.Errorf("ids = %v", ids)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server called %d times, want 2", got)
	}
}

func TestPermanentErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/match/v5/matches/EUN1_9", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	c := newTestClient(t, mux, WithRetry(5, time.Millisecond))

	if _, err := c.Match(context.Background(), player, "EUN1_9"); !errors.Is(err, lol.ErrForbidden) {
		t.Fatalf("Match() error = %v, want forbidden", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server called %d times, want 1", got)
	}
}

func TestInGameAndLiveMatch(t *testing.T) {
	const live = `{
  "gameId": 4242, "platformId": "EUN1", "gameMode": "ARAM", "gameStartTime": 1700000000000, "gameLength": 300,
  "participants": [
    {"puuid": "puuid-1", "riotId": "Faker#KR1", "teamId": 100, "championId": 103},
    {"puuid": "puuid-2", "riotId": "Enemy#EUW", "teamId": 200, "championId": 238}
  ]
}`
	var inGame atomic.Bool
	inGame.Store(true)
	mux := http.NewServeMux()
	mux.HandleFunc("/lol/spectator/v5/active-games/by-summoner/puuid-1", func(w http.ResponseWriter, r *http.Request) {
		if !inGame.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, live)
	})
	mux.HandleFunc("/api/versions.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `["14.20.1","14.19.1"]`)
	})
	mux.HandleFunc("/cdn/14.20.1/data/en_US/champion.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"Ahri":{"key":"103","name":"Ahri"},"Zed":{"key":"238","name":"Zed"}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New("k", "eun1", quietLogger(),
		WithBaseURL(srv.URL),
		WithRetry(1, time.Millisecond),
		WithChampions(NewChampions(srv.URL, quietLogger())))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	ok, err := c.InGame(ctx, player)
	if err != nil || !ok {
		t.Fatalf("InGame() = %v, %v, want true", ok, err)
	}

	m, err := c.LiveMatch(ctx, player)
	if err != nil {
		t.Fatalf("LiveMatch() error = %v", err)
	}
	if m.ID != "EUN1_4242" || m.Champion != "Ahri" || m.Mode != "ARAM" {
		t.Errorf("unexpected live match: %+v", m)
	}
	if m.Elapsed != 5*time.Minute {
		t.Errorf("Elapsed = %v, want 5m", m.Elapsed)
	}
	if len(m.Teams) != 2 || m.Teams[1].Players[0] != "Enemy#EUW" {
		t.Errorf("Teams = %+v", m.Teams)
	}

	inGame.Store(false)
	ok, err = c.InGame(ctx, player)
	if err != nil || ok {
		t.Errorf("InGame() = %v, %v, want false with no error", ok, err)
	}
	if m, err := c.LiveMatch(ctx, player); m != nil || err != nil {
		t.Errorf("LiveMatch() = %v, %v, want nil, nil", m, err)
	}
}

func TestResolvePlayer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/riot/account/v1/accounts/by-riot-id/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/riot/account/v1/accounts/by-riot-id/Hide on bush/KR1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"puuid":"puuid-1","gameName":"Hide on bush","tagLine":"KR1"}`)
	})
	mux.HandleFunc("/lol/summoner/v4/summoners/by-puuid/puuid-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"puuid":"puuid-1","summonerLevel":612}`)
	})
	c := newTestClient(t, mux)

	p, err := c.ResolvePlayer(context.Background(), "Hide on bush#KR1")
	if err != nil {
		t.Fatalf("ResolvePlayer() error = %v", err)
	}
	if p.ID != "puuid-1" || p.Name != "Hide on bush#KR1" || p.Level != 612 || p.Region != "eun1" {
		t.Errorf("unexpected player: %+v", p)
	}

	if _, err := c.ResolvePlayer(context.Background(), "no-tag"); err == nil || !strings.Contains(err.Error(), "name#tag") {
		t.Errorf("expected format error, got %v", err)
	}
}

func TestRegions(t *testing.T) {
	tests := []struct {
		in, platform, regional string
	}{
		{"eune", "eun1", "europe"},
		{"EUW1", "euw1", "europe"},
		{"na", "na1", "americas"},
		{"kr", "kr", "asia"},
		{"oce", "oc1", "sea"},
		{"atlantis", "", ""},
	}
	for _, tt := range tests {
		if got := NormalizePlatform(tt.in); got != tt.platform {
			t.Errorf("NormalizePlatform(%q) = %q, want %q", tt.in, got, tt.platform)
		}
		if got := RegionalRoute(tt.in); got != tt.regional {
			t.Errorf("RegionalRoute(%q) = %q, want %q", tt.in, got, tt.regional)
		}
	}

	if _, err := New("k", "atlantis", quietLogger()); err == nil {
		t.Error("New() with unknown region should fail")
	}
}
