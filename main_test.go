package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"lol-monitor/pkg/lol"
	"lol-monitor/settings"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplySignal(t *testing.T) {
	s := settings.New(settings.Config{ActiveInterval: time.Minute, Step: 30 * time.Second})

	applySignal(syscall.SIGUSR1, s, quietLogger())
	if !s.Snapshot().StatusNotifications {
		t.Error("SIGUSR1 should toggle status notifications on")
	}

	applySignal(syscall.SIGTRAP, s, quietLogger())
	if got := s.Snapshot().ActiveInterval; got != 90*time.Second {
		t.Errorf("after SIGTRAP active interval = %s, want 1m30s", got)
	}

	applySignal(syscall.SIGABRT, s, quietLogger())
	applySignal(syscall.SIGABRT, s, quietLogger())
	applySignal(syscall.SIGABRT, s, quietLogger())
	if got := s.Snapshot().ActiveInterval; got != 30*time.Second {
		t.Errorf("after SIGABRT active interval = %s, want 30s", got)
	}

	applySignal(syscall.SIGHUP, s, quietLogger())
	if !s.Snapshot().StatusNotifications {
		t.Error("unrelated signals should change nothing")
	}
}

type fakeHistory struct {
	matches map[string]*lol.Match
	ids     []string
}

func (f *fakeHistory) ResolvePlayer(_ context.Context, riotID string) (lol.Player, error) {
	if riotID != "Faker#KR1" {
		return lol.Player{}, lol.ErrNotFound
	}
	return lol.Player{ID: "puuid", Name: riotID, Region: "kr"}, nil
}

func (f *fakeHistory) RecentMatchIDs(_ context.Context, _ lol.Player, count int) ([]string, error) {
	return f.ids[:min(count, len(f.ids))], nil
}

func (f *fakeHistory) Match(_ context.Context, _ lol.Player, id string) (*lol.Match, error) {
	m, ok := f.matches[id]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", id, lol.ErrForbidden)
	}
	return m, nil
}

func TestPrintMatches(t *testing.T) {
	start := time.Date(2025, 10, 1, 20, 0, 0, 0, time.UTC)
	h := &fakeHistory{
		ids: []string{"KR_2", "KR_1", "KR_0"},
		matches: map[string]*lol.Match{
			"KR_2": {ID: "KR_2", Start: start, End: start.Add(30 * time.Minute), Duration: 30 * time.Minute, Champion: "Ahri", Victory: true},
		},
	}

	var out bytes.Buffer
	if err := printMatches(context.Background(), h, "Faker#KR1", 2, &out); err != nil {
		t.Fatalf("printMatches() error = %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "LoL user Faker#KR1 match summary") || !strings.Contains(got, "Champion: Ahri") {
		t.Errorf("output missing match summary:\n%s", got)
	}
	if !strings.Contains(got, "KR_1: match details unavailable") {
		t.Errorf("output missing forbidden match line:\n%s", got)
	}
	if strings.Contains(got, "KR_0") {
		t.Errorf("output lists more than 2 matches:\n%s", got)
	}

	err := printMatches(context.Background(), h, "Nobody#EUW", 2, &out)
	if !errors.Is(err, lol.ErrNotFound) {
		t.Errorf("unknown player error = %v, want ErrNotFound", err)
	}
}

func TestWatchSignalsAppliesUntilCancelled(t *testing.T) {
	s := settings.New(settings.Config{ActiveInterval: time.Minute, Step: 30 * time.Second})
	sigs := make(chan os.Signal, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		watchSignals(ctx, sigs, s, quietLogger())
		close(done)
	}()

	sigs <- syscall.SIGABRT
	deadline := time.After(5 * time.Second)
	for s.Snapshot().ActiveInterval != 30*time.Second {
		select {
		case <-deadline:
			t.Fatalf("active interval = %s, want 30s after SIGABRT", s.Snapshot().ActiveInterval)
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watchSignals did not return after cancel")
	}
}

func TestControlSignalsCoverOperatorControls(t *testing.T) {
	want := map[os.Signal]bool{syscall.SIGUSR1: true, syscall.SIGTRAP: true, syscall.SIGABRT: true}
	if len(controlSignals) != len(want) {
		t.Fatalf("controlSignals = %v", controlSignals)
	}
	for _, sig := range controlSignals {
		if !want[sig] {
			t.Errorf("unexpected control signal %v", sig)
		}
	}
}
