// Package server exposes monitor status and the operator controls over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"lol-monitor/pkg/lol"
	"lol-monitor/settings"
)

// Monitor reports what is being tracked.
type Monitor interface {
	Player() lol.Player
	State() lol.ActivityState
	Processed() int
}

// Controls are the runtime adjustments an operator can make.
type Controls interface {
	Snapshot() settings.Snapshot
	ToggleStatusNotifications() bool
	IncreaseActiveInterval() time.Duration
	DecreaseActiveInterval() time.Duration
}

// Status is the GET /status document.
type Status struct {
	Player    lol.Player        `json:"player"`
	State     lol.ActivityState `json:"state"`
	Settings  settings.Snapshot `json:"settings"`
	Processed int               `json:"processed_matches"`
}

// Server handles HTTP requests.
type Server struct {
	monitor  Monitor
	controls Controls
	logger   *slog.Logger
	limiter  *rateLimiter
}

// New creates a control server.
func New(monitor Monitor, controls Controls, logger *slog.Logger) *Server {
	return &Server{
		monitor:  monitor,
		controls: controls,
		logger:   logger,
		limiter:  newRateLimiter(30, time.Minute),
	}
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/control/status-notifications", s.control(func() any {
		return map[string]bool{"status_notifications": s.controls.ToggleStatusNotifications()}
	}))
	mux.HandleFunc("/control/active-interval/increase", s.control(func() any {
		return map[string]string{"active_interval": s.controls.IncreaseActiveInterval().String()}
	}))
	mux.HandleFunc("/control/active-interval/decrease", s.control(func() any {
		return map[string]string{"active_interval": s.controls.DecreaseActiveInterval().String()}
	}))
	return mux
}

// ListenAndServe serves on port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Control server shutdown failed", "error", err)
		}
	}()

	s.logger.Info("Starting control server", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, Status{
		Player:    s.monitor.Player(),
		State:     s.monitor.State(),
		Settings:  s.controls.Snapshot(),
		Processed: s.monitor.Processed(),
	})
}

// control wraps a settings change in method and rate checks.
func (s *Server) control(apply func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		ip := clientIP(r)
		if !s.limiter.allow(ip) {
			s.logger.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		result := apply()
		s.logger.Info("Setting changed over HTTP", "path", r.URL.Path, "ip", ip, "result", result)
		s.writeJSON(w, result)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// rateLimiter allows limit requests per client within window.
type rateLimiter struct {
	clients map[string][]time.Time
	now     func() time.Time
	window  time.Duration
	limit   int
	mu      sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string][]time.Time),
		now:     time.Now,
		window:  window,
		limit:   limit,
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	var recent []time.Time
	for _, ts := range rl.clients[ip] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= rl.limit {
		rl.clients[ip] = recent
		return false
	}
	rl.clients[ip] = append(recent, now)
	return true
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
