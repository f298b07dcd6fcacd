// Package main runs a monitor that watches one League of Legends player and reports
// finished matches and live status changes by email, Discord and a CSV log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"lol-monitor/config"
	"lol-monitor/dedup"
	"lol-monitor/discord"
	"lol-monitor/email"
	"lol-monitor/notify"
	"lol-monitor/pkg/lol"
	"lol-monitor/poll"
	"lol-monitor/riot"
	"lol-monitor/server"
	"lol-monitor/settings"
	storagecsv "lol-monitor/storage"
)

const version = "v1.0.0"

func main() {
	list := flag.Int("list", 0, "print the `n` most recent matches and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, closeLog, err := newLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log:", err)
		os.Exit(2)
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *list > 0 {
		if err := listMatches(ctx, cfg, *list, os.Stdout, logger); err != nil {
			logger.Error("Listing matches failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Monitor failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("lol-monitor starting", "version", version, "config", cfg.Redacted())

	client, err := newRiotClient(cfg, logger)
	if err != nil {
		return err
	}

	s := settings.New(settings.Config{
		CheckInterval:          cfg.CheckInterval,
		ActiveInterval:         cfg.ActiveInterval,
		Step:                   cfg.ActiveStep,
		StatusNotifications:    cfg.StatusNotifications,
		ErrorNotifications:     cfg.ErrorNotifications,
		ForbiddenNotifications: cfg.ForbiddenNotifications,
	})

	// Registered before any network setup so a control signal during a slow startup is not fatal.
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, controlSignals...)
	defer signal.Stop(sigs)
	go watchSignals(ctx, sigs, s, logger)

	channels, err := newChannels(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var recorder notify.Recorder
	csv, closeCSV, err := newRecorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCSV()
	if csv != nil {
		recorder = csv
		logger.Info("Matches will be logged to CSV", "location", csv.Location())
	}

	notifier := notify.New(s, recorder, logger, channels...)
	monitor := poll.New(client, notifier, s, dedup.New(cfg.DedupCapacity), poll.Config{
		RiotID:        cfg.Player,
		RecentMatches: cfg.RecentMatches,
		HungThreshold: cfg.HungThreshold,
		AliveInterval: cfg.AliveInterval,
		CallTimeout:   cfg.CallTimeout,
	}, logger)

	if err := monitor.Start(ctx); err != nil {
		return err
	}

	if cfg.ControlPort != "" {
		srv := server.New(monitor, s, logger)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.ControlPort); err != nil {
				logger.Error("Control server failed", "error", err)
			}
		}()
	}

	return monitor.Run(ctx)
}

func newLogger(path, level string) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stdout
	closer := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
		closer = func() { _ = f.Close() }
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
	return logger, closer, nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func newRiotClient(cfg *config.Config, logger *slog.Logger) (*riot.Client, error) {
	champions := riot.NewChampions(riot.DataDragonURL, logger)
	return riot.New(cfg.APIKey, cfg.Region, logger,
		riot.WithHTTPClient(&http.Client{Timeout: cfg.CallTimeout}),
		riot.WithChampions(champions))
}

func newChannels(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]notify.Channel, error) {
	var channels []notify.Channel

	if cfg.EmailTo != "" {
		provider, err := newEmailProvider(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, email.New(provider, logger, cfg.EmailTo))
		logger.Info("Email notifications enabled", "provider", cfg.EmailProvider, "to", cfg.EmailTo)
	}

	if cfg.DiscordWebhookURL != "" {
		hook, err := discord.New(cfg.DiscordWebhookURL, logger)
		if err != nil {
			return nil, err
		}
		channels = append(channels, hook)
		logger.Info("Discord notifications enabled")
	}

	if len(channels) == 0 {
		logger.Warn("No notification channel configured, events are only logged")
	}
	return channels, nil
}

func newEmailProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (email.Provider, error) {
	switch cfg.EmailProvider {
	case config.ProviderGmail:
		svc, err := initGmailService(ctx, cfg.GoogleCredentials)
		if err != nil {
			return nil, fmt.Errorf("gmail: %w", err)
		}
		return email.NewGmailProvider(svc, cfg.EmailFrom, logger), nil
	case config.ProviderBrevo:
		return email.NewBrevoProvider(cfg.BrevoAPIKey, cfg.EmailFrom, "lol-monitor", logger), nil
	case config.ProviderSMTP:
		return email.NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, logger), nil
	default:
		logger.Info("Mock email mode enabled")
		return email.NewMockProvider(logger), nil
	}
}

func initGmailService(ctx context.Context, credsJSON string) (*gmail.Service, error) {
	if credsJSON != "" {
		return gmail.NewService(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	}
	// The service account needs the gmail.send scope.
	if isCloudRun(ctx) {
		return gmail.NewService(ctx)
	}
	return nil, errors.New("GOOGLE_CREDENTIALS_JSON required when not running on Google Cloud")
}

// isCloudRun checks if we're running in a GCP environment by querying the metadata server.
func isCloudRun(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://metadata.google.internal/computeMetadata/v1/project/project-id", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Metadata-Flavor", "Google")

	resp, err := (&http.Client{Timeout: 2 * time.Second}).Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

// newRecorder returns nil when no CSV destination is configured.
func newRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storagecsv.CSV, func(), error) {
	switch {
	case cfg.CSVFile != "":
		return storagecsv.New(nil, "", "", cfg.CSVFile, logger), func() {}, nil
	case cfg.CSVBucket != "":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage client: %w", err)
		}
		closer := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close storage client", "error", err)
			}
		}
		return storagecsv.New(client, cfg.CSVBucket, cfg.CSVObject, "", logger), closer, nil
	default:
		return nil, func() {}, nil
	}
}

// Controls is what the operator signals adjust.
type Controls interface {
	ToggleStatusNotifications() bool
	IncreaseActiveInterval() time.Duration
	DecreaseActiveInterval() time.Duration
}

// controlSignals: SIGUSR1 toggles status notifications, SIGTRAP and SIGABRT raise and
// lower the in-game interval.
var controlSignals = []os.Signal{syscall.SIGUSR1, syscall.SIGTRAP, syscall.SIGABRT}

// watchSignals applies operator signals until ctx is cancelled.
func watchSignals(ctx context.Context, sigs <-chan os.Signal, c Controls, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			applySignal(sig, c, logger)
		}
	}
}

func applySignal(sig os.Signal, c Controls, logger *slog.Logger) {
	switch sig {
	case syscall.SIGUSR1:
		logger.Info("Status notifications toggled", "status_notifications", c.ToggleStatusNotifications())
	case syscall.SIGTRAP:
		logger.Info("Active check interval increased", "active_interval", c.IncreaseActiveInterval().String())
	case syscall.SIGABRT:
		logger.Info("Active check interval decreased", "active_interval", c.DecreaseActiveInterval().String())
	default:
		logger.Debug("Ignoring signal", "signal", sig.String())
	}
}

// History is the part of the game API needed to list matches.
type History interface {
	ResolvePlayer(ctx context.Context, riotID string) (lol.Player, error)
	RecentMatchIDs(ctx context.Context, p lol.Player, count int) ([]string, error)
	Match(ctx context.Context, p lol.Player, id string) (*lol.Match, error)
}

func listMatches(ctx context.Context, cfg *config.Config, n int, out io.Writer, logger *slog.Logger) error {
	client, err := newRiotClient(cfg, logger)
	if err != nil {
		return err
	}
	return printMatches(ctx, client, cfg.Player, n, out)
}

// printMatches writes the n most recent matches, newest first.
func printMatches(ctx context.Context, h History, riotID string, n int, out io.Writer) error {
	player, err := h.ResolvePlayer(ctx, riotID)
	if err != nil {
		return fmt.Errorf("resolve player %q: %w", riotID, err)
	}
	ids, err := h.RecentMatchIDs(ctx, player, n)
	if err != nil {
		return fmt.Errorf("match history: %w", err)
	}

	for i, id := range ids {
		if i > 0 {
			fmt.Fprintln(out)
		}
		m, err := h.Match(ctx, player, id)
		if err != nil {
			if errors.Is(err, lol.ErrForbidden) {
				fmt.Fprintf(out, "%s: match details unavailable\n", id)
				continue
			}
			return fmt.Errorf("match %s: %w", id, err)
		}
		r := notify.MatchReport(player, m)
		fmt.Fprintln(out, r.Subject)
		for _, f := range r.Fields {
			fmt.Fprintf(out, "  %s: %s\n", f.Name, f.Value)
		}
	}
	return nil
}
