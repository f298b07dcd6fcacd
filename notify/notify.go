// Package notify turns activity events into reports and delivers them.
package notify

import (
	"context"
	"log/slog"
	"strings"

	"lol-monitor/pkg/lol"
	"lol-monitor/settings"
)

// Channel delivers a rendered report to people.
type Channel interface {
	Name() string
	Send(ctx context.Context, r lol.Report) error
}

// Recorder persists completed matches.
type Recorder interface {
	Record(ctx context.Context, m *lol.Match) error
}

// Settings exposes the notification toggles.
type Settings interface {
	Snapshot() settings.Snapshot
}

// Notifier logs every event, records finished matches and fans reports out to channels.
type Notifier struct {
	settings Settings
	recorder Recorder
	logger   *slog.Logger
	channels []Channel
}

// New creates a notifier. recorder may be nil.
func New(s Settings, recorder Recorder, logger *slog.Logger, channels ...Channel) *Notifier {
	return &Notifier{
		settings: s,
		recorder: recorder,
		logger:   logger,
		channels: channels,
	}
}

// Notify handles one event. Channel failures are logged and never returned.
func (n *Notifier) Notify(ctx context.Context, ev lol.Event) {
	r := Render(ev)
	n.log(ctx, ev, r)

	if ev.Kind == lol.MatchFinished && ev.Match != nil && n.recorder != nil {
		if err := n.recorder.Record(ctx, ev.Match); err != nil {
			n.logger.Warn("Cannot write CSV entry", "match_id", ev.Match.ID, "error", err)
		}
	}

	if !n.enabled(ev.Kind) {
		n.logger.Debug("Notifications disabled for event", "kind", ev.Kind.String())
		return
	}

	for _, ch := range n.channels {
		if err := ch.Send(ctx, r); err != nil {
			n.logger.Warn("Failed to send notification",
				"channel", ch.Name(),
				"kind", ev.Kind.String(),
				"subject", r.Subject,
				"error", err)
			continue
		}
		n.logger.Info("Notification sent", "channel", ch.Name(), "kind", ev.Kind.String())
	}
}

func (n *Notifier) enabled(kind lol.EventKind) bool {
	snap := n.settings.Snapshot()
	switch kind {
	case lol.Error:
		return snap.ErrorNotifications
	case lol.MatchForbidden:
		// Already gated by the forbidden toggle before the event is emitted.
		return true
	default:
		return snap.StatusNotifications
	}
}

func (n *Notifier) log(ctx context.Context, ev lol.Event, r lol.Report) {
	attrs := make([]any, 0, len(r.Fields))
	for _, f := range r.Fields {
		attrs = append(attrs, slog.String(fieldKey(f.Name), f.Value))
	}
	level := slog.LevelInfo
	if ev.Kind == lol.Error {
		level = slog.LevelError
	}
	n.logger.Log(ctx, level, r.Subject,
		"kind", ev.Kind.String(),
		slog.Group("report", attrs...))
}

// fieldKey converts a label such as "Kills/deaths/assists" into kills_deaths_assists.
func fieldKey(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
