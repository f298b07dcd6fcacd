// Package discord posts activity reports to a Discord channel through a webhook.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/codeGROOVE-dev/retry"

	"lol-monitor/pkg/lol"
)

// Embed limits enforced by Discord.
const (
	maxTitle  = 256
	maxName   = 256
	maxValue  = 1024
	maxFields = 25
)

const embedColor = 0xC89B3C

// Webhook is a notification channel bound to one Discord webhook.
type Webhook struct {
	session *discordgo.Session
	logger  *slog.Logger
	id      string
	token   string
}

// New creates a webhook channel from a URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func New(webhookURL string, logger *slog.Logger) (*Webhook, error) {
	id, token, err := ParseURL(webhookURL)
	if err != nil {
		return nil, err
	}
	// Webhook execution needs no bot token.
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Webhook{session: sess, logger: logger, id: id, token: token}, nil
}

// ParseURL extracts the webhook id and token.
func ParseURL(webhookURL string) (id, token string, err error) {
	u, err := url.Parse(webhookURL)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook URL: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+2 < len(parts); i++ {
		if parts[i] == "webhooks" && parts[i+1] != "" && parts[i+2] != "" {
			return parts[i+1], parts[i+2], nil
		}
	}
	return "", "", fmt.Errorf("webhook URL %q has no /webhooks/<id>/<token> path", webhookURL)
}

// Name identifies the channel in logs.
func (*Webhook) Name() string {
	return "discord"
}

// Send posts the report as an embed.
func (w *Webhook) Send(ctx context.Context, r lol.Report) error {
	params := &discordgo.WebhookParams{
		Username: "lol-monitor",
		Embeds:   []*discordgo.MessageEmbed{Embed(r)},
	}

	return retry.Do(
		func() error {
			start := time.Now()
			_, err := w.session.WebhookExecute(w.id, w.token, false, params, discordgo.WithContext(ctx))
			if err != nil {
				w.logger.Warn("Discord webhook failed, will retry",
					"duration_ms", time.Since(start).Milliseconds(),
					"error", err)
				return err
			}
			w.logger.Info("Discord webhook delivered",
				"subject", r.Subject,
				"duration_ms", time.Since(start).Milliseconds())
			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(30*time.Second),
		retry.MaxJitter(2*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Info("Retrying Discord webhook after error", "attempt", n, "error", err)
		}),
	)
}

// Embed lays a report out as a Discord embed, team rosters full width and
// everything else inline.
func Embed(r lol.Report) *discordgo.MessageEmbed {
	emb := &discordgo.MessageEmbed{
		Title: truncate(r.Subject, maxTitle),
		Color: embedColor,
	}
	if r.Heading != "" && r.Heading != r.Subject {
		emb.Description = r.Heading
	}
	for _, f := range r.Fields {
		if len(emb.Fields) == maxFields {
			break
		}
		if f.Name == "Timestamp" {
			continue
		}
		emb.Fields = append(emb.Fields, &discordgo.MessageEmbedField{
			Name:   truncate(f.Name, maxName),
			Value:  truncate(f.Value, maxValue),
			Inline: !strings.HasSuffix(f.Name, " team"),
		})
	}
	at := r.At
	if at.IsZero() {
		at = time.Now()
	}
	emb.Timestamp = at.UTC().Format(time.RFC3339)
	return emb
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
