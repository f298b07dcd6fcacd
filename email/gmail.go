package email

import (
	"context"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/gmail/v1"
)

// GmailProvider sends emails via Gmail API.
type GmailProvider struct {
	service  *gmail.Service
	logger   *slog.Logger
	fromAddr string
}

// NewGmailProvider creates a new Gmail email provider. fromAddr may be empty, in which
// case Gmail uses the authenticated account.
func NewGmailProvider(service *gmail.Service, fromAddr string, logger *slog.Logger) *GmailProvider {
	return &GmailProvider{
		service:  service,
		logger:   logger,
		fromAddr: fromAddr,
	}
}

// Send sends an email via Gmail API.
func (g *GmailProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	encoded := base64.URLEncoding.EncodeToString(buildMessage(g.fromAddr, to, subject, htmlBody, time.Now()))

	return retry.Do(
		func() error {
			g.logger.Info("Gmail API request starting",
				"method", "POST",
				"endpoint", "users.messages.send",
				"to", to,
				"subject", subject)

			startTime := time.Now()
			_, err := g.service.Users.Messages.Send("me", &gmail.Message{
				Raw: encoded,
			}).Context(ctx).Do()
			duration := time.Since(startTime)

			if err != nil {
				g.logger.Warn("Gmail API send failed, will retry",
					"to", to,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}

			g.logger.Info("Gmail API request completed",
				"endpoint", "users.messages.send",
				"to", to,
				"duration_ms", duration.Milliseconds())

			return nil
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.MaxDelay(time.Minute),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			g.logger.Info("Retrying Gmail email send after error", "attempt", n, "error", err)
		}),
	)
}
