// Package email sends activity reports by email via multiple providers.
package email

import (
	"context"
	"errors"
	"log/slog"

	"lol-monitor/pkg/lol"
)

// Provider defines the interface for email sending implementations.
type Provider interface {
	// Send sends an email with the given parameters.
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Sender renders reports and sends them to one recipient using a pluggable provider.
type Sender struct {
	provider Provider
	logger   *slog.Logger
	to       string
}

// New creates a new email sender with the given provider.
func New(provider Provider, logger *slog.Logger, to string) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
		to:       to,
	}
}

// Name identifies the channel in logs.
func (*Sender) Name() string {
	return "email"
}

// Send emails the report.
func (s *Sender) Send(ctx context.Context, r lol.Report) error {
	if s.to == "" {
		return errors.New("no recipient configured")
	}

	s.logger.Info("Sending email notification",
		"to", s.to,
		"subject", r.Subject,
		"field_count", len(r.Fields))

	return s.provider.Send(ctx, s.to, r.Subject, formatReportBody(r))
}
