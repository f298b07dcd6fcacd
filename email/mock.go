package email

import (
	"context"
	"log/slog"
	"strings"
)

// MockProvider logs emails instead of sending them, for local runs without credentials.
type MockProvider struct {
	logger *slog.Logger
}

// NewMockProvider creates a new mock email provider.
func NewMockProvider(logger *slog.Logger) *MockProvider {
	return &MockProvider{
		logger: logger,
	}
}

// Send logs the email instead of sending it.
func (m *MockProvider) Send(_ context.Context, to, subject, htmlBody string) error {
	text := PlainText(htmlBody)
	m.logger.Info("MOCK EMAIL",
		"to", to,
		"subject", subject,
		"lines", strings.Count(text, "\n"),
		"body", text)
	return nil
}
