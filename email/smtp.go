package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

// SMTPProvider sends emails through an SMTP relay. Port 465 uses implicit TLS,
// any other port upgrades with STARTTLS when the server offers it.
type SMTPProvider struct {
	logger   *slog.Logger
	host     string
	user     string
	password string
	fromAddr string
	port     int
}

// NewSMTPProvider creates a new SMTP email provider.
func NewSMTPProvider(host string, port int, user, password, fromAddr string, logger *slog.Logger) *SMTPProvider {
	return &SMTPProvider{
		logger:   logger,
		host:     host,
		port:     port,
		user:     user,
		password: password,
		fromAddr: fromAddr,
	}
}

// Send sends an email via SMTP.
func (p *SMTPProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := buildMessage(p.fromAddr, to, subject, htmlBody, time.Now())

	return retry.Do(
		func() error {
			startTime := time.Now()
			err := p.deliver(ctx, sanitizeEmailHeader(to), msg)
			duration := time.Since(startTime)
			if err != nil {
				p.logger.Warn("SMTP send failed, will retry",
					"host", p.host,
					"to", to,
					"duration_ms", duration.Milliseconds(),
					"error", err)
				return err
			}
			p.logger.Info("SMTP send completed",
				"host", p.host,
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
			p.logger.Info("Retrying SMTP email send after error", "attempt", n, "error", err)
		}),
	)
}

func (p *SMTPProvider) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(p.host, strconv.Itoa(p.port))
	dialer := &net.Dialer{Timeout: 30 * time.Second}
	tlsConfig := &tls.Config{ServerName: p.host, MinVersion: tls.VersionTLS12}

	var conn net.Conn
	var err error
	if p.port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
	}

	c, err := smtp.NewClient(conn, p.host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer func() {
		if closeErr := c.Close(); closeErr != nil {
			p.logger.Debug("SMTP close", "error", closeErr)
		}
	}()

	if p.port != 465 {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if p.user != "" {
		if err := c.Auth(smtp.PlainAuth("", p.user, p.password, p.host)); err != nil {
			return retry.Unrecoverable(fmt.Errorf("smtp auth: %w", err))
		}
	}
	if err := c.Mail(p.fromAddr); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return c.Quit()
}
