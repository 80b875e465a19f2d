// Package email delivers transactional mail through SendGrid, SMTP or Amazon SES.
package email

import (
	"context"
	"log/slog"
	"strings"

	"quickshift/internal/platform/config"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type noopMailer struct{}

func (noopMailer) Send(ctx context.Context, from, to, subject, body string) error {
	slog.Debug("email skipped", "to", to, "subject", subject)
	return nil
}

// New picks the provider named by cfg.EmailProvider, falling back to a no-op mailer.
func New(ctx context.Context, cfg config.Config) Mailer {
	switch cfg.EmailProvider {
	case config.EmailProviderSendGrid:
		return NewSendGrid(
			WithAPIKey(cfg.SendGridAPIKey),
			WithBaseURL(cfg.SendGridBaseURL),
		)
	case config.EmailProviderSMTP:
		return &smtpMailer{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			user:     cfg.SMTPUser,
			password: cfg.SMTPPassword,
			useTLS:   cfg.SMTPUseTLS,
		}
	case config.EmailProviderSES:
		mailer, err := NewSES(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Warn("ses mailer unavailable, email disabled", "region", cfg.AWSRegion, "err", err)
			return noopMailer{}
		}
		return mailer
	default:
		return noopMailer{}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
