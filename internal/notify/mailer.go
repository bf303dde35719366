package notify

import (
	"context"
	"log/slog"
)

// Mailer delivers messages that must leave the platform.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer writes outgoing mail to the log. Used until an email
// transport is configured.
type LogMailer struct {
	logger      *slog.Logger
	revealLinks bool
}

// NewLogMailer creates a log-backed mailer. Links carry live tokens, so they
// are only logged when revealLinks is set (development).
func NewLogMailer(logger *slog.Logger, revealLinks bool) *LogMailer {
	return &LogMailer{
		logger:      logger.With("component", "notify.mailer"),
		revealLinks: revealLinks,
	}
}

// SendPasswordReset logs the mail instead of sending it.
func (m *LogMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	if m.revealLinks {
		m.logger.InfoContext(ctx, "password reset mail", "email", email, "link", link)
		return nil
	}
	m.logger.InfoContext(ctx, "password reset mail", "email", email)
	return nil
}
