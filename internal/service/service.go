// Package service provides business logic for the application.
//
// Services accept narrow interfaces over the repository and cache so they
// can be tested with in-memory fakes. Repository sentinels are translated
// into the errors declared here; handlers map these to HTTP responses.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/xscan/xscan/internal/notify"
	"github.com/xscan/xscan/internal/validation"
)

// Service errors.
var (
	// Authentication
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTOTPRequired       = errors.New("two-factor code required")
	ErrInvalidTOTP        = errors.New("invalid two-factor code")
	ErrAccountSuspended   = errors.New("account is suspended")

	// Two-factor state
	ErrTwoFactorEnabled    = errors.New("two-factor authentication is already enabled")
	ErrTwoFactorDisabled   = errors.New("two-factor authentication is not enabled")
	ErrTwoFactorNotPending = errors.New("no pending two-factor setup")

	// Not found
	ErrUserNotFound         = errors.New("user not found")
	ErrStreamerNotFound     = errors.New("streamer not found")
	ErrBankAccountNotFound  = errors.New("bank account not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrSettingsNotFound     = errors.New("obs settings not found")
	ErrOverlayNotFound      = errors.New("overlay not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Conflicts
	ErrEmailExists        = errors.New("email is already registered")
	ErrUsernameExists     = errors.New("username is already taken")
	ErrAlreadyStreamer    = errors.New("user is already a streamer")
	ErrApplicationPending = errors.New("a pending application already exists")
	ErrNotPending         = errors.New("only pending records can be changed")

	// Business rules
	ErrSelfFollow        = errors.New("cannot follow yourself")
	ErrSelfDonation      = errors.New("cannot donate to yourself")
	ErrSelfModification  = errors.New("admins cannot demote or suspend themselves")
	ErrHasBalance        = errors.New("withdraw your balance before deleting the account")
	ErrPendingWithdrawal = errors.New("account has a pending withdrawal")
	ErrBankAccountLimit  = errors.New("bank account limit reached")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Security utilities
	ErrDecryptionFailed = errors.New("ciphertext could not be decrypted")
	ErrInvalidCard      = errors.New("invalid card number")
)

// Notifier publishes notification events. Publishing is best effort.
type Notifier interface {
	Publish(ctx context.Context, ev notify.Event) (string, error)
}

// SecretBox encrypts values stored at rest.
type SecretBox interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

func newID() string {
	return ulid.Make().String()
}

// publish sends ev and logs failures. It never fails the caller.
func publish(ctx context.Context, n Notifier, logger *slog.Logger, ev notify.Event) {
	if n == nil {
		return
	}
	if _, err := n.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish notification",
			slog.String("type", string(ev.Type)),
			slog.String("user_id", ev.UserID),
			slog.String("error", err.Error()),
		)
	}
}

func fieldError(field, tag, message string) error {
	return validation.NewFieldError(field, tag, message)
}

// checkLength validates the rune length of a trimmed value.
func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return fieldError(field, "len", field+" must be between "+strconv.Itoa(min)+" and "+strconv.Itoa(max)+" characters")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
