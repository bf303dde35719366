// Package notify carries user notifications over a Redis stream and
// persists them from a consumer-group worker.
package notify

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/xscan/xscan/internal/model"
)

const (
	maxTitleLength = 200
	maxBodyLength  = 1000
)

// Event is the stream payload for one notification.
type Event struct {
	Type       model.NotificationType `json:"type"`
	UserID     string                 `json:"uid"`
	Title      string                 `json:"title"`
	Body       string                 `json:"body,omitempty"`
	Email      string                 `json:"email,omitempty"` // password_reset only
	Link       string                 `json:"link,omitempty"`  // password_reset only
	OccurredAt int64                  `json:"t"`               // Unix milliseconds
}

// NewEvent builds an event stamped with the current time. Title and body
// are cut to the stored limits so user text cannot make it undeliverable.
func NewEvent(typ model.NotificationType, userID, title, body string) Event {
	return Event{
		Type:       typ,
		UserID:     userID,
		Title:      truncate(title, maxTitleLength),
		Body:       truncate(body, maxBodyLength),
		OccurredAt: time.Now().UnixMilli(),
	}
}

// truncate cuts s to at most max runes, ending in "..." when shortened.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-3]) + "..."
}

// PasswordReset builds the event that hands a reset link to the mailer.
func PasswordReset(userID, email, link string) Event {
	ev := NewEvent(model.NotifyPasswordReset, userID, "Password reset requested",
		"Use the link to choose a new password.")
	ev.Email = email
	ev.Link = link
	return ev
}

// Validate checks an event read back from the stream.
func (e Event) Validate() error {
	if !e.Type.IsValid() {
		return fmt.Errorf("unknown notification type %q", e.Type)
	}
	if e.UserID == "" {
		return errors.New("uid is required")
	}
	if e.Title == "" {
		return errors.New("title is required")
	}
	if utf8.RuneCountInString(e.Title) > maxTitleLength {
		return errors.New("title too long")
	}
	if utf8.RuneCountInString(e.Body) > maxBodyLength {
		return errors.New("body too long")
	}
	if e.OccurredAt <= 0 {
		return errors.New("t must be set")
	}
	if e.Type == model.NotifyPasswordReset && (e.Email == "" || e.Link == "") {
		return errors.New("password_reset requires email and link")
	}
	return nil
}

// Notification converts the event into the stored row. eventID is the
// stream id and makes persistence idempotent.
func (e Event) Notification(id, eventID string) *model.Notification {
	return &model.Notification{
		ID:        id,
		UserID:    e.UserID,
		Type:      e.Type,
		Title:     e.Title,
		Body:      e.Body,
		EventID:   eventID,
		CreatedAt: time.UnixMilli(e.OccurredAt).UTC(),
	}
}
