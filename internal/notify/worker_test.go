package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
)

type fakeStore struct {
	mu    sync.Mutex
	seen  map[string]bool
	fails int
	saved []*model.Notification
}

func (s *fakeStore) CreateNotification(_ context.Context, n *model.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails > 0 {
		s.fails--
		return false, errors.New("db down")
	}
	if s.seen == nil {
		s.seen = map[string]bool{}
	}
	if s.seen[n.EventID] {
		return false, nil
	}
	s.seen[n.EventID] = true
	s.saved = append(s.saved, n)
	return true, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, email, _ string) error {
	m.sent = append(m.sent, email)
	return nil
}

func newTestWorker(store Store, mailer Mailer, rec metrics.Recorder) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(nil, store, mailer, logger, "test", rec)
	w.SetRetryBackoff(time.Millisecond)
	return w
}

func message(t *testing.T, ev Event) redis.XMessage {
	t.Helper()
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	return redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": string(data)}}
}

func TestDecodeMessage(t *testing.T) {
	ok := NewEvent(model.NotifyNewFollower, "u", "New follower", "")

	tests := []struct {
		name       string
		msg        redis.XMessage
		wantReason string
	}{
		{"valid", message(t, ok), ""},
		{"missing payload", redis.XMessage{ID: "1-0", Values: map[string]interface{}{}}, "invalid_format"},
		{"bad json", redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": "{"}}, "unmarshal_error"},
		{"invalid event", message(t, Event{Type: "nope"}), "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, reason, err := decodeMessage(tt.msg)
			if reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
			if (err != nil) != (tt.wantReason != "") {
				t.Errorf("err = %v", err)
			}
		})
	}
}

func TestWorkerHandle_PersistsOncePerEvent(t *testing.T) {
	store := &fakeStore{}
	rec := metrics.NewInMemory()
	w := newTestWorker(store, &fakeMailer{}, rec)
	ev := NewEvent(model.NotifyDonationReceived, "streamer-1", "New donation", "5.00 USD")

	for i := 0; i < 2; i++ {
		if err := w.handle(context.Background(), "1700-0", ev); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d notifications, want 1", len(store.saved))
	}
	snap := rec.Snapshot()
	if snap.NotificationsProcessed["success"] != 1 || snap.NotificationsProcessed["duplicate"] != 1 {
		t.Errorf("processed = %v", snap.NotificationsProcessed)
	}
}

func TestWorkerHandle_PasswordResetGoesToMailer(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	w := newTestWorker(store, mailer, nil)

	ev := PasswordReset("u", "a@example.com", "https://app/reset?token=t")
	if err := w.handle(context.Background(), "1-0", ev); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 1 || mailer.sent[0] != "a@example.com" {
		t.Errorf("mailer sent %v", mailer.sent)
	}
	if len(store.saved) != 0 {
		t.Error("password reset must not be stored")
	}
}

func TestWorkerHandleWithRetry(t *testing.T) {
	ev := NewEvent(model.NotifyNewFollower, "u", "New follower", "")

	store := &fakeStore{fails: 2}
	w := newTestWorker(store, &fakeMailer{}, nil)
	if err := w.handleWithRetry(context.Background(), "1-0", ev); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}

	store = &fakeStore{fails: DefaultMaxRetries}
	w = newTestWorker(store, &fakeMailer{}, nil)
	if err := w.handleWithRetry(context.Background(), "2-0", ev); err == nil {
		t.Fatal("expected failure after max retries")
	}
}
