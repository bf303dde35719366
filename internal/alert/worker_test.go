package alert

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
)

type outcome struct {
	success   bool
	status    *int
	exhausted bool
	errMsg    string
	next      time.Time
}

type fakeStore struct {
	mu       sync.Mutex
	due      []*model.AlertDelivery
	target   *Target
	outcomes map[string]outcome
	limit    int
}

func (s *fakeStore) ClaimDue(_ context.Context, limit int, _ time.Duration) ([]*model.AlertDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limit = limit
	out := s.due
	s.due = nil
	return out, nil
}

func (s *fakeStore) GetTarget(context.Context, string) (*Target, error) {
	if s.target == nil {
		return nil, ErrTargetNotFound
	}
	return s.target, nil
}

func (s *fakeStore) MarkSuccess(_ context.Context, id string, status int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[id] = outcome{success: true, status: &status}
	return nil
}

func (s *fakeStore) MarkFailure(_ context.Context, id string, status *int, msg string, next time.Time, exhausted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[id] = outcome{status: status, errMsg: msg, next: next, exhausted: exhausted}
	return nil
}

func (s *fakeStore) QueueDepth(context.Context) (int64, error) { return 0, nil }

type plainSecrets struct{}

func (plainSecrets) Decrypt(s string) (string, error) {
	if s == "corrupt" {
		return "", errors.New("bad ciphertext")
	}
	return s, nil
}

func newDelivery(t *testing.T, attempts int) *model.AlertDelivery {
	t.Helper()
	d := &model.Donation{ID: "don-1", StreamerID: "s-1", DonorName: "bob", Amount: 500, Fee: 25, NetAmount: 475, CreatedAt: time.Now()}
	s := model.DefaultOBSSettings("s-1", "tok")
	del, err := NewDelivery(d, s, "USD", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	del.AttemptCount = attempts
	return del
}

func newTestWorker(store Store, rec metrics.Recorder) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(store, plainSecrets{}, true, logger, rec)
}

func TestWorkerDeliver_SignsRequest(t *testing.T) {
	var (
		gotSig, gotTS, gotID string
		gotBody              []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderSignature)
		gotTS = r.Header.Get(HeaderTimestamp)
		gotID = r.Header.Get(HeaderDeliveryID)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	delivery := newDelivery(t, 0)
	store := &fakeStore{target: &Target{URL: srv.URL, SecretEnc: "whsec_test"}, outcomes: map[string]outcome{}}
	rec := metrics.NewInMemory()
	w := newTestWorker(store, rec)

	if err := w.deliver(context.Background(), delivery); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if !store.outcomes[delivery.ID].success {
		t.Fatalf("outcome = %+v", store.outcomes[delivery.ID])
	}
	if gotID != delivery.ID {
		t.Errorf("delivery id header = %q", gotID)
	}
	ts, _ := strconv.ParseInt(gotTS, 10, 64)
	if err := VerifySignature("whsec_test", gotSig, ts, gotBody, DefaultReplayWindow, time.Now()); err != nil {
		t.Errorf("signature does not verify: %v", err)
	}

	var payload model.AlertPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.AlertText != "bob donated 5.00 USD!" {
		t.Errorf("alert text = %q", payload.AlertText)
	}
	if rec.Snapshot().AlertDeliveries["success"] != 1 {
		t.Errorf("metrics = %v", rec.Snapshot().AlertDeliveries)
	}
}

func TestWorkerDeliver_RetriesOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	delivery := newDelivery(t, 0)
	store := &fakeStore{target: &Target{URL: srv.URL, SecretEnc: "s"}, outcomes: map[string]outcome{}}
	w := newTestWorker(store, nil)
	now := time.Now()
	w.now = func() time.Time { return now }

	if err := w.deliver(context.Background(), delivery); err != nil {
		t.Fatal(err)
	}
	got := store.outcomes[delivery.ID]
	if got.exhausted || got.status == nil || *got.status != http.StatusBadGateway {
		t.Fatalf("outcome = %+v", got)
	}
	wait := got.next.Sub(now)
	if wait < 48*time.Second || wait > 72*time.Second {
		t.Errorf("first retry in %v, want about 1m", wait)
	}
}

func TestWorkerDeliver_ExhaustsOnLastAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	delivery := newDelivery(t, DefaultMaxAttempts-1)
	store := &fakeStore{target: &Target{URL: srv.URL, SecretEnc: "s"}, outcomes: map[string]outcome{}}
	w := newTestWorker(store, nil)

	_ = w.deliver(context.Background(), delivery)
	if !store.outcomes[delivery.ID].exhausted {
		t.Errorf("expected exhausted, got %+v", store.outcomes[delivery.ID])
	}
}

func TestWorkerDeliver_DoesNotFollowRedirects(t *testing.T) {
	hit := false
	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hit = true
	}))
	defer final.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusTemporaryRedirect)
	}))
	defer srv.Close()

	delivery := newDelivery(t, 0)
	store := &fakeStore{target: &Target{URL: srv.URL, SecretEnc: "s"}, outcomes: map[string]outcome{}}
	w := newTestWorker(store, nil)

	_ = w.deliver(context.Background(), delivery)
	if hit {
		t.Error("redirect was followed")
	}
	if store.outcomes[delivery.ID].success {
		t.Error("redirect must not count as success")
	}
}

func TestWorkerDeliver_MissingTargetExhausts(t *testing.T) {
	delivery := newDelivery(t, 0)

	tests := []struct {
		name   string
		target *Target
	}{
		{"no webhook", nil},
		{"corrupt secret", &Target{URL: "https://hooks.example.com", SecretEnc: "corrupt"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{target: tt.target, outcomes: map[string]outcome{}}
			w := newTestWorker(store, nil)
			if err := w.deliver(context.Background(), delivery); err != nil {
				t.Fatal(err)
			}
			if !store.outcomes[delivery.ID].exhausted {
				t.Errorf("outcome = %+v", store.outcomes[delivery.ID])
			}
		})
	}
}

func TestNewDelivery_MasksAnonymousDonor(t *testing.T) {
	d := &model.Donation{ID: "don-2", DonorName: "carol", IsAnonymous: true, Amount: 1234, Message: "gg"}
	s := model.DefaultOBSSettings("s-1", "tok")

	del, err := NewDelivery(d, s, "EUR", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	var payload model.AlertPayload
	if err := json.Unmarshal([]byte(del.PayloadJSON), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.DonorName != model.AnonymousDonorName {
		t.Errorf("donor name leaked: %q", payload.DonorName)
	}
	if payload.DeliveryID != del.ID || del.Status != model.DeliveryStatusPending || del.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("delivery = %+v", del)
	}
	if payload.AlertText != "Anonymous donated 12.34 EUR!" {
		t.Errorf("alert text = %q", payload.AlertText)
	}
}

func TestWorker_Tuning(t *testing.T) {
	store := &fakeStore{outcomes: map[string]outcome{}}
	w := newTestWorker(store, nil)

	w.SetBatchSize(0)
	w.SetPollInterval(-time.Second)
	if w.batchSize != DefaultBatchSize || w.pollInterval != DefaultPollInterval {
		t.Errorf("non-positive overrides should be ignored: %d, %s", w.batchSize, w.pollInterval)
	}

	w.SetBatchSize(7)
	w.SetPollInterval(time.Second)
	if err := w.processOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if store.limit != 7 {
		t.Errorf("ClaimDue limit = %d, want 7", store.limit)
	}
	if w.pollInterval != time.Second {
		t.Errorf("pollInterval = %s, want 1s", w.pollInterval)
	}
}
