package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
)

func TestCalculateFee(t *testing.T) {
	t.Parallel()

	tests := []struct {
		amount, bps       int64
		wantFee, wantNet int64
	}{
		{10000, 500, 500, 9500},
		{100, 500, 5, 95},
		{110, 500, 6, 104}, // 5.5 rounds half up
		{109, 500, 5, 104}, // 5.45 rounds down
		{1, 500, 0, 1},
		{10, 500, 1, 9}, // 0.5 rounds up
		{12345, 250, 309, 12036},
		{5000, 0, 0, 5000},
		{1000000, 5000, 500000, 500000},
	}
	for _, tt := range tests {
		fee, net := CalculateFee(tt.amount, tt.bps)
		if fee != tt.wantFee || net != tt.wantNet {
			t.Errorf("CalculateFee(%d, %d) = (%d, %d), want (%d, %d)", tt.amount, tt.bps, fee, net, tt.wantFee, tt.wantNet)
		}
		if fee+net != tt.amount {
			t.Errorf("fee + net must equal amount for %d", tt.amount)
		}
	}
}

type donationFixture struct {
	svc      *DonationService
	store    *memStore
	notifier *fakeNotifier
	metrics  *metrics.InMemoryRecorder
	donor    *model.User
	streamer *model.User
}

func newDonationFixture(t *testing.T) *donationFixture {
	t.Helper()
	f := &donationFixture{
		store:    newMemStore(),
		notifier: &fakeNotifier{},
		metrics:  metrics.NewInMemory(),
	}
	f.svc = NewDonationService(f.store, f.notifier, DonationConfig{
		Currency:  "USD",
		FeeBPS:    500,
		MinAmount: 100,
		MaxAmount: 1000000,
	}, discardLogger(), f.metrics)
	f.donor = f.store.addUser("viewer", model.RoleUser, 10000)
	f.streamer = f.store.addUser("streamer", model.RoleStreamer, 0)
	return f
}

func TestDonationService_Donate(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()

	d, err := f.svc.Donate(ctx, f.donor.ID, "Streamer", DonateInput{Amount: 1000, Message: " gg "})
	if err != nil {
		t.Fatalf("Donate failed: %v", err)
	}
	if d.Fee != 50 || d.NetAmount != 950 || d.Fee+d.NetAmount != d.Amount {
		t.Errorf("unexpected split fee=%d net=%d", d.Fee, d.NetAmount)
	}
	if d.DonorName != "Viewer" || d.Message != "gg" {
		t.Errorf("unexpected donor name %q or message %q", d.DonorName, d.Message)
	}
	if got := f.store.balance(f.donor.ID); got != 9000 {
		t.Errorf("donor balance = %d, want 9000", got)
	}
	if got := f.store.balance(f.streamer.ID); got != 950 {
		t.Errorf("streamer balance = %d, want 950", got)
	}

	events := f.notifier.published()
	if len(events) != 1 || events[0].Type != model.NotifyDonationReceived || events[0].UserID != f.streamer.ID {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].Body != "Viewer donated 10.00 USD: gg" {
		t.Errorf("unexpected body %q", events[0].Body)
	}

	snap := f.metrics.Snapshot()
	if snap.Donations != 1 || snap.DonationVolume != 1000 || snap.FeesCollected != 50 {
		t.Errorf("unexpected metrics %+v", snap)
	}
	if len(f.store.deliveries) != 0 {
		t.Error("no alert delivery expected without a webhook")
	}
}

func TestDonationService_DonateRejects(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()
	plain := f.store.addUser("plainuser", model.RoleUser, 0)

	tests := []struct {
		name    string
		donor   string
		target  string
		input   DonateInput
		wantErr error
	}{
		{"self donation", f.streamer.ID, "streamer", DonateInput{Amount: 500}, ErrSelfDonation},
		{"not a streamer", f.donor.ID, plain.Username, DonateInput{Amount: 500}, ErrStreamerNotFound},
		{"unknown streamer", f.donor.ID, "ghost", DonateInput{Amount: 500}, ErrStreamerNotFound},
		{"insufficient funds", f.donor.ID, "streamer", DonateInput{Amount: 20000}, ErrInsufficientFunds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Donate(ctx, tt.donor, tt.target, tt.input); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := f.svc.Donate(ctx, f.donor.ID, "streamer", DonateInput{Amount: 99}); err == nil {
		t.Error("amount below minimum should fail")
	}
	if _, err := f.svc.Donate(ctx, f.donor.ID, "streamer", DonateInput{Amount: 500, Message: strings.Repeat("x", 256)}); err == nil {
		t.Error("long message should fail")
	}
	if got := f.store.balance(f.donor.ID); got != 10000 {
		t.Errorf("failed donations must not move funds, balance = %d", got)
	}
}

func TestDonationService_EnqueuesAlert(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()

	s := model.DefaultOBSSettings(f.streamer.ID, "tok")
	s.MinAlertAmount = 500
	s.WebhookURL = "https://hooks.example.com/alerts"
	s.WebhookSecretEnc = "enc:whsec_x"
	if err := f.store.CreateSettings(ctx, s); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Donate(ctx, f.donor.ID, "streamer", DonateInput{Amount: 200}); err != nil {
		t.Fatal(err)
	}
	if len(f.store.deliveries) != 0 {
		t.Fatal("donation below min_alert_amount must not alert")
	}

	d, err := f.svc.Donate(ctx, f.donor.ID, "streamer", DonateInput{Amount: 1234, IsAnonymous: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(f.store.deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(f.store.deliveries))
	}
	delivery := f.store.deliveries[0]
	if delivery.DonationID != d.ID || delivery.Status != model.DeliveryStatusPending {
		t.Errorf("unexpected delivery %+v", delivery)
	}
	var payload model.AlertPayload
	if err := json.Unmarshal([]byte(delivery.PayloadJSON), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.DonorName != model.AnonymousDonorName || payload.AlertText != "Anonymous donated 12.34 USD!" {
		t.Errorf("anonymous donor leaked in payload %+v", payload)
	}
}

func TestDonationService_NotifierFailureDoesNotFail(t *testing.T) {
	f := newDonationFixture(t)
	f.notifier.err = errors.New("redis down")

	if _, err := f.svc.Donate(context.Background(), f.donor.ID, "streamer", DonateInput{Amount: 500}); err != nil {
		t.Fatalf("donation should succeed when publishing fails: %v", err)
	}
}

func TestDonationService_ReceivedMasksAnonymous(t *testing.T) {
	f := newDonationFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Donate(ctx, f.donor.ID, "streamer", DonateInput{Amount: 500, IsAnonymous: true, DonorName: "Secret Sam"}); err != nil {
		t.Fatal(err)
	}

	received, err := f.svc.Received(ctx, f.streamer.ID, model.Pagination{})
	if err != nil {
		t.Fatal(err)
	}
	if received.Total != 1 {
		t.Fatalf("expected 1 donation, got %d", received.Total)
	}
	got := received.Items[0]
	if got.DonorName != model.AnonymousDonorName || got.DonorID != "" {
		t.Errorf("anonymous donor exposed to streamer: %+v", got)
	}

	sent, err := f.svc.Sent(ctx, f.donor.ID, model.Pagination{})
	if err != nil {
		t.Fatal(err)
	}
	if sent.Items[0].DonorName != "Secret Sam" {
		t.Errorf("donor should see own name, got %q", sent.Items[0].DonorName)
	}
}
