package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xscan/xscan/internal/alert"
	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/notify"
	"github.com/xscan/xscan/internal/repository"
)

// Donation field limits.
const (
	MaxDonationMessageLength = 255
	MaxDonorNameLength       = 50
)

// CalculateFee splits amount into the platform fee and the streamer's net
// using basis points, rounding the fee half up.
func CalculateFee(amount, bps int64) (fee, net int64) {
	if amount <= 0 || bps <= 0 {
		return 0, amount
	}
	fee = (amount*bps + 5000) / 10000
	return fee, amount - fee
}

// DonationStore is the persistence used by DonationService.
type DonationStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateDonation(ctx context.Context, d *model.Donation, sent, received *model.Transaction) error
	ListDonations(ctx context.Context, df repository.DonationFilter, p model.Pagination) (*model.Page[model.Donation], error)
	GetSettings(ctx context.Context, streamerID string) (*model.OBSSettings, error)
	CreateDelivery(ctx context.Context, d *model.AlertDelivery) error
}

// DonationConfig holds donation limits and the fee rate.
type DonationConfig struct {
	Currency  string
	FeeBPS    int64
	MinAmount int64
	MaxAmount int64
}

// DonationService moves money from viewers to streamers.
type DonationService struct {
	store    DonationStore
	notifier Notifier
	cfg      DonationConfig
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewDonationService creates a new DonationService.
func NewDonationService(store DonationStore, notifier Notifier, cfg DonationConfig, logger *slog.Logger, recorder metrics.Recorder) *DonationService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &DonationService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "donation_service"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// DonateInput defines input for a donation.
type DonateInput struct {
	Amount      int64
	Message     string
	DonorName   string
	IsAnonymous bool
}

// Donate transfers amount from the donor to the streamer. Notification and
// alert enqueue happen after commit and never fail the donation.
func (s *DonationService) Donate(ctx context.Context, donorID, streamerUsername string, in DonateInput) (*model.Donation, error) {
	if in.Amount < s.cfg.MinAmount || in.Amount > s.cfg.MaxAmount {
		return nil, fieldError("amount", "range", fmt.Sprintf("amount must be between %d and %d", s.cfg.MinAmount, s.cfg.MaxAmount))
	}
	message := strings.TrimSpace(in.Message)
	if utf8.RuneCountInString(message) > MaxDonationMessageLength {
		return nil, fieldError("message", "max", fmt.Sprintf("message must be at most %d characters", MaxDonationMessageLength))
	}

	streamer, err := lookupStreamer(ctx, s.store, streamerUsername)
	if err != nil {
		return nil, err
	}
	if streamer.ID == donorID {
		return nil, ErrSelfDonation
	}

	donorName := strings.TrimSpace(in.DonorName)
	if donorName == "" {
		donor, err := s.store.GetUserByID(ctx, donorID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load donor: %w", err)
		}
		donorName = donor.DisplayName
	}
	if err := checkLength("donor_name", donorName, 1, MaxDonorNameLength); err != nil {
		return nil, err
	}

	fee, net := CalculateFee(in.Amount, s.cfg.FeeBPS)
	now := s.now().UTC()
	d := &model.Donation{
		ID:          newID(),
		DonorID:     donorID,
		StreamerID:  streamer.ID,
		Streamer:    streamer.Username,
		DonorName:   donorName,
		Message:     message,
		Amount:      in.Amount,
		Fee:         fee,
		NetAmount:   net,
		IsAnonymous: in.IsAnonymous,
		CreatedAt:   now,
	}
	sent := &model.Transaction{
		ID:          newID(),
		UserID:      donorID,
		Type:        model.TxDonationSent,
		Status:      model.TxCompleted,
		Amount:      in.Amount,
		NetAmount:   in.Amount,
		ReferenceID: d.ID,
		Description: "Donation to " + streamer.Username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	received := &model.Transaction{
		ID:          newID(),
		UserID:      streamer.ID,
		Type:        model.TxDonationReceived,
		Status:      model.TxCompleted,
		Amount:      in.Amount,
		Fee:         fee,
		NetAmount:   net,
		ReferenceID: d.ID,
		Description: "Donation from " + d.DisplayName(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateDonation(ctx, d, sent, received); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("create donation: %w", err)
	}
	s.metrics.IncDonation(d.Amount, d.Fee)
	s.logger.Info("donation created",
		slog.String("donation_id", d.ID),
		slog.String("streamer_id", d.StreamerID),
		slog.Int64("amount", d.Amount),
	)

	s.afterDonation(ctx, d)
	return d, nil
}

func (s *DonationService) afterDonation(ctx context.Context, d *model.Donation) {
	body := d.DisplayName() + " donated " + model.FormatAmount(d.Amount, s.cfg.Currency)
	if d.Message != "" {
		body += ": " + d.Message
	}
	publish(ctx, s.notifier, s.logger, notify.NewEvent(model.NotifyDonationReceived, d.StreamerID, "New donation", body))

	settings, err := s.store.GetSettings(ctx, d.StreamerID)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to load obs settings", slog.String("streamer_id", d.StreamerID), slog.String("error", err.Error()))
		return
	}
	if !settings.HasWebhook() || !settings.ShouldAlert(d.Amount) {
		return
	}

	delivery, err := alert.NewDelivery(d, settings, s.cfg.Currency, s.now())
	if err == nil {
		err = s.store.CreateDelivery(ctx, delivery)
	}
	if err != nil {
		s.logger.Warn("failed to enqueue alert", slog.String("donation_id", d.ID), slog.String("error", err.Error()))
	}
}

// Sent lists donations made by the user.
func (s *DonationService) Sent(ctx context.Context, donorID string, p model.Pagination) (*model.Page[model.Donation], error) {
	page, err := s.store.ListDonations(ctx, repository.DonationFilter{DonorID: donorID}, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list sent donations: %w", err)
	}
	return page, nil
}

// Received lists donations to the streamer with anonymous donors masked.
func (s *DonationService) Received(ctx context.Context, streamerID string, p model.Pagination) (*model.Page[model.Donation], error) {
	page, err := s.store.ListDonations(ctx, repository.DonationFilter{StreamerID: streamerID}, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list received donations: %w", err)
	}
	for i := range page.Items {
		page.Items[i] = *page.Items[i].Redacted()
	}
	return page, nil
}
