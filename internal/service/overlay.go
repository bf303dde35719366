package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xscan/xscan/internal/alert"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/security"
	"github.com/xscan/xscan/internal/validation"
)

// Overlay limits.
const (
	MinAlertDurationSeconds = 3
	MaxAlertDurationSeconds = 60
	OverlayAlertWindow      = 24 * time.Hour
	MaxOverlayAlerts        = 20
)

// OverlayStore is the persistence used by OverlayService.
type OverlayStore interface {
	CreateSettings(ctx context.Context, s *model.OBSSettings) error
	GetSettings(ctx context.Context, streamerID string) (*model.OBSSettings, error)
	GetSettingsByToken(ctx context.Context, token string) (*model.OBSSettings, error)
	UpdateSettings(ctx context.Context, s *model.OBSSettings) (*model.OBSSettings, error)
	SetOverlayToken(ctx context.Context, streamerID, token string) error
	SetWebhookSecret(ctx context.Context, streamerID, secretEnc string) error
	RecentDonations(ctx context.Context, streamerID string, minAmount int64, since time.Time, limit int) ([]model.Donation, error)
}

// OverlayConfig holds overlay settings.
type OverlayConfig struct {
	BaseURL            string
	Currency           string
	AlertAllowInsecure bool
}

// OverlayService manages OBS settings and serves the public overlay feed.
type OverlayService struct {
	store  OverlayStore
	box    SecretBox
	cfg    OverlayConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewOverlayService creates a new OverlayService.
func NewOverlayService(store OverlayStore, box SecretBox, cfg OverlayConfig, logger *slog.Logger) *OverlayService {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &OverlayService{
		store:  store,
		box:    box,
		cfg:    cfg,
		logger: logger.With("component", "overlay_service"),
		now:    time.Now,
	}
}

// SettingsView is the streamer-facing view of OBS settings.
type SettingsView struct {
	*model.OBSSettings
	HasWebhookSecret bool   `json:"has_webhook_secret"`
	OverlayURL       string `json:"overlay_url"`
}

func (s *OverlayService) view(st *model.OBSSettings) *SettingsView {
	return &SettingsView{
		OBSSettings:      st,
		HasWebhookSecret: st.WebhookSecretEnc != "",
		OverlayURL:       s.cfg.BaseURL + "/overlay/" + st.OverlayToken,
	}
}

// Settings returns the streamer's settings, creating defaults if missing.
func (s *OverlayService) Settings(ctx context.Context, streamerID string) (*SettingsView, error) {
	st, err := s.load(ctx, streamerID)
	if err != nil {
		return nil, err
	}
	return s.view(st), nil
}

func (s *OverlayService) load(ctx context.Context, streamerID string) (*model.OBSSettings, error) {
	st, err := s.store.GetSettings(ctx, streamerID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, repository.ErrSettingsNotFound) {
		return nil, fmt.Errorf("load obs settings: %w", err)
	}

	token, err := security.RandomToken(overlayTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate overlay token: %w", err)
	}
	if err := s.store.CreateSettings(ctx, model.DefaultOBSSettings(streamerID, token)); err != nil {
		return nil, fmt.Errorf("create obs settings: %w", err)
	}
	st, err = s.store.GetSettings(ctx, streamerID)
	if err != nil {
		return nil, fmt.Errorf("load obs settings: %w", err)
	}
	return st, nil
}

// SettingsInput is a full replacement of the editable settings.
type SettingsInput struct {
	MinAlertAmount       int64
	AlertDurationSeconds int
	AlertSoundURL        string
	AlertTemplate        string
	TTSEnabled           bool
	AlertTypes           []string
	WebhookURL           string
}

// UpdateSettings validates and replaces the editable settings. Webhook URLs
// must pass the outbound target checks used by the alert worker.
func (s *OverlayService) UpdateSettings(ctx context.Context, streamerID string, in SettingsInput) (*SettingsView, error) {
	if in.MinAlertAmount < 0 {
		return nil, fieldError("min_alert_amount", "min", "min_alert_amount must not be negative")
	}
	if in.AlertDurationSeconds < MinAlertDurationSeconds || in.AlertDurationSeconds > MaxAlertDurationSeconds {
		return nil, fieldError("alert_duration_seconds", "range",
			fmt.Sprintf("alert_duration_seconds must be between %d and %d", MinAlertDurationSeconds, MaxAlertDurationSeconds))
	}

	sound := strings.TrimSpace(in.AlertSoundURL)
	if sound != "" {
		if err := validation.ValidateHTTPURL(sound); err != nil {
			return nil, fieldError("alert_sound_url", "httpurl", err.Error())
		}
	}

	tmpl := strings.TrimSpace(in.AlertTemplate)
	if tmpl == "" {
		tmpl = model.DefaultAlertTemplate
	}
	if err := validation.ValidateAlertTemplate(tmpl); err != nil {
		return nil, fieldError("alert_template", "template", err.Error())
	}

	types := make([]model.AlertType, 0, len(in.AlertTypes))
	seen := make(map[model.AlertType]bool, len(in.AlertTypes))
	for _, raw := range in.AlertTypes {
		t := model.AlertType(strings.ToLower(strings.TrimSpace(raw)))
		if !model.IsValidAlertType(t) {
			return nil, fieldError("alert_types", "oneof", "alert_types may contain donation and follow")
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}

	webhook := strings.TrimSpace(in.WebhookURL)
	if webhook != "" {
		if err := alert.ValidateTargetURL(ctx, webhook, s.cfg.AlertAllowInsecure); err != nil {
			return nil, fieldError("webhook_url", "webhook", err.Error())
		}
	}

	st, err := s.load(ctx, streamerID)
	if err != nil {
		return nil, err
	}
	st.MinAlertAmount = in.MinAlertAmount
	st.AlertDurationSeconds = in.AlertDurationSeconds
	st.AlertSoundURL = sound
	st.AlertTemplate = tmpl
	st.TTSEnabled = in.TTSEnabled
	st.AlertTypes = types
	st.WebhookURL = webhook

	updated, err := s.store.UpdateSettings(ctx, st)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("update obs settings: %w", err)
	}
	return s.view(updated), nil
}

// RotateOverlayToken replaces the overlay token, invalidating the old URL.
func (s *OverlayService) RotateOverlayToken(ctx context.Context, streamerID string) (*SettingsView, error) {
	if _, err := s.load(ctx, streamerID); err != nil {
		return nil, err
	}
	token, err := security.RandomToken(overlayTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate overlay token: %w", err)
	}
	if err := s.store.SetOverlayToken(ctx, streamerID, token); err != nil {
		return nil, mapSettingsErr(err)
	}
	s.logger.Info("overlay token rotated", slog.String("streamer_id", streamerID))
	return s.Settings(ctx, streamerID)
}

// RotateWebhookSecret generates a new signing secret. The plaintext is
// returned once and only the ciphertext is stored.
func (s *OverlayService) RotateWebhookSecret(ctx context.Context, streamerID string) (string, error) {
	if _, err := s.load(ctx, streamerID); err != nil {
		return "", err
	}
	secret, err := alert.GenerateSecret()
	if err != nil {
		return "", err
	}
	enc, err := s.box.Encrypt(secret)
	if err != nil {
		return "", fmt.Errorf("encrypt webhook secret: %w", err)
	}
	if err := s.store.SetWebhookSecret(ctx, streamerID, enc); err != nil {
		return "", mapSettingsErr(err)
	}
	s.logger.Info("webhook secret rotated", slog.String("streamer_id", streamerID))
	return secret, nil
}

// OverlayAlert is one donation as rendered by the browser source.
type OverlayAlert struct {
	ID              string    `json:"id"`
	DonorName       string    `json:"donor_name"`
	Amount          int64     `json:"amount"`
	Currency        string    `json:"currency"`
	Message         string    `json:"message,omitempty"`
	Text            string    `json:"text"`
	DurationSeconds int       `json:"duration_seconds"`
	SoundURL        string    `json:"sound_url,omitempty"`
	TTS             bool      `json:"tts"`
	CreatedAt       time.Time `json:"created_at"`
}

// Alerts returns recent donations for an overlay token, newest first.
// since is clamped to the last 24 hours.
func (s *OverlayService) Alerts(ctx context.Context, token string, since *time.Time) ([]OverlayAlert, error) {
	if token == "" {
		return nil, ErrOverlayNotFound
	}
	st, err := s.store.GetSettingsByToken(ctx, token)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return nil, ErrOverlayNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve overlay token: %w", err)
	}

	alerts := []OverlayAlert{}
	if !st.Subscribes(model.AlertDonation) {
		return alerts, nil
	}

	from := s.now().Add(-OverlayAlertWindow)
	if since != nil && since.After(from) {
		from = *since
	}
	ds, err := s.store.RecentDonations(ctx, st.StreamerID, st.MinAlertAmount, from, MaxOverlayAlerts)
	if err != nil {
		return nil, fmt.Errorf("load recent donations: %w", err)
	}
	for i := range ds {
		d := &ds[i]
		alerts = append(alerts, OverlayAlert{
			ID:              d.ID,
			DonorName:       d.DisplayName(),
			Amount:          d.Amount,
			Currency:        s.cfg.Currency,
			Message:         d.Message,
			Text:            st.RenderAlert(d, s.cfg.Currency),
			DurationSeconds: st.AlertDurationSeconds,
			SoundURL:        st.AlertSoundURL,
			TTS:             st.TTSEnabled,
			CreatedAt:       d.CreatedAt,
		})
	}
	return alerts, nil
}

func mapSettingsErr(err error) error {
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return ErrSettingsNotFound
	}
	return fmt.Errorf("obs settings: %w", err)
}
