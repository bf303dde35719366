package model

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// AlertType is a kind of event shown on the streamer overlay.
type AlertType string

// AlertType constants.
const (
	AlertDonation AlertType = "donation"
	AlertFollow   AlertType = "follow"
)

// ValidAlertTypes contains all valid alert types.
var ValidAlertTypes = []AlertType{AlertDonation, AlertFollow}

// IsValidAlertType checks if an alert type is valid.
func IsValidAlertType(t AlertType) bool {
	return slices.Contains(ValidAlertTypes, t)
}

// Overlay defaults applied when a streamer is approved.
const (
	DefaultAlertDurationSeconds = 8
	DefaultAlertTemplate        = "{name} donated {amount}!"
)

// OBSSettings configures a streamer's browser-source overlay and alert webhook.
type OBSSettings struct {
	StreamerID           string      `json:"streamer_id"`
	OverlayToken         string      `json:"-"`
	MinAlertAmount       int64       `json:"min_alert_amount"`
	AlertDurationSeconds int         `json:"alert_duration_seconds"`
	AlertSoundURL        string      `json:"alert_sound_url,omitempty"`
	AlertTemplate        string      `json:"alert_template"`
	TTSEnabled           bool        `json:"tts_enabled"`
	AlertTypes           []AlertType `json:"alert_types"`
	WebhookURL           string      `json:"webhook_url,omitempty"`
	WebhookSecretEnc     string      `json:"-"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// DefaultOBSSettings returns the settings created for a new streamer.
func DefaultOBSSettings(streamerID, overlayToken string) *OBSSettings {
	return &OBSSettings{
		StreamerID:           streamerID,
		OverlayToken:         overlayToken,
		MinAlertAmount:       0,
		AlertDurationSeconds: DefaultAlertDurationSeconds,
		AlertTemplate:        DefaultAlertTemplate,
		AlertTypes:           []AlertType{AlertDonation, AlertFollow},
		UpdatedAt:            time.Now().UTC(),
	}
}

// Subscribes checks if the overlay shows the given alert type.
func (s *OBSSettings) Subscribes(t AlertType) bool {
	return slices.Contains(s.AlertTypes, t)
}

// HasWebhook returns true if donation alerts should be pushed to a webhook.
func (s *OBSSettings) HasWebhook() bool {
	return s.WebhookURL != "" && s.WebhookSecretEnc != ""
}

// ShouldAlert reports whether a donation of amount triggers an alert.
func (s *OBSSettings) ShouldAlert(amount int64) bool {
	return s.Subscribes(AlertDonation) && amount >= s.MinAlertAmount
}

// RenderAlert fills the alert template for a donation.
func (s *OBSSettings) RenderAlert(d *Donation, currency string) string {
	tmpl := s.AlertTemplate
	if tmpl == "" {
		tmpl = DefaultAlertTemplate
	}
	r := strings.NewReplacer(
		"{name}", d.DisplayName(),
		"{amount}", FormatAmount(d.Amount, currency),
		"{message}", d.Message,
	)
	return r.Replace(tmpl)
}

// FormatAmount renders minor units as "12.34 USD".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	cents := minor % 100
	pad := ""
	if cents < 10 {
		pad = "0"
	}
	return sign + strconv.FormatInt(minor/100, 10) + "." + pad + strconv.FormatInt(cents, 10) + " " + currency
}

// DeliveryStatus represents alert webhook delivery state.
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusSuccess   DeliveryStatus = "success"
	DeliveryStatusFailed    DeliveryStatus = "failed"
	DeliveryStatusExhausted DeliveryStatus = "exhausted"
)

// AlertDelivery is a queued push of a donation alert to a streamer webhook.
type AlertDelivery struct {
	ID             string         `json:"id"`
	StreamerID     string         `json:"streamer_id"`
	DonationID     string         `json:"donation_id"`
	PayloadJSON    string         `json:"-"`
	Status         DeliveryStatus `json:"status"`
	AttemptCount   int            `json:"attempt_count"`
	MaxAttempts    int            `json:"max_attempts"`
	NextRetryAt    time.Time      `json:"next_retry_at"`
	LastAttemptAt  *time.Time     `json:"last_attempt_at,omitempty"`
	LastHTTPStatus *int           `json:"last_http_status,omitempty"`
	LastError      string         `json:"last_error,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// AlertPayload is the JSON body pushed to streamer webhooks.
type AlertPayload struct {
	Event      string    `json:"event"`
	DeliveryID string    `json:"delivery_id"`
	DonationID string    `json:"donation_id"`
	DonorName  string    `json:"donor_name"`
	Message    string    `json:"message,omitempty"`
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	AlertText  string    `json:"alert_text"`
	CreatedAt  time.Time `json:"created_at"`
}
