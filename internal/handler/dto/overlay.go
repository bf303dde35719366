package dto

// OBSSettingsRequest is the body of PUT /me/obs-settings.
type OBSSettingsRequest struct {
	MinAlertAmount       int64    `json:"min_alert_amount" validate:"gte=0"`
	AlertDurationSeconds int      `json:"alert_duration_seconds" validate:"required,min=3,max=60"`
	AlertSoundURL        string   `json:"alert_sound_url,omitempty" validate:"omitempty,httpurl"`
	AlertTemplate        string   `json:"alert_template" validate:"required,max=200,template"`
	TTSEnabled           bool     `json:"tts_enabled"`
	AlertTypes           []string `json:"alert_types" validate:"required,min=1,dive,oneof=donation follow"`
	WebhookURL           string   `json:"webhook_url,omitempty"`
}

// WebhookSecretResponse shows a freshly rotated secret once.
type WebhookSecretResponse struct {
	Secret string `json:"secret"`
}
