package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/handler/dto"
	"github.com/xscan/xscan/internal/service"
	"github.com/xscan/xscan/internal/validation"
)

// OverlayService is the OBS settings and overlay feed surface.
type OverlayService interface {
	Settings(ctx context.Context, streamerID string) (*service.SettingsView, error)
	UpdateSettings(ctx context.Context, streamerID string, in service.SettingsInput) (*service.SettingsView, error)
	RotateOverlayToken(ctx context.Context, streamerID string) (*service.SettingsView, error)
	RotateWebhookSecret(ctx context.Context, streamerID string) (string, error)
	Alerts(ctx context.Context, token string, since *time.Time) ([]service.OverlayAlert, error)
}

// OverlayHandler handles streamer OBS settings and the public alert feed.
type OverlayHandler struct {
	svc    OverlayService
	logger *slog.Logger
}

// NewOverlayHandler creates a new OverlayHandler.
func NewOverlayHandler(svc OverlayService, logger *slog.Logger) *OverlayHandler {
	return &OverlayHandler{svc: svc, logger: logger.With("component", "overlay_handler")}
}

// Settings handles GET /api/v1/me/obs-settings.
func (h *OverlayHandler) Settings(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Settings(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UpdateSettings handles PUT /api/v1/me/obs-settings.
func (h *OverlayHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req dto.OBSSettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.UpdateSettings(r.Context(), auth.UserIDFromContext(r.Context()), service.SettingsInput{
		MinAlertAmount:       req.MinAlertAmount,
		AlertDurationSeconds: req.AlertDurationSeconds,
		AlertSoundURL:        req.AlertSoundURL,
		AlertTemplate:        req.AlertTemplate,
		TTSEnabled:           req.TTSEnabled,
		AlertTypes:           req.AlertTypes,
		WebhookURL:           req.WebhookURL,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// RotateOverlayToken handles POST /api/v1/me/obs-settings/overlay-token/rotate.
func (h *OverlayHandler) RotateOverlayToken(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.RotateOverlayToken(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// RotateWebhookSecret handles POST /api/v1/me/obs-settings/webhook-secret/rotate.
// The secret is returned once and cannot be read back.
func (h *OverlayHandler) RotateWebhookSecret(w http.ResponseWriter, r *http.Request) {
	secret, err := h.svc.RotateWebhookSecret(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.WebhookSecretResponse{Secret: secret})
}

// Alerts handles GET /overlay/{token}/alerts. It is public; the token is
// the credential.
func (h *OverlayHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeValidationError(w, validation.NewFieldError("since", "datetime", "since must be an RFC 3339 timestamp"))
			return
		}
		since = &t
	}
	alerts, err := h.svc.Alerts(r.Context(), chi.URLParam(r, "token"), since)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if alerts == nil {
		alerts = []service.OverlayAlert{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, dto.DataResponse[service.OverlayAlert]{Data: alerts})
}
