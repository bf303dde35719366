package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

const settingsColumns = `streamer_id, overlay_token, min_alert_amount, alert_duration_seconds, alert_sound_url,
	alert_template, tts_enabled, alert_types, webhook_url, webhook_secret_enc, updated_at`

func scanSettings(row pgx.Row) (*model.OBSSettings, error) {
	var s model.OBSSettings
	var types []string
	err := row.Scan(
		&s.StreamerID,
		&s.OverlayToken,
		&s.MinAlertAmount,
		&s.AlertDurationSeconds,
		&s.AlertSoundURL,
		&s.AlertTemplate,
		&s.TTSEnabled,
		&types,
		&s.WebhookURL,
		&s.WebhookSecretEnc,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.AlertTypes = make([]model.AlertType, len(types))
	for i, t := range types {
		s.AlertTypes[i] = model.AlertType(t)
	}
	return &s, nil
}

func alertTypeStrings(types []model.AlertType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func insertSettings(ctx context.Context, q querier, s *model.OBSSettings) error {
	_, err := q.Exec(ctx, `
		INSERT INTO obs_settings (`+settingsColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (streamer_id) DO NOTHING`,
		s.StreamerID,
		s.OverlayToken,
		s.MinAlertAmount,
		s.AlertDurationSeconds,
		s.AlertSoundURL,
		s.AlertTemplate,
		s.TTSEnabled,
		alertTypeStrings(s.AlertTypes),
		s.WebhookURL,
		s.WebhookSecretEnc,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create obs settings: %w", err)
	}
	return nil
}

// CreateSettings inserts settings unless the streamer already has them.
func (r *Repository) CreateSettings(ctx context.Context, s *model.OBSSettings) error {
	return insertSettings(ctx, r.pool, s)
}

func (r *Repository) getSettingsBy(ctx context.Context, column, value string) (*model.OBSSettings, error) {
	s, err := scanSettings(r.pool.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM obs_settings WHERE `+column+` = $1`, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get obs settings: %w", err)
	}
	return s, nil
}

// GetSettings returns a streamer's overlay settings.
func (r *Repository) GetSettings(ctx context.Context, streamerID string) (*model.OBSSettings, error) {
	return r.getSettingsBy(ctx, "streamer_id", streamerID)
}

// GetSettingsByToken resolves an overlay token.
func (r *Repository) GetSettingsByToken(ctx context.Context, token string) (*model.OBSSettings, error) {
	return r.getSettingsBy(ctx, "overlay_token", token)
}

// UpdateSettings writes the editable overlay fields. Token and secret are
// changed only through their rotate operations.
func (r *Repository) UpdateSettings(ctx context.Context, s *model.OBSSettings) (*model.OBSSettings, error) {
	out, err := scanSettings(r.pool.QueryRow(ctx, `
		UPDATE obs_settings
		SET min_alert_amount = $2,
			alert_duration_seconds = $3,
			alert_sound_url = $4,
			alert_template = $5,
			tts_enabled = $6,
			alert_types = $7,
			webhook_url = $8,
			updated_at = NOW()
		WHERE streamer_id = $1
		RETURNING `+settingsColumns,
		s.StreamerID,
		s.MinAlertAmount,
		s.AlertDurationSeconds,
		s.AlertSoundURL,
		s.AlertTemplate,
		s.TTSEnabled,
		alertTypeStrings(s.AlertTypes),
		s.WebhookURL,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to update obs settings: %w", err)
	}
	return out, nil
}

// SetOverlayToken replaces the overlay token.
func (r *Repository) SetOverlayToken(ctx context.Context, streamerID, token string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE obs_settings SET overlay_token = $2, updated_at = NOW() WHERE streamer_id = $1`, streamerID, token)
	if err != nil {
		return fmt.Errorf("failed to set overlay token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSettingsNotFound
	}
	return nil
}

// SetWebhookSecret replaces the encrypted webhook secret.
func (r *Repository) SetWebhookSecret(ctx context.Context, streamerID, secretEnc string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE obs_settings SET webhook_secret_enc = $2, updated_at = NOW() WHERE streamer_id = $1`, streamerID, secretEnc)
	if err != nil {
		return fmt.Errorf("failed to set webhook secret: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSettingsNotFound
	}
	return nil
}

// CreateDelivery queues an alert webhook delivery.
func (r *Repository) CreateDelivery(ctx context.Context, d *model.AlertDelivery) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alert_deliveries (id, streamer_id, donation_id, payload_json, status, attempt_count, max_attempts, next_retry_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		d.ID,
		d.StreamerID,
		d.DonationID,
		d.PayloadJSON,
		d.Status,
		d.AttemptCount,
		d.MaxAttempts,
		d.NextRetryAt,
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert delivery: %w", err)
	}
	return nil
}
