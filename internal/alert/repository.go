package alert

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/xscan/xscan/internal/model"
)

const maxErrorLength = 500

// retryableStatuses are the delivery states the worker picks up.
var retryableStatuses = []string{
	string(model.DeliveryStatusPending),
	string(model.DeliveryStatusFailed),
}

// Target is where and how a streamer's alerts are delivered.
type Target struct {
	URL       string
	SecretEnc string
}

// Repository handles alert delivery rows through database/sql.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new alert repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const deliveryColumns = `
	id, streamer_id, donation_id, payload_json, status, attempt_count,
	max_attempts, next_retry_at, last_attempt_at, last_http_status,
	last_error, created_at, updated_at`

// ClaimDue leases up to limit due deliveries by pushing their next_retry_at
// forward by lease, so concurrent workers never pick the same rows.
func (r *Repository) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]*model.AlertDelivery, error) {
	query := `
		UPDATE alert_deliveries
		SET next_retry_at = $1::timestamptz + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM alert_deliveries
			WHERE status = ANY($3) AND next_retry_at <= $1
			ORDER BY next_retry_at
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + deliveryColumns

	rows, err := r.db.QueryContext(ctx, query,
		time.Now().UTC(), lease.Seconds(), pq.Array(retryableStatuses), limit)
	if err != nil {
		return nil, fmt.Errorf("claim due deliveries: %w", err)
	}
	defer rows.Close()

	return scanDeliveries(rows)
}

// GetTarget returns the webhook configuration of a streamer.
// ErrTargetNotFound covers both missing settings and a cleared webhook.
func (r *Repository) GetTarget(ctx context.Context, streamerID string) (*Target, error) {
	var t Target
	err := r.db.QueryRowContext(ctx, `
		SELECT webhook_url, webhook_secret_enc FROM obs_settings WHERE streamer_id = $1`,
		streamerID).Scan(&t.URL, &t.SecretEnc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query alert target: %w", err)
	}
	if t.URL == "" || t.SecretEnc == "" {
		return nil, ErrTargetNotFound
	}
	return &t, nil
}

// MarkSuccess records a 2xx delivery.
func (r *Repository) MarkSuccess(ctx context.Context, id string, httpStatus int) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE alert_deliveries
		SET status = 'success',
			attempt_count = attempt_count + 1,
			last_attempt_at = $2,
			last_http_status = $3,
			last_error = '',
			updated_at = $2
		WHERE id = $1`, id, now, httpStatus)
	if err != nil {
		return fmt.Errorf("update delivery success: %w", err)
	}
	return requireRow(res)
}

// MarkFailure records a failed attempt and schedules the next one, or
// exhausts the delivery.
func (r *Repository) MarkFailure(ctx context.Context, id string, httpStatus *int, errMsg string, nextRetryAt time.Time, exhausted bool) error {
	status := model.DeliveryStatusFailed
	if exhausted {
		status = model.DeliveryStatusExhausted
	}
	if len(errMsg) > maxErrorLength {
		errMsg = errMsg[:maxErrorLength]
	}

	now := time.Now().UTC()
	var code sql.NullInt64
	if httpStatus != nil {
		code = sql.NullInt64{Int64: int64(*httpStatus), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE alert_deliveries
		SET status = $2,
			attempt_count = attempt_count + 1,
			last_attempt_at = $3,
			last_http_status = $4,
			last_error = $5,
			next_retry_at = $6,
			updated_at = $3
		WHERE id = $1`, id, string(status), now, code, errMsg, nextRetryAt.UTC())
	if err != nil {
		return fmt.Errorf("update delivery failure: %w", err)
	}
	return requireRow(res)
}

// QueueDepth counts deliveries still waiting to be sent.
func (r *Repository) QueueDepth(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alert_deliveries WHERE status = ANY($1)`,
		pq.Array(retryableStatuses)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count alert queue: %w", err)
	}
	return n, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

func scanDeliveries(rows *sql.Rows) ([]*model.AlertDelivery, error) {
	var out []*model.AlertDelivery
	for rows.Next() {
		var (
			d          model.AlertDelivery
			status     string
			lastTry    sql.NullTime
			lastStatus sql.NullInt64
		)
		if err := rows.Scan(
			&d.ID, &d.StreamerID, &d.DonationID, &d.PayloadJSON, &status,
			&d.AttemptCount, &d.MaxAttempts, &d.NextRetryAt, &lastTry, &lastStatus,
			&d.LastError, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Status = model.DeliveryStatus(status)
		if lastTry.Valid {
			t := lastTry.Time
			d.LastAttemptAt = &t
		}
		if lastStatus.Valid {
			code := int(lastStatus.Int64)
			d.LastHTTPStatus = &code
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}
