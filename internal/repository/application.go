package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/xscan/xscan/internal/model"
)

const applicationColumns = `id, user_id, email, channel_name, platform, channel_url, content_category,
	description, social_links, status, review_note, reviewed_by, reviewed_at, created_at, updated_at`

func scanApplication(row pgx.Row) (*model.StreamerApplication, error) {
	var a model.StreamerApplication
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Email,
		&a.ChannelName,
		&a.Platform,
		&a.ChannelURL,
		&a.ContentCategory,
		&a.Description,
		&a.SocialLinks,
		&a.Status,
		&a.ReviewNote,
		&a.ReviewedBy,
		&a.ReviewedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.SocialLinks == nil {
		a.SocialLinks = []string{}
	}
	return &a, nil
}

// CreateApplication inserts a pending application. The partial unique
// indexes reject a second pending application per user or email.
func (r *Repository) CreateApplication(ctx context.Context, a *model.StreamerApplication) error {
	links := a.SocialLinks
	if links == nil {
		links = []string{}
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO streamer_applications
			(id, user_id, email, channel_name, platform, channel_url, content_category, description, social_links, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		a.ID,
		a.UserID,
		strings.ToLower(a.Email),
		a.ChannelName,
		a.Platform,
		a.ChannelURL,
		a.ContentCategory,
		a.Description,
		pq.Array(links),
		a.Status,
		a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrApplicationPending
		}
		return fmt.Errorf("failed to create application: %w", err)
	}
	a.UpdatedAt = a.CreatedAt
	return nil
}

// HasPendingApplication reports whether the user or email has a pending application.
func (r *Repository) HasPendingApplication(ctx context.Context, userID, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM streamer_applications
			WHERE status = 'pending' AND (user_id = $1 OR email = $2)
		)`, userID, strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending application: %w", err)
	}
	return exists, nil
}

// GetApplication returns an application by ID.
func (r *Repository) GetApplication(ctx context.Context, id string) (*model.StreamerApplication, error) {
	a, err := scanApplication(r.pool.QueryRow(ctx,
		`SELECT `+applicationColumns+` FROM streamer_applications WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return a, nil
}

// ListApplicationsByUser returns a user's applications, newest first.
func (r *Repository) ListApplicationsByUser(ctx context.Context, userID string) ([]*model.StreamerApplication, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM streamer_applications
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	out := []*model.StreamerApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListApplications returns applications for review, oldest first so the
// queue is worked in order.
func (r *Repository) ListApplications(ctx context.Context, status model.ApplicationStatus, p model.Pagination) (*model.Page[model.StreamerApplication], error) {
	var f filter
	if status != "" {
		f.add("status = $%d", status)
	}
	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM streamer_applications`,
		`SELECT `+applicationColumns+` FROM streamer_applications`+f.where()+` ORDER BY created_at ASC, id ASC`,
		&f, p,
		func(rows pgx.Rows) (model.StreamerApplication, error) {
			a, err := scanApplication(rows)
			if err != nil {
				return model.StreamerApplication{}, err
			}
			return *a, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return page, nil
}

// WithdrawApplication deletes the caller's own pending application.
func (r *Repository) WithdrawApplication(ctx context.Context, userID, id string) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM streamer_applications
		WHERE id = $1 AND user_id = $2 AND status = 'pending'`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to withdraw application: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM streamer_applications WHERE id = $1 AND user_id = $2)`, id, userID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check application: %w", err)
	}
	if !exists {
		return ErrApplicationNotFound
	}
	return ErrNotPending
}

// ReviewApplication records a decision on a pending application. On approval
// the applicant becomes a streamer and settings are created, all in the same
// transaction.
func (r *Repository) ReviewApplication(
	ctx context.Context,
	id string,
	status model.ApplicationStatus,
	note, reviewerID string,
	at time.Time,
	settings *model.OBSSettings,
) (*model.StreamerApplication, error) {
	var out *model.StreamerApplication
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		a, err := scanApplication(tx.QueryRow(ctx, `
			UPDATE streamer_applications
			SET status = $2, review_note = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5
			WHERE id = $1 AND status = 'pending'
			RETURNING `+applicationColumns, id, status, note, reviewerID, at))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to review application: %w", err)
			}
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM streamer_applications WHERE id = $1)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check application: %w", err)
			}
			if !exists {
				return ErrApplicationNotFound
			}
			return ErrNotPending
		}

		if status == model.ApplicationApproved {
			if _, err := tx.Exec(ctx, `
				UPDATE users SET role = 'streamer', updated_at = NOW()
				WHERE id = $1 AND role = 'user'`, a.UserID); err != nil {
				return fmt.Errorf("failed to promote user: %w", err)
			}
			if settings != nil {
				settings.StreamerID = a.UserID
				if err := insertSettings(ctx, tx, settings); err != nil {
					return err
				}
			}
		}

		out = a
		return nil
	})
	return out, err
}
