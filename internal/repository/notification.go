package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

const notificationColumns = `id, user_id, type, title, body, event_id, read_at, created_at`

func scanNotification(row pgx.Row) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.EventID, &n.ReadAt, &n.CreatedAt)
	return n, err
}

// CreateNotification stores a notification once per event ID. It returns
// false when the event was already stored.
func (r *Repository) CreateNotification(ctx context.Context, n *model.Notification) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, event_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.EventID, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// ListNotifications returns a user's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, p model.Pagination) (*model.Page[model.Notification], error) {
	var f filter
	f.add("user_id = $%d", userID)
	if unreadOnly {
		f.raw("read_at IS NULL")
	}

	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM notifications`,
		`SELECT `+notificationColumns+` FROM notifications`+f.where()+` ORDER BY created_at DESC, id DESC`,
		&f, p, func(rows pgx.Rows) (model.Notification, error) { return scanNotification(rows) })
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return page, nil
}

// CountUnread returns the number of unread notifications.
func (r *Repository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read. Already read is fine.
func (r *Repository) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := scanNotification(r.pool.QueryRow(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark read: %w", err)
	}
	return &n, nil
}

// MarkAllRead marks every unread notification read and returns the count.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all read: %w", err)
	}
	return result.RowsAffected(), nil
}
