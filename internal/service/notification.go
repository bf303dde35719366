package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
)

// NotificationStore is the persistence used by NotificationService.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, p model.Pagination) (*model.Page[model.Notification], error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// NotificationService serves the in-app inbox.
type NotificationService struct {
	store NotificationStore
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, p model.Pagination) (*model.Page[model.Notification], error) {
	page, err := s.store.ListNotifications(ctx, userID, unreadOnly, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return page, nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read. Already-read
// notifications keep their original read time.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*model.Notification, error) {
	n, err := s.store.MarkRead(ctx, userID, id)
	if errors.Is(err, repository.ErrNotificationNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return n, nil
}

// MarkAllRead marks every unread notification read and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return n, nil
}
