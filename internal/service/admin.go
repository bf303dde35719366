package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
)

// Fee report range limits.
const (
	DefaultReportDays = 30
	MaxReportDays     = 366
)

// AdminStore is the persistence used by AdminService.
type AdminStore interface {
	DashboardStats(ctx context.Context, now time.Time) (*model.DashboardStats, error)
	FeeReport(ctx context.Context, from, to time.Time) ([]model.FeeReportRow, error)
	ListUsers(ctx context.Context, uf repository.UserFilter, p model.Pagination) (*model.Page[model.User], error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateRoleStatus(ctx context.Context, id string, role *model.Role, status *model.UserStatus) (*model.User, error)
}

// AdminCache caches dashboard stats and account status.
type AdminCache interface {
	GetDashboardStats(ctx context.Context) (*model.DashboardStats, error)
	SetDashboardStats(ctx context.Context, stats *model.DashboardStats, ttl time.Duration) error
	DeleteUserStatus(ctx context.Context, userID string) error
}

// AdminService serves the admin console.
type AdminService struct {
	store    AdminStore
	cache    AdminCache
	statsTTL time.Duration
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewAdminService creates a new AdminService.
func NewAdminService(store AdminStore, cache AdminCache, statsTTL time.Duration, logger *slog.Logger, recorder metrics.Recorder) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AdminService{
		store:    store,
		cache:    cache,
		statsTTL: statsTTL,
		logger:   logger.With("component", "admin_service"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// Dashboard returns platform totals, served from cache when fresh.
func (s *AdminService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	cached, err := s.cache.GetDashboardStats(ctx)
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.String("error", err.Error()))
	}
	if cached != nil {
		s.metrics.IncCacheLookup("dashboard", true)
		return cached, nil
	}
	s.metrics.IncCacheLookup("dashboard", false)

	stats, err := s.store.DashboardStats(ctx, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("load dashboard stats: %w", err)
	}
	if err := s.cache.SetDashboardStats(ctx, stats, s.statsTTL); err != nil {
		s.logger.Warn("failed to cache dashboard stats", slog.String("error", err.Error()))
	}
	return stats, nil
}

// FeeReport aggregates donations per UTC day. Both bounds are inclusive days;
// the default range is the last 30 days.
func (s *AdminService) FeeReport(ctx context.Context, from, to *time.Time) (*model.FeeReport, error) {
	end := startOfDay(s.now())
	if to != nil {
		end = startOfDay(*to)
	}
	start := end.AddDate(0, 0, -(DefaultReportDays - 1))
	if from != nil {
		start = startOfDay(*from)
	}
	if start.After(end) {
		return nil, fieldError("from", "ltefield", "from must not be after to")
	}
	if end.Sub(start) >= MaxReportDays*24*time.Hour {
		return nil, fieldError("to", "range", fmt.Sprintf("report range must not exceed %d days", MaxReportDays))
	}

	rows, err := s.store.FeeReport(ctx, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load fee report: %w", err)
	}
	report := &model.FeeReport{From: start, To: end, Rows: rows}
	report.Sum()
	return report, nil
}

// Users lists users for the admin console.
func (s *AdminService) Users(ctx context.Context, uf repository.UserFilter, p model.Pagination) (*model.Page[model.User], error) {
	if uf.Role != "" && !uf.Role.IsValid() {
		return nil, fieldError("role", "oneof", "role must be user, streamer or admin")
	}
	if uf.Status != "" && !uf.Status.IsValid() {
		return nil, fieldError("status", "oneof", "status must be active or suspended")
	}
	page, err := s.store.ListUsers(ctx, uf, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return page, nil
}

// User returns one user.
func (s *AdminService) User(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// UpdateUser changes a user's role or status. Admins may not demote or
// suspend their own account.
func (s *AdminService) UpdateUser(ctx context.Context, adminID, id string, role *model.Role, status *model.UserStatus) (*model.User, error) {
	if role == nil && status == nil {
		return nil, fieldError("role", "required_without", "role or status is required")
	}
	if role != nil && !role.IsValid() {
		return nil, fieldError("role", "oneof", "role must be user, streamer or admin")
	}
	if status != nil && !status.IsValid() {
		return nil, fieldError("status", "oneof", "status must be active or suspended")
	}
	if id == adminID {
		if (role != nil && *role != model.RoleAdmin) || (status != nil && *status != model.UserStatusActive) {
			return nil, ErrSelfModification
		}
	}

	u, err := s.store.UpdateRoleStatus(ctx, id, role, status)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := s.cache.DeleteUserStatus(ctx, id); err != nil {
		s.logger.Warn("failed to drop cached status", slog.String("user_id", id), slog.String("error", err.Error()))
	}
	s.logger.Info("user updated by admin",
		slog.String("admin_id", adminID),
		slog.String("user_id", id),
		slog.String("role", string(u.Role)),
		slog.String("status", string(u.Status)),
	)
	return u, nil
}
