package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/notify"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/validation"
)

// Profile limits.
const (
	MaxDisplayNameLength = 50
	MaxBioLength         = 500
)

// ProfileStore is the persistence used by ProfileService.
type ProfileStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateProfile(ctx context.Context, user *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, id string) error
	GetPublicProfile(ctx context.Context, username string) (*model.PublicProfile, error)
	SearchStreamers(ctx context.Context, q string, p model.Pagination) (*model.Page[model.PublicProfile], error)
	Follow(ctx context.Context, followerID, streamerID string) (bool, error)
	Unfollow(ctx context.Context, followerID, streamerID string) error
	ListFollowing(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.PublicProfile], error)
	ListFollowers(ctx context.Context, streamerID string, p model.Pagination) (*model.Page[model.PublicProfile], error)
}

// StatusCache drops cached account status.
type StatusCache interface {
	DeleteUserStatus(ctx context.Context, userID string) error
}

// ProfileService manages profiles and follows.
type ProfileService struct {
	store    ProfileStore
	status   StatusCache
	notifier Notifier
	logger   *slog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store ProfileStore, status StatusCache, notifier Notifier, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		store:    store,
		status:   status,
		notifier: notifier,
		logger:   logger.With("component", "profile_service"),
	}
}

// ProfileUpdate carries optional profile fields. Nil fields are unchanged.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	AvatarURL   *string
}

// Me returns the caller's own profile.
func (s *ProfileService) Me(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies a partial profile update.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if err := checkLength("display_name", name, 1, MaxDisplayNameLength); err != nil {
			return nil, err
		}
		user.DisplayName = name
	}
	if in.Bio != nil {
		bio := strings.TrimSpace(*in.Bio)
		if err := checkLength("bio", bio, 0, MaxBioLength); err != nil {
			return nil, err
		}
		user.Bio = bio
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" {
			if err := validation.ValidateHTTPURL(avatar); err != nil {
				return nil, fieldError("avatar_url", "httpurl", err.Error())
			}
		}
		user.AvatarURL = avatar
	}

	updated, err := s.store.UpdateProfile(ctx, user)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

// DeleteAccount removes the caller's account after re-checking the password.
// Accounts holding money or awaiting a payout cannot be deleted.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserHasBalance):
			return ErrHasBalance
		case errors.Is(err, repository.ErrPendingWithdrawal):
			return ErrPendingWithdrawal
		case errors.Is(err, repository.ErrUserNotFound):
			return ErrUserNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	if s.status != nil {
		if err := s.status.DeleteUserStatus(ctx, userID); err != nil {
			s.logger.Warn("failed to drop cached status", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}
	s.logger.Info("account deleted", slog.String("user_id", userID))
	return nil
}

// PublicProfile returns the public view of a user.
func (s *ProfileService) PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	p, err := s.store.GetPublicProfile(ctx, validation.NormalizeUsername(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// SearchStreamers finds streamers by username or display name prefix.
func (s *ProfileService) SearchStreamers(ctx context.Context, q string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	page, err := s.store.SearchStreamers(ctx, strings.TrimSpace(q), p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("search streamers: %w", err)
	}
	return page, nil
}

// Follow makes the caller follow a streamer. Following twice is a no-op.
func (s *ProfileService) Follow(ctx context.Context, followerID, username string) error {
	follower, err := s.Me(ctx, followerID)
	if err != nil {
		return err
	}
	if follower.Username == validation.NormalizeUsername(username) {
		return ErrSelfFollow
	}
	streamer, err := s.activeStreamer(ctx, username)
	if err != nil {
		return err
	}

	created, err := s.store.Follow(ctx, followerID, streamer.ID)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if !created {
		return nil
	}

	name := follower.DisplayName
	if name == "" {
		name = follower.Username
	}
	publish(ctx, s.notifier, s.logger, notify.NewEvent(
		model.NotifyNewFollower,
		streamer.ID,
		"New follower",
		name+" started following you",
	))
	return nil
}

// Unfollow removes a follow. Unfollowing twice is a no-op.
func (s *ProfileService) Unfollow(ctx context.Context, followerID, username string) error {
	streamer, err := s.store.GetUserByUsername(ctx, validation.NormalizeUsername(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrStreamerNotFound
	}
	if err != nil {
		return fmt.Errorf("load streamer: %w", err)
	}
	if err := s.store.Unfollow(ctx, followerID, streamer.ID); err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

// Following lists the streamers the user follows.
func (s *ProfileService) Following(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	page, err := s.store.ListFollowing(ctx, userID, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return page, nil
}

// Followers lists the followers of a streamer.
func (s *ProfileService) Followers(ctx context.Context, streamerID string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	page, err := s.store.ListFollowers(ctx, streamerID, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return page, nil
}

func (s *ProfileService) activeStreamer(ctx context.Context, username string) (*model.User, error) {
	return lookupStreamer(ctx, s.store, username)
}

type userByUsername interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// lookupStreamer resolves an active streamer by username.
func lookupStreamer(ctx context.Context, store userByUsername, username string) (*model.User, error) {
	user, err := store.GetUserByUsername(ctx, validation.NormalizeUsername(username))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrStreamerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load streamer: %w", err)
	}
	if !user.IsStreamer() || !user.IsActive() {
		return nil, ErrStreamerNotFound
	}
	return user, nil
}
