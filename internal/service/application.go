package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/notify"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/security"
	"github.com/xscan/xscan/internal/validation"
)

// Application field limits.
const (
	MinDescriptionLength = 20
	MaxDescriptionLength = 2000
	MaxSocialLinks       = 5
	MaxReviewNoteLength  = 1000
	overlayTokenBytes    = 24
)

// ApplicationStore is the persistence used by ApplicationService.
type ApplicationStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	HasPendingApplication(ctx context.Context, userID, email string) (bool, error)
	CreateApplication(ctx context.Context, a *model.StreamerApplication) error
	GetApplication(ctx context.Context, id string) (*model.StreamerApplication, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]*model.StreamerApplication, error)
	ListApplications(ctx context.Context, status model.ApplicationStatus, p model.Pagination) (*model.Page[model.StreamerApplication], error)
	WithdrawApplication(ctx context.Context, userID, id string) error
	ReviewApplication(ctx context.Context, id string, status model.ApplicationStatus, note, reviewerID string, at time.Time, settings *model.OBSSettings) (*model.StreamerApplication, error)
}

// ApplicationService handles streamer applications and their review.
type ApplicationService struct {
	store    ApplicationStore
	notifier Notifier
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(store ApplicationStore, notifier Notifier, logger *slog.Logger, recorder metrics.Recorder) *ApplicationService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ApplicationService{
		store:    store,
		notifier: notifier,
		logger:   logger.With("component", "application_service"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// ApplicationInput defines input for applying as a streamer.
type ApplicationInput struct {
	ChannelName     string
	Platform        string
	ChannelURL      string
	ContentCategory string
	Description     string
	SocialLinks     []string
}

func (in *ApplicationInput) normalize() error {
	in.ChannelName = strings.TrimSpace(in.ChannelName)
	in.Platform = strings.ToLower(strings.TrimSpace(in.Platform))
	in.ChannelURL = strings.TrimSpace(in.ChannelURL)
	in.ContentCategory = strings.TrimSpace(in.ContentCategory)
	in.Description = strings.TrimSpace(in.Description)

	if err := checkLength("channel_name", in.ChannelName, 1, 100); err != nil {
		return err
	}
	if !model.IsValidPlatform(in.Platform) {
		return fieldError("platform", "oneof", "platform must be one of "+strings.Join(model.ValidPlatforms, ", "))
	}
	if err := validation.ValidateHTTPURL(in.ChannelURL); err != nil {
		return fieldError("channel_url", "httpurl", err.Error())
	}
	if err := checkLength("content_category", in.ContentCategory, 1, 50); err != nil {
		return err
	}
	if err := checkLength("description", in.Description, MinDescriptionLength, MaxDescriptionLength); err != nil {
		return err
	}
	if len(in.SocialLinks) > MaxSocialLinks {
		return fieldError("social_links", "max", fmt.Sprintf("at most %d social links are allowed", MaxSocialLinks))
	}
	links := make([]string, 0, len(in.SocialLinks))
	for _, link := range in.SocialLinks {
		link = strings.TrimSpace(link)
		if err := validation.ValidateHTTPURL(link); err != nil {
			return fieldError("social_links", "httpurl", err.Error())
		}
		links = append(links, link)
	}
	in.SocialLinks = links
	return nil
}

// Submit files a new application for the user.
func (s *ApplicationService) Submit(ctx context.Context, userID string, in ApplicationInput) (*model.StreamerApplication, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.IsStreamer() {
		return nil, ErrAlreadyStreamer
	}

	pending, err := s.store.HasPendingApplication(ctx, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("check pending application: %w", err)
	}
	if pending {
		return nil, ErrApplicationPending
	}

	now := s.now().UTC()
	a := &model.StreamerApplication{
		ID:              newID(),
		UserID:          user.ID,
		Email:           user.Email,
		ChannelName:     in.ChannelName,
		Platform:        in.Platform,
		ChannelURL:      in.ChannelURL,
		ContentCategory: in.ContentCategory,
		Description:     in.Description,
		SocialLinks:     in.SocialLinks,
		Status:          model.ApplicationPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateApplication(ctx, a); err != nil {
		if errors.Is(err, repository.ErrApplicationPending) {
			return nil, ErrApplicationPending
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	s.metrics.IncApplication("submitted")
	s.logger.Info("application submitted", slog.String("application_id", a.ID), slog.String("user_id", user.ID))
	return a, nil
}

// Mine lists the user's applications, newest first.
func (s *ApplicationService) Mine(ctx context.Context, userID string) ([]*model.StreamerApplication, error) {
	apps, err := s.store.ListApplicationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// Withdraw deletes the user's own pending application.
func (s *ApplicationService) Withdraw(ctx context.Context, userID, id string) error {
	if err := s.store.WithdrawApplication(ctx, userID, id); err != nil {
		return mapApplicationErr(err)
	}
	s.metrics.IncApplication("withdrawn")
	return nil
}

// List returns applications for admin review, optionally filtered by status.
func (s *ApplicationService) List(ctx context.Context, status model.ApplicationStatus, p model.Pagination) (*model.Page[model.StreamerApplication], error) {
	if status != "" && !status.IsValid() {
		return nil, fieldError("status", "oneof", "status must be pending, approved or rejected")
	}
	page, err := s.store.ListApplications(ctx, status, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return page, nil
}

// Get returns one application.
func (s *ApplicationService) Get(ctx context.Context, id string) (*model.StreamerApplication, error) {
	a, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, mapApplicationErr(err)
	}
	return a, nil
}

// Review approves or rejects a pending application. Rejections need a note.
// Approval promotes the applicant and creates default overlay settings.
func (s *ApplicationService) Review(ctx context.Context, reviewerID, id string, decision model.ReviewDecision, note string) (*model.StreamerApplication, error) {
	status, ok := decision.ResultingStatus()
	if !ok {
		return nil, fieldError("decision", "oneof", "decision must be approve or reject")
	}
	note = strings.TrimSpace(note)
	if status == model.ApplicationRejected && note == "" {
		return nil, fieldError("note", "required", "note is required when rejecting")
	}
	if err := checkLength("note", note, 0, MaxReviewNoteLength); err != nil {
		return nil, err
	}

	var settings *model.OBSSettings
	if status == model.ApplicationApproved {
		token, err := security.RandomToken(overlayTokenBytes)
		if err != nil {
			return nil, fmt.Errorf("generate overlay token: %w", err)
		}
		settings = model.DefaultOBSSettings("", token)
	}

	a, err := s.store.ReviewApplication(ctx, id, status, note, reviewerID, s.now().UTC(), settings)
	if err != nil {
		return nil, mapApplicationErr(err)
	}
	s.metrics.IncApplication(string(status))
	s.logger.Info("application reviewed",
		slog.String("application_id", a.ID),
		slog.String("status", string(a.Status)),
		slog.String("reviewer_id", reviewerID),
	)

	if status == model.ApplicationApproved {
		publish(ctx, s.notifier, s.logger, notify.NewEvent(
			model.NotifyApplicationApproved,
			a.UserID,
			"Application approved",
			"Your streamer application for "+a.ChannelName+" was approved. Sign in again to unlock streamer features.",
		))
	} else {
		publish(ctx, s.notifier, s.logger, notify.NewEvent(
			model.NotifyApplicationRejected,
			a.UserID,
			"Application rejected",
			"Your streamer application for "+a.ChannelName+" was rejected: "+note,
		))
	}
	return a, nil
}

func mapApplicationErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrApplicationNotFound):
		return ErrApplicationNotFound
	case errors.Is(err, repository.ErrNotPending):
		return ErrNotPending
	}
	return fmt.Errorf("application: %w", err)
}
