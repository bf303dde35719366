package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/handler/dto"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/service"
)

// ProfileService is the profile and follow surface used by ProfileHandler.
type ProfileService interface {
	Me(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, in service.ProfileUpdate) (*model.User, error)
	DeleteAccount(ctx context.Context, userID, password string) error
	PublicProfile(ctx context.Context, username string) (*model.PublicProfile, error)
	SearchStreamers(ctx context.Context, q string, p model.Pagination) (*model.Page[model.PublicProfile], error)
	Follow(ctx context.Context, followerID, username string) error
	Unfollow(ctx context.Context, followerID, username string) error
	Following(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.PublicProfile], error)
	Followers(ctx context.Context, streamerID string, p model.Pagination) (*model.Page[model.PublicProfile], error)
}

// ProfileHandler handles profile, streamer directory and follow endpoints.
type ProfileHandler struct {
	svc    ProfileService
	logger *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger.With("component", "profile_handler")}
}

// Me handles GET /api/v1/me.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Me(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Update handles PATCH /api/v1/me.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateProfile(r.Context(), auth.UserIDFromContext(r.Context()), service.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// Delete handles DELETE /api/v1/me.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.DeleteAccount(r.Context(), userID, req.Password); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("account_deleted", slog.String("user_id", userID))
	noContent(w)
}

// PublicProfile handles GET /api/v1/users/{username}.
func (h *ProfileHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.PublicProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SearchStreamers handles GET /api/v1/streamers.
func (h *ProfileHandler) SearchStreamers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.SearchStreamers(r.Context(), r.URL.Query().Get("q"), parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.PublicProfile]))
}

// Follow handles POST /api/v1/streamers/{username}/follow.
func (h *ProfileHandler) Follow(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Follow(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "username")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}

// Unfollow handles DELETE /api/v1/streamers/{username}/follow.
func (h *ProfileHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unfollow(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "username")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}

// Following handles GET /api/v1/me/following.
func (h *ProfileHandler) Following(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Following(r.Context(), auth.UserIDFromContext(r.Context()), parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.PublicProfile]))
}

// Followers handles GET /api/v1/me/followers.
func (h *ProfileHandler) Followers(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Followers(r.Context(), auth.UserIDFromContext(r.Context()), parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.PublicProfile]))
}
