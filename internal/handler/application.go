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

// ApplicationService is the streamer application surface used by ApplicationHandler.
type ApplicationService interface {
	Submit(ctx context.Context, userID string, in service.ApplicationInput) (*model.StreamerApplication, error)
	Mine(ctx context.Context, userID string) ([]*model.StreamerApplication, error)
	Withdraw(ctx context.Context, userID, id string) error
	List(ctx context.Context, status model.ApplicationStatus, p model.Pagination) (*model.Page[model.StreamerApplication], error)
	Get(ctx context.Context, id string) (*model.StreamerApplication, error)
	Review(ctx context.Context, reviewerID, id string, decision model.ReviewDecision, note string) (*model.StreamerApplication, error)
}

// ApplicationHandler handles streamer applications and their review.
type ApplicationHandler struct {
	svc    ApplicationService
	logger *slog.Logger
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(svc ApplicationService, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, logger: logger.With("component", "application_handler")}
}

// Submit handles POST /api/v1/streamer-applications.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	app, err := h.svc.Submit(r.Context(), auth.UserIDFromContext(r.Context()), service.ApplicationInput{
		ChannelName:     req.ChannelName,
		Platform:        req.Platform,
		ChannelURL:      req.ChannelURL,
		ContentCategory: req.ContentCategory,
		Description:     req.Description,
		SocialLinks:     req.SocialLinks,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// Mine handles GET /api/v1/streamer-applications/me.
func (h *ApplicationHandler) Mine(w http.ResponseWriter, r *http.Request) {
	apps, err := h.svc.Mine(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if apps == nil {
		apps = []*model.StreamerApplication{}
	}
	writeJSON(w, http.StatusOK, dto.DataResponse[*model.StreamerApplication]{Data: apps})
}

// Withdraw handles DELETE /api/v1/streamer-applications/{id}.
func (h *ApplicationHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Withdraw(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}

// List handles GET /api/v1/admin/streamer-applications.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	status := model.ApplicationStatus(r.URL.Query().Get("status"))
	page, err := h.svc.List(r.Context(), status, parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.StreamerApplication]))
}

// Get handles GET /api/v1/admin/streamer-applications/{id}.
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	app, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// Review handles POST /api/v1/admin/streamer-applications/{id}/review.
func (h *ApplicationHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req dto.ReviewApplicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reviewerID := auth.UserIDFromContext(r.Context())
	app, err := h.svc.Review(r.Context(), reviewerID, chi.URLParam(r, "id"), model.ReviewDecision(req.Decision), req.Note)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("application_reviewed",
		slog.String("application_id", app.ID),
		slog.String("reviewer_id", reviewerID),
		slog.String("status", string(app.Status)),
	)
	writeJSON(w, http.StatusOK, app)
}
