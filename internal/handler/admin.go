package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/handler/dto"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
)

// AdminService is the admin console surface used by AdminHandler.
type AdminService interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	FeeReport(ctx context.Context, from, to *time.Time) (*model.FeeReport, error)
	Users(ctx context.Context, uf repository.UserFilter, p model.Pagination) (*model.Page[model.User], error)
	User(ctx context.Context, id string) (*model.User, error)
	UpdateUser(ctx context.Context, adminID, id string, role *model.Role, status *model.UserStatus) (*model.User, error)
}

// AdminHandler handles the admin dashboard, reports and user management.
type AdminHandler struct {
	svc    AdminService
	logger *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger.With("component", "admin_handler")}
}

// Dashboard handles GET /api/v1/admin/dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// FeeReport handles GET /api/v1/admin/reports/fees.
func (h *AdminHandler) FeeReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDayRange(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	report, err := h.svc.FeeReport(r.Context(), from, to)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Users handles GET /api/v1/admin/users.
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.Users(r.Context(), repository.UserFilter{
		Query:  q.Get("q"),
		Role:   model.Role(q.Get("role")),
		Status: model.UserStatus(q.Get("status")),
	}, parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.User]))
}

// User handles GET /api/v1/admin/users/{id}.
func (h *AdminHandler) User(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.User(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser handles PATCH /api/v1/admin/users/{id}.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var role *model.Role
	if req.Role != nil {
		v := model.Role(*req.Role)
		role = &v
	}
	var status *model.UserStatus
	if req.Status != nil {
		v := model.UserStatus(*req.Status)
		status = &v
	}
	u, err := h.svc.UpdateUser(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), role, status)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
