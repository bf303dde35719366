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

// DonationService is the donation surface used by DonationHandler.
type DonationService interface {
	Donate(ctx context.Context, donorID, streamerUsername string, in service.DonateInput) (*model.Donation, error)
	Sent(ctx context.Context, donorID string, p model.Pagination) (*model.Page[model.Donation], error)
	Received(ctx context.Context, streamerID string, p model.Pagination) (*model.Page[model.Donation], error)
}

// DonationHandler handles donating and donation history.
type DonationHandler struct {
	svc    DonationService
	logger *slog.Logger
}

// NewDonationHandler creates a new DonationHandler.
func NewDonationHandler(svc DonationService, logger *slog.Logger) *DonationHandler {
	return &DonationHandler{svc: svc, logger: logger.With("component", "donation_handler")}
}

// Donate handles POST /api/v1/streamers/{username}/donations.
func (h *DonationHandler) Donate(w http.ResponseWriter, r *http.Request) {
	var req dto.DonateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.Donate(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "username"), service.DonateInput{
		Amount:      req.Amount,
		Message:     req.Message,
		DonorName:   req.DonorName,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// Sent handles GET /api/v1/me/donations/sent.
func (h *DonationHandler) Sent(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Sent(r.Context(), auth.UserIDFromContext(r.Context()), parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.Donation]))
}

// Received handles GET /api/v1/me/donations/received.
func (h *DonationHandler) Received(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Received(r.Context(), auth.UserIDFromContext(r.Context()), parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.Donation]))
}
