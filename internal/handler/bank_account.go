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

// BankAccountService is the payout account surface used by BankAccountHandler.
type BankAccountService interface {
	List(ctx context.Context, userID string) ([]*model.BankAccount, error)
	Create(ctx context.Context, userID string, in service.BankAccountInput) (*model.BankAccount, error)
	Update(ctx context.Context, userID, id string, in service.BankAccountUpdate) (*model.BankAccount, error)
	SetDefault(ctx context.Context, userID, id string) (*model.BankAccount, error)
	Delete(ctx context.Context, userID, id string) error
}

// BankAccountHandler handles /me/bank-accounts. Numbers are always masked.
type BankAccountHandler struct {
	svc    BankAccountService
	logger *slog.Logger
}

// NewBankAccountHandler creates a new BankAccountHandler.
func NewBankAccountHandler(svc BankAccountService, logger *slog.Logger) *BankAccountHandler {
	return &BankAccountHandler{svc: svc, logger: logger.With("component", "bank_account_handler")}
}

// List handles GET /api/v1/me/bank-accounts.
func (h *BankAccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.List(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DataResponse[*dto.BankAccountResponse]{Data: dto.ToBankAccountList(accounts)})
}

// Create handles POST /api/v1/me/bank-accounts.
func (h *BankAccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBankAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	acct, err := h.svc.Create(r.Context(), userID, service.BankAccountInput{
		BankName:      req.BankName,
		AccountHolder: req.AccountHolder,
		AccountNumber: req.AccountNumber,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("bank_account_created",
		slog.String("user_id", userID),
		slog.String("bank_account_id", acct.ID),
	)
	writeJSON(w, http.StatusCreated, dto.ToBankAccountResponse(acct))
}

// Update handles PATCH /api/v1/me/bank-accounts/{id}.
func (h *BankAccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateBankAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acct, err := h.svc.Update(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), service.BankAccountUpdate{
		BankName:      req.BankName,
		AccountHolder: req.AccountHolder,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToBankAccountResponse(acct))
}

// SetDefault handles POST /api/v1/me/bank-accounts/{id}/default.
func (h *BankAccountHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.SetDefault(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToBankAccountResponse(acct))
}

// Delete handles DELETE /api/v1/me/bank-accounts/{id}.
func (h *BankAccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}
