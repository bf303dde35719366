package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/handler/dto"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
)

// WalletService is the balance surface used by WalletHandler.
type WalletService interface {
	Wallet(ctx context.Context, userID string) (*model.Wallet, error)
	Transactions(ctx context.Context, tf repository.TransactionFilter, p model.Pagination) (*model.Page[model.Transaction], error)
	Deposit(ctx context.Context, userID string, amount int64) (*model.Transaction, error)
	Withdraw(ctx context.Context, userID string, amount int64, bankAccountID string) (*model.Transaction, error)
	Withdrawals(ctx context.Context, status model.TransactionStatus, p model.Pagination) (*model.Page[model.Transaction], error)
	ApproveWithdrawal(ctx context.Context, id string) (*model.Transaction, error)
	RejectWithdrawal(ctx context.Context, id, reason string) (*model.Transaction, error)
}

// WalletHandler handles wallet, transaction history and withdrawal review.
type WalletHandler struct {
	svc    WalletService
	logger *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{svc: svc, logger: logger.With("component", "wallet_handler")}
}

// Wallet handles GET /api/v1/me/wallet.
func (h *WalletHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.svc.Wallet(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// Transactions handles GET /api/v1/me/transactions.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.listTransactions(w, r, repository.TransactionFilter{
		UserID: auth.UserIDFromContext(r.Context()),
		Type:   model.TransactionType(q.Get("type")),
		Status: model.TransactionStatus(q.Get("status")),
	})
}

// AdminTransactions handles GET /api/v1/admin/transactions.
func (h *WalletHandler) AdminTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseFilterRange(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	q := r.URL.Query()
	h.listTransactions(w, r, repository.TransactionFilter{
		UserID: q.Get("user_id"),
		Type:   model.TransactionType(q.Get("type")),
		Status: model.TransactionStatus(q.Get("status")),
		From:   from,
		To:     to,
	})
}

func (h *WalletHandler) listTransactions(w http.ResponseWriter, r *http.Request, tf repository.TransactionFilter) {
	page, err := h.svc.Transactions(r.Context(), tf, parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.Transaction]))
}

// Deposit handles POST /api/v1/me/wallet/deposits.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.svc.Deposit(r.Context(), auth.UserIDFromContext(r.Context()), req.Amount)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Withdraw handles POST /api/v1/me/wallet/withdrawals.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.svc.Withdraw(r.Context(), auth.UserIDFromContext(r.Context()), req.Amount, req.BankAccountID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Withdrawals handles GET /api/v1/admin/withdrawals.
func (h *WalletHandler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	status := model.TransactionStatus(r.URL.Query().Get("status"))
	page, err := h.svc.Withdrawals(r.Context(), status, parsePagination(r))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToListResponse(page, dto.Identity[model.Transaction]))
}

// ApproveWithdrawal handles POST /api/v1/admin/withdrawals/{id}/approve.
func (h *WalletHandler) ApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.ApproveWithdrawal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("withdrawal_approved",
		slog.String("transaction_id", tx.ID),
		slog.String("admin_id", auth.UserIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, tx)
}

// RejectWithdrawal handles POST /api/v1/admin/withdrawals/{id}/reject.
func (h *WalletHandler) RejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req dto.RejectWithdrawalRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.svc.RejectWithdrawal(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.logger.Info("withdrawal_rejected",
		slog.String("transaction_id", tx.ID),
		slog.String("admin_id", auth.UserIDFromContext(r.Context())),
	)
	writeJSON(w, http.StatusOK, tx)
}
