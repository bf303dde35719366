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
)

// MaxRejectReasonLength bounds the reason given on rejected withdrawals.
const MaxRejectReasonLength = 500

// WalletStore is the persistence used by WalletService.
type WalletStore interface {
	GetWallet(ctx context.Context, userID string) (*model.Wallet, error)
	ListTransactions(ctx context.Context, tf repository.TransactionFilter, p model.Pagination) (*model.Page[model.Transaction], error)
	GetBankAccount(ctx context.Context, userID, id string) (*model.BankAccount, error)
	Deposit(ctx context.Context, t *model.Transaction) error
	RequestWithdrawal(ctx context.Context, t *model.Transaction) error
	ApproveWithdrawal(ctx context.Context, id string) (*model.Transaction, error)
	RejectWithdrawal(ctx context.Context, id, reason string, refund *model.Transaction) (*model.Transaction, error)
}

// WalletConfig holds money limits.
type WalletConfig struct {
	Currency      string
	MaxDeposit    int64
	MinWithdrawal int64
}

// WalletService handles balances, deposits and withdrawals.
type WalletService struct {
	store    WalletStore
	notifier Notifier
	cfg      WalletConfig
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewWalletService creates a new WalletService.
func NewWalletService(store WalletStore, notifier Notifier, cfg WalletConfig, logger *slog.Logger, recorder metrics.Recorder) *WalletService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &WalletService{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "wallet_service"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// Wallet returns the user's balance summary.
func (s *WalletService) Wallet(ctx context.Context, userID string) (*model.Wallet, error) {
	w, err := s.store.GetWallet(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load wallet: %w", err)
	}
	w.Currency = s.cfg.Currency
	return w, nil
}

// Transactions lists transactions matching the filter.
func (s *WalletService) Transactions(ctx context.Context, tf repository.TransactionFilter, p model.Pagination) (*model.Page[model.Transaction], error) {
	if tf.Type != "" && !tf.Type.IsValid() {
		return nil, fieldError("type", "oneof", "type is not a valid transaction type")
	}
	if tf.Status != "" && !tf.Status.IsValid() {
		return nil, fieldError("status", "oneof", "status is not a valid transaction status")
	}
	if tf.From != nil && tf.To != nil && tf.From.After(*tf.To) {
		return nil, fieldError("from", "ltefield", "from must not be after to")
	}
	page, err := s.store.ListTransactions(ctx, tf, p.Normalize())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return page, nil
}

// Deposit credits the wallet. Funding from a payment provider is simulated.
func (s *WalletService) Deposit(ctx context.Context, userID string, amount int64) (*model.Transaction, error) {
	if amount <= 0 || amount > s.cfg.MaxDeposit {
		return nil, fieldError("amount", "range", fmt.Sprintf("amount must be between 1 and %d", s.cfg.MaxDeposit))
	}

	now := s.now().UTC()
	t := &model.Transaction{
		ID:          newID(),
		UserID:      userID,
		Type:        model.TxDeposit,
		Status:      model.TxCompleted,
		Amount:      amount,
		NetAmount:   amount,
		Description: "Wallet deposit",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Deposit(ctx, t); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("deposit: %w", err)
	}
	s.metrics.IncDeposit(amount)
	return t, nil
}

// Withdraw debits the balance and queues a withdrawal for admin review.
func (s *WalletService) Withdraw(ctx context.Context, userID string, amount int64, bankAccountID string) (*model.Transaction, error) {
	if amount < s.cfg.MinWithdrawal {
		return nil, fieldError("amount", "min", fmt.Sprintf("amount must be at least %d", s.cfg.MinWithdrawal))
	}
	acct, err := s.store.GetBankAccount(ctx, userID, bankAccountID)
	if err != nil {
		return nil, mapBankAccountErr(err)
	}

	now := s.now().UTC()
	t := &model.Transaction{
		ID:          newID(),
		UserID:      userID,
		Type:        model.TxWithdrawal,
		Status:      model.TxPending,
		Amount:      amount,
		NetAmount:   amount,
		ReferenceID: acct.ID,
		Description: "Withdrawal to " + acct.BankName + " " + acct.MaskedNumber(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.RequestWithdrawal(ctx, t); err != nil {
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("request withdrawal: %w", err)
	}
	s.metrics.IncWithdrawal("requested")
	s.logger.Info("withdrawal requested", slog.String("user_id", userID), slog.String("transaction_id", t.ID))
	return t, nil
}

// Withdrawals lists withdrawals for admin review.
func (s *WalletService) Withdrawals(ctx context.Context, status model.TransactionStatus, p model.Pagination) (*model.Page[model.Transaction], error) {
	return s.Transactions(ctx, repository.TransactionFilter{Type: model.TxWithdrawal, Status: status}, p)
}

// ApproveWithdrawal completes a pending withdrawal.
func (s *WalletService) ApproveWithdrawal(ctx context.Context, id string) (*model.Transaction, error) {
	t, err := s.store.ApproveWithdrawal(ctx, id)
	if err != nil {
		return nil, mapWithdrawalErr(err)
	}
	s.metrics.IncWithdrawal("approved")
	publish(ctx, s.notifier, s.logger, notify.NewEvent(
		model.NotifyWithdrawalApproved,
		t.UserID,
		"Withdrawal approved",
		"Your withdrawal of "+model.FormatAmount(t.Amount, s.cfg.Currency)+" has been approved.",
	))
	return t, nil
}

// RejectWithdrawal fails a pending withdrawal and refunds the balance.
func (s *WalletService) RejectWithdrawal(ctx context.Context, id, reason string) (*model.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if err := checkLength("reason", reason, 1, MaxRejectReasonLength); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	refund := &model.Transaction{
		ID:          newID(),
		Description: "Refund of rejected withdrawal",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	t, err := s.store.RejectWithdrawal(ctx, id, reason, refund)
	if err != nil {
		return nil, mapWithdrawalErr(err)
	}
	s.metrics.IncWithdrawal("rejected")
	publish(ctx, s.notifier, s.logger, notify.NewEvent(
		model.NotifyWithdrawalRejected,
		t.UserID,
		"Withdrawal rejected",
		"Your withdrawal of "+model.FormatAmount(t.Amount, s.cfg.Currency)+" was rejected: "+reason,
	))
	return t, nil
}

func mapWithdrawalErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrTransactionNotFound):
		return ErrTransactionNotFound
	case errors.Is(err, repository.ErrNotPending):
		return ErrNotPending
	}
	return fmt.Errorf("review withdrawal: %w", err)
}
