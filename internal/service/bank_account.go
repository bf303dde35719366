package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/security"
)

// Bank account number bounds, after spaces and dashes are stripped.
const (
	MinAccountDigits = 6
	MaxAccountDigits = 34
)

// BankAccountStore is the persistence used by BankAccountService.
type BankAccountStore interface {
	ListBankAccounts(ctx context.Context, userID string) ([]*model.BankAccount, error)
	GetBankAccount(ctx context.Context, userID, id string) (*model.BankAccount, error)
	CreateBankAccount(ctx context.Context, acct *model.BankAccount, limit int) error
	UpdateBankAccount(ctx context.Context, acct *model.BankAccount) (*model.BankAccount, error)
	SetDefaultBankAccount(ctx context.Context, userID, id string) (*model.BankAccount, error)
	DeleteBankAccount(ctx context.Context, userID, id string) error
}

// BankAccountService manages payout destinations.
type BankAccountService struct {
	store BankAccountStore
	box   SecretBox
	limit int
	now   func() time.Time
}

// NewBankAccountService creates a new BankAccountService.
func NewBankAccountService(store BankAccountStore, box SecretBox, limit int) *BankAccountService {
	return &BankAccountService{store: store, box: box, limit: limit, now: time.Now}
}

// BankAccountInput defines input for adding an account.
type BankAccountInput struct {
	BankName      string
	AccountHolder string
	AccountNumber string
	IsDefault     bool
}

// BankAccountUpdate carries optional display fields.
type BankAccountUpdate struct {
	BankName      *string
	AccountHolder *string
}

// List returns the user's accounts.
func (s *BankAccountService) List(ctx context.Context, userID string) ([]*model.BankAccount, error) {
	accts, err := s.store.ListBankAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	return accts, nil
}

// Create validates and stores a new account with the number encrypted.
func (s *BankAccountService) Create(ctx context.Context, userID string, in BankAccountInput) (*model.BankAccount, error) {
	bankName := strings.TrimSpace(in.BankName)
	holder := strings.TrimSpace(in.AccountHolder)
	if err := checkLength("bank_name", bankName, 1, 100); err != nil {
		return nil, err
	}
	if err := checkLength("account_holder", holder, 1, 100); err != nil {
		return nil, err
	}

	digits, ok := security.NormalizeDigits(in.AccountNumber)
	if !ok || len(digits) < MinAccountDigits || len(digits) > MaxAccountDigits {
		return nil, fieldError("account_number", "digits", "account_number must be 6-34 digits")
	}
	enc, err := s.box.Encrypt(digits)
	if err != nil {
		return nil, fmt.Errorf("encrypt account number: %w", err)
	}

	now := s.now().UTC()
	acct := &model.BankAccount{
		ID:               newID(),
		UserID:           userID,
		BankName:         bankName,
		AccountHolder:    holder,
		AccountNumberEnc: enc,
		AccountLast4:     digits[len(digits)-4:],
		IsDefault:        in.IsDefault,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateBankAccount(ctx, acct, s.limit); err != nil {
		if errors.Is(err, repository.ErrBankAccountLimit) {
			return nil, ErrBankAccountLimit
		}
		return nil, fmt.Errorf("create bank account: %w", err)
	}
	return acct, nil
}

// Update changes the bank name or holder of an owned account.
func (s *BankAccountService) Update(ctx context.Context, userID, id string, in BankAccountUpdate) (*model.BankAccount, error) {
	acct, err := s.store.GetBankAccount(ctx, userID, id)
	if err != nil {
		return nil, mapBankAccountErr(err)
	}
	if in.BankName != nil {
		name := strings.TrimSpace(*in.BankName)
		if err := checkLength("bank_name", name, 1, 100); err != nil {
			return nil, err
		}
		acct.BankName = name
	}
	if in.AccountHolder != nil {
		holder := strings.TrimSpace(*in.AccountHolder)
		if err := checkLength("account_holder", holder, 1, 100); err != nil {
			return nil, err
		}
		acct.AccountHolder = holder
	}

	updated, err := s.store.UpdateBankAccount(ctx, acct)
	if err != nil {
		return nil, mapBankAccountErr(err)
	}
	return updated, nil
}

// SetDefault makes an owned account the default.
func (s *BankAccountService) SetDefault(ctx context.Context, userID, id string) (*model.BankAccount, error) {
	acct, err := s.store.SetDefaultBankAccount(ctx, userID, id)
	if err != nil {
		return nil, mapBankAccountErr(err)
	}
	return acct, nil
}

// Delete removes an owned account.
func (s *BankAccountService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteBankAccount(ctx, userID, id); err != nil {
		return mapBankAccountErr(err)
	}
	return nil
}

func mapBankAccountErr(err error) error {
	if errors.Is(err, repository.ErrBankAccountNotFound) {
		return ErrBankAccountNotFound
	}
	return fmt.Errorf("bank account: %w", err)
}
