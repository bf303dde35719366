package dto

import (
	"time"

	"github.com/xscan/xscan/internal/model"
)

// DepositRequest is the body of POST /me/wallet/deposits.
type DepositRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// WithdrawRequest is the body of POST /me/wallet/withdrawals.
type WithdrawRequest struct {
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	BankAccountID string `json:"bank_account_id" validate:"required"`
}

// RejectWithdrawalRequest is the body of POST /admin/withdrawals/{id}/reject.
type RejectWithdrawalRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CreateBankAccountRequest is the body of POST /me/bank-accounts.
type CreateBankAccountRequest struct {
	BankName      string `json:"bank_name" validate:"required,max=100"`
	AccountHolder string `json:"account_holder" validate:"required,max=100"`
	AccountNumber string `json:"account_number" validate:"required,max=64"`
	IsDefault     bool   `json:"is_default"`
}

// UpdateBankAccountRequest is the body of PATCH /me/bank-accounts/{id}.
type UpdateBankAccountRequest struct {
	BankName      *string `json:"bank_name,omitempty" validate:"omitempty,max=100"`
	AccountHolder *string `json:"account_holder,omitempty" validate:"omitempty,max=100"`
}

// BankAccountResponse shows a bank account with its number masked.
type BankAccountResponse struct {
	ID            string    `json:"id"`
	BankName      string    `json:"bank_name"`
	AccountHolder string    `json:"account_holder"`
	AccountNumber string    `json:"account_number"`
	IsDefault     bool      `json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToBankAccountResponse converts a BankAccount model.
func ToBankAccountResponse(b *model.BankAccount) *BankAccountResponse {
	return &BankAccountResponse{
		ID:            b.ID,
		BankName:      b.BankName,
		AccountHolder: b.AccountHolder,
		AccountNumber: b.MaskedNumber(),
		IsDefault:     b.IsDefault,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

// ToBankAccountList converts a slice of accounts.
func ToBankAccountList(accounts []*model.BankAccount) []*BankAccountResponse {
	out := make([]*BankAccountResponse, 0, len(accounts))
	for _, b := range accounts {
		out = append(out, ToBankAccountResponse(b))
	}
	return out
}
