package model

import (
	"slices"
	"time"
)

// TransactionType classifies a balance movement.
type TransactionType string

// TransactionType constants.
const (
	TxDeposit          TransactionType = "deposit"
	TxDonationSent     TransactionType = "donation_sent"
	TxDonationReceived TransactionType = "donation_received"
	TxWithdrawal       TransactionType = "withdrawal"
	TxRefund           TransactionType = "refund"
)

// ValidTransactionTypes contains all valid transaction types.
var ValidTransactionTypes = []TransactionType{
	TxDeposit, TxDonationSent, TxDonationReceived, TxWithdrawal, TxRefund,
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	return slices.Contains(ValidTransactionTypes, t)
}

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

// TransactionStatus constants.
const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// IsValid reports whether s is a known transaction status.
func (s TransactionStatus) IsValid() bool {
	return s == TxPending || s == TxCompleted || s == TxFailed
}

// Transaction records one balance movement of a user.
type Transaction struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	Amount        int64             `json:"amount"`
	Fee           int64             `json:"fee"`
	NetAmount     int64             `json:"net_amount"`
	ReferenceID   string            `json:"reference_id,omitempty"`
	Description   string            `json:"description,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"` // rejected withdrawals only
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsPendingWithdrawal returns true if the transaction awaits admin review.
func (t *Transaction) IsPendingWithdrawal() bool {
	return t.Type == TxWithdrawal && t.Status == TxPending
}

// Wallet summarises a user's balance and totals.
type Wallet struct {
	Balance            int64  `json:"balance"`
	Currency           string `json:"currency"`
	PendingWithdrawals int64  `json:"pending_withdrawals"`
	TotalReceived      int64  `json:"total_received"`
	TotalDonated       int64  `json:"total_donated"`
}

// BankAccount is a payout destination. The full number is stored encrypted.
type BankAccount struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	BankName         string    `json:"bank_name"`
	AccountHolder    string    `json:"account_holder"`
	AccountNumberEnc string    `json:"-"`
	AccountLast4     string    `json:"account_last4"`
	IsDefault        bool      `json:"is_default"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MaskedNumber renders the account number for display.
func (b *BankAccount) MaskedNumber() string {
	return "****" + b.AccountLast4
}
