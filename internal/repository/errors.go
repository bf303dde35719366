package repository

import "errors"

// Sentinel errors returned by repository operations.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailExists          = errors.New("email already exists")
	ErrUsernameExists       = errors.New("username already exists")
	ErrUserHasBalance       = errors.New("user has a non-zero balance")
	ErrPendingWithdrawal    = errors.New("user has a pending withdrawal")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrBankAccountNotFound  = errors.New("bank account not found")
	ErrBankAccountLimit     = errors.New("bank account limit reached")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotPending           = errors.New("record is not pending")
	ErrApplicationNotFound  = errors.New("streamer application not found")
	ErrApplicationPending   = errors.New("a pending application already exists")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrSettingsNotFound     = errors.New("obs settings not found")
	ErrDeliveryNotFound     = errors.New("alert delivery not found")
)
