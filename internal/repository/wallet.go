package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

const transactionColumns = `id, user_id, type, status, amount, fee, net_amount, reference_id, description, failure_reason, created_at, updated_at`

// TransactionFilter narrows transaction listings. Zero values match all.
type TransactionFilter struct {
	UserID string
	Type   model.TransactionType
	Status model.TransactionStatus
	From   *time.Time
	To     *time.Time
}

func (tf TransactionFilter) build() *filter {
	var f filter
	if tf.UserID != "" {
		f.add("user_id = $%d", tf.UserID)
	}
	if tf.Type != "" {
		f.add("type = $%d", tf.Type)
	}
	if tf.Status != "" {
		f.add("status = $%d", tf.Status)
	}
	if tf.From != nil {
		f.add("created_at >= $%d", *tf.From)
	}
	if tf.To != nil {
		f.add("created_at < $%d", *tf.To)
	}
	return &f
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var t model.Transaction
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Type,
		&t.Status,
		&t.Amount,
		&t.Fee,
		&t.NetAmount,
		&t.ReferenceID,
		&t.Description,
		&t.FailureReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func insertTransaction(ctx context.Context, q querier, t *model.Transaction) error {
	_, err := q.Exec(ctx, `
		INSERT INTO transactions (id, user_id, type, status, amount, fee, net_amount, reference_id, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		t.ID,
		t.UserID,
		t.Type,
		t.Status,
		t.Amount,
		t.Fee,
		t.NetAmount,
		t.ReferenceID,
		t.Description,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	t.UpdatedAt = t.CreatedAt
	return nil
}

// credit adds amount to a user's balance.
func credit(ctx context.Context, q querier, userID string, amount int64) error {
	result, err := q.Exec(ctx,
		`UPDATE users SET balance = balance + $2, updated_at = NOW() WHERE id = $1`, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// debit subtracts amount only if the balance covers it.
func debit(ctx context.Context, q querier, userID string, amount int64) error {
	result, err := q.Exec(ctx, `
		UPDATE users SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2`, userID, amount)
	if err != nil {
		if isCheckViolation(err, "users_balance_non_negative") {
			return ErrInsufficientFunds
		}
		return fmt.Errorf("failed to debit balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

// GetWallet returns balance and totals. Currency is left for the caller.
func (r *Repository) GetWallet(ctx context.Context, userID string) (*model.Wallet, error) {
	var w model.Wallet
	err := r.pool.QueryRow(ctx, `
		SELECT
			u.balance,
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'withdrawal' AND t.status = 'pending'), 0),
			COALESCE(SUM(t.net_amount) FILTER (WHERE t.type = 'donation_received' AND t.status = 'completed'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'donation_sent' AND t.status = 'completed'), 0)
		FROM users u
		LEFT JOIN transactions t ON t.user_id = u.id
		WHERE u.id = $1
		GROUP BY u.id, u.balance`, userID).Scan(
		&w.Balance,
		&w.PendingWithdrawals,
		&w.TotalReceived,
		&w.TotalDonated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

// ListTransactions returns transactions newest first.
func (r *Repository) ListTransactions(ctx context.Context, tf TransactionFilter, p model.Pagination) (*model.Page[model.Transaction], error) {
	f := tf.build()
	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM transactions`,
		`SELECT `+transactionColumns+` FROM transactions`+f.where()+` ORDER BY created_at DESC, id DESC`,
		f, p,
		func(rows pgx.Rows) (model.Transaction, error) {
			t, err := scanTransaction(rows)
			if err != nil {
				return model.Transaction{}, err
			}
			return *t, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return page, nil
}

// GetTransaction returns a transaction by ID.
func (r *Repository) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// Deposit credits the balance and records the completed deposit atomically.
func (r *Repository) Deposit(ctx context.Context, t *model.Transaction) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := credit(ctx, tx, t.UserID, t.Amount); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, t)
	})
}

// RequestWithdrawal debits the balance and records a pending withdrawal.
func (r *Repository) RequestWithdrawal(ctx context.Context, t *model.Transaction) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := debit(ctx, tx, t.UserID, t.Amount); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, t)
	})
}

// transitionWithdrawal moves a pending withdrawal to status. reason is kept
// apart from the description.
func transitionWithdrawal(ctx context.Context, q querier, id string, status model.TransactionStatus, reason string) (*model.Transaction, error) {
	t, err := scanTransaction(q.QueryRow(ctx, `
		UPDATE transactions
		SET status = $2,
			failure_reason = $3,
			updated_at = NOW()
		WHERE id = $1 AND type = 'withdrawal' AND status = 'pending'
		RETURNING `+transactionColumns, id, status, reason))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update withdrawal: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1 AND type = 'withdrawal')`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check withdrawal: %w", err)
	}
	if !exists {
		return nil, ErrTransactionNotFound
	}
	return nil, ErrNotPending
}

// ApproveWithdrawal marks a pending withdrawal completed.
func (r *Repository) ApproveWithdrawal(ctx context.Context, id string) (*model.Transaction, error) {
	return transitionWithdrawal(ctx, r.pool, id, model.TxCompleted, "")
}

// RejectWithdrawal fails a pending withdrawal, restores the balance and
// records refund in one transaction. refund must carry ID and CreatedAt;
// user, amount and reference are filled from the withdrawal.
func (r *Repository) RejectWithdrawal(ctx context.Context, id, reason string, refund *model.Transaction) (*model.Transaction, error) {
	var out *model.Transaction
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		w, err := transitionWithdrawal(ctx, tx, id, model.TxFailed, reason)
		if err != nil {
			return err
		}
		if err := credit(ctx, tx, w.UserID, w.Amount); err != nil {
			return err
		}

		refund.UserID = w.UserID
		refund.Type = model.TxRefund
		refund.Status = model.TxCompleted
		refund.Amount = w.Amount
		refund.Fee = 0
		refund.NetAmount = w.Amount
		refund.ReferenceID = w.ID
		if err := insertTransaction(ctx, tx, refund); err != nil {
			return err
		}
		out = w
		return nil
	})
	return out, err
}
