package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

const bankAccountColumns = `id, user_id, bank_name, account_holder, account_number_enc, account_last4, is_default, created_at, updated_at`

func scanBankAccount(row pgx.Row) (*model.BankAccount, error) {
	var b model.BankAccount
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.BankName,
		&b.AccountHolder,
		&b.AccountNumberEnc,
		&b.AccountLast4,
		&b.IsDefault,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBankAccounts returns a user's accounts, default first.
func (r *Repository) ListBankAccounts(ctx context.Context, userID string) ([]*model.BankAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bankAccountColumns+`
		FROM bank_accounts
		WHERE user_id = $1
		ORDER BY is_default DESC, created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bank accounts: %w", err)
	}
	defer rows.Close()

	accounts := []*model.BankAccount{}
	for rows.Next() {
		b, err := scanBankAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bank account: %w", err)
		}
		accounts = append(accounts, b)
	}
	return accounts, rows.Err()
}

// GetBankAccount returns an account owned by userID.
func (r *Repository) GetBankAccount(ctx context.Context, userID, id string) (*model.BankAccount, error) {
	b, err := scanBankAccount(r.pool.QueryRow(ctx,
		`SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("failed to get bank account: %w", err)
	}
	return b, nil
}

// CreateBankAccount inserts an account, enforcing the per-user limit.
// The first account becomes the default.
func (r *Repository) CreateBankAccount(ctx context.Context, acct *model.BankAccount, limit int) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		// Serialise concurrent creates for the same user.
		if _, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, acct.UserID); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM bank_accounts WHERE user_id = $1`, acct.UserID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count bank accounts: %w", err)
		}
		if count >= limit {
			return ErrBankAccountLimit
		}
		if count == 0 {
			acct.IsDefault = true
		}
		if acct.IsDefault {
			if _, err := tx.Exec(ctx, `
				UPDATE bank_accounts SET is_default = FALSE, updated_at = NOW()
				WHERE user_id = $1 AND is_default`, acct.UserID); err != nil {
				return fmt.Errorf("failed to clear default: %w", err)
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO bank_accounts (id, user_id, bank_name, account_holder, account_number_enc, account_last4, is_default, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			acct.ID,
			acct.UserID,
			acct.BankName,
			acct.AccountHolder,
			acct.AccountNumberEnc,
			acct.AccountLast4,
			acct.IsDefault,
			acct.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create bank account: %w", err)
		}
		return nil
	})
}

// UpdateBankAccount changes the display fields of an account.
func (r *Repository) UpdateBankAccount(ctx context.Context, acct *model.BankAccount) (*model.BankAccount, error) {
	b, err := scanBankAccount(r.pool.QueryRow(ctx, `
		UPDATE bank_accounts
		SET bank_name = $3, account_holder = $4, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+bankAccountColumns,
		acct.ID, acct.UserID, acct.BankName, acct.AccountHolder))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBankAccountNotFound
		}
		return nil, fmt.Errorf("failed to update bank account: %w", err)
	}
	return b, nil
}

// SetDefaultBankAccount makes id the only default account of the user.
func (r *Repository) SetDefaultBankAccount(ctx context.Context, userID, id string) (*model.BankAccount, error) {
	var out *model.BankAccount
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE bank_accounts SET is_default = FALSE, updated_at = NOW()
			WHERE user_id = $1 AND is_default AND id <> $2`, userID, id); err != nil {
			return fmt.Errorf("failed to clear default: %w", err)
		}

		b, err := scanBankAccount(tx.QueryRow(ctx, `
			UPDATE bank_accounts SET is_default = TRUE, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING `+bankAccountColumns, id, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBankAccountNotFound
			}
			return fmt.Errorf("failed to set default: %w", err)
		}
		out = b
		return nil
	})
	return out, err
}

// DeleteBankAccount removes an account. If it was the default, the most
// recent remaining account is promoted.
func (r *Repository) DeleteBankAccount(ctx context.Context, userID, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var wasDefault bool
		err := tx.QueryRow(ctx, `
			DELETE FROM bank_accounts WHERE id = $1 AND user_id = $2
			RETURNING is_default`, id, userID).Scan(&wasDefault)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrBankAccountNotFound
			}
			return fmt.Errorf("failed to delete bank account: %w", err)
		}
		if !wasDefault {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE bank_accounts SET is_default = TRUE, updated_at = NOW()
			WHERE id = (
				SELECT id FROM bank_accounts WHERE user_id = $1
				ORDER BY created_at DESC LIMIT 1
			)`, userID); err != nil {
			return fmt.Errorf("failed to promote default: %w", err)
		}
		return nil
	})
}
