package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

const userColumns = `id, email, username, password_hash, display_name, bio, avatar_url,
	role, status, balance, two_factor_enabled, COALESCE(two_factor_secret, ''),
	last_login_at, created_at, updated_at`

// UserFilter narrows admin user listings.
type UserFilter struct {
	Query  string
	Role   model.Role
	Status model.UserStatus
}

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.DisplayName,
		&u.Bio,
		&u.AvatarURL,
		&u.Role,
		&u.Status,
		&u.Balance,
		&u.TwoFactorEnabled,
		&u.TwoFactorSecret,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func userConflict(err error) error {
	if strings.Contains(violatedConstraint(err), "username") {
		return ErrUsernameExists
	}
	return ErrEmailExists
}

// CreateUser inserts a new user.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, display_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.DisplayName,
		user.Role,
		user.Status,
		user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return userConflict(err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *Repository) getUserBy(ctx context.Context, column, value string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	user, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUserBy(ctx, "id", id)
}

// GetUserByEmail retrieves a user by lower-cased email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUserBy(ctx, "email", strings.ToLower(email))
}

// GetUserByUsername retrieves a user by lower-cased username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUserBy(ctx, "username", strings.ToLower(username))
}

// UpdateProfile writes the editable profile fields and returns the stored user.
func (r *Repository) UpdateProfile(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		UPDATE users
		SET display_name = $2, bio = $3, avatar_url = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	updated, err := scanUser(r.pool.QueryRow(ctx, query, user.ID, user.DisplayName, user.Bio, user.AvatarURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return updated, nil
}

// UpdatePassword replaces the password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetTwoFactor enables 2FA with the encrypted secret, or disables it when
// secretEnc is empty.
func (r *Repository) SetTwoFactor(ctx context.Context, id, secretEnc string) error {
	var secret *string
	if secretEnc != "" {
		secret = &secretEnc
	}
	result, err := r.pool.Exec(ctx, `
		UPDATE users
		SET two_factor_enabled = $2, two_factor_secret = $3, updated_at = NOW()
		WHERE id = $1`, id, secret != nil, secret)
	if err != nil {
		return fmt.Errorf("failed to update two-factor: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordLogin stamps last_login_at.
func (r *Repository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// DeleteUser removes an account with a zero balance and no pending withdrawal.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		var balance int64
		err := tx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}
		if balance > 0 {
			return ErrUserHasBalance
		}

		var pending bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM transactions
				WHERE user_id = $1 AND type = 'withdrawal' AND status = 'pending'
			)`, id).Scan(&pending)
		if err != nil {
			return fmt.Errorf("failed to check pending withdrawals: %w", err)
		}
		if pending {
			return ErrPendingWithdrawal
		}

		if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// ListUsers returns users for the admin console, newest first.
func (r *Repository) ListUsers(ctx context.Context, uf UserFilter, p model.Pagination) (*model.Page[model.User], error) {
	var f filter
	if uf.Query != "" {
		f.add(`(email LIKE $%[1]d OR username LIKE $%[1]d OR LOWER(display_name) LIKE $%[1]d)`, likePrefix(uf.Query))
	}
	if uf.Role != "" {
		f.add("role = $%d", uf.Role)
	}
	if uf.Status != "" {
		f.add("status = $%d", uf.Status)
	}

	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM users`,
		`SELECT `+userColumns+` FROM users`+f.where()+` ORDER BY created_at DESC, id DESC`,
		&f, p,
		func(rows pgx.Rows) (model.User, error) {
			u, err := scanUser(rows)
			if err != nil {
				return model.User{}, err
			}
			return *u, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return page, nil
}

// UpdateRoleStatus changes a user's role and/or status.
func (r *Repository) UpdateRoleStatus(ctx context.Context, id string, role *model.Role, status *model.UserStatus) (*model.User, error) {
	query := `
		UPDATE users
		SET role = COALESCE($2, role), status = COALESCE($3, status), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.pool.QueryRow(ctx, query, id, role, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}
