package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	resetPrefix     = "auth:reset:"
	twoFactorPrefix = "auth:2fa:"

	// PendingTwoFactorTTL is how long a generated TOTP secret waits for confirmation.
	PendingTwoFactorTTL = 10 * time.Minute
)

// StoreResetToken records a password reset token by its hash.
func (c *Cache) StoreResetToken(ctx context.Context, tokenHash, userID string, ttl time.Duration) error {
	return c.client.Set(ctx, resetPrefix+tokenHash, userID, ttl).Err()
}

// ConsumeResetToken returns the user a reset token belongs to and invalidates it.
func (c *Cache) ConsumeResetToken(ctx context.Context, tokenHash string) (string, error) {
	return c.takeString(ctx, resetPrefix+tokenHash)
}

// StorePendingTwoFactor holds an encrypted TOTP secret until the user confirms it.
func (c *Cache) StorePendingTwoFactor(ctx context.Context, userID, secretEnc string) error {
	return c.client.Set(ctx, twoFactorPrefix+userID, secretEnc, PendingTwoFactorTTL).Err()
}

// TakePendingTwoFactor returns and removes the pending secret.
func (c *Cache) TakePendingTwoFactor(ctx context.Context, userID string) (string, error) {
	return c.takeString(ctx, twoFactorPrefix+userID)
}

// PeekPendingTwoFactor returns the pending secret without removing it.
func (c *Cache) PeekPendingTwoFactor(ctx context.Context, userID string) (string, error) {
	v, err := c.client.Get(ctx, twoFactorPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get pending 2fa: %w", err)
	}
	return v, nil
}
