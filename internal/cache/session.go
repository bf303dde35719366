package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xscan/xscan/internal/model"
)

const (
	denylistPrefix   = "auth:deny:"
	refreshPrefix    = "auth:refresh:"
	userStatusPrefix = "auth:status:"

	// UserStatusTTL bounds how long a suspension can go unnoticed.
	UserStatusTTL = time.Minute
)

// DenyAccessToken blocks an access token id until the token would expire anyway.
func (c *Cache) DenyAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, denylistPrefix+jti, 1, ttl).Err()
}

// IsAccessTokenDenied reports whether the token id was logged out.
func (c *Cache) IsAccessTokenDenied(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, denylistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check denylist: %w", err)
	}
	return n > 0, nil
}

// StoreRefreshToken registers a refresh token id as usable by userID.
func (c *Cache) StoreRefreshToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, refreshPrefix+jti, userID, ttl).Err()
}

// ConsumeRefreshToken removes a registered refresh token and returns its owner.
// Returns ErrNotFound if it was already used, revoked or expired.
func (c *Cache) ConsumeRefreshToken(ctx context.Context, jti string) (string, error) {
	return c.takeString(ctx, refreshPrefix+jti)
}

// RevokeRefreshToken deletes a refresh token registration.
func (c *Cache) RevokeRefreshToken(ctx context.Context, jti string) error {
	return c.client.Del(ctx, refreshPrefix+jti).Err()
}

// GetUserStatus returns the cached account status, or "" on a miss.
func (c *Cache) GetUserStatus(ctx context.Context, userID string) (model.UserStatus, error) {
	v, err := c.client.Get(ctx, userStatusPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user status: %w", err)
	}
	return model.UserStatus(v), nil
}

// SetUserStatus caches an account status for UserStatusTTL.
func (c *Cache) SetUserStatus(ctx context.Context, userID string, status model.UserStatus) error {
	return c.client.Set(ctx, userStatusPrefix+userID, string(status), UserStatusTTL).Err()
}

// DeleteUserStatus drops the cached status so the next request reloads it.
func (c *Cache) DeleteUserStatus(ctx context.Context, userID string) error {
	return c.client.Del(ctx, userStatusPrefix+userID).Err()
}
