package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

const profileColumns = `u.id, u.username, u.display_name, u.bio, u.avatar_url, u.role, u.created_at,
	(SELECT COUNT(*) FROM follows f WHERE f.streamer_id = u.id)`

func scanProfile(row pgx.Row) (model.PublicProfile, error) {
	var p model.PublicProfile
	var role model.Role
	err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarURL, &role, &p.CreatedAt, &p.FollowerCount)
	p.IsStreamer = role == model.RoleStreamer || role == model.RoleAdmin
	return p, err
}

// GetPublicProfile returns the public view of a user by username.
func (r *Repository) GetPublicProfile(ctx context.Context, username string) (*model.PublicProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM users u WHERE u.username = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, strings.ToLower(username)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// SearchStreamers finds active streamers by username or display name prefix,
// most followed first.
func (r *Repository) SearchStreamers(ctx context.Context, q string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	var f filter
	f.raw(`u.role IN ('streamer', 'admin')`)
	f.raw(`u.status = 'active'`)
	if q != "" {
		f.add(`(u.username LIKE $%[1]d OR LOWER(u.display_name) LIKE $%[1]d)`, likePrefix(q))
	}

	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM users u`,
		`SELECT `+profileColumns+` FROM users u`+f.where()+` ORDER BY 8 DESC, u.username ASC`,
		&f, p,
		func(rows pgx.Rows) (model.PublicProfile, error) { return scanProfile(rows) })
	if err != nil {
		return nil, fmt.Errorf("failed to search streamers: %w", err)
	}
	return page, nil
}

// Follow records a follow. It returns false if it already existed.
func (r *Repository) Follow(ctx context.Context, followerID, streamerID string) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO follows (follower_id, streamer_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, followerID, streamerID)
	if err != nil {
		return false, fmt.Errorf("failed to follow: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// Unfollow removes a follow if present.
func (r *Repository) Unfollow(ctx context.Context, followerID, streamerID string) error {
	if _, err := r.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND streamer_id = $2`, followerID, streamerID); err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}
	return nil
}

// ListFollowing returns the streamers a user follows, most recent first.
func (r *Repository) ListFollowing(ctx context.Context, userID string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	var f filter
	f.add("fl.follower_id = $%d", userID)

	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM follows fl`,
		`SELECT `+profileColumns+` FROM follows fl JOIN users u ON u.id = fl.streamer_id`+f.where()+
			` ORDER BY fl.created_at DESC`,
		&f, p,
		func(rows pgx.Rows) (model.PublicProfile, error) { return scanProfile(rows) })
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	return page, nil
}

// ListFollowers returns a streamer's followers, most recent first.
func (r *Repository) ListFollowers(ctx context.Context, streamerID string, p model.Pagination) (*model.Page[model.PublicProfile], error) {
	var f filter
	f.add("fl.streamer_id = $%d", streamerID)

	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM follows fl`,
		`SELECT `+profileColumns+` FROM follows fl JOIN users u ON u.id = fl.follower_id`+f.where()+
			` ORDER BY fl.created_at DESC`,
		&f, p,
		func(rows pgx.Rows) (model.PublicProfile, error) { return scanProfile(rows) })
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	return page, nil
}
