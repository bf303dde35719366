package cache

import (
	"context"
	"time"

	"github.com/xscan/xscan/internal/model"
)

const dashboardStatsKey = "stats:dashboard"

// GetDashboardStats returns cached admin stats, or nil on a miss.
func (c *Cache) GetDashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	ok, err := c.getJSON(ctx, dashboardStatsKey, &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

// SetDashboardStats caches admin stats for ttl.
func (c *Cache) SetDashboardStats(ctx context.Context, stats *model.DashboardStats, ttl time.Duration) error {
	return c.setJSON(ctx, dashboardStatsKey, stats, ttl)
}

// InvalidateDashboardStats drops cached admin stats.
func (c *Cache) InvalidateDashboardStats(ctx context.Context) error {
	return c.client.Del(ctx, dashboardStatsKey).Err()
}
