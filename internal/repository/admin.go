package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

// DashboardStats aggregates the admin dashboard counters.
func (r *Repository) DashboardStats(ctx context.Context, now time.Time) (*model.DashboardStats, error) {
	s := model.DashboardStats{GeneratedAt: now}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE role IN ('streamer', 'admin')),
			(SELECT COUNT(*) FROM users WHERE last_login_at >= $1),
			(SELECT COUNT(*) FROM streamer_applications WHERE status = 'pending'),
			(SELECT COUNT(*) FROM transactions WHERE type = 'withdrawal' AND status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'withdrawal' AND status = 'pending'),
			(SELECT COUNT(*) FROM donations),
			(SELECT COALESCE(SUM(amount), 0) FROM donations),
			(SELECT COALESCE(SUM(fee), 0) FROM donations),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'deposit' AND status = 'completed')
	`, now.Add(-30*24*time.Hour)).Scan(
		&s.TotalUsers,
		&s.TotalStreamers,
		&s.ActiveUsers30d,
		&s.PendingApplications,
		&s.PendingWithdrawals,
		&s.PendingWithdrawalAmount,
		&s.DonationsCount,
		&s.DonationsVolume,
		&s.FeesCollected,
		&s.DepositsVolume,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return &s, nil
}

// FeeReport returns per-day donation totals in [from, to), UTC days.
// Days without donations are omitted.
func (r *Repository) FeeReport(ctx context.Context, from, to time.Time) ([]model.FeeReportRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			date_trunc('day', created_at AT TIME ZONE 'UTC') AS day,
			COUNT(*),
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(fee), 0),
			COALESCE(SUM(net_amount), 0)
		FROM donations
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY day
		ORDER BY day`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee report: %w", err)
	}
	defer rows.Close()

	out := []model.FeeReportRow{}
	for rows.Next() {
		var row model.FeeReportRow
		if err := rows.Scan(&row.Date, &row.Donations, &row.Gross, &row.Fees, &row.Net); err != nil {
			return nil, fmt.Errorf("failed to scan fee report: %w", err)
		}
		row.Date = time.Date(row.Date.Year(), row.Date.Month(), row.Date.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, row)
	}
	return out, rows.Err()
}

// ExportTransactions returns up to max matching transactions, newest first.
func (r *Repository) ExportTransactions(ctx context.Context, tf TransactionFilter, max int) ([]model.Transaction, error) {
	f := tf.build()
	args := append(append([]any{}, f.args...), max)
	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions`+f.where()+
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to export transactions: %w", err)
	}
	defer rows.Close()

	out := []model.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ExportDonations returns up to max matching donations, newest first.
func (r *Repository) ExportDonations(ctx context.Context, df DonationFilter, max int) ([]model.Donation, error) {
	f := df.build()
	args := append(append([]any{}, f.args...), max)
	rows, err := r.pool.Query(ctx,
		`SELECT `+donationColumns+donationFrom+f.where()+
			fmt.Sprintf(` ORDER BY d.created_at DESC, d.id DESC LIMIT $%d`, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to export donations: %w", err)
	}
	defer rows.Close()

	return collectDonations(rows)
}

func collectDonations(rows pgx.Rows) ([]model.Donation, error) {
	out := []model.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
