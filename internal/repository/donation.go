package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/xscan/xscan/internal/model"
)

const donationColumns = `d.id, COALESCE(d.donor_id, ''), COALESCE(d.streamer_id, ''), COALESCE(s.username, ''),
	d.donor_name, d.message, d.amount, d.fee, d.net_amount, d.is_anonymous, d.created_at`

const donationFrom = ` FROM donations d LEFT JOIN users s ON s.id = d.streamer_id`

func scanDonation(row pgx.Row) (model.Donation, error) {
	var d model.Donation
	err := row.Scan(
		&d.ID,
		&d.DonorID,
		&d.StreamerID,
		&d.Streamer,
		&d.DonorName,
		&d.Message,
		&d.Amount,
		&d.Fee,
		&d.NetAmount,
		&d.IsAnonymous,
		&d.CreatedAt,
	)
	return d, err
}

// DonationFilter narrows donation listings.
type DonationFilter struct {
	DonorID    string
	StreamerID string
	From       *time.Time
	To         *time.Time
}

func (df DonationFilter) build() *filter {
	var f filter
	if df.DonorID != "" {
		f.add("d.donor_id = $%d", df.DonorID)
	}
	if df.StreamerID != "" {
		f.add("d.streamer_id = $%d", df.StreamerID)
	}
	if df.From != nil {
		f.add("d.created_at >= $%d", *df.From)
	}
	if df.To != nil {
		f.add("d.created_at < $%d", *df.To)
	}
	return &f
}

// CreateDonation moves funds from donor to streamer and records the donation
// with both ledger rows in one transaction.
func (r *Repository) CreateDonation(ctx context.Context, d *model.Donation, sent, received *model.Transaction) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		// Lock both rows in a stable order so opposite donations cannot deadlock.
		if _, err := tx.Exec(ctx,
			`SELECT id FROM users WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`, d.DonorID, d.StreamerID); err != nil {
			return fmt.Errorf("failed to lock users: %w", err)
		}

		if err := debit(ctx, tx, d.DonorID, d.Amount); err != nil {
			return err
		}
		if err := credit(ctx, tx, d.StreamerID, d.NetAmount); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO donations (id, donor_id, streamer_id, donor_name, message, amount, fee, net_amount, is_anonymous, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			d.ID,
			d.DonorID,
			d.StreamerID,
			d.DonorName,
			d.Message,
			d.Amount,
			d.Fee,
			d.NetAmount,
			d.IsAnonymous,
			d.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert donation: %w", err)
		}

		if err := insertTransaction(ctx, tx, sent); err != nil {
			return err
		}
		return insertTransaction(ctx, tx, received)
	})
}

// ListDonations returns donations newest first.
func (r *Repository) ListDonations(ctx context.Context, df DonationFilter, p model.Pagination) (*model.Page[model.Donation], error) {
	f := df.build()
	page, err := listPage(ctx, r.pool,
		`SELECT COUNT(*) FROM donations d`,
		`SELECT `+donationColumns+donationFrom+f.where()+` ORDER BY d.created_at DESC, d.id DESC`,
		f, p, func(rows pgx.Rows) (model.Donation, error) { return scanDonation(rows) })
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return page, nil
}

// RecentDonations returns a streamer's donations since a point in time with
// amount at least minAmount, newest first.
func (r *Repository) RecentDonations(ctx context.Context, streamerID string, minAmount int64, since time.Time, limit int) ([]model.Donation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+donationColumns+donationFrom+`
		WHERE d.streamer_id = $1 AND d.amount >= $2 AND d.created_at > $3
		ORDER BY d.created_at DESC
		LIMIT $4`, streamerID, minAmount, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent donations: %w", err)
	}
	defer rows.Close()

	return collectDonations(rows)
}
