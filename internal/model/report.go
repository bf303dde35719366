package model

import "time"

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	TotalUsers              int64     `json:"total_users"`
	TotalStreamers          int64     `json:"total_streamers"`
	ActiveUsers30d          int64     `json:"active_users_30d"`
	PendingApplications     int64     `json:"pending_applications"`
	PendingWithdrawals      int64     `json:"pending_withdrawals"`
	PendingWithdrawalAmount int64     `json:"pending_withdrawal_amount"`
	DonationsCount          int64     `json:"donations_count"`
	DonationsVolume         int64     `json:"donations_volume"`
	FeesCollected           int64     `json:"fees_collected"`
	DepositsVolume          int64     `json:"deposits_volume"`
	GeneratedAt             time.Time `json:"generated_at"`
}

// FeeReportRow aggregates donations for one UTC day.
type FeeReportRow struct {
	Date      time.Time `json:"date"`
	Donations int64     `json:"donations"`
	Gross     int64     `json:"gross"`
	Fees      int64     `json:"fees"`
	Net       int64     `json:"net"`
}

// FeeReport is the admin fee report over a date range.
type FeeReport struct {
	From   time.Time      `json:"from"`
	To     time.Time      `json:"to"`
	Rows   []FeeReportRow `json:"rows"`
	Totals FeeReportRow   `json:"totals"`
}

// Sum fills Totals from Rows.
func (r *FeeReport) Sum() {
	var t FeeReportRow
	for _, row := range r.Rows {
		t.Donations += row.Donations
		t.Gross += row.Gross
		t.Fees += row.Fees
		t.Net += row.Net
	}
	r.Totals = t
}
