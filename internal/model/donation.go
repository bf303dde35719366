package model

import "time"

// AnonymousDonorName replaces the donor name of anonymous donations.
const AnonymousDonorName = "Anonymous"

// Donation is a wallet-funded gift from a viewer to a streamer.
// Amount always equals Fee + NetAmount.
type Donation struct {
	ID          string    `json:"id"`
	DonorID     string    `json:"donor_id,omitempty"`
	StreamerID  string    `json:"streamer_id"`
	Streamer    string    `json:"streamer_username,omitempty"`
	DonorName   string    `json:"donor_name"`
	Message     string    `json:"message,omitempty"`
	Amount      int64     `json:"amount"`
	Fee         int64     `json:"fee"`
	NetAmount   int64     `json:"net_amount"`
	IsAnonymous bool      `json:"is_anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}

// DisplayName returns the donor name as shown to streamers and overlays.
func (d *Donation) DisplayName() string {
	if d.IsAnonymous || d.DonorName == "" {
		return AnonymousDonorName
	}
	return d.DonorName
}

// Redacted returns a copy safe for streamer-facing views.
func (d *Donation) Redacted() *Donation {
	cp := *d
	cp.DonorName = d.DisplayName()
	if d.IsAnonymous {
		cp.DonorID = ""
	}
	return &cp
}
