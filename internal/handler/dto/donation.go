package dto

// DonateRequest is the body of POST /streamers/{username}/donations.
type DonateRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Message     string `json:"message,omitempty" validate:"max=255"`
	DonorName   string `json:"donor_name,omitempty" validate:"max=50"`
	IsAnonymous bool   `json:"is_anonymous"`
}
