package alert

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/xscan/xscan/internal/model"
)

// EventDonation is the event name of donation alerts.
const EventDonation = "donation"

// NewDelivery builds the pending delivery for a donation. Anonymous donors
// are masked in the payload.
func NewDelivery(d *model.Donation, s *model.OBSSettings, currency string, now time.Time) (*model.AlertDelivery, error) {
	id := ulid.Make().String()
	payload := model.AlertPayload{
		Event:      EventDonation,
		DeliveryID: id,
		DonationID: d.ID,
		DonorName:  d.DisplayName(),
		Message:    d.Message,
		Amount:     d.Amount,
		Currency:   currency,
		AlertText:  s.RenderAlert(d, currency),
		CreatedAt:  d.CreatedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal alert payload: %w", err)
	}

	now = now.UTC()
	return &model.AlertDelivery{
		ID:          id,
		StreamerID:  s.StreamerID,
		DonationID:  d.ID,
		PayloadJSON: string(data),
		Status:      model.DeliveryStatusPending,
		MaxAttempts: DefaultMaxAttempts,
		NextRetryAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
