package model

import (
	"slices"
	"time"
)

// ApplicationStatus is the review state of a streamer application.
type ApplicationStatus string

// ApplicationStatus constants. Pending is the only non-terminal state.
const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// IsValid reports whether s is a known status.
func (s ApplicationStatus) IsValid() bool {
	return s == ApplicationPending || s == ApplicationApproved || s == ApplicationRejected
}

// Streaming platforms accepted on an application.
var ValidPlatforms = []string{"twitch", "youtube", "kick", "facebook", "other"}

// IsValidPlatform reports whether p is an accepted platform.
func IsValidPlatform(p string) bool {
	return slices.Contains(ValidPlatforms, p)
}

// StreamerApplication is a request to be granted the streamer role.
type StreamerApplication struct {
	ID              string            `json:"id"`
	UserID          string            `json:"user_id"`
	Email           string            `json:"email"`
	ChannelName     string            `json:"channel_name"`
	Platform        string            `json:"platform"`
	ChannelURL      string            `json:"channel_url"`
	ContentCategory string            `json:"content_category"`
	Description     string            `json:"description"`
	SocialLinks     []string          `json:"social_links"`
	Status          ApplicationStatus `json:"status"`
	ReviewNote      string            `json:"review_note,omitempty"`
	ReviewedBy      string            `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsPending returns true if the application can still be reviewed.
func (a *StreamerApplication) IsPending() bool {
	return a.Status == ApplicationPending
}

// ReviewDecision is an admin's verdict on an application.
type ReviewDecision string

// ReviewDecision constants.
const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
)

// ResultingStatus maps a decision to the application status it produces.
func (d ReviewDecision) ResultingStatus() (ApplicationStatus, bool) {
	switch d {
	case DecisionApprove:
		return ApplicationApproved, true
	case DecisionReject:
		return ApplicationRejected, true
	default:
		return "", false
	}
}
