package dto

// ApplicationRequest is the body of POST /streamer-applications.
type ApplicationRequest struct {
	ChannelName     string   `json:"channel_name" validate:"required,max=100"`
	Platform        string   `json:"platform" validate:"required"`
	ChannelURL      string   `json:"channel_url" validate:"required,httpurl"`
	ContentCategory string   `json:"content_category" validate:"required,max=50"`
	Description     string   `json:"description" validate:"required,min=20,max=2000"`
	SocialLinks     []string `json:"social_links" validate:"max=5,dive,httpurl"`
}

// ReviewApplicationRequest is the body of POST /admin/streamer-applications/{id}/review.
type ReviewApplicationRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note" validate:"max=1000"`
}
