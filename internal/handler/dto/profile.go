package dto

// UpdateProfileRequest is the body of PATCH /me. Absent fields are unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

// DeleteAccountRequest is the body of DELETE /me.
type DeleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}
