package dto

// UpdateUserRequest is the body of PATCH /admin/users/{id}.
type UpdateUserRequest struct {
	Role   *string `json:"role,omitempty" validate:"omitempty,oneof=user streamer admin"`
	Status *string `json:"status,omitempty" validate:"omitempty,oneof=active suspended"`
}

// EncryptRequest is the body of POST /admin/security/encrypt.
type EncryptRequest struct {
	Plaintext string `json:"plaintext" validate:"required"`
}

// EncryptResponse carries the sealed value.
type EncryptResponse struct {
	Ciphertext string `json:"ciphertext"`
}

// DecryptRequest is the body of POST /admin/security/decrypt.
type DecryptRequest struct {
	Ciphertext string `json:"ciphertext" validate:"required"`
}

// DecryptResponse carries the opened value.
type DecryptResponse struct {
	Plaintext string `json:"plaintext"`
}

// HashRequest is the body of POST /admin/security/hash.
type HashRequest struct {
	Value string `json:"value" validate:"required"`
}

// HashResponse carries the keyed hash.
type HashResponse struct {
	Hash string `json:"hash"`
}

// CardRequest is the body of the card endpoints.
type CardRequest struct {
	Number string `json:"number" validate:"required,max=32"`
}
