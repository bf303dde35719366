package service

import (
	"errors"
	"fmt"

	"github.com/xscan/xscan/internal/security"
)

// MaxSecurityInputLength bounds values passed to the security utilities.
const MaxSecurityInputLength = 4096

// SecurityService exposes the platform cipher to admins.
type SecurityService struct {
	cipher *security.Cipher
}

// NewSecurityService creates a new SecurityService.
func NewSecurityService(cipher *security.Cipher) *SecurityService {
	return &SecurityService{cipher: cipher}
}

func checkSecurityInput(field, v string) error {
	if v == "" {
		return fieldError(field, "required", field+" is required")
	}
	if len(v) > MaxSecurityInputLength {
		return fieldError(field, "max", fmt.Sprintf("%s must be at most %d bytes", field, MaxSecurityInputLength))
	}
	return nil
}

// Encrypt seals plaintext with AES-256-GCM.
func (s *SecurityService) Encrypt(plaintext string) (string, error) {
	if err := checkSecurityInput("plaintext", plaintext); err != nil {
		return "", err
	}
	return s.cipher.Encrypt(plaintext)
}

// Decrypt opens a ciphertext produced by Encrypt.
func (s *SecurityService) Decrypt(ciphertext string) (string, error) {
	if err := checkSecurityInput("ciphertext", ciphertext); err != nil {
		return "", err
	}
	plain, err := s.cipher.Decrypt(ciphertext)
	if errors.Is(err, security.ErrDecrypt) {
		return "", ErrDecryptionFailed
	}
	return plain, err
}

// Hash returns the keyed HMAC-SHA256 of value.
func (s *SecurityService) Hash(value string) (string, error) {
	if err := checkSecurityInput("value", value); err != nil {
		return "", err
	}
	return s.cipher.Hash(value), nil
}

// ValidateCard checks a card number with Luhn and detects the brand.
func (s *SecurityService) ValidateCard(number string) (security.CardCheck, error) {
	if err := checkSecurityInput("number", number); err != nil {
		return security.CardCheck{}, err
	}
	return security.CheckCard(number), nil
}

// Tokenize derives a stable token for a valid card number.
func (s *SecurityService) Tokenize(number string) (*security.CardToken, error) {
	if err := checkSecurityInput("number", number); err != nil {
		return nil, err
	}
	tok, err := s.cipher.Tokenize(number)
	if errors.Is(err, security.ErrInvalidCard) {
		return nil, ErrInvalidCard
	}
	return tok, err
}
