package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidTOTP is returned when a one-time code does not verify.
var ErrInvalidTOTP = errors.New("invalid two-factor code")

// TOTPKey is a freshly generated authenticator secret.
type TOTPKey struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateTOTP creates a new secret for the account.
func GenerateTOTP(issuer, account string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp: %w", err)
	}
	return &TOTPKey{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifyTOTP checks a six-digit code, allowing one step of clock skew.
func VerifyTOTP(code, secret string, at time.Time) error {
	if len(code) != 6 || secret == "" {
		return ErrInvalidTOTP
	}
	ok, err := totp.ValidateCustom(code, secret, at.UTC(), totpOpts)
	if err != nil || !ok {
		return ErrInvalidTOTP
	}
	return nil
}
