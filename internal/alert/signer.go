// Package alert delivers signed donation alerts to streamer webhooks.
package alert

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrReplayWindowExceeded is returned when timestamp is outside replay window.
	ErrReplayWindowExceeded = errors.New("timestamp outside replay window")
	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("invalid signature")
)

// DefaultReplayWindow is how far a receiver should accept timestamps from now.
const DefaultReplayWindow = 5 * time.Minute

// secretBytes is the entropy of a webhook secret.
const secretBytes = 32

// GenerateSignature returns the hex HMAC-SHA256 of "{timestamp}.{payload}".
func GenerateSignature(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte{'.'})
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received alert the way a streamer's endpoint should.
func VerifySignature(secret, signature string, timestamp int64, payload []byte, window time.Duration, now time.Time) error {
	age := now.Unix() - timestamp
	if age < 0 {
		age = -age
	}
	if age > int64(window.Seconds()) {
		return ErrReplayWindowExceeded
	}

	expected := GenerateSignature(secret, timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// GenerateSecret creates a signing secret: "whsec_" followed by 64 hex chars.
func GenerateSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return "whsec_" + hex.EncodeToString(b), nil
}
