// Package security provides encryption, keyed hashing and card helpers.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF info strings separate the derived keys.
const (
	encryptionInfo = "xscan/encryption"
	hmacInfo       = "xscan/hmac"
	keyLen         = 32
)

var (
	// ErrDecrypt is returned when ciphertext is malformed or fails authentication.
	ErrDecrypt = errors.New("decryption failed")
	// ErrEmptyKey is returned when no key material is configured.
	ErrEmptyKey = errors.New("empty key material")
)

// Cipher encrypts and authenticates short secrets at rest.
// Ciphertexts are base64url(nonce || sealed).
type Cipher struct {
	aead    cipher.AEAD
	hmacKey []byte
}

// NewCipher derives AES-256-GCM and HMAC keys from master key material.
func NewCipher(master string) (*Cipher, error) {
	if master == "" {
		return nil, ErrEmptyKey
	}

	encKey, err := deriveKey([]byte(master), encryptionInfo)
	if err != nil {
		return nil, err
	}
	macKey, err := deriveKey([]byte(master), hmacInfo)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("create block cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}

	return &Cipher{aead: aead, hmacKey: macKey}, nil
}

func deriveKey(master []byte, info string) ([]byte, error) {
	key := make([]byte, keyLen)
	r := hkdf.New(sha256.New, master, nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// Encrypt seals plaintext with a random nonce.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}

	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", ErrDecrypt
	}

	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

// Hash returns the hex HMAC-SHA256 of value under the derived HMAC key.
func (c *Cipher) Hash(value string) string {
	mac := hmac.New(sha256.New, c.hmacKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHash compares value against a hash from Hash in constant time.
func (c *Cipher) VerifyHash(value, hash string) bool {
	return hmac.Equal([]byte(c.Hash(value)), []byte(hash))
}

// SHA256Hex returns the plain SHA-256 of input, for lookup keys of random tokens.
func SHA256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// RandomToken returns n random bytes hex encoded.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
