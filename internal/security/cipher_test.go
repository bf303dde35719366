package security

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

const testMaster = "fedcba9876543210fedcba9876543210"

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher(testMaster)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	t.Parallel()
	c := newTestCipher(t)

	for _, plain := range []string{"", "JBSWY3DPEHPK3PXP", "1234 5678 9012", strings.Repeat("x", 4096)} {
		ct, err := c.Encrypt(plain)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		if plain != "" && strings.Contains(ct, plain) {
			t.Errorf("ciphertext leaks plaintext")
		}
		got, err := c.Decrypt(ct)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if got != plain {
			t.Errorf("round trip mismatch: got %q want %q", got, plain)
		}
	}
}

func TestCipher_RandomNonce(t *testing.T) {
	t.Parallel()
	c := newTestCipher(t)

	a, _ := c.Encrypt("same")
	b, _ := c.Encrypt("same")
	if a == b {
		t.Error("two encryptions of the same plaintext should differ")
	}
}

func TestCipher_DecryptTampered(t *testing.T) {
	t.Parallel()
	c := newTestCipher(t)

	ct, _ := c.Encrypt("secret")
	raw, err := base64.RawURLEncoding.DecodeString(ct)
	if err != nil {
		t.Fatal(err)
	}
	raw[len(raw)-1] ^= 0x01
	tampered := base64.RawURLEncoding.EncodeToString(raw)

	tests := []string{tampered, "not-base64!!", "", "AAAA"}
	for _, in := range tests {
		if _, err := c.Decrypt(in); !errors.Is(err, ErrDecrypt) {
			t.Errorf("Decrypt(%q) error = %v, want ErrDecrypt", in, err)
		}
	}
}

func TestCipher_DifferentKeys(t *testing.T) {
	t.Parallel()
	c1 := newTestCipher(t)
	c2, err := NewCipher("another-master-key-that-is-long-enough")
	if err != nil {
		t.Fatal(err)
	}

	ct, _ := c1.Encrypt("secret")
	if _, err := c2.Decrypt(ct); err == nil {
		t.Error("decrypt with a different key should fail")
	}
	if c1.Hash("v") == c2.Hash("v") {
		t.Error("HMAC under different keys should differ")
	}
}

func TestNewCipher_EmptyKey(t *testing.T) {
	t.Parallel()
	if _, err := NewCipher(""); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestCipher_Hash(t *testing.T) {
	t.Parallel()
	c := newTestCipher(t)

	h := c.Hash("value")
	if len(h) != 64 {
		t.Errorf("hash length = %d, want 64", len(h))
	}
	if h != c.Hash("value") {
		t.Error("hash must be deterministic")
	}
	if !c.VerifyHash("value", h) {
		t.Error("VerifyHash should accept matching value")
	}
	if c.VerifyHash("other", h) {
		t.Error("VerifyHash should reject different value")
	}
}

func TestRandomToken(t *testing.T) {
	t.Parallel()
	a, err := RandomToken(16)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := RandomToken(16)
	if len(a) != 32 || a == b {
		t.Errorf("unexpected tokens %q %q", a, b)
	}
}
