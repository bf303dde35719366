package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/xscan/xscan/internal/model"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	m, err := NewTokenManager(testSecret, "xscan", 15*time.Minute, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}
	return m
}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	pair, refreshClaims, err := m.IssuePair("01HUSER", model.RoleStreamer)
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("TokenType = %q", pair.TokenType)
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Error("refresh token should outlive access token")
	}

	access, err := m.Validate(pair.AccessToken, TokenAccess)
	if err != nil {
		t.Fatalf("Validate access failed: %v", err)
	}
	if access.UserID() != "01HUSER" || access.Role != model.RoleStreamer {
		t.Errorf("unexpected claims %+v", access)
	}

	refresh, err := m.Validate(pair.RefreshToken, TokenRefresh)
	if err != nil {
		t.Fatalf("Validate refresh failed: %v", err)
	}
	if refresh.ID != refreshClaims.ID {
		t.Error("refresh jti mismatch")
	}
	if refresh.ID == access.ID {
		t.Error("access and refresh tokens must have distinct jti")
	}
}

func TestTokenManager_WrongType(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	pair, _, _ := m.IssuePair("u1", model.RoleUser)
	if _, err := m.Validate(pair.RefreshToken, TokenAccess); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("expected ErrWrongTokenType, got %v", err)
	}
	if _, err := m.Validate(pair.AccessToken, TokenRefresh); !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("expected ErrWrongTokenType, got %v", err)
	}
}

func TestTokenManager_Expired(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	issued := time.Now().Add(-time.Hour)
	m.now = func() time.Time { return issued }

	pair, _, _ := m.IssuePair("u1", model.RoleUser)
	m.now = time.Now

	if _, err := m.Validate(pair.AccessToken, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenManager_BadSignatureAndIssuer(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)
	pair, _, _ := m.IssuePair("u1", model.RoleUser)

	other, _ := NewTokenManager("ffffffffffffffffffffffffffffffff", "xscan", time.Minute, time.Hour)
	if _, err := other.Validate(pair.AccessToken, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	otherIssuer, _ := NewTokenManager(testSecret, "someone-else", time.Minute, time.Hour)
	if _, err := otherIssuer.Validate(pair.AccessToken, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong issuer, got %v", err)
	}

	if _, err := m.Validate("not.a.jwt", TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	t.Parallel()
	if _, err := NewTokenManager("", "xscan", time.Minute, time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}
