package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/service"
)

type fakeAuthenticator struct {
	tokens map[string]*model.AuthContext
	err    error
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, token string) (*model.AuthContext, error) {
	if f.err != nil {
		return nil, f.err
	}
	ac, ok := f.tokens[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return ac, nil
}

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{tokens: map[string]*model.AuthContext{
		"user-token":     {UserID: "u1", Role: model.RoleUser, TokenID: "j1", ExpiresAt: time.Now().Add(time.Hour)},
		"streamer-token": {UserID: "s1", Role: model.RoleStreamer, TokenID: "j2", ExpiresAt: time.Now().Add(time.Hour)},
		"admin-token":    {UserID: "a1", Role: model.RoleAdmin, TokenID: "j3", ExpiresAt: time.Now().Add(time.Hour)},
	}}
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		authErr    error
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unknown token", "Bearer nope", nil, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"valid token", "Bearer user-token", nil, http.StatusOK, ""},
		{"lower-case scheme", "bearer user-token", nil, http.StatusOK, ""},
		{"suspended", "Bearer user-token", service.ErrAccountSuspended, http.StatusForbidden, "ACCOUNT_SUSPENDED"},
		{"backend failure", "Bearer user-token", errors.New("redis down"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authn := newFakeAuthenticator()
			authn.err = tt.authErr

			var gotUser string
			handler := Auth(AuthConfig{Authenticator: authn})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = auth.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode != "" && !strings.Contains(rec.Body.String(), `"code":"`+tt.wantCode+`"`) {
				t.Errorf("body %s missing code %s", rec.Body.String(), tt.wantCode)
			}
			if tt.wantStatus == http.StatusOK && gotUser != "u1" {
				t.Errorf("user id in context = %q", gotUser)
			}
		})
	}
}

func TestAuthorize(t *testing.T) {
	enforcer, err := auth.NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	authn := newFakeAuthenticator()

	tests := []struct {
		name       string
		token      string
		resource   string
		action     string
		wantStatus int
	}{
		{"user reads wallet", "user-token", auth.ResourceWallet, "read", http.StatusOK},
		{"user cannot withdraw", "user-token", auth.ResourceWithdrawals, "create", http.StatusForbidden},
		{"streamer withdraws", "streamer-token", auth.ResourceWithdrawals, "create", http.StatusOK},
		{"streamer inherits user", "streamer-token", auth.ResourceDonations, "create", http.StatusOK},
		{"streamer cannot reach admin", "streamer-token", auth.ResourceAdmin, "read", http.StatusForbidden},
		{"admin reaches admin", "admin-token", auth.ResourceAdmin, "read", http.StatusOK},
		{"user cannot use security tools", "user-token", auth.ResourceSecurity, "encrypt", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Auth(AuthConfig{Authenticator: authn})(
				Authorize(enforcer, tt.resource, tt.action)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				})),
			)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestAuthorize_WithoutAuth(t *testing.T) {
	enforcer, err := auth.NewEnforcer()
	if err != nil {
		t.Fatal(err)
	}
	handler := Authorize(enforcer, auth.ResourceWallet, "read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
