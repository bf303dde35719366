package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/cache"
	"github.com/xscan/xscan/internal/metrics"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/notify"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/security"
	"github.com/xscan/xscan/internal/validation"
)

// resetTokenBytes is the entropy of password reset tokens.
const resetTokenBytes = 32

// AuthStore is the user persistence the auth flows need.
type AuthStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	SetTwoFactor(ctx context.Context, id, secretEnc string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

// SessionStore holds short-lived auth state in Redis.
type SessionStore interface {
	DenyAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenDenied(ctx context.Context, jti string) (bool, error)
	StoreRefreshToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
	ConsumeRefreshToken(ctx context.Context, jti string) (string, error)
	RevokeRefreshToken(ctx context.Context, jti string) error
	GetUserStatus(ctx context.Context, userID string) (model.UserStatus, error)
	SetUserStatus(ctx context.Context, userID string, status model.UserStatus) error
	StoreResetToken(ctx context.Context, hash, userID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, hash string) (string, error)
	StorePendingTwoFactor(ctx context.Context, userID, secretEnc string) error
	PeekPendingTwoFactor(ctx context.Context, userID string) (string, error)
	TakePendingTwoFactor(ctx context.Context, userID string) (string, error)
}

// AuthConfig holds auth flow settings.
type AuthConfig struct {
	TOTPIssuer  string
	FrontendURL string
	ResetTTL    time.Duration
}

// AuthService handles registration, sessions, password reset and 2FA.
type AuthService struct {
	users    AuthStore
	sessions SessionStore
	tokens   *auth.TokenManager
	box      SecretBox
	notifier Notifier
	cfg      AuthConfig
	logger   *slog.Logger
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users AuthStore,
	sessions SessionStore,
	tokens *auth.TokenManager,
	box SecretBox,
	notifier Notifier,
	cfg AuthConfig,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	cfg.FrontendURL = strings.TrimSuffix(cfg.FrontendURL, "/")
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		box:      box,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With("component", "auth_service"),
		metrics:  recorder,
		now:      time.Now,
	}
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User   *model.User      `json:"user"`
	Tokens *model.TokenPair `json:"tokens"`
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}

// Register creates a user account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	username := validation.NormalizeUsername(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fieldError("username", "username", err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, fieldError("password", "password", err.Error())
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}
	if err := checkLength("display_name", displayName, 1, 50); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           newID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Role:         model.RoleUser,
		Status:       model.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return nil, ErrEmailExists
		case errors.Is(err, repository.ErrUsernameExists):
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.metrics.IncUserRegistered()

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// LoginInput defines input for signing in.
type LoginInput struct {
	Email    string
	Password string
	TOTPCode string
}

// Login verifies credentials and the second factor, then issues tokens.
// Unknown emails and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(in.Email))
	if errors.Is(err, repository.ErrUserNotFound) {
		auth.BurnPasswordCheck(in.Password)
		s.metrics.IncLogin("failure")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	ok, err := auth.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil || !ok {
		s.metrics.IncLogin("failure")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		s.metrics.IncLogin("suspended")
		return nil, ErrAccountSuspended
	}

	if user.TwoFactorEnabled {
		if in.TOTPCode == "" {
			s.metrics.IncLogin("totp_required")
			return nil, ErrTOTPRequired
		}
		if err := s.verifyStoredTOTP(user, in.TOTPCode); err != nil {
			s.metrics.IncLogin("failure")
			return nil, err
		}
	}

	now := s.now().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record login", slog.String("user_id", user.ID), slog.String("error", err.Error()))
	} else {
		user.LastLoginAt = &now
	}

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.IncLogin("success")
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh rotates a refresh token. The presented token is consumed whether
// or not the rest of the exchange succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	claims, err := s.tokens.Validate(refreshToken, auth.TokenRefresh)
	if err != nil {
		return nil, ErrInvalidToken
	}

	owner, err := s.sessions.ConsumeRefreshToken(ctx, claims.ID)
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	if owner != claims.UserID() {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, owner)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive() {
		return nil, ErrAccountSuspended
	}
	return s.issueTokens(ctx, user)
}

// Logout denylists the current access token and revokes the refresh token
// if one belonging to the same user is supplied.
func (s *AuthService) Logout(ctx context.Context, session *model.AuthContext, refreshToken string) error {
	if err := s.sessions.DenyAccessToken(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return fmt.Errorf("deny access token: %w", err)
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Validate(refreshToken, auth.TokenRefresh)
	if err != nil || claims.UserID() != session.UserID {
		return nil
	}
	if err := s.sessions.RevokeRefreshToken(ctx, claims.ID); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// Authenticate validates an access token and checks the account is still
// active. The status is cached briefly so suspensions apply within a minute.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*model.AuthContext, error) {
	claims, err := s.tokens.Validate(accessToken, auth.TokenAccess)
	if err != nil {
		return nil, ErrInvalidToken
	}

	denied, err := s.sessions.IsAccessTokenDenied(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if denied {
		return nil, ErrInvalidToken
	}

	status, err := s.sessions.GetUserStatus(ctx, claims.UserID())
	if err != nil {
		s.logger.Warn("user status cache unavailable", slog.String("error", err.Error()))
		status = ""
	}
	s.metrics.IncCacheLookup("user_status", status != "")
	if status == "" {
		user, err := s.users.GetUserByID(ctx, claims.UserID())
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		status = user.Status
		if err := s.sessions.SetUserStatus(ctx, user.ID, status); err != nil {
			s.logger.Warn("failed to cache user status", slog.String("user_id", user.ID), slog.String("error", err.Error()))
		}
	}
	if status != model.UserStatusActive {
		return nil, ErrAccountSuspended
	}

	return &model.AuthContext{
		UserID:    claims.UserID(),
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

// ForgotPassword starts a password reset. It reports success for unknown
// emails so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive() {
		return nil
	}

	token, err := security.RandomToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.sessions.StoreResetToken(ctx, security.SHA256Hex(token), user.ID, s.cfg.ResetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	link := s.cfg.FrontendURL + "/reset-password?token=" + token
	publish(ctx, s.notifier, s.logger, notify.PasswordReset(user.ID, user.Email, link))
	s.logger.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword sets a new password using a single-use reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return fieldError("new_password", "password", err.Error())
	}

	userID, err := s.sessions.ConsumeResetToken(ctx, security.SHA256Hex(token))
	if errors.Is(err, cache.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	return s.setPassword(ctx, userID, newPassword)
}

// ChangePassword replaces the password after verifying the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword string) error {
	if _, err := s.verifyPassword(ctx, userID, current); err != nil {
		return err
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return fieldError("new_password", "password", err.Error())
	}
	return s.setPassword(ctx, userID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info("password changed", slog.String("user_id", userID))
	return nil
}

// SetupTwoFactor generates a secret and holds it pending confirmation.
func (s *AuthService) SetupTwoFactor(ctx context.Context, userID string) (*auth.TOTPKey, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactorEnabled {
		return nil, ErrTwoFactorEnabled
	}

	key, err := auth.GenerateTOTP(s.cfg.TOTPIssuer, user.Email)
	if err != nil {
		return nil, err
	}
	enc, err := s.box.Encrypt(key.Secret)
	if err != nil {
		return nil, fmt.Errorf("encrypt totp secret: %w", err)
	}
	if err := s.sessions.StorePendingTwoFactor(ctx, user.ID, enc); err != nil {
		return nil, fmt.Errorf("store pending totp: %w", err)
	}
	return key, nil
}

// EnableTwoFactor confirms the pending secret with a code and persists it.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID, code string) error {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.TwoFactorEnabled {
		return ErrTwoFactorEnabled
	}

	enc, err := s.sessions.PeekPendingTwoFactor(ctx, userID)
	if errors.Is(err, cache.ErrNotFound) {
		return ErrTwoFactorNotPending
	}
	if err != nil {
		return fmt.Errorf("load pending totp: %w", err)
	}
	secret, err := s.box.Decrypt(enc)
	if err != nil {
		return fmt.Errorf("decrypt pending totp: %w", err)
	}
	if err := auth.VerifyTOTP(code, secret, s.now()); err != nil {
		return ErrInvalidTOTP
	}

	if err := s.users.SetTwoFactor(ctx, userID, enc); err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	if _, err := s.sessions.TakePendingTwoFactor(ctx, userID); err != nil && !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn("failed to clear pending totp", slog.String("user_id", userID), slog.String("error", err.Error()))
	}
	s.logger.Info("two-factor enabled", slog.String("user_id", userID))
	return nil
}

// DisableTwoFactor turns 2FA off. Both the password and a current code are required.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID, password, code string) error {
	user, err := s.verifyPassword(ctx, userID, password)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorDisabled
	}
	if err := s.verifyStoredTOTP(user, code); err != nil {
		return err
	}
	if err := s.users.SetTwoFactor(ctx, userID, ""); err != nil {
		return fmt.Errorf("disable totp: %w", err)
	}
	s.logger.Info("two-factor disabled", slog.String("user_id", userID))
	return nil
}

func (s *AuthService) verifyStoredTOTP(user *model.User, code string) error {
	secret, err := s.box.Decrypt(user.TwoFactorSecret)
	if err != nil {
		return fmt.Errorf("decrypt totp secret: %w", err)
	}
	if err := auth.VerifyTOTP(code, secret, s.now()); err != nil {
		return ErrInvalidTOTP
	}
	return nil
}

func (s *AuthService) verifyPassword(ctx context.Context, userID, password string) (*model.User, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) loadUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*model.TokenPair, error) {
	pair, refresh, err := s.tokens.IssuePair(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if err := s.sessions.StoreRefreshToken(ctx, refresh.ID, user.ID, refresh.Expiry()); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return pair, nil
}
