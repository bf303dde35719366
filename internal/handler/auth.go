package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/handler/dto"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/service"
)

// AuthService is the account and session surface used by AuthHandler.
type AuthService interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	Logout(ctx context.Context, session *model.AuthContext, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID, current, newPassword string) error
	SetupTwoFactor(ctx context.Context, userID string) (*auth.TOTPKey, error)
	EnableTwoFactor(ctx context.Context, userID, code string) error
	DisableTwoFactor(ctx context.Context, userID, password, code string) error
}

// AuthHandler handles registration, sessions, password and 2FA endpoints.
type AuthHandler struct {
	svc    AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger.With("component", "auth_handler")}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		TOTPCode: req.TOTPCode,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pair, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	if err := h.svc.Logout(r.Context(), auth.MustAuthFromContext(r.Context()), req.RefreshToken); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}

// ForgotPassword handles POST /api/v1/auth/password/forgot. The response
// is the same whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		h.logger.Error("password reset request failed",
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the email is registered, a reset link has been sent",
	})
}

// ResetPassword handles POST /api/v1/auth/password/reset.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}

// ChangePassword handles POST /api/v1/auth/password/change.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID := auth.UserIDFromContext(r.Context())
	if err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}

// SetupTwoFactor handles POST /api/v1/auth/2fa/setup.
func (h *AuthHandler) SetupTwoFactor(w http.ResponseWriter, r *http.Request) {
	key, err := h.svc.SetupTwoFactor(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, key)
}

// EnableTwoFactor handles POST /api/v1/auth/2fa/enable.
func (h *AuthHandler) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dto.TOTPCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.EnableTwoFactor(r.Context(), auth.UserIDFromContext(r.Context()), req.Code); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}

// DisableTwoFactor handles POST /api/v1/auth/2fa/disable.
func (h *AuthHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req dto.DisableTwoFactorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.DisableTwoFactor(r.Context(), auth.UserIDFromContext(r.Context()), req.Password, req.Code); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	noContent(w)
}
