package handler

import (
	"log/slog"
	"net/http"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/handler/dto"
	"github.com/xscan/xscan/internal/security"
)

// SecurityService is the admin crypto toolbox.
type SecurityService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	Hash(value string) (string, error)
	ValidateCard(number string) (security.CardCheck, error)
	Tokenize(number string) (*security.CardToken, error)
}

// SecurityHandler exposes encryption, hashing and card utilities to admins.
// Inputs and outputs are never logged.
type SecurityHandler struct {
	svc    SecurityService
	logger *slog.Logger
}

// NewSecurityHandler creates a new SecurityHandler.
func NewSecurityHandler(svc SecurityService, logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{svc: svc, logger: logger.With("component", "security_handler")}
}

// Encrypt handles POST /api/v1/admin/security/encrypt.
func (h *SecurityHandler) Encrypt(w http.ResponseWriter, r *http.Request) {
	var req dto.EncryptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ct, err := h.svc.Encrypt(req.Plaintext)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.audit(r, "encrypt")
	writeJSON(w, http.StatusOK, dto.EncryptResponse{Ciphertext: ct})
}

// Decrypt handles POST /api/v1/admin/security/decrypt.
func (h *SecurityHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	var req dto.DecryptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	pt, err := h.svc.Decrypt(req.Ciphertext)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.audit(r, "decrypt")
	writeJSON(w, http.StatusOK, dto.DecryptResponse{Plaintext: pt})
}

// Hash handles POST /api/v1/admin/security/hash.
func (h *SecurityHandler) Hash(w http.ResponseWriter, r *http.Request) {
	var req dto.HashRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sum, err := h.svc.Hash(req.Value)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.HashResponse{Hash: sum})
}

// ValidateCard handles POST /api/v1/admin/security/validate-card.
func (h *SecurityHandler) ValidateCard(w http.ResponseWriter, r *http.Request) {
	var req dto.CardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	check, err := h.svc.ValidateCard(req.Number)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

// Tokenize handles POST /api/v1/admin/security/tokenize.
func (h *SecurityHandler) Tokenize(w http.ResponseWriter, r *http.Request) {
	var req dto.CardRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tok, err := h.svc.Tokenize(req.Number)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.audit(r, "tokenize")
	writeJSON(w, http.StatusOK, tok)
}

func (h *SecurityHandler) audit(r *http.Request, op string) {
	h.logger.Info("security_tool_used",
		slog.String("operation", op),
		slog.String("admin_id", auth.UserIDFromContext(r.Context())),
	)
}
