// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xscan/xscan/internal/handler/dto"
	"github.com/xscan/xscan/internal/middleware"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/service"
	"github.com/xscan/xscan/internal/validation"
)

// Version is reported by the service info endpoint.
const Version = "1.0.0"

// Handler serves the service info and fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports the service name and version.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "xscan",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

func noContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON decodes the request body into dst and validates it. It writes
// the error response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeBody(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints whose body may be empty.
// A non-empty body gets the same checks.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	return decodeBody(w, r, dst, true)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must contain a single JSON object")
		return false
	}
	if err := validation.ValidateStruct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}

func writeValidationError(w http.ResponseWriter, err error) {
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   ve.Error(),
			Code:    "VALIDATION_ERROR",
			Details: ve.Details(),
		})
		return
	}
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
}

type errorMapping struct {
	err     error
	status  int
	code    string
	message string
}

// serviceErrors maps service sentinels to responses. Order matters only for
// errors that wrap one another.
var serviceErrors = []errorMapping{
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token"},
	{service.ErrTOTPRequired, http.StatusUnauthorized, "TOTP_REQUIRED", "Two-factor code required"},
	{service.ErrInvalidTOTP, http.StatusUnauthorized, "INVALID_TOTP", "Invalid two-factor code"},
	{service.ErrAccountSuspended, http.StatusForbidden, "ACCOUNT_SUSPENDED", "Account is suspended"},

	{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND", "User not found"},
	{service.ErrStreamerNotFound, http.StatusNotFound, "STREAMER_NOT_FOUND", "Streamer not found"},
	{service.ErrBankAccountNotFound, http.StatusNotFound, "BANK_ACCOUNT_NOT_FOUND", "Bank account not found"},
	{service.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND", "Transaction not found"},
	{service.ErrApplicationNotFound, http.StatusNotFound, "APPLICATION_NOT_FOUND", "Application not found"},
	{service.ErrSettingsNotFound, http.StatusNotFound, "SETTINGS_NOT_FOUND", "OBS settings not found"},
	{service.ErrOverlayNotFound, http.StatusNotFound, "OVERLAY_NOT_FOUND", "Overlay not found"},
	{service.ErrNotificationNotFound, http.StatusNotFound, "NOTIFICATION_NOT_FOUND", "Notification not found"},

	{service.ErrEmailExists, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered"},
	{service.ErrUsernameExists, http.StatusConflict, "USERNAME_EXISTS", "Username is already taken"},
	{service.ErrTwoFactorEnabled, http.StatusConflict, "TWO_FACTOR_ENABLED", "Two-factor authentication is already enabled"},
	{service.ErrAlreadyStreamer, http.StatusConflict, "ALREADY_STREAMER", "User is already a streamer"},
	{service.ErrApplicationPending, http.StatusConflict, "APPLICATION_PENDING", "A pending application already exists"},
	{service.ErrNotPending, http.StatusConflict, "NOT_PENDING", "Only pending records can be changed"},

	{service.ErrSelfFollow, http.StatusUnprocessableEntity, "SELF_FOLLOW", "You cannot follow yourself"},
	{service.ErrSelfDonation, http.StatusUnprocessableEntity, "SELF_DONATION", "You cannot donate to yourself"},
	{service.ErrSelfModification, http.StatusUnprocessableEntity, "SELF_MODIFICATION", "Admins cannot demote or suspend themselves"},
	{service.ErrHasBalance, http.StatusUnprocessableEntity, "HAS_BALANCE", "Withdraw your balance before deleting the account"},
	{service.ErrPendingWithdrawal, http.StatusUnprocessableEntity, "PENDING_WITHDRAWAL", "Account has a pending withdrawal"},
	{service.ErrBankAccountLimit, http.StatusUnprocessableEntity, "BANK_ACCOUNT_LIMIT", "Bank account limit reached"},
	{service.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", "Insufficient funds"},
	{service.ErrTwoFactorDisabled, http.StatusUnprocessableEntity, "TWO_FACTOR_DISABLED", "Two-factor authentication is not enabled"},
	{service.ErrTwoFactorNotPending, http.StatusUnprocessableEntity, "TWO_FACTOR_NOT_PENDING", "Start two-factor setup first"},

	{service.ErrDecryptionFailed, http.StatusBadRequest, "DECRYPTION_FAILED", "Ciphertext could not be decrypted"},
	{service.ErrInvalidCard, http.StatusBadRequest, "INVALID_CARD", "Invalid card number"},
}

// handleServiceError maps service errors to HTTP responses. Unknown errors
// are logged with the request id and reported as 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) {
		writeValidationError(w, ve)
		return
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, m.message)
			return
		}
	}
	logger.Error("internal_error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
	writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
}

// parsePagination reads page and limit. Malformed values fall back to the
// defaults; the service clamps the rest.
func parsePagination(r *http.Request) model.Pagination {
	q := r.URL.Query()
	var p model.Pagination
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = v
	}
	return p.Normalize()
}

// parseTimeParam accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
// dateOnly reports which form was used.
func parseTimeParam(r *http.Request, name string) (t *time.Time, dateOnly bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, false, nil
	}
	if v, err := time.Parse(time.RFC3339, raw); err == nil {
		return &v, false, nil
	}
	if v, err := time.Parse(time.DateOnly, raw); err == nil {
		return &v, true, nil
	}
	return nil, false, validation.NewFieldError(name, "datetime", name+" must be an RFC 3339 timestamp or YYYY-MM-DD date")
}

// parseDayRange reads from and to as given. Used where the service treats
// both bounds as inclusive days.
func parseDayRange(r *http.Request) (from, to *time.Time, err error) {
	if from, _, err = parseTimeParam(r, "from"); err != nil {
		return nil, nil, err
	}
	if to, _, err = parseTimeParam(r, "to"); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

// parseFilterRange reads from and to for list filters, whose upper bound is
// exclusive. A date-only to covers that whole day.
func parseFilterRange(r *http.Request) (from, to *time.Time, err error) {
	if from, _, err = parseTimeParam(r, "from"); err != nil {
		return nil, nil, err
	}
	var dateOnly bool
	if to, dateOnly, err = parseTimeParam(r, "to"); err != nil {
		return nil, nil, err
	}
	if to != nil && dateOnly {
		next := to.AddDate(0, 0, 1)
		to = &next
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, validation.NewFieldError("from", "ltfield", "from must be before to")
	}
	return from, to, nil
}
