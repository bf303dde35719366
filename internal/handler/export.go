package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/xscan/xscan/internal/auth"
	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
	"github.com/xscan/xscan/internal/service"
)

// ExportService renders admin downloads.
type ExportService interface {
	Transactions(ctx context.Context, tf repository.TransactionFilter, format service.ExportFormat) (*service.ExportFile, error)
	Donations(ctx context.Context, df repository.DonationFilter, format service.ExportFormat) (*service.ExportFile, error)
}

// ExportHandler serves CSV and PDF exports as attachments.
type ExportHandler struct {
	svc    ExportService
	logger *slog.Logger
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(svc ExportService, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{svc: svc, logger: logger.With("component", "export_handler")}
}

// Transactions handles GET /api/v1/admin/exports/transactions.
func (h *ExportHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeValidationError(w, err)
		return
	}
	from, to, err := parseFilterRange(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	file, err := h.svc.Transactions(r.Context(), repository.TransactionFilter{
		Type: model.TransactionType(r.URL.Query().Get("type")),
		From: from,
		To:   to,
	}, format)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.send(w, r, "transactions", file)
}

// Donations handles GET /api/v1/admin/exports/donations.
func (h *ExportHandler) Donations(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeValidationError(w, err)
		return
	}
	from, to, err := parseFilterRange(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	file, err := h.svc.Donations(r.Context(), repository.DonationFilter{From: from, To: to}, format)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	h.send(w, r, "donations", file)
}

func (h *ExportHandler) send(w http.ResponseWriter, r *http.Request, kind string, file *service.ExportFile) {
	h.logger.Info("export_generated",
		slog.String("kind", kind),
		slog.String("filename", file.Filename),
		slog.Int("rows", file.Rows),
		slog.String("admin_id", auth.UserIDFromContext(r.Context())),
	)
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
