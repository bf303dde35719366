package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/xscan/xscan/internal/model"
	"github.com/xscan/xscan/internal/repository"
)

// MaxExportRows caps the rows written to one export file.
const MaxExportRows = 10000

// ExportFormat is the file format of an export.
type ExportFormat string

// ExportFormat constants.
const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ParseExportFormat validates a format query value. Empty means CSV.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fieldError("format", "oneof", "format must be csv or pdf")
}

// ExportStore is the persistence used by ExportService.
type ExportStore interface {
	ExportTransactions(ctx context.Context, tf repository.TransactionFilter, max int) ([]model.Transaction, error)
	ExportDonations(ctx context.Context, df repository.DonationFilter, max int) ([]model.Donation, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
	Rows        int
}

// ExportService renders admin reports as CSV or PDF.
type ExportService struct {
	store    ExportStore
	currency string
	now      func() time.Time
}

// NewExportService creates a new ExportService.
func NewExportService(store ExportStore, currency string) *ExportService {
	return &ExportService{store: store, currency: currency, now: time.Now}
}

// table is the format-neutral content of an export.
type table struct {
	title   string
	headers []string
	widths  []float64 // PDF column widths in mm
	text    []int     // user-supplied columns, escaped in CSV
	rows    [][]string
}

// Transactions exports transactions matching the filter.
func (s *ExportService) Transactions(ctx context.Context, tf repository.TransactionFilter, format ExportFormat) (*ExportFile, error) {
	if tf.Type != "" && !tf.Type.IsValid() {
		return nil, fieldError("type", "oneof", "type is not a valid transaction type")
	}
	txs, err := s.store.ExportTransactions(ctx, tf, MaxExportRows)
	if err != nil {
		return nil, fmt.Errorf("export transactions: %w", err)
	}

	t := table{
		title:   "Transactions",
		headers: []string{"id", "user_id", "type", "status", "amount", "fee", "net_amount", "reference_id", "description", "failure_reason", "created_at"},
		widths:  []float64{30, 30, 24, 18, 18, 14, 18, 30, 50, 40, 36},
		text:    []int{8, 9},
		rows:    make([][]string, 0, len(txs)),
	}
	for i := range txs {
		tx := &txs[i]
		t.rows = append(t.rows, []string{
			tx.ID,
			tx.UserID,
			string(tx.Type),
			string(tx.Status),
			minorUnits(tx.Amount),
			minorUnits(tx.Fee),
			minorUnits(tx.NetAmount),
			tx.ReferenceID,
			tx.Description,
			tx.FailureReason,
			tx.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return s.render("transactions", t, format)
}

// Donations exports donations matching the filter. Anonymous donors are masked.
func (s *ExportService) Donations(ctx context.Context, df repository.DonationFilter, format ExportFormat) (*ExportFile, error) {
	ds, err := s.store.ExportDonations(ctx, df, MaxExportRows)
	if err != nil {
		return nil, fmt.Errorf("export donations: %w", err)
	}

	t := table{
		title:   "Donations",
		headers: []string{"id", "streamer", "donor_name", "amount", "fee", "net_amount", "anonymous", "message", "created_at"},
		widths:  []float64{30, 30, 30, 18, 14, 18, 18, 80, 36},
		text:    []int{2, 7},
		rows:    make([][]string, 0, len(ds)),
	}
	for i := range ds {
		d := ds[i].Redacted()
		t.rows = append(t.rows, []string{
			d.ID,
			d.Streamer,
			d.DonorName,
			minorUnits(d.Amount),
			minorUnits(d.Fee),
			minorUnits(d.NetAmount),
			strconv.FormatBool(d.IsAnonymous),
			d.Message,
			d.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return s.render("donations", t, format)
}

func (s *ExportService) render(name string, t table, format ExportFormat) (*ExportFile, error) {
	filename := "xscan-" + name + "-" + s.now().UTC().Format("20060102-150405")
	switch format {
	case FormatPDF:
		data, err := s.renderPDF(t)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: filename + ".pdf", ContentType: "application/pdf", Data: data, Rows: len(t.rows)}, nil
	default:
		data, err := renderCSV(t)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Filename: filename + ".csv", ContentType: "text/csv; charset=utf-8", Data: data, Rows: len(t.rows)}, nil
	}
}

func renderCSV(t table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.rows {
		out := append([]string(nil), row...)
		for _, i := range t.text {
			out[i] = escapeFormula(out[i])
		}
		if err := w.Write(out); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

// escapeFormula prefixes cells that spreadsheets would evaluate as formulas.
func escapeFormula(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

const pdfRowHeight = 6

func (s *ExportService) renderPDF(t table) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A3", "")
	pdf.SetTitle("XScan "+t.title, true)
	pdf.SetCreationDate(s.now().UTC())
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range t.headers {
			pdf.CellFormat(t.widths[i], pdfRowHeight, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 7)
	}
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 10, tr("XScan "+t.title+" ("+s.currency+")"), "", 1, "L", false, 0, "")
		header()
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	for _, row := range t.rows {
		for i, cell := range row {
			pdf.CellFormat(t.widths[i], pdfRowHeight, tr(truncateCell(cell, t.widths[i])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(t.rows) == 0 {
		pdf.CellFormat(0, pdfRowHeight, "No rows", "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// truncateCell shortens text to roughly fit a column at 7pt.
func truncateCell(s string, width float64) string {
	max := int(width / 1.5)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// minorUnits renders cents as a decimal without currency.
func minorUnits(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
