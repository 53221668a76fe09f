package api

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/ingest"
	"github.com/zenithbooks/statement-recon/internal/invoice"
	"github.com/zenithbooks/statement-recon/internal/ledger"
	"github.com/zenithbooks/statement-recon/internal/models"
	"github.com/zenithbooks/statement-recon/internal/reconcile"
	"github.com/zenithbooks/statement-recon/internal/tabular"
	"github.com/zenithbooks/statement-recon/internal/writer"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ParseResponse is the JSON response from /api/bank-statement/parse.
type ParseResponse struct {
	Success           bool                     `json:"success"`
	Source            string                   `json:"source"`
	Format            models.Format            `json:"format"`
	Transactions      []models.BankTransaction `json:"transactions"`
	Errors            []models.ParseError      `json:"errors"`
	Columns           []models.ColumnMapping   `json:"columns,omitempty"`
	HeaderRow         int                      `json:"headerRow"`
	TotalRows         int                      `json:"totalRows"`
	ValidTransactions int                      `json:"validTransactions"`
	ErrorCount        int                      `json:"errorCount"`
	TotalDebit        decimal.Decimal          `json:"totalDebit"`
	TotalCredit       decimal.Decimal          `json:"totalCredit"`
	CSV               string                   `json:"csv,omitempty"`
}

// ReconcileRequest is the body of /api/reconcile. Both record arrays are
// required; an empty array is fine.
type ReconcileRequest struct {
	BookRecords     []reconcile.Record `json:"bookRecords"`
	ExternalRecords []reconcile.Record `json:"externalRecords"`
	Tolerance       *decimal.Decimal   `json:"tolerance,omitempty"`
}

// ReconcileResponse wraps a reconciliation result. Errors lists rows of an
// uploaded file that could not be read.
type ReconcileResponse struct {
	Success bool                `json:"success"`
	Result  *reconcile.Result   `json:"result"`
	Errors  []models.ParseError `json:"errors,omitempty"`
}

// ImportResponse is returned by the ledger import endpoints.
type ImportResponse struct {
	Success bool                `json:"success"`
	Saved   int                 `json:"saved"`
	Errors  []models.ParseError `json:"errors"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	// Ledger is nil when no ledger table is configured.
	Ledger    ledger.Repository
	Tolerance decimal.Decimal
	Logger    *zap.Logger
}

// NewHandler creates a Handler. repo may be nil.
func NewHandler(repo ledger.Repository, tolerance decimal.Decimal, logger *zap.Logger) *Handler {
	return &Handler{Ledger: repo, Tolerance: tolerance, Logger: logger}
}

// RegisterRoutes sets up the API routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", HandleHealth)

	api := app.Group("/api")
	api.Post("/bank-statement/parse", h.HandleParse)
	api.Post("/bank-statement/import", h.HandleImportStatement)
	api.Post("/reconcile", h.HandleReconcile)
	api.Post("/gstr1/reconcile", h.HandleGSTR1Reconcile)
	api.Post("/books/import", h.HandleImportBooks)
}

// HandleHealth reports liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": Version,
		"engine":  "fiber",
	})
}

// HandleParse ingests an uploaded statement and returns its transactions and
// rejected rows.
func (h *Handler) HandleParse(c *fiber.Ctx) error {
	filename, table, err := readUpload(c)
	if err != nil {
		return err
	}

	result, err := ingest.Ingest(table)
	if err != nil {
		return err
	}

	resp := ParseResponse{
		Success:           true,
		Source:            filename,
		Format:            result.Format,
		Transactions:      result.Transactions,
		Errors:            result.Errors,
		Columns:           result.Columns,
		HeaderRow:         result.HeaderRow,
		TotalRows:         result.TotalRows,
		ValidTransactions: result.ValidTransactions,
		ErrorCount:        result.ErrorCount,
		TotalDebit:        result.TotalDebit,
		TotalCredit:       result.TotalCredit,
	}

	if c.FormValue("csv") != "false" {
		var csvBuf bytes.Buffer
		csvWriter := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
		info := &models.StatementInfo{
			Source:        filename,
			Format:        result.Format,
			AccountNumber: c.FormValue("accountNumber"),
			Result:        result,
		}
		if err := csvWriter.Write(&csvBuf, info); err != nil {
			return apperrors.NewInternalError("CSV generation failed", err)
		}
		resp.CSV = csvBuf.String()
	}

	h.Logger.Info("statement parsed",
		zap.String("requestId", requestID(c)),
		zap.String("file", filename),
		zap.String("format", string(result.Format)),
		zap.Int("rows", result.TotalRows),
		zap.Int("errors", result.ErrorCount))

	return c.JSON(resp)
}

// HandleReconcile reconciles two record sets posted as JSON.
func (h *Handler) HandleReconcile(c *fiber.Ctx) error {
	var req ReconcileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewInvalidArgumentError(fmt.Sprintf("invalid request body: %v", err))
	}
	if req.BookRecords == nil || req.ExternalRecords == nil {
		return apperrors.NewInvalidArgumentError("bookRecords and externalRecords must both be arrays")
	}

	opts := reconcile.Options{Tolerance: h.Tolerance}
	if req.Tolerance != nil {
		opts.Tolerance = *req.Tolerance
	}

	result, err := reconcile.Reconcile(req.BookRecords, req.ExternalRecords, opts)
	if err != nil {
		return err
	}
	return c.JSON(ReconcileResponse{Success: true, Result: result})
}

// HandleGSTR1Reconcile reconciles an uploaded GSTR-1 export against the
// tenant's books for the period.
func (h *Handler) HandleGSTR1Reconcile(c *fiber.Ctx) error {
	if err := h.requireLedger(); err != nil {
		return err
	}
	tenantID, period := c.FormValue("tenantId"), c.FormValue("period")

	opts, err := h.formOptions(c)
	if err != nil {
		return err
	}
	_, table, err := readUpload(c)
	if err != nil {
		return err
	}
	external, rowErrors, err := invoice.Parse(table)
	if err != nil {
		return err
	}

	books, err := h.Ledger.ListBookRecords(c.UserContext(), tenantID, period)
	if err != nil {
		return err
	}

	result, err := reconcile.Reconcile(books, external, opts)
	if err != nil {
		return err
	}

	h.Logger.Info("gstr1 reconciled",
		zap.String("requestId", requestID(c)),
		zap.String("tenantId", tenantID),
		zap.String("period", period),
		zap.Int("matched", result.Summary.MatchedCount),
		zap.Int("booksOnly", result.Summary.BooksOnlyCount),
		zap.Int("externalOnly", result.Summary.ExternalOnlyCount))

	return c.JSON(ReconcileResponse{Success: true, Result: result, Errors: rowErrors})
}

// HandleImportStatement ingests an uploaded statement and stores its valid
// transactions in the ledger.
func (h *Handler) HandleImportStatement(c *fiber.Ctx) error {
	if err := h.requireLedger(); err != nil {
		return err
	}
	tenantID, accountID := c.FormValue("tenantId"), c.FormValue("accountId")
	if tenantID == "" || accountID == "" {
		return apperrors.NewInvalidArgumentError("tenantId and accountId are required")
	}

	_, table, err := readUpload(c)
	if err != nil {
		return err
	}
	result, err := ingest.Ingest(table)
	if err != nil {
		return err
	}

	saved, err := h.Ledger.SaveBankTransactions(c.UserContext(), tenantID, accountID, result.Transactions)
	if err != nil {
		return err
	}
	return c.JSON(ImportResponse{Success: true, Saved: saved, Errors: result.Errors})
}

// HandleImportBooks stores an uploaded books export as the tenant's invoices
// for the period.
func (h *Handler) HandleImportBooks(c *fiber.Ctx) error {
	if err := h.requireLedger(); err != nil {
		return err
	}
	tenantID, period := c.FormValue("tenantId"), c.FormValue("period")

	_, table, err := readUpload(c)
	if err != nil {
		return err
	}
	records, rowErrors, err := invoice.Parse(table)
	if err != nil {
		return err
	}

	saved, err := h.Ledger.SaveInvoices(c.UserContext(), tenantID, period, records)
	if err != nil {
		return err
	}
	return c.JSON(ImportResponse{Success: true, Saved: saved, Errors: rowErrors})
}

// requireLedger fails with NOT_CONFIGURED when no ledger table is set.
func (h *Handler) requireLedger() error {
	if h.Ledger == nil {
		return apperrors.NewNotConfiguredError("ledger storage is not configured")
	}
	return nil
}

func (h *Handler) formOptions(c *fiber.Ctx) (reconcile.Options, error) {
	opts := reconcile.Options{Tolerance: h.Tolerance}
	if raw := strings.TrimSpace(c.FormValue("tolerance")); raw != "" {
		tol, err := decimal.NewFromString(raw)
		if err != nil {
			return opts, apperrors.NewInvalidArgumentError(fmt.Sprintf("invalid tolerance %q", raw))
		}
		opts.Tolerance = tol
	}
	return opts, nil
}

// readUpload decodes the multipart "file" field by its extension.
func readUpload(c *fiber.Ctx) (string, *tabular.Table, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, apperrors.NewInvalidArgumentError("No file uploaded. Use form field 'file'.")
	}

	f, err := header.Open()
	if err != nil {
		return "", nil, apperrors.NewInternalError("failed to open uploaded file", err)
	}
	defer f.Close()

	table, err := tabular.DecodeFile(header.Filename, f)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, table, nil
}

// ErrorHandler renders errors as ErrorResponse.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: fiberErr.Message})
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error: "internal server error",
			Code:  apperrors.CodeInternal,
		})
	}

	msg := appErr.Message
	if appErr.StatusCode < fiber.StatusInternalServerError && appErr.Err != nil {
		msg = fmt.Sprintf("%s: %v", appErr.Message, appErr.Err)
	}
	return c.Status(apperrors.StatusCode(err)).JSON(ErrorResponse{
		Error:   msg,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}
