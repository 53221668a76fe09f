package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zenithbooks/statement-recon/internal/models"
	"github.com/zenithbooks/statement-recon/internal/reconcile"
)

// DateLayout is used for every date written to CSV.
const DateLayout = "02/01/2006"

// CSVWriter writes transactions to CSV format.
type CSVWriter struct {
	IncludeHeader bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, info *models.StatementInfo) error {
	return writeFile(path, func(out io.Writer) error { return w.Write(out, info) })
}

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, info *models.StatementInfo) error {
	writer := csv.NewWriter(out)

	// Write metadata as comments (CSV header rows)
	if w.IncludeHeader {
		if info.Source != "" {
			writer.Write([]string{"# Source", info.Source})
		}
		if info.Format != "" {
			writer.Write([]string{"# Format", string(info.Format)})
		}
		if info.AccountNumber != "" {
			writer.Write([]string{"# Account Number", info.AccountNumber})
		}
		if r := info.Result; r != nil {
			writer.Write([]string{"# Rows", strconv.Itoa(r.TotalRows)})
			writer.Write([]string{"# Valid", strconv.Itoa(r.ValidTransactions)})
			writer.Write([]string{"# Errors", strconv.Itoa(r.ErrorCount)})
		}
	}

	header := []string{"Date", "Description", "Reference", "Debit", "Credit", "Balance"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if info.Result != nil {
		for _, txn := range info.Result.Transactions {
			row := []string{
				txn.Date.Format(DateLayout),
				txn.Description,
				txn.Reference,
				formatAmount(txn.Debit),
				formatAmount(txn.Credit),
				formatAmount(txn.Balance),
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteErrorsToFile writes row errors to a CSV file at the given path.
func WriteErrorsToFile(path string, errs []models.ParseError) error {
	return writeFile(path, func(out io.Writer) error { return WriteErrors(out, errs) })
}

// WriteErrors writes one line per rejected row, raw cells joined with " | ".
func WriteErrors(out io.Writer, errs []models.ParseError) error {
	writer := csv.NewWriter(out)
	if err := writer.Write([]string{"Row", "Line", "Reason", "Detail", "Raw"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, e := range errs {
		row := []string{
			strconv.Itoa(e.RowIndex),
			strconv.Itoa(e.Line),
			string(e.Reason),
			e.Detail,
			strings.Join(e.RawRow, " | "),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Reconciliation statuses written by WriteReconciliation.
const (
	StatusMatched      = "MATCHED"
	StatusDifference   = "DIFFERENCE"
	StatusBooksOnly    = "BOOKS_ONLY"
	StatusExternalOnly = "EXTERNAL_ONLY"
)

// WriteReconciliationToFile writes a reconciliation result to a CSV file.
func WriteReconciliationToFile(path string, result *reconcile.Result) error {
	return writeFile(path, func(out io.Writer) error { return WriteReconciliation(out, result) })
}

// WriteReconciliation writes matched pairs first, then books-only and
// external-only records.
func WriteReconciliation(out io.Writer, result *reconcile.Result) error {
	writer := csv.NewWriter(out)
	header := []string{"Status", "Key", "Date", "Party", "Book Value", "External Value", "Difference", "Duplicate"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	var rows [][]string
	for _, p := range result.Matched {
		status := StatusMatched
		if !p.Clean {
			status = StatusDifference
		}
		rows = append(rows, []string{
			status, p.Book.Key, p.Book.Date, p.Book.Party,
			p.Book.Value.String(), p.External.Value.String(), p.Difference.String(), "",
		})
	}
	for _, u := range result.BooksOnly {
		rows = append(rows, []string{
			StatusBooksOnly, u.Key, u.Date, u.Party, u.Value.String(), "", "", duplicateFlag(u.Duplicate),
		})
	}
	for _, u := range result.ExternalOnly {
		rows = append(rows, []string{
			StatusExternalOnly, u.Key, u.Date, u.Party, "", u.Value.String(), "", duplicateFlag(u.Duplicate),
		})
	}

	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return write(f)
}

func formatAmount(amount decimal.NullDecimal) string {
	if !amount.Valid {
		return ""
	}
	return amount.Decimal.StringFixed(2)
}

func duplicateFlag(dup bool) string {
	if dup {
		return "Y"
	}
	return ""
}
