package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one normalized bank statement line.
// At most one of Debit/Credit carries a positive value.
type BankTransaction struct {
	Date        time.Time           `json:"date"`
	Description string              `json:"description"`
	Debit       decimal.NullDecimal `json:"debit"`
	Credit      decimal.NullDecimal `json:"credit"`
	Balance     decimal.NullDecimal `json:"balance"`
	Reference   string              `json:"reference,omitempty"`
	Row         int                 `json:"row"` // 1-based data row in the source
}

// SignedAmount returns the credit as a positive and the debit as a negative value.
func (t BankTransaction) SignedAmount() decimal.Decimal {
	switch {
	case t.Credit.Valid && t.Credit.Decimal.IsPositive():
		return t.Credit.Decimal
	case t.Debit.Valid && t.Debit.Decimal.IsPositive():
		return t.Debit.Decimal.Neg()
	default:
		return decimal.Zero
	}
}

// IsDebit reports whether the transaction moved money out of the account.
func (t BankTransaction) IsDebit() bool {
	return t.Debit.Valid && t.Debit.Decimal.IsPositive()
}

// Format identifies the tabular source a statement was decoded from.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// ErrorReason classifies why a row could not be ingested.
type ErrorReason string

const (
	ReasonInvalidDate   ErrorReason = "INVALID_DATE"
	ReasonMissingAmount ErrorReason = "MISSING_AMOUNT"
	ReasonMalformedRow  ErrorReason = "MALFORMED_ROW"
	// ReasonUnrecognizedColumns only ever appears as a file-level error.
	ReasonUnrecognizedColumns ErrorReason = "UNRECOGNIZED_COLUMNS"
)

// ParseError records a source row that was excluded from the transactions.
type ParseError struct {
	RowIndex int         `json:"rowIndex"` // 1-based, counted from the first data row
	Line     int         `json:"line"`     // 1-based physical row in the file
	RawRow   []string    `json:"rawRow"`
	Reason   ErrorReason `json:"reason"`
	Detail   string      `json:"detail,omitempty"`
}

// ColumnMapping reports which source header was used for a canonical field.
type ColumnMapping struct {
	Field  string `json:"field"`
	Header string `json:"header"`
	Index  int    `json:"index"`
}

// IngestResult is the outcome of ingesting one statement.
type IngestResult struct {
	Format            Format            `json:"format"`
	Transactions      []BankTransaction `json:"transactions"`
	Errors            []ParseError      `json:"errors"`
	Columns           []ColumnMapping   `json:"columns,omitempty"`
	HeaderRow         int               `json:"headerRow"` // 1-based physical row of the header
	TotalRows         int               `json:"totalRows"`
	ValidTransactions int               `json:"validTransactions"`
	ErrorCount        int               `json:"errorCount"`
	TotalDebit        decimal.Decimal   `json:"totalDebit"`
	TotalCredit       decimal.Decimal   `json:"totalCredit"`
}

// StatementInfo holds metadata shown alongside exported transactions.
type StatementInfo struct {
	Source        string
	Format        Format
	AccountNumber string
	Result        *IngestResult
}
