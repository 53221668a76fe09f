// Package ingest turns a decoded bank statement into normalized transactions.
//
// Every data row below the located header ends up either as a transaction or
// as a ParseError; nothing is dropped silently.
package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
	"github.com/zenithbooks/statement-recon/internal/normalize"
	"github.com/zenithbooks/statement-recon/internal/tabular"
)

// Ingest locates the header row of table and classifies every row below it.
// A table without a recognizable header yields an UNRECOGNIZED_COLUMNS error.
func Ingest(table *tabular.Table) (*models.IngestResult, error) {
	if table == nil {
		return nil, apperrors.NewInvalidArgumentError("no statement table")
	}

	match, ok := statementSchema.Locate(table.Rows)
	if !ok {
		return nil, apperrors.NewUnrecognizedColumnsError(
			"no header row with a date column and a debit, credit or amount column").
			WithDetail("scannedRows", min(len(table.Rows), tabular.MaxHeaderScan))
	}

	result := &models.IngestResult{
		Format:       table.Format,
		Transactions: []models.BankTransaction{},
		Errors:       []models.ParseError{},
		Columns:      describeColumns(match),
		HeaderRow:    match.Row.Index,
		TotalDebit:   decimal.Zero,
		TotalCredit:  decimal.Zero,
	}

	header := headerKey(match.Row.Cells)
	rowIndex := 0
	for _, row := range table.Rows[match.Position+1:] {
		if headerKey(row.Cells) == header {
			continue
		}
		rowIndex++

		txn, perr := parseRow(rowIndex, row, match.Columns)
		if perr != nil {
			result.Errors = append(result.Errors, *perr)
			continue
		}
		result.Transactions = append(result.Transactions, txn)
		if txn.Debit.Valid {
			result.TotalDebit = result.TotalDebit.Add(txn.Debit.Decimal)
		}
		if txn.Credit.Valid {
			result.TotalCredit = result.TotalCredit.Add(txn.Credit.Decimal)
		}
	}

	result.TotalRows = rowIndex
	result.ValidTransactions = len(result.Transactions)
	result.ErrorCount = len(result.Errors)
	return result, nil
}

func parseRow(index int, row tabular.Row, cols tabular.Columns) (models.BankTransaction, *models.ParseError) {
	fail := func(reason models.ErrorReason, format string, args ...interface{}) (models.BankTransaction, *models.ParseError) {
		raw := make([]string, len(row.Cells))
		copy(raw, row.Cells)
		return models.BankTransaction{}, &models.ParseError{
			RowIndex: index,
			Line:     row.Index,
			RawRow:   raw,
			Reason:   reason,
			Detail:   fmt.Sprintf(format, args...),
		}
	}

	dateIdx := cols.Index(FieldDate)
	if len(row.Cells) <= dateIdx {
		return fail(models.ReasonMalformedRow, "row has %d cells, date is column %d", len(row.Cells), dateIdx+1)
	}
	if n := populated(row, cols); n < requiredColumns {
		return fail(models.ReasonMalformedRow, "row populates %d of the date and amount columns", n)
	}

	cell := func(field string) string {
		return row.Cell(cols.Index(field))
	}

	debit, err := normalize.ParseAmount(cell(FieldDebit))
	if err != nil {
		return fail(models.ReasonMalformedRow, "debit: %v", err)
	}
	credit, err := normalize.ParseAmount(cell(FieldCredit))
	if err != nil {
		return fail(models.ReasonMalformedRow, "credit: %v", err)
	}
	amount, err := normalize.ParseAmount(cell(FieldAmount))
	if err != nil {
		return fail(models.ReasonMalformedRow, "amount: %v", err)
	}
	balance, err := normalize.ParseSignedAmount(cell(FieldBalance))
	if err != nil {
		return fail(models.ReasonMalformedRow, "balance: %v", err)
	}
	if debit.IsPositive() && credit.IsPositive() {
		return fail(models.ReasonMalformedRow, "both debit and credit are populated")
	}

	date, err := normalize.ParseDate(cell(FieldDate))
	if err != nil {
		return fail(models.ReasonInvalidDate, "%v", err)
	}

	txn := models.BankTransaction{
		Date:        date,
		Description: normalize.CleanText(cell(FieldDescription)),
		Balance:     balance,
		Reference:   normalize.CleanText(cell(FieldReference)),
		Row:         index,
	}

	switch {
	case debit.IsPositive():
		txn.Debit = decimal.NewNullDecimal(debit.Value)
	case credit.IsPositive():
		txn.Credit = decimal.NewNullDecimal(credit.Value)
	case amount.IsPositive():
		side := normalize.SideIndicator(cell(FieldType))
		if side == normalize.SideNone {
			side = amount.Side
		}
		if side == normalize.SideDebit {
			txn.Debit = decimal.NewNullDecimal(amount.Value)
		} else {
			txn.Credit = decimal.NewNullDecimal(amount.Value)
		}
	}

	if !txn.Debit.Valid && !txn.Credit.Valid && !txn.Balance.Valid {
		return fail(models.ReasonMissingAmount, "no debit, credit or balance")
	}
	return txn, nil
}

// populated counts the mapped date and amount columns that carry a value in row.
func populated(row tabular.Row, cols tabular.Columns) int {
	n := 0
	for _, field := range requiredFields {
		if cols.Has(field) && !normalize.IsAbsent(row.Cell(cols.Index(field))) {
			n++
		}
	}
	return n
}

func headerKey(cells []string) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		if h := tabular.NormalizeHeader(c); h != "" {
			parts = append(parts, h)
		}
	}
	return strings.Join(parts, "|")
}

func describeColumns(match tabular.HeaderMatch) []models.ColumnMapping {
	mappings := make([]models.ColumnMapping, 0, len(match.Columns))
	for field, i := range match.Columns {
		mappings = append(mappings, models.ColumnMapping{
			Field:  field,
			Header: strings.TrimSpace(match.Row.Cell(i)),
			Index:  i,
		})
	}
	sort.Slice(mappings, func(a, b int) bool {
		return mappings[a].Index < mappings[b].Index
	})
	return mappings
}
