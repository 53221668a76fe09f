// Package invoice reads invoice registers (GSTR-1 B2B exports and books
// exports) into reconciliation records.
package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
	"github.com/zenithbooks/statement-recon/internal/normalize"
	"github.com/zenithbooks/statement-recon/internal/reconcile"
	"github.com/zenithbooks/statement-recon/internal/tabular"
)

const (
	FieldNumber  = "invoiceNumber"
	FieldDate    = "date"
	FieldValue   = "value"
	FieldTaxable = "taxableValue"
	FieldGSTIN   = "gstin"
	FieldRate    = "rate"
	FieldParty   = "party"
)

// Fields claim columns in this order, so "Invoice Date" goes to the date
// before the invoice number can take it as a prefix match.
var invoiceSchema = tabular.Schema{
	Fields: []tabular.Field{
		{Name: FieldDate, Synonyms: []string{
			"invoice date", "inv date", "bill date", "document date", "voucher date", "date",
		}},
		{Name: FieldTaxable, Synonyms: []string{
			"taxable value", "taxable amount", "taxable amt", "total taxable value", "assessable value",
		}},
		{Name: FieldValue, Synonyms: []string{
			"invoice value", "invoice amount", "total invoice value", "bill amount",
			"grand total", "total value", "total amount", "value", "amount", "total",
		}},
		{Name: FieldNumber, Synonyms: []string{
			"invoice number", "invoice no", "inv no", "invoice", "bill no", "bill number",
			"document number", "document no", "voucher no", "voucher number",
		}},
		{Name: FieldGSTIN, Synonyms: []string{
			"gstin uin of recipient", "gstin of recipient", "gstin uin", "customer gstin",
			"party gstin", "recipient gstin", "gstin",
		}},
		{Name: FieldRate, Synonyms: []string{"rate", "tax rate", "gst rate", "rate of tax"}},
		{Name: FieldParty, Synonyms: []string{
			"receiver name", "customer name", "party name", "recipient name", "customer", "party",
		}},
	},
	Satisfied: func(c tabular.Columns) bool {
		return c.Has(FieldNumber) && (c.Has(FieldValue) || c.Has(FieldTaxable))
	},
}

type line struct {
	record reconcile.Record
	rate   string
}

// Parse reads an invoice table. Rows that cannot be read are returned as
// ParseErrors; a table without an invoice number and value header yields an
// UNRECOGNIZED_COLUMNS error.
//
// GSTR-1 lists one row per tax rate, repeating the invoice number and invoice
// value. Rows sharing GSTIN, number and invoice value but carrying different
// rates are merged into one record whose taxable value is the sum.
func Parse(table *tabular.Table) ([]reconcile.Record, []models.ParseError, error) {
	if table == nil {
		return nil, nil, apperrors.NewInvalidArgumentError("no invoice table")
	}
	match, ok := invoiceSchema.Locate(table.Rows)
	if !ok {
		return nil, nil, apperrors.NewUnrecognizedColumnsError(
			"no header row with an invoice number and an invoice or taxable value column")
	}

	var (
		lines  []line
		errs   = []models.ParseError{}
		merged = map[string]int{}
		rates  = map[string]map[string]bool{}
	)

	rowIndex := 0
	for _, row := range table.Rows[match.Position+1:] {
		if sameCells(row.Cells, match.Row.Cells) {
			continue
		}
		rowIndex++

		l, perr := parseRow(rowIndex, row, match.Columns)
		if perr != nil {
			errs = append(errs, *perr)
			continue
		}

		id := mergeKey(l.record)
		if i, ok := merged[id]; ok && l.rate != "" && !rates[id][l.rate] {
			lines[i].record.TaxableValue = sumNull(lines[i].record.TaxableValue, l.record.TaxableValue)
			rates[id][l.rate] = true
			continue
		}
		if _, ok := merged[id]; !ok {
			merged[id] = len(lines)
			rates[id] = map[string]bool{l.rate: true}
		}
		lines = append(lines, l)
	}

	records := make([]reconcile.Record, len(lines))
	for i, l := range lines {
		records[i] = l.record
	}
	return records, errs, nil
}

func parseRow(index int, row tabular.Row, cols tabular.Columns) (line, *models.ParseError) {
	fail := func(reason models.ErrorReason, format string, args ...interface{}) (line, *models.ParseError) {
		raw := make([]string, len(row.Cells))
		copy(raw, row.Cells)
		return line{}, &models.ParseError{
			RowIndex: index,
			Line:     row.Index,
			RawRow:   raw,
			Reason:   reason,
			Detail:   fmt.Sprintf(format, args...),
		}
	}
	cell := func(field string) string {
		return row.Cell(cols.Index(field))
	}

	number := normalize.CleanText(cell(FieldNumber))
	if number == "" {
		return fail(models.ReasonMalformedRow, "missing invoice number")
	}

	value, err := normalize.ParseAmount(cell(FieldValue))
	if err != nil {
		return fail(models.ReasonMalformedRow, "invoice value: %v", err)
	}
	taxable, err := normalize.ParseAmount(cell(FieldTaxable))
	if err != nil {
		return fail(models.ReasonMalformedRow, "taxable value: %v", err)
	}
	if !value.Present && !taxable.Present {
		return fail(models.ReasonMissingAmount, "no invoice or taxable value")
	}

	rec := reconcile.Record{
		Key:   number,
		Party: normalize.CleanText(cell(FieldGSTIN)),
		Row:   index,
	}
	if rec.Party == "" {
		rec.Party = normalize.CleanText(cell(FieldParty))
	}
	if taxable.Present {
		rec.TaxableValue = decimal.NewNullDecimal(taxable.Signed())
	}
	if value.Present {
		rec.Value = value.Signed()
	} else {
		rec.Value = taxable.Signed()
	}

	if raw := cell(FieldDate); !normalize.IsAbsent(raw) {
		date, err := normalize.ParseDate(raw)
		if err != nil {
			return fail(models.ReasonInvalidDate, "%v", err)
		}
		rec.Date = date.Format("2006-01-02")
	}

	rate := ""
	if r, err := normalize.ParseAmount(cell(FieldRate)); err == nil && r.Present {
		rate = r.Value.String()
	}
	return line{record: rec, rate: rate}, nil
}

func mergeKey(r reconcile.Record) string {
	return reconcile.CanonicalKey(r.Party) + "|" + reconcile.CanonicalKey(r.Key) + "|" + r.Value.String()
}

func sumNull(a, b decimal.NullDecimal) decimal.NullDecimal {
	switch {
	case !b.Valid:
		return a
	case !a.Valid:
		return b
	default:
		return decimal.NewNullDecimal(a.Decimal.Add(b.Decimal))
	}
}

func sameCells(a, b []string) bool {
	n := 0
	for i := 0; i < len(a) || i < len(b); i++ {
		var x, y string
		if i < len(a) {
			x = tabular.NormalizeHeader(a[i])
		}
		if i < len(b) {
			y = tabular.NormalizeHeader(b[i])
		}
		if x != y {
			return false
		}
		if x != "" {
			n++
		}
	}
	return n > 0
}
