package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
)

// KeyStrategy selects how bank transactions are keyed for matching.
type KeyStrategy string

const (
	// KeyByReference uses the cheque/UTR reference, falling back to
	// KeyByDateAmount for transactions without one.
	KeyByReference KeyStrategy = "reference"
	// KeyByDateAmount keys on value date plus signed amount.
	KeyByDateAmount KeyStrategy = "date-amount"
)

// ParseKeyStrategy validates a strategy name.
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyByReference:
		return KeyByReference, nil
	case KeyByDateAmount:
		return KeyByDateAmount, nil
	default:
		return "", apperrors.NewInvalidArgumentError(fmt.Sprintf("unknown key strategy %q", s))
	}
}

// FromBankTransactions maps ingested transactions into records. Value is the
// signed amount: credits positive, debits negative.
func FromBankTransactions(txns []models.BankTransaction, strategy KeyStrategy) []Record {
	records := make([]Record, 0, len(txns))
	for _, t := range txns {
		date := t.Date.Format("2006-01-02")
		amount := t.SignedAmount()

		key := DateAmountKey(date, amount)
		if strategy == KeyByReference && strings.TrimSpace(t.Reference) != "" {
			key = t.Reference
		}

		records = append(records, Record{
			Key:       key,
			Date:      date,
			Value:     amount,
			Party:     t.Description,
			Row:       t.Row,
			Reference: t.Reference,
		})
	}
	return records
}

// KeyBookRecords keys book records to meet a statement mapped with the same
// strategy. Book values must follow the statement sign: receipts positive,
// payments negative (see AsPayments).
//
// KeyByReference keeps the document number as the key. KeyByDateAmount needs
// a date on every record; the document number moves to Reference.
func KeyBookRecords(records []Record, strategy KeyStrategy) ([]Record, error) {
	out := make([]Record, len(records))
	copy(out, records)
	if strategy != KeyByDateAmount {
		return out, nil
	}
	for i, r := range out {
		if r.Date == "" {
			return nil, apperrors.NewInvalidArgumentError(
				fmt.Sprintf("book record %q has no date; %s matching needs dated records", r.Key, KeyByDateAmount)).
				WithDetail("row", r.Row)
		}
		out[i].Reference = r.Key
		out[i].Key = DateAmountKey(r.Date, r.Value)
	}
	return out, nil
}

// AsPayments negates values, turning a purchase or payments register into
// statement sign so it meets debits.
func AsPayments(records []Record) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Value = r.Value.Neg()
		if r.TaxableValue.Valid {
			r.TaxableValue = decimal.NewNullDecimal(r.TaxableValue.Decimal.Neg())
		}
		out[i] = r
	}
	return out
}

// DateAmountKey is the date-amount key shared by both sides:
// "YYYY-MM-DD|<signed amount to 2 places>".
func DateAmountKey(date string, amount decimal.Decimal) string {
	return date + "|" + amount.StringFixed(2)
}
