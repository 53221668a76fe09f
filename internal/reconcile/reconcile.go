// Package reconcile partitions book records and external records that share
// a business key into matched, books-only and external-only sets.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
)

// DefaultTolerance is the largest absolute difference still treated as a
// clean match. It absorbs sub-paisa rounding.
var DefaultTolerance = decimal.New(1, -2)

// Record is one side of a reconciliation: an invoice from the books, a
// GSTR-1 row or a bank transaction mapped into the common shape.
type Record struct {
	Key          string              `json:"invoiceNumber"`
	Date         string              `json:"date,omitempty"` // YYYY-MM-DD
	Value        decimal.Decimal     `json:"value"`
	TaxableValue decimal.NullDecimal `json:"taxableValue"`
	Party        string              `json:"party,omitempty"` // GSTIN or counterparty
	Row          int                 `json:"row,omitempty"`   // source row, when read from a file
	// Reference is the cheque/UTR or document number when Key is derived
	// from date and amount.
	Reference string `json:"reference,omitempty"`
}

// Options controls matching.
type Options struct {
	Tolerance decimal.Decimal
}

// DefaultOptions returns Options with DefaultTolerance.
func DefaultOptions() Options {
	return Options{Tolerance: DefaultTolerance}
}

// Pair is a book record joined with the external record of the same key.
type Pair struct {
	Key        string          `json:"key"`
	Book       Record          `json:"book"`
	External   Record          `json:"external"`
	Difference decimal.Decimal `json:"difference"` // book - external
	Clean      bool            `json:"clean"`
}

// Unmatched is a record with no counterpart. Duplicate marks a record whose
// key was already used by an earlier record on the same side.
type Unmatched struct {
	Record
	Duplicate bool `json:"duplicate,omitempty"`
}

// Summary aggregates over all inputs, not just the matched subset.
type Summary struct {
	BookCount            int                 `json:"bookCount"`
	ExternalCount        int                 `json:"externalCount"`
	MatchedCount         int                 `json:"matchedCount"`
	CleanCount           int                 `json:"cleanCount"`
	DiscrepancyCount     int                 `json:"discrepancyCount"`
	BooksOnlyCount       int                 `json:"booksOnlyCount"`
	ExternalOnlyCount    int                 `json:"externalOnlyCount"`
	DuplicateCount       int                 `json:"duplicateCount"`
	TotalBookValue       decimal.Decimal     `json:"totalBookValue"`
	TotalExternalValue   decimal.Decimal     `json:"totalExternalValue"`
	Difference           decimal.Decimal     `json:"difference"`
	TotalDiscrepancy     decimal.Decimal     `json:"totalDiscrepancy"`
	TotalBookTaxable     decimal.NullDecimal `json:"totalBookTaxable"`
	TotalExternalTaxable decimal.NullDecimal `json:"totalExternalTaxable"`
}

// Result is the outcome of one reconciliation.
type Result struct {
	Matched      []Pair          `json:"matched"`
	BooksOnly    []Unmatched     `json:"booksOnly"`
	ExternalOnly []Unmatched     `json:"externalOnly"`
	Summary      Summary         `json:"summary"`
	Tolerance    decimal.Decimal `json:"tolerance"`
	Notes        []string        `json:"notes,omitempty"`
}

// CanonicalKey trims key, collapses internal whitespace and upper-cases it,
// so "inv-001 " and "INV-001" compare equal.
func CanonicalKey(key string) string {
	return strings.ToUpper(strings.Join(strings.Fields(key), " "))
}

// Reconcile matches books against external on canonical key.
//
// The first external record of a key is the one that matches; later records
// with the same key are reported as external-only duplicates. A matched key is
// consumed, so a second book record with that key is a books-only duplicate.
// Every input record lands in exactly one partition and external-only records
// keep their input order.
func Reconcile(books, external []Record, opts Options) (*Result, error) {
	if opts.Tolerance.IsNegative() {
		return nil, apperrors.NewInvalidArgumentError("tolerance must not be negative").
			WithDetail("tolerance", opts.Tolerance.String())
	}
	bookKeys, err := canonicalKeys("book", books)
	if err != nil {
		return nil, err
	}
	extKeys, err := canonicalKeys("external", external)
	if err != nil {
		return nil, err
	}

	first := make(map[string]int, len(external))
	duplicate := make([]bool, len(external))
	dupExternal := map[string]int{}
	for i, key := range extKeys {
		if _, ok := first[key]; ok {
			duplicate[i] = true
			dupExternal[key]++
			continue
		}
		first[key] = i
	}

	result := &Result{
		Matched:      []Pair{},
		BooksOnly:    []Unmatched{},
		ExternalOnly: []Unmatched{},
		Tolerance:    opts.Tolerance,
	}

	consumed := make([]bool, len(external))
	seenBook := map[string]bool{}
	dupBooks := map[string]int{}
	for i, book := range books {
		key := bookKeys[i]
		dup := seenBook[key]
		seenBook[key] = true
		if dup {
			dupBooks[key]++
		}

		j, ok := first[key]
		if !ok || consumed[j] {
			result.BooksOnly = append(result.BooksOnly, Unmatched{Record: book, Duplicate: dup})
			continue
		}
		consumed[j] = true

		diff := book.Value.Sub(external[j].Value)
		result.Matched = append(result.Matched, Pair{
			Key:        key,
			Book:       book,
			External:   external[j],
			Difference: diff,
			Clean:      diff.Abs().LessThanOrEqual(opts.Tolerance),
		})
	}

	for i, rec := range external {
		if consumed[i] {
			continue
		}
		result.ExternalOnly = append(result.ExternalOnly, Unmatched{Record: rec, Duplicate: duplicate[i]})
	}

	result.Summary = summarize(books, external, result)
	if len(dupExternal) > 0 {
		result.Notes = append(result.Notes, duplicateNote("external", dupExternal))
	}
	if len(dupBooks) > 0 {
		result.Notes = append(result.Notes, duplicateNote("book", dupBooks))
	}
	return result, nil
}

func canonicalKeys(side string, records []Record) ([]string, error) {
	keys := make([]string, len(records))
	for i, r := range records {
		keys[i] = CanonicalKey(r.Key)
		if keys[i] == "" {
			return nil, apperrors.NewInvalidArgumentError(fmt.Sprintf("%s record %d has an empty key", side, i+1)).
				WithDetail("side", side).
				WithDetail("index", i)
		}
	}
	return keys, nil
}

func summarize(books, external []Record, r *Result) Summary {
	s := Summary{
		BookCount:          len(books),
		ExternalCount:      len(external),
		MatchedCount:       len(r.Matched),
		BooksOnlyCount:     len(r.BooksOnly),
		ExternalOnlyCount:  len(r.ExternalOnly),
		TotalBookValue:     decimal.Zero,
		TotalExternalValue: decimal.Zero,
		TotalDiscrepancy:   decimal.Zero,
	}

	for _, b := range books {
		s.TotalBookValue = s.TotalBookValue.Add(b.Value)
		s.TotalBookTaxable = addNull(s.TotalBookTaxable, b.TaxableValue)
	}
	for _, e := range external {
		s.TotalExternalValue = s.TotalExternalValue.Add(e.Value)
		s.TotalExternalTaxable = addNull(s.TotalExternalTaxable, e.TaxableValue)
	}
	s.Difference = s.TotalBookValue.Sub(s.TotalExternalValue)

	for _, p := range r.Matched {
		if p.Clean {
			s.CleanCount++
			continue
		}
		s.DiscrepancyCount++
		s.TotalDiscrepancy = s.TotalDiscrepancy.Add(p.Difference.Abs())
	}
	for _, u := range r.BooksOnly {
		if u.Duplicate {
			s.DuplicateCount++
		}
	}
	for _, u := range r.ExternalOnly {
		if u.Duplicate {
			s.DuplicateCount++
		}
	}
	return s
}

func addNull(total, v decimal.NullDecimal) decimal.NullDecimal {
	if !v.Valid {
		return total
	}
	if !total.Valid {
		return v
	}
	return decimal.NewNullDecimal(total.Decimal.Add(v.Decimal))
}
