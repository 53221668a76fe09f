package reconcile

import (
	"fmt"
	"sort"
	"strings"
)

// HumanSummary renders r as a plain-text report.
func HumanSummary(r *Result) string {
	var b strings.Builder
	s := r.Summary
	fmt.Fprintf(&b, "Book records: %d (value %s)\n", s.BookCount, s.TotalBookValue.StringFixed(2))
	fmt.Fprintf(&b, "External records: %d (value %s)\n", s.ExternalCount, s.TotalExternalValue.StringFixed(2))
	fmt.Fprintf(&b, "Overall difference: %s\n", s.Difference.StringFixed(2))
	fmt.Fprintf(&b, "Matched: %d (clean %d, with differences %d)\n", s.MatchedCount, s.CleanCount, s.DiscrepancyCount)
	fmt.Fprintf(&b, "Books only: %d\n", s.BooksOnlyCount)
	fmt.Fprintf(&b, "External only: %d\n", s.ExternalOnlyCount)
	if s.TotalBookTaxable.Valid || s.TotalExternalTaxable.Valid {
		fmt.Fprintf(&b, "Taxable value: books %s, external %s\n",
			nullString(s.TotalBookTaxable.Valid, s.TotalBookTaxable.Decimal.StringFixed(2)),
			nullString(s.TotalExternalTaxable.Valid, s.TotalExternalTaxable.Decimal.StringFixed(2)))
	}
	fmt.Fprintf(&b, "Tolerance: %s\n", r.Tolerance.String())

	if s.DiscrepancyCount > 0 {
		fmt.Fprintf(&b, "\nMatched with differences (total %s):\n", s.TotalDiscrepancy.String())
		for _, p := range r.Matched {
			if p.Clean {
				continue
			}
			fmt.Fprintf(&b, "- %s: books=%s external=%s diff=%s\n",
				p.Key, p.Book.Value.String(), p.External.Value.String(), p.Difference.String())
		}
	}
	if len(r.BooksOnly) > 0 {
		fmt.Fprintf(&b, "\nIn books, missing externally:\n")
		for _, u := range r.BooksOnly {
			fmt.Fprintf(&b, "- %s value=%s%s\n", u.Key, u.Value.String(), duplicateTag(u))
		}
	}
	if len(r.ExternalOnly) > 0 {
		fmt.Fprintf(&b, "\nExternal, missing in books:\n")
		for _, u := range r.ExternalOnly {
			fmt.Fprintf(&b, "- %s value=%s%s\n", u.Key, u.Value.String(), duplicateTag(u))
		}
	}
	if len(r.Notes) > 0 {
		fmt.Fprintf(&b, "\nNotes:\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}

func duplicateTag(u Unmatched) string {
	if u.Duplicate {
		return " (duplicate key)"
	}
	return ""
}

func nullString(valid bool, s string) string {
	if !valid {
		return "n/a"
	}
	return s
}

func duplicateNote(side string, dups map[string]int) string {
	keys := make([]string, 0, len(dups))
	for k := range dups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s x%d", k, dups[k]+1))
	}
	return fmt.Sprintf("duplicate %s keys detected: %s", side, strings.Join(parts, "; "))
}
