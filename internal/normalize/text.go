// Package normalize turns loosely formatted statement cells into typed values.
//
// The rules here are shared by statement ingestion and invoice-table parsing,
// so a value is read the same way regardless of which file it came from.
package normalize

import "strings"

// absentMarkers are cell values exported by spreadsheets and scripts in place
// of an empty cell.
var absentMarkers = map[string]struct{}{
	"nan":       {},
	"null":      {},
	"undefined": {},
}

// CleanText trims s and collapses internal whitespace. Placeholder values such
// as "nan" or "null" come back as the empty string.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if _, ok := absentMarkers[strings.ToLower(s)]; ok {
		return ""
	}
	return s
}

// IsAbsent reports whether a cell carries no value after cleaning.
func IsAbsent(s string) bool {
	return CleanText(s) == ""
}
