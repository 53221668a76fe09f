package tabular

import (
	"strings"
	"unicode"
)

// MaxHeaderScan is how many leading rows are searched for a header row.
// Bank exports often open with a preamble of account details.
const MaxHeaderScan = 25

// minPrefixSynonym is the shortest synonym allowed to match as a header
// prefix. It keeps "dr" from claiming a "Dr/Cr" indicator column.
const minPrefixSynonym = 4

// Field is a canonical column and the header spellings that identify it,
// most specific first.
type Field struct {
	Name     string
	Synonyms []string
}

// Schema describes the columns a table is expected to have.
type Schema struct {
	Fields []Field
	// Satisfied reports whether a mapping locates enough columns to be usable.
	Satisfied func(Columns) bool
}

// Columns maps canonical field names to column indexes.
type Columns map[string]int

// Has reports whether the field was located.
func (c Columns) Has(field string) bool {
	_, ok := c[field]
	return ok
}

// Index returns the column index of field, or -1.
func (c Columns) Index(field string) int {
	if i, ok := c[field]; ok {
		return i
	}
	return -1
}

// HeaderMatch is a located header row.
type HeaderMatch struct {
	Position int // index into Table.Rows
	Row      Row
	Columns  Columns
}

// Locate finds the first of the leading rows whose cells satisfy the schema.
func (s Schema) Locate(rows []Row) (HeaderMatch, bool) {
	limit := len(rows)
	if limit > MaxHeaderScan {
		limit = MaxHeaderScan
	}
	for pos := 0; pos < limit; pos++ {
		cols := s.Match(rows[pos].Cells)
		if s.Satisfied == nil || s.Satisfied(cols) {
			return HeaderMatch{Position: pos, Row: rows[pos], Columns: cols}, true
		}
	}
	return HeaderMatch{}, false
}

// Match assigns header cells to schema fields. Fields claim columns in schema
// order; each field takes the unclaimed column with the best match, where an
// exact synonym beats a prefix match, an earlier synonym beats a later one
// and the left-most column breaks remaining ties.
func (s Schema) Match(headers []string) Columns {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	cols := make(Columns)
	claimed := make(map[int]bool)
	for _, f := range s.Fields {
		best, bestScore := -1, -1
		for i, h := range normalized {
			if h == "" || claimed[i] {
				continue
			}
			score := matchScore(h, f.Synonyms)
			if score < 0 {
				continue
			}
			if best < 0 || score < bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 {
			cols[f.Name] = best
			claimed[best] = true
		}
	}
	return cols
}

// matchScore ranks how well a normalized header matches a synonym list.
// Lower is better; -1 means no match.
func matchScore(header string, synonyms []string) int {
	for p, syn := range synonyms {
		if header == syn {
			return p
		}
	}
	for p, syn := range synonyms {
		if len(syn) >= minPrefixSynonym && strings.HasPrefix(header, syn+" ") {
			return len(synonyms) + p
		}
	}
	return -1
}

// NormalizeHeader folds a header cell for synonym comparison: camelCase is
// split, letters are lowered, every other rune becomes a space and runs of
// spaces collapse. "Withdrawal Amt." and "withdrawalAmt" both become
// "withdrawal amt".
func NormalizeHeader(s string) string {
	var b strings.Builder
	var prev rune
	for _, r := range s {
		switch {
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
		prev = r
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
