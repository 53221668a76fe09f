package extractor

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ColumnSeparator is placed between text runs that sit in different columns.
const ColumnSeparator = "  "

// ExtractText reads a text-layer PDF and returns the text of each page, one
// line per visual row, with ColumnSeparator between table columns.
// Scanned (image-only) statements are rejected rather than guessed at.
func ExtractText(r io.ReaderAt, size int64) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("PDF library crashed: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}

	// Coordinate-based reconstruction keeps column gaps, so try it first.
	pages = extractByContent(reader, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	pages = extractByRow(reader, numPages)
	if isReadableText(pages) {
		return pages, nil
	}

	return nil, fmt.Errorf("no readable text could be extracted from PDF; the statement may be scanned or use custom font encodings. Export it as CSV or Excel from net banking instead")
}

// textQuality returns the ratio of basic readable characters to total characters.
func textQuality(pages []string) float64 {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
				(r >= '0' && r <= '9') || unicode.IsSpace(r) ||
				strings.ContainsRune(".,-/:;()'\"₹$%&@#!?+=*", r) {
				readable++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(readable) / float64(total)
}

// commonWords appear in virtually every bank statement.
var commonWords = []string{
	"bank", "account", "balance", "date", "narration", "statement",
	"total", "amount", "credit", "debit", "transaction", "withdrawal",
	"deposit", "chq", "ifsc", "opening", "closing", "transfer", "particulars",
}

func containsCommonWords(pages []string) bool {
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, word := range commonWords {
		if strings.Contains(combined, word) {
			return true
		}
	}
	return false
}

// isReadableText requires more than 50 characters, over 60% readable
// characters and at least one common statement word.
func isReadableText(pages []string) bool {
	if totalTextLen(pages) <= 50 {
		return false
	}
	if textQuality(pages) <= 0.6 {
		return false
	}
	return containsCommonWords(pages)
}

// extractByContent groups text pieces by Y coordinate to rebuild rows, then
// orders each row by X and marks wide gaps as column breaks.
func extractByContent(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		if len(content.Text) == 0 {
			continue
		}

		rowMap := make(map[int][]pdf.Text)
		for _, t := range content.Text {
			if strings.TrimSpace(t.S) == "" {
				continue
			}
			yKey := int(math.Round(t.Y))
			rowMap[yKey] = append(rowMap[yKey], t)
		}

		// PDF Y grows bottom-to-top
		yKeys := make([]int, 0, len(rowMap))
		for y := range rowMap {
			yKeys = append(yKeys, y)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(yKeys)))

		var lines []string
		for _, y := range yKeys {
			items := rowMap[y]
			sort.Slice(items, func(a, b int) bool {
				return items[a].X < items[b].X
			})
			if line := joinRow(items); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// extractByRow uses the library's own row grouping.
func extractByRow(r *pdf.Reader, numPages int) []string {
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			if line := joinRow(row.Content); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// joinRow concatenates glyph runs, inserting a space for word gaps and
// ColumnSeparator for gaps wider than one and a half font sizes.
func joinRow(items []pdf.Text) string {
	var b strings.Builder
	for j, item := range items {
		if j > 0 {
			prev := items[j-1]
			gap := item.X - (prev.X + prev.W)
			size := math.Max(prev.FontSize, 1)
			switch {
			case gap > 1.5*size:
				b.WriteString(ColumnSeparator)
			case gap > 0.2*size:
				b.WriteString(" ")
			}
		}
		b.WriteString(item.S)
	}
	return strings.TrimSpace(b.String())
}

func totalTextLen(pages []string) int {
	n := 0
	for _, p := range pages {
		n += len(strings.TrimSpace(p))
	}
	return n
}
