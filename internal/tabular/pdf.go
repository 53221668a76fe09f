package tabular

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/extractor"
	"github.com/zenithbooks/statement-recon/internal/models"
)

// cellBreak splits a reconstructed PDF line into cells: tabs or runs of two
// or more spaces mark a column boundary.
var cellBreak = regexp.MustCompile(`\t+|\s{2,}`)

// PDFDecoder turns a text-layer PDF statement into rows. Preamble lines
// (bank name, address, account summary) come through as rows too; header
// detection skips them.
type PDFDecoder struct{}

func (d *PDFDecoder) Format() models.Format {
	return models.FormatPDF
}

func (d *PDFDecoder) Decode(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to read pdf", err)
	}

	pages, err := extractor.ExtractText(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, apperrors.NewDecodeError("PDF extraction failed", err)
	}
	return SplitLines(pages), nil
}

// SplitLines converts extracted page text into a table. Row indexes run
// across pages.
func SplitLines(pages []string) *Table {
	table := &Table{Format: models.FormatPDF}
	index := 0
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			index++
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			table.Rows = appendRow(table.Rows, index, cellBreak.Split(line, -1))
		}
	}
	return table
}
