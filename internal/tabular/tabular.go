// Package tabular decodes uploaded statement files into rows of string cells.
package tabular

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
)

// Row is one non-blank source row. Index is the 1-based physical row number.
type Row struct {
	Index int
	Cells []string
}

// Cell returns the cell at i, or "" when the row is too short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Table is a decoded dataset, header row included.
type Table struct {
	Format models.Format
	Rows   []Row
}

// Decoder defines the interface for tabular decoders.
type Decoder interface {
	// Decode reads a whole file and returns its non-blank rows.
	Decode(r io.Reader) (*Table, error)
	// Format returns the format this decoder handles.
	Format() models.Format
}

// New returns the decoder for the given format.
func New(format models.Format) (Decoder, error) {
	switch format {
	case models.FormatCSV:
		return &CSVDecoder{}, nil
	case models.FormatExcel:
		return &ExcelDecoder{}, nil
	case models.FormatPDF:
		return &PDFDecoder{}, nil
	default:
		return nil, apperrors.NewUnsupportedFormatError(fmt.Sprintf("unsupported format: %q", format))
	}
}

// DetectFormat picks a format from the file extension.
func DetectFormat(filename string) (models.Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		return models.FormatCSV, nil
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return models.FormatExcel, nil
	case ".pdf":
		return models.FormatPDF, nil
	default:
		return "", apperrors.NewUnsupportedFormatError(
			fmt.Sprintf("unsupported file type %q; upload a .csv, .xlsx or .pdf statement", filepath.Ext(filename)))
	}
}

// DecodeFile detects the format of filename and decodes r with it.
func DecodeFile(filename string, r io.Reader) (*Table, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}
	d, err := New(format)
	if err != nil {
		return nil, err
	}
	return d.Decode(r)
}

// appendRow adds cells to rows unless every cell is blank.
func appendRow(rows []Row, index int, cells []string) []Row {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return append(rows, Row{Index: index, Cells: cells})
		}
	}
	return rows
}
