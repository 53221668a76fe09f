package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
)

// ExcelDecoder reads one worksheet of an .xlsx workbook. Cells are read raw,
// so date cells arrive as serial numbers and are never reinterpreted through
// a month-first display format.
type ExcelDecoder struct {
	// Sheet selects a worksheet by name; the active sheet is used when empty.
	Sheet string
}

func (d *ExcelDecoder) Format() models.Format {
	return models.FormatExcel
}

func (d *ExcelDecoder) Decode(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to open spreadsheet", err)
	}
	defer f.Close()

	sheet := d.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	if sheet == "" {
		if names := f.GetSheetList(); len(names) > 0 {
			sheet = names[0]
		}
	}
	if sheet == "" {
		return nil, apperrors.NewDecodeError("spreadsheet has no worksheets", nil)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("failed to read sheet %q", sheet), err)
	}

	table := &Table{Format: models.FormatExcel}
	for i, cells := range rows {
		table.Rows = appendRow(table.Rows, i+1, cells)
	}
	return table, nil
}
