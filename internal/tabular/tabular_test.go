package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected models.Format
		wantErr  bool
	}{
		{"statement.csv", models.FormatCSV, false},
		{"STATEMENT.CSV", models.FormatCSV, false},
		{"export.txt", models.FormatCSV, false},
		{"hdfc_apr.xlsx", models.FormatExcel, false},
		{"sbi.pdf", models.FormatPDF, false},
		{"legacy.xls", "", true},
		{"notes.docx", "", true},
		{"noext", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := DetectFormat(tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNew(t *testing.T) {
	for _, f := range []models.Format{models.FormatCSV, models.FormatExcel, models.FormatPDF} {
		d, err := New(f)
		require.NoError(t, err)
		assert.Equal(t, f, d.Format())
	}

	_, err := New("ods")
	assert.Error(t, err)
}

func TestCSVDecoder(t *testing.T) {
	input := "\xEF\xBB\xBFDate,Narration,Withdrawal Amt.,Deposit Amt.,Balance\n" +
		"01/04/2024,UPI-SWIGGY,250.00,,9750.00\n" +
		",,,,\n" +
		"\n" +
		"02/04/2024,\"NEFT, SALARY\",,50000.00,59750.00\n" +
		"short row\n"

	table, err := (&CSVDecoder{}).Decode(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, models.FormatCSV, table.Format)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, "Date", table.Rows[0].Cells[0], "BOM must be stripped")
	assert.Equal(t, 1, table.Rows[0].Index)
	assert.Equal(t, 2, table.Rows[1].Index)
	assert.Equal(t, "NEFT, SALARY", table.Rows[2].Cells[1])
	assert.Equal(t, 5, table.Rows[2].Index)
	assert.Equal(t, []string{"short row"}, table.Rows[3].Cells)
	assert.Equal(t, "", table.Rows[3].Cell(4))
}

func TestCSVDecoderSemicolon(t *testing.T) {
	input := "Date;Description;Amount\n15/01/2024;Rent;-15000\n"

	table, err := (&CSVDecoder{}).Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"15/01/2024", "Rent", "-15000"}, table.Rows[1].Cells)
}

func TestExcelDecoder(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Txn Date", "Description", "Debit", "Credit", "Balance"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{45306, "ATM WDL", 2000, nil, 8000.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]interface{}{"16/01/2024", "INTEREST", nil, 12.5, 8013}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	table, err := (&ExcelDecoder{}).Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, models.FormatExcel, table.Format)
	require.Len(t, table.Rows, 3, "blank row 3 is dropped")
	assert.Equal(t, "45306", table.Rows[1].Cell(0))
	assert.Equal(t, "2000", table.Rows[1].Cell(2))
	assert.Equal(t, 4, table.Rows[2].Index)
	assert.Equal(t, "12.5", table.Rows[2].Cell(3))
}

func TestExcelDecoderRejectsGarbage(t *testing.T) {
	_, err := (&ExcelDecoder{}).Decode(strings.NewReader("not a zip"))
	assert.ErrorIs(t, err, apperrors.ErrDecodeFailed)
}

func TestSplitLines(t *testing.T) {
	pages := []string{
		"State Bank of India\nAccount Statement\n\nTxn Date  Description  Debit  Credit  Balance",
		"01/04/2024\tATM WDL  500.00    9,500.00",
	}

	table := SplitLines(pages)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, []string{"Txn Date", "Description", "Debit", "Credit", "Balance"}, table.Rows[2].Cells)
	assert.Equal(t, 4, table.Rows[2].Index)
	assert.Equal(t, []string{"01/04/2024", "ATM WDL", "500.00", "9,500.00"}, table.Rows[3].Cells)
	assert.Equal(t, 5, table.Rows[3].Index)
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Withdrawal Amt.", "withdrawal amt"},
		{"  Chq./Ref.No. ", "chq ref no"},
		{"invoiceNumber", "invoice number"},
		{"Balance (INR )", "balance inr"},
		{"Dr/Cr", "dr cr"},
		{"CHQNO", "chqno"},
		{"GSTIN/UIN of Recipient", "gstin uin of recipient"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeHeader(tt.input))
		})
	}
}

func TestSchemaMatch(t *testing.T) {
	schema := Schema{
		Fields: []Field{
			{Name: "date", Synonyms: []string{"date", "txn date", "value date"}},
			{Name: "debit", Synonyms: []string{"debit", "withdrawal", "dr"}},
			{Name: "type", Synonyms: []string{"dr cr", "type"}},
		},
	}

	cols := schema.Match([]string{"Value Date", "Txn Date", "Dr/Cr", "Withdrawal (Dr)"})
	assert.Equal(t, 1, cols.Index("date"), "earlier synonym wins")
	assert.Equal(t, 3, cols.Index("debit"), "prefix match on withdrawal, not the Dr/Cr column")
	assert.Equal(t, 2, cols.Index("type"))

	cols = schema.Match([]string{"Date", "Date"})
	assert.Equal(t, 0, cols.Index("date"), "left-most column breaks ties")
	assert.False(t, cols.Has("debit"))
	assert.Equal(t, -1, cols.Index("debit"))
}

func TestSchemaLocate(t *testing.T) {
	schema := Schema{
		Fields: []Field{
			{Name: "date", Synonyms: []string{"date"}},
			{Name: "amount", Synonyms: []string{"amount"}},
		},
		Satisfied: func(c Columns) bool { return c.Has("date") && c.Has("amount") },
	}
	rows := []Row{
		{Index: 1, Cells: []string{"HDFC BANK"}},
		{Index: 2, Cells: []string{"Date of statement", "01/04/2024"}},
		{Index: 4, Cells: []string{"Date", "Amount"}},
		{Index: 5, Cells: []string{"01/04/2024", "10"}},
	}

	match, ok := schema.Locate(rows)
	require.True(t, ok)
	assert.Equal(t, 2, match.Position)
	assert.Equal(t, 4, match.Row.Index)

	_, ok = schema.Locate(rows[:2])
	assert.False(t, ok)
}
