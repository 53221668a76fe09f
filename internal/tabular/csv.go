package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/zenithbooks/statement-recon/internal/apperrors"
	"github.com/zenithbooks/statement-recon/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVDecoder reads delimited text exports. The delimiter (comma, semicolon
// or tab) is sniffed from the first non-blank line.
type CSVDecoder struct{}

func (d *CSVDecoder) Format() models.Format {
	return models.FormatCSV
}

func (d *CSVDecoder) Decode(r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to read csv", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	table := &Table{Format: models.FormatCSV}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, apperrors.NewDecodeError("malformed csv", err).WithDetail("line", parseErr.Line)
			}
			return nil, apperrors.NewDecodeError("failed to read csv", err)
		}
		line, _ := reader.FieldPos(0)
		table.Rows = appendRow(table.Rows, line, rec)
	}
	return table, nil
}

func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		best, bestCount := ',', strings.Count(line, ",")
		for _, c := range []rune{';', '\t', '|'} {
			if n := strings.Count(line, string(c)); n > bestCount {
				best, bestCount = c, n
			}
		}
		return best
	}
	return ','
}
