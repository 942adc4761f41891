package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file type, upload CSV or XLSX")

// Format identifies the file a Table was read from.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// preferredSheet is read from workbooks that have it; otherwise the active sheet.
const preferredSheet = "Products"

// Table is a header row plus data rows.
type Table struct {
	Format    Format
	Header    []string
	Rows      [][]string
	Malformed int // CSV lines that could not be parsed
}

// Decode reads r as CSV or XLSX depending on the extension of filename.
func Decode(filename string, r io.Reader) (*Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filename)
	}
}

// SniffDelimiter picks the candidate delimiter that splits line into the most
// fields. It returns a comma when no candidate splits it at all.
func SniffDelimiter(line string) rune {
	best, bestFields := ',', 1
	for _, d := range []rune{'\t', ',', ';', '|'} {
		if n := strings.Count(line, string(d)) + 1; n > bestFields {
			best, bestFields = d, n
		}
	}
	return best
}

// ReadCSV reads a delimited text file. UTF-8 and UTF-16 byte order marks are
// honoured and input that is not valid UTF-8 is decoded as Windows-1252.
func ReadCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	table := &Table{Format: FormatCSV}
	headerLine, ok := firstNonBlankLine(data)
	if !ok {
		return table, nil
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = SniffDelimiter(headerLine)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				table.Malformed++
				continue
			}
			return nil, fmt.Errorf("failed to parse csv: %w", err)
		}
		if table.Header == nil {
			if !isBlankRow(rec) {
				table.Header = rec
			}
			continue
		}
		table.Rows = append(table.Rows, rec)
	}
	return table, nil
}

// ReadXLSX reads the "Products" sheet of a workbook, or its active sheet.
func ReadXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	for _, name := range f.GetSheetList() {
		if strings.EqualFold(name, preferredSheet) {
			sheet = name
			break
		}
	}
	if sheet == "" {
		return nil, errors.New("xlsx file has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	table := &Table{Format: FormatXLSX}
	for _, row := range rows {
		if table.Header == nil {
			if isBlankRow(row) {
				continue
			}
			table.Header = row
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func decodeText(raw []byte) ([]byte, error) {
	data, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	if utf8.Valid(data) {
		return data, nil
	}
	data, _, err = transform.Bytes(charmap.Windows1252.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode csv: %w", err)
	}
	return data, nil
}

func firstNonBlankLine(data []byte) (string, bool) {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			return line, true
		}
	}
	return "", false
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
