// Package rowsource yields header-keyed rows from tabular uploads.
package rowsource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ErrMalformed is returned when the file structure cannot be parsed.
var ErrMalformed = eris.New("rowsource: malformed file")

// Row maps a trimmed header name to the raw cell value.
type Row map[string]string

// Get returns the trimmed value for key.
func (r Row) Get(key string) string {
	return strings.TrimSpace(r[key])
}

// Source yields rows in file order. Next returns io.EOF after the last row.
type Source interface {
	Headers() []string
	Next() (Row, error)
}

// Format identifies the upload encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a format from the file name and content type. It reports false for
// anything that is neither CSV nor XLSX.
func DetectFormat(filename, contentType string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, true
	case ".xlsx":
		return FormatXLSX, true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	switch ct {
	case "text/csv", "application/csv":
		return FormatCSV, true
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, true
	}
	return "", false
}

// Open builds a Source for r in the given format.
func Open(format Format, r io.Reader) (Source, error) {
	switch format {
	case FormatXLSX:
		return NewXLSX(r)
	case FormatCSV:
		return NewCSV(r)
	default:
		return nil, eris.Wrapf(ErrMalformed, "unsupported format %q", format)
	}
}

type csvSource struct {
	reader  *csv.Reader
	headers []string
}

// NewCSV reads the header row of r and returns a Source over the remaining rows.
func NewCSV(r io.Reader) (Source, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, eris.Wrap(ErrMalformed, "file is empty")
	}
	if err != nil {
		return nil, eris.Wrapf(ErrMalformed, "read header: %v", err)
	}
	return &csvSource{reader: reader, headers: normalizeHeaders(header)}, nil
}

func (s *csvSource) Headers() []string { return s.headers }

func (s *csvSource) Next() (Row, error) {
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, eris.Wrapf(ErrMalformed, "read row: %v", err)
	}
	return zipRow(s.headers, record), nil
}

type xlsxSource struct {
	headers []string
	rows    [][]string
	next    int
}

// NewXLSX reads the first sheet of an XLSX workbook. Its first row is the header.
func NewXLSX(r io.Reader) (Source, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, eris.Wrap(err, "rowsource: read workbook")
	}
	f, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		return nil, eris.Wrapf(ErrMalformed, "open workbook: %v", err)
	}
	if len(f.Sheets) == 0 || len(f.Sheets[0].Rows) == 0 {
		return nil, eris.Wrap(ErrMalformed, "file is empty")
	}

	sheet := f.Sheets[0]
	src := &xlsxSource{headers: normalizeHeaders(rowToStrings(sheet.Rows[0]))}
	for _, row := range sheet.Rows[1:] {
		cells := rowToStrings(row)
		if blank(cells) {
			continue
		}
		src.rows = append(src.rows, cells)
	}
	return src, nil
}

func (s *xlsxSource) Headers() []string { return s.headers }

func (s *xlsxSource) Next() (Row, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	cells := s.rows[s.next]
	s.next++
	return zipRow(s.headers, cells), nil
}

func rowToStrings(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func normalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func zipRow(headers, record []string) Row {
	row := make(Row, len(headers))
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			row[h] = record[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
