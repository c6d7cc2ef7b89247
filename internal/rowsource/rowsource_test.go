package rowsource

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func drain(t *testing.T, src Source) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := src.Next()
		if err == io.EOF {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestCSV(t *testing.T) {
	input := "\ufeffplace_id, name ,city\nP1,Acme Plumbing,Orlando\nP2,\"Best, Drains\"\nP3,Zed,Tampa,extra\n"
	src, err := NewCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"place_id", "name", "city"}, src.Headers())

	rows := drain(t, src)
	require.Len(t, rows, 3)
	assert.Equal(t, "Acme Plumbing", rows[0].Get("name"))
	assert.Equal(t, "Best, Drains", rows[1]["name"])
	assert.Equal(t, "", rows[1].Get("city"))
	assert.Equal(t, Row{"place_id": "P3", "name": "Zed", "city": "Tampa"}, rows[2])
}

func TestCSV_Malformed(t *testing.T) {
	_, err := NewCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrMalformed)

	src, err := NewCSV(strings.NewReader("a,b\n\"unterminated,1\n"))
	require.NoError(t, err)
	_, err = src.Next()
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestXLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	for _, values := range [][]string{{"place_id", "name"}, {"P1", "Acme"}, {"", ""}, {"P2", "Zed"}} {
		row := sheet.AddRow()
		for _, v := range values {
			row.AddCell().SetString(v)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	src, err := Open(FormatXLSX, &buf)
	require.NoError(t, err)
	rows := drain(t, src)
	require.Len(t, rows, 2)
	assert.Equal(t, "P2", rows[1].Get("place_id"))
}

func TestXLSX_Malformed(t *testing.T) {
	_, err := NewXLSX(strings.NewReader("not a zip"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name, filename, contentType string
		want                        Format
		ok                          bool
	}{
		{"csv extension", "import.CSV", "application/octet-stream", FormatCSV, true},
		{"xlsx extension", "import.xlsx", "", FormatXLSX, true},
		{"csv content type", "upload", "text/csv; charset=utf-8", FormatCSV, true},
		{"unsupported", "import.json", "application/json", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DetectFormat(tc.filename, tc.contentType)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
