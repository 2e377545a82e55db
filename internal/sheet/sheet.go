// Package sheet reads the first worksheet of a spreadsheet export into a grid of strings.
package sheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Format is the detected export format.
type Format string

const (
	FormatXLSX      Format = "xlsx"
	FormatSYLK      Format = "sylk"
	FormatDelimited Format = "delimited"
)

var zipMagic = []byte("PK\x03\x04")

// Detect guesses the format of an export from its first bytes.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(bytes.TrimLeft(data, "\ufeff\r\n "), []byte("ID;")):
		return FormatSYLK
	default:
		return FormatDelimited
	}
}

// Read returns the rows of the first worksheet. Every row is padded to the width of the
// widest row so empty cells keep their position.
func Read(data []byte) ([][]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch Detect(data) {
	case FormatXLSX:
		rows, err = readXLSX(data)
	case FormatSYLK:
		rows, err = readSYLK(decodeText(data))
	default:
		rows, err = readDelimited(decodeText(data))
	}
	if err != nil {
		return nil, err
	}
	return pad(rows), nil
}

// decodeText keeps valid UTF-8 and reads anything else as Windows-1252, the charset of the
// legacy exports.
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("readXLSX: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("readXLSX: workbook has no sheet")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("readXLSX: reading %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readDelimited(text string) ([][]string, error) {
	firstLine, _, _ := strings.Cut(text, "\n")
	sep := ','
	switch {
	case strings.Count(firstLine, "\t") > 0:
		sep = '\t'
	case strings.Count(firstLine, ";") > strings.Count(firstLine, ","):
		sep = ';'
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sep
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("readDelimited: %w", err)
	}
	return rows, nil
}

func pad(rows [][]string) [][]string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		if len(row) < width {
			rows[i] = append(row, make([]string, width-len(row))...)
		}
	}
	return rows
}
