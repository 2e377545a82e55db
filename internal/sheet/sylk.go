package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// readSYLK reads the cell records of a SYLK document. Only C records carry values; F records
// may move the cursor. Row and column indexes are 1-based and sticky between records.
func readSYLK(text string) ([][]string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	cells := map[int]map[int]string{}
	maxRow := 0
	row, col := 1, 1

lines:
	for n, line := range strings.Split(text, "\n") {
		if line == "" {
			continue
		}
		fields := splitRecord(line)
		switch fields[0] {
		case "ID", "P", "O", "B", "NN", "NE", "NU", "W":
			continue
		case "E":
			break lines
		case "C", "F":
			var value *string
			for _, f := range fields[1:] {
				if f == "" {
					continue
				}
				arg := f[1:]
				switch f[0] {
				case 'Y', 'R':
					v, err := strconv.Atoi(arg)
					if err != nil {
						return nil, fmt.Errorf("readSYLK: line %d: row %q: %w", n+1, arg, err)
					}
					row = v
				case 'X', 'C':
					v, err := strconv.Atoi(arg)
					if err != nil {
						return nil, fmt.Errorf("readSYLK: line %d: column %q: %w", n+1, arg, err)
					}
					col = v
				case 'K':
					if fields[0] == "C" {
						v := sylkValue(arg)
						value = &v
					}
				}
			}
			if value != nil && row > 0 && col > 0 {
				if cells[row] == nil {
					cells[row] = map[int]string{}
				}
				cells[row][col] = *value
				if row > maxRow {
					maxRow = row
				}
			}
		}
	}

	rows := make([][]string, maxRow)
	for r := 1; r <= maxRow; r++ {
		width := 0
		for c := range cells[r] {
			if c > width {
				width = c
			}
		}
		out := make([]string, width)
		for c, v := range cells[r] {
			out[c-1] = v
		}
		rows[r-1] = out
	}
	return rows, nil
}

// splitRecord splits a record on ';', where ";;" stands for a literal semicolon.
func splitRecord(line string) []string {
	var (
		fields []string
		b      strings.Builder
	)
	for i := 0; i < len(line); i++ {
		if line[i] == ';' {
			if i+1 < len(line) && line[i+1] == ';' {
				b.WriteByte(';')
				i++
				continue
			}
			fields = append(fields, b.String())
			b.Reset()
			continue
		}
		b.WriteByte(line[i])
	}
	return append(fields, b.String())
}

// sylkValue unquotes string constants; numbers and formulas' cached values are kept as written.
func sylkValue(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		return strings.ReplaceAll(v[1:len(v)-1], `""`, `"`)
	}
	return v
}
