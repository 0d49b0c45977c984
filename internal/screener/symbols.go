package screener

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ParseCSV extracts the symbol list from a CSV with a "symbol" column
// (matched case-insensitively, surrounding whitespace ignored).
func ParseCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), "symbol") {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("csv has no symbol column (header: %s)", strings.Join(header, ","))
	}

	var symbols []string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		if s := strings.TrimSpace(record[col]); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols, nil
}

// ParseManual splits comma-separated manual input into symbols.
func ParseManual(input string) []string {
	var symbols []string
	for _, s := range strings.Split(input, ",") {
		if s = strings.TrimSpace(s); s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}
