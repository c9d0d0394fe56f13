// Package source reads the session schedule as header-keyed rows.
//
// Two sources are provided: Sheets, backed by the Google Sheets API, and
// CSVFile for local exports. Both funnel through FromGrid so header handling
// and blank-cell semantics are identical.
package source

import (
	"context"
	"strings"
)

// Row maps a column header to the trimmed cell text of one schedule row.
// Missing cells are present with an empty value.
type Row map[string]string

// Get returns the trimmed value for header or "" when absent.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r[header])
}

// Source returns every schedule row in original order.
type Source interface {
	Fetch(ctx context.Context) ([]Row, error)
}

// Authenticator is implemented by sources that can verify access before the
// batch starts.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// FromGrid converts a cell grid into rows keyed by the headers found on the
// 1-based headerRow. Rows above the header are ignored. Rows whose cells are
// all blank are dropped. When a header repeats, the first column wins.
func FromGrid(grid [][]string, headerRow int) []Row {
	if headerRow <= 0 {
		headerRow = 1
	}
	if len(grid) < headerRow {
		return nil
	}
	headers := make([]string, len(grid[headerRow-1]))
	seen := make(map[string]struct{}, len(headers))
	for i, cell := range grid[headerRow-1] {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		headers[i] = name
	}

	rows := make([]Row, 0, len(grid)-headerRow)
	for _, cells := range grid[headerRow:] {
		row := make(Row, len(seen))
		blank := true
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(cells) {
				value = strings.TrimSpace(cells[i])
			}
			if value != "" {
				blank = false
			}
			row[header] = value
		}
		if blank {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
