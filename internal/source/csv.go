package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"sessionreel/internal/services"
)

// CSVFile reads rows from a local CSV export of the schedule.
type CSVFile struct {
	Path      string
	HeaderRow int
}

// Fetch implements Source.
func (c *CSVFile) Fetch(ctx context.Context) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(c.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "source", "open csv", c.Path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	grid, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "source", "parse csv", fmt.Sprintf("%s is not valid CSV", c.Path), err)
	}
	if len(grid) > 0 && len(grid[0]) > 0 {
		grid[0][0] = strings.TrimPrefix(grid[0][0], "\ufeff")
	}
	return FromGrid(grid, c.HeaderRow), nil
}
