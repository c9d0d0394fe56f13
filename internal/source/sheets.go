package source

import (
	"context"

	"sessionreel/internal/services/sheets"
)

// SheetsClient is the subset of the sheets client used here.
type SheetsClient interface {
	Values(ctx context.Context, spreadsheetID, a1Range string) ([][]string, error)
	Authenticate(ctx context.Context, spreadsheetID string) error
}

// Sheets reads rows from a Google Sheets range.
type Sheets struct {
	Client        SheetsClient
	SpreadsheetID string
	Range         string
	HeaderRow     int
}

var _ SheetsClient = (*sheets.Client)(nil)

// Fetch implements Source.
func (s *Sheets) Fetch(ctx context.Context) ([]Row, error) {
	grid, err := s.Client.Values(ctx, s.SpreadsheetID, s.Range)
	if err != nil {
		return nil, err
	}
	return FromGrid(grid, s.HeaderRow), nil
}

// Authenticate implements Authenticator.
func (s *Sheets) Authenticate(ctx context.Context) error {
	return s.Client.Authenticate(ctx, s.SpreadsheetID)
}
