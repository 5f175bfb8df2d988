package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/pkg/sheets"
)

// Sheets reads the lead intake spreadsheet.
type Sheets struct {
	client        sheets.Client
	spreadsheetID string
	readRange     string
}

// NewSheets returns a source reading readRange of the given spreadsheet.
// The first row of the range holds the headers.
func NewSheets(c sheets.Client, spreadsheetID, readRange string) *Sheets {
	return &Sheets{client: c, spreadsheetID: spreadsheetID, readRange: readRange}
}

// Name implements reconcile.Source.
func (s *Sheets) Name() string { return NameSheets }

// FetchRows implements reconcile.Source.
func (s *Sheets) FetchRows(ctx context.Context) ([]model.Row, error) {
	vr, err := s.client.Values(ctx, s.spreadsheetID, s.readRange)
	if err != nil {
		return nil, eris.Wrap(err, "source: read sheet")
	}
	records := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = model.Stringify(v)
		}
		records[i] = cells
	}
	return Rows(records), nil
}
