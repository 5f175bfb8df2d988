package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/fetcher"
	"github.com/sells-group/leadscore/internal/model"
)

// CSV reads a CSV export from a local path or an http(s) or ftp URL.
type CSV struct {
	opener   *fetcher.Opener
	location string
	opts     fetcher.CSVOptions
}

// NewCSV returns a CSV source for location.
func NewCSV(o *fetcher.Opener, location string, opts fetcher.CSVOptions) *CSV {
	return &CSV{opener: o, location: location, opts: opts}
}

func (c *CSV) Name() string { return NameCSV }

func (c *CSV) FetchRows(ctx context.Context) ([]model.Row, error) {
	rc, err := c.opener.Open(ctx, c.location)
	if err != nil {
		return nil, eris.Wrap(err, "source: open csv")
	}
	defer rc.Close() //nolint:errcheck

	records, err := fetcher.ReadCSV(rc, c.opts)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read csv %s", c.location)
	}
	return Rows(records), nil
}

// XLSX reads one worksheet of an Excel workbook from a local path or URL.
type XLSX struct {
	opener   *fetcher.Opener
	location string
	opts     fetcher.XLSXOptions
}

// NewXLSX returns an XLSX source for location.
func NewXLSX(o *fetcher.Opener, location string, opts fetcher.XLSXOptions) *XLSX {
	return &XLSX{opener: o, location: location, opts: opts}
}

func (x *XLSX) Name() string { return NameXLSX }

func (x *XLSX) FetchRows(ctx context.Context) ([]model.Row, error) {
	data, err := x.opener.ReadAll(ctx, x.location)
	if err != nil {
		return nil, eris.Wrap(err, "source: open workbook")
	}
	records, err := fetcher.ReadXLSXBytes(data, x.opts)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read workbook %s", x.location)
	}
	return Rows(records), nil
}
