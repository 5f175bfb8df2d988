// Package source reads lead rows from spreadsheets, exported files, Notion
// and Salesforce.
package source

import (
	"strings"

	"github.com/sells-group/leadscore/internal/model"
)

// Source names reported in sync summaries and metrics.
const (
	NameSheets     = "google_sheets"
	NameXLSX       = "xlsx"
	NameCSV        = "csv"
	NameNotion     = "notion"
	NameSalesforce = "salesforce"
)

// Rows turns a header-first table into rows keyed by header. Short rows
// are padded with empty strings and cells beyond the header are dropped.
// Columns with a blank header are ignored, and a repeated header keeps its
// first column.
func Rows(records [][]string) []model.Row {
	if len(records) == 0 {
		return nil
	}
	header := records[0]
	seen := make(map[string]bool, len(header))
	cols := make([]int, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		cols = append(cols, i)
	}

	rows := make([]model.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(model.Row, len(cols))
		for _, i := range cols {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			row[strings.TrimSpace(header[i])] = v
		}
		rows = append(rows, row)
	}
	return rows
}
