package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/pkg/notion"
)

// Notion reads pages of a Notion lead database. Property names act as
// headers.
type Notion struct {
	client notion.Client
	dbID   string
	status string
}

// NewNotion returns a Notion source. A non-empty status limits the sync to
// pages in that status.
func NewNotion(c notion.Client, dbID, status string) *Notion {
	return &Notion{client: c, dbID: dbID, status: status}
}

func (n *Notion) Name() string { return NameNotion }

func (n *Notion) FetchRows(ctx context.Context) ([]model.Row, error) {
	pages, err := notion.QueryLeads(ctx, n.client, n.dbID, n.status)
	if err != nil {
		return nil, eris.Wrap(err, "source: query notion")
	}
	rows := make([]model.Row, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, model.Row(notion.PlainProperties(p)))
	}
	return rows, nil
}
