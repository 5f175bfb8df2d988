package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/pkg/salesforce"
)

// Salesforce reads Lead records.
type Salesforce struct {
	client salesforce.Client
	where  string
	limit  int
}

// NewSalesforce returns a source querying Leads matching where.
func NewSalesforce(c salesforce.Client, where string, limit int) *Salesforce {
	return &Salesforce{client: c, where: where, limit: limit}
}

func (s *Salesforce) Name() string { return NameSalesforce }

func (s *Salesforce) FetchRows(ctx context.Context) ([]model.Row, error) {
	leads, err := salesforce.QueryLeads(ctx, s.client, s.where, s.limit)
	if err != nil {
		return nil, eris.Wrap(err, "source: query salesforce")
	}
	rows := make([]model.Row, 0, len(leads))
	for _, l := range leads {
		rows = append(rows, model.Row(l.Row()))
	}
	return rows, nil
}
