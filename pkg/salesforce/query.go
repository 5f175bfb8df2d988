package salesforce

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead represents a Salesforce Lead record.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	Name        string `json:"Name" salesforce:"Name"`
	Email       string `json:"Email" salesforce:"Email"`
	Phone       string `json:"Phone" salesforce:"Phone"`
	MobilePhone string `json:"MobilePhone" salesforce:"MobilePhone"`
	Title       string `json:"Title" salesforce:"Title"`
	Company     string `json:"Company" salesforce:"Company"`
	City        string `json:"City" salesforce:"City"`
	LeadSource  string `json:"LeadSource" salesforce:"LeadSource"`
	Status      string `json:"Status" salesforce:"Status"`
	Rating      string `json:"Rating" salesforce:"Rating"`
	CreatedDate string `json:"CreatedDate" salesforce:"CreatedDate"`
}

var leadFields = []string{
	"Id", "Name", "Email", "Phone", "MobilePhone", "Title",
	"Company", "City", "LeadSource", "Status", "Rating", "CreatedDate",
}

// LeadsSOQL builds the Lead query. where is appended verbatim and is
// expected to come from trusted configuration.
func LeadsSOQL(where string, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM Lead", strings.Join(leadFields, ", "))
	if w := strings.TrimSpace(where); w != "" {
		b.WriteString(" WHERE ")
		b.WriteString(w)
	}
	b.WriteString(" ORDER BY CreatedDate ASC")
	if limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(limit))
	}
	return b.String()
}

// QueryLeads returns Lead records matching where, oldest first.
func QueryLeads(ctx context.Context, c Client, where string, limit int) ([]Lead, error) {
	var leads []Lead
	if err := c.Query(ctx, LeadsSOQL(where, limit), &leads); err != nil {
		return nil, eris.Wrap(err, "sf: query leads")
	}
	return leads, nil
}

// Row returns the lead keyed by the column headers of the lead intake
// form. Empty fields are omitted.
func (l Lead) Row() map[string]any {
	phone := l.MobilePhone
	if phone == "" {
		phone = l.Phone
	}
	pairs := []struct {
		header, value string
	}{
		{"Salesforce ID", l.ID},
		{"Full Name", l.Name},
		{"Email", l.Email},
		{"Mobile Number", phone},
		{"Applied Position", l.Title},
		{"Current Company", l.Company},
		{"Current Location", l.City},
		{"Lead Source", l.LeadSource},
		{"Lead Status", l.Status},
		{"Rating", l.Rating},
	}
	row := make(map[string]any, len(pairs))
	for _, p := range pairs {
		if v := strings.TrimSpace(p.value); v != "" {
			row[p.header] = v
		}
	}
	return row
}
