package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeadsSOQL(t *testing.T) {
	assert.Equal(t,
		"SELECT Id, Name, Email, Phone, MobilePhone, Title, Company, City, LeadSource, Status, Rating, CreatedDate FROM Lead ORDER BY CreatedDate ASC",
		LeadsSOQL("", 0))

	soql := LeadsSOQL("  IsConverted = false ", 500)
	assert.Contains(t, soql, "FROM Lead WHERE IsConverted = false ORDER BY CreatedDate ASC LIMIT 500")
}

func TestQueryLeads(t *testing.T) {
	t.Run("decodes leads", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, soql string, out any) error {
				assert.Contains(t, soql, "WHERE LeadSource = 'Web'")
				leads := out.(*[]Lead)
				*leads = []Lead{{ID: "00Qxx", Name: "Jane Doe", Email: "jane@x.io"}}
				return nil
			},
		}

		leads, err := QueryLeads(context.Background(), mock, "LeadSource = 'Web'", 0)
		require.NoError(t, err)
		require.Len(t, leads, 1)
		assert.Equal(t, "00Qxx", leads[0].ID)
	})

	t.Run("wraps query failure", func(t *testing.T) {
		mock := &mockClient{
			queryFn: func(_ context.Context, _ string, _ any) error {
				return errors.New("session expired")
			},
		}

		leads, err := QueryLeads(context.Background(), mock, "", 10)
		require.Error(t, err)
		assert.Nil(t, leads)
		assert.Contains(t, err.Error(), "sf: query leads")
	})
}

func TestLead_Row(t *testing.T) {
	lead := Lead{
		ID:          "00Qxx",
		Name:        "Jane Doe",
		Email:       "jane@x.io",
		Phone:       "555-0100",
		MobilePhone: "555-0199",
		Title:       "Data Engineer",
		City:        " Austin ",
		Status:      "Open",
	}
	assert.Equal(t, map[string]any{
		"Salesforce ID":    "00Qxx",
		"Full Name":        "Jane Doe",
		"Email":            "jane@x.io",
		"Mobile Number":    "555-0199",
		"Applied Position": "Data Engineer",
		"Current Location": "Austin",
		"Lead Status":      "Open",
	}, lead.Row())

	assert.Equal(t, "555-0100", Lead{Phone: "555-0100"}.Row()["Mobile Number"])
	assert.Empty(t, Lead{}.Row())
}
