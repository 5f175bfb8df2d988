package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadscore/internal/model"
)

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Full Name":           "full_name",
		"Email id":            "email",
		"  Email Address ":    "email",
		"Phone Number":        "mobile_number",
		"LinkedIn profile":    "linkedin_profile",
		"Years of Experience": "years_of_experience",
		"Interview Status":    "interview_status",
		"Notes (optional)":    "notes_optional",
		"Café Préféré":        "cafe_prefere",
		"Niveau d'éducation":  "niveau_deducation",
		" Notes ":             "notes",
		"Timestamp":           "timestamp",
		"%%%":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), in)
	}
}

func TestNormalizeRow(t *testing.T) {
	rec := NormalizeRow(model.Row{
		"Full Name":           "  Jane Doe ",
		"Email id":            "jane@co.com",
		"Years of Experience": 5.0,
		"Notes":               "   ",
		"Skills":              nil,
		"%%%":                 "dropped",
	})
	assert.Equal(t, model.Lead{
		"full_name":           "Jane Doe",
		"email":               "jane@co.com",
		"years_of_experience": 5.0,
	}, rec)
}

func TestNormalizeRow_DuplicateFieldLexicallyFirstHeaderWins(t *testing.T) {
	rec := NormalizeRow(model.Row{
		"Email":    "",
		"Email id": "second@co.com",
		"email id": "third@co.com",
	})
	assert.Equal(t, "second@co.com", rec["email"])
}
