package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadscore/internal/model"
)

func TestOccupation(t *testing.T) {
	tests := []struct {
		role string
		want string
	}{
		{"Software Engineer", OccupationWorking},
		{"Backend DEVELOPER", OccupationWorking},
		{"Product Manager", OccupationWorking},
		{"Student Team Lead", OccupationWorking},
		{"Student", OccupationStudent},
		{"Fresher", OccupationStudent},
		{"Accountant", OccupationWorking},
		{"", OccupationWorking},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Occupation(model.Lead{"applied_position": tt.role}), tt.role)
	}

	assert.Equal(t, OccupationStudent, Occupation(model.Lead{"role_position": "fresher"}))
	assert.Equal(t, OccupationStudent, Occupation(model.Lead{"position": "student intern"}))
}

func TestLeadQuality(t *testing.T) {
	assert.Equal(t, QualityLow, LeadQuality(model.Lead{}))
	assert.Equal(t, QualityLow, LeadQuality(model.Lead{"email": "a@b.com", "phone": "1"}))
	assert.Equal(t, QualityMedium, LeadQuality(model.Lead{"email": "a@b.com", "linkedin_profile": "in/a"}))
	assert.Equal(t, QualityHigh, LeadQuality(model.Lead{
		"linkedin_profile":  "in/a",
		"highest_education": "B.Tech",
		"skills":            "go",
	}))
	assert.Equal(t, QualityHigh, LeadQuality(model.Lead{
		"email":               "a@b.com",
		"mobile_number":       "1",
		"primary_skills":      "go",
		"years_of_experience": "2",
		"linkedin_profile":    "in/a",
	}))
}

func TestEducation(t *testing.T) {
	assert.Equal(t, "PhD", Education(model.Lead{"highest_education": "PhD", "years_of_experience": "20"}))
	assert.Equal(t, EducationMasters, Education(model.Lead{"years_of_experience": "8"}))
	assert.Equal(t, EducationMasters, Education(model.Lead{"applied_position": "Senior Engineer"}))
	assert.Equal(t, EducationBachelors, Education(model.Lead{"years_of_experience": "5"}))
	assert.Equal(t, EducationBachelors, Education(model.Lead{"years_of_experience": "1"}))
	assert.Equal(t, EducationBachelors, Education(model.Lead{"years_of_experience": "ten"}))
}

func TestExperienceYears(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{"5", 5},
		{"5.9", 5},
		{"5 years", 0},
		{"-3", 0},
		{"1.2.3", 0},
		{6.0, 6},
		{nil, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExperienceYears(model.Lead{"years_of_experience": tt.in}), "%v", tt.in)
	}
	assert.Equal(t, 4, ExperienceYears(model.Lead{"experience": "4"}))
}
