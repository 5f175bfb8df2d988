package features

import (
	"strconv"
	"strings"

	"github.com/sells-group/leadscore/internal/model"
)

// Inferred labels. These must match the categories the model was trained on.
const (
	OccupationWorking = "Working Professional"
	OccupationStudent = "Student"

	QualityHigh   = "High in Relevance"
	QualityMedium = "Medium"
	QualityLow    = "Low in Relevance"

	EducationMasters   = "Master's Degree"
	EducationBachelors = "Bachelor's Degree"
)

var (
	roleFields       = []string{"applied_position", "role_position", "position"}
	phoneFields      = []string{"mobile_number", "phone"}
	skillFields      = []string{"primary_skills", "skills"}
	experienceFields = []string{"years_of_experience", "experience"}

	workingKeywords = []string{"engineer", "developer", "manager", "lead"}
	studentKeywords = []string{"student", "fresher"}
)

// Occupation infers the occupation category from the lead's role.
func Occupation(rec model.Lead) string {
	role := strings.ToLower(rec.First(roleFields...))
	switch {
	case containsAny(role, workingKeywords):
		return OccupationWorking
	case containsAny(role, studentKeywords):
		return OccupationStudent
	default:
		return OccupationWorking
	}
}

// LeadQuality scores how complete a lead is and buckets the score.
func LeadQuality(rec model.Lead) string {
	score := 0
	if rec.Has("email") {
		score++
	}
	if rec.First(phoneFields...) != "" {
		score++
	}
	if rec.Has("linkedin_profile") {
		score += 2
	}
	if rec.Has("highest_education") {
		score += 2
	}
	if rec.First(skillFields...) != "" {
		score++
	}
	if ExperienceYears(rec) > 0 {
		score++
	}

	switch {
	case score >= 5:
		return QualityHigh
	case score >= 3:
		return QualityMedium
	default:
		return QualityLow
	}
}

// Education returns the explicit education field or infers it from
// experience and seniority. Below eight years every band maps to a
// bachelor's degree, matching the training data labels.
func Education(rec model.Lead) string {
	if e := rec.String("highest_education"); e != "" {
		return e
	}
	years := ExperienceYears(rec)
	role := strings.ToLower(rec.First(roleFields...))
	if strings.Contains(role, "senior") || years >= 8 {
		return EducationMasters
	}
	return EducationBachelors
}

// ExperienceYears returns whole years of experience, or 0 unless the value
// is purely digits and dots.
func ExperienceYears(rec model.Lead) int {
	s := rec.First(experienceFields...)
	if s == "" {
		return 0
	}
	digits := strings.ReplaceAll(s, ".", "")
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
