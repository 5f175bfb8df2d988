package features

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Inference rules a Rule may name.
const (
	InferOccupation  = "occupation"
	InferLeadQuality = "lead_quality"
	InferEducation   = "education"
)

// Coercions a Rule may name.
const (
	CoerceNumeric = "numeric"
	CoerceSalary  = "salary"
)

// Rule resolves one model feature from a lead record.
//
// Sources are checked in order and the first non-blank value wins. When no
// source matches, Infer (if set) computes the value, otherwise Value is used.
// A rule with neither Sources nor Infer is a constant. Coerce converts the
// resolved value to a float.
type Rule struct {
	Feature string   `yaml:"feature"`
	Sources []string `yaml:"sources,omitempty"`
	Value   any      `yaml:"value,omitempty"`
	Infer   string   `yaml:"infer,omitempty"`
	Coerce  string   `yaml:"coerce,omitempty"`
}

// Table is the full alias and default table for a model's feature contract.
type Table struct {
	Rules []Rule `yaml:"rules"`
	// Numeric lists features that take a number when no rule covers them.
	Numeric []string `yaml:"numeric"`
}

// DefaultTable returns the table for the lead temperature model's training
// schema. Current field names come before legacy ones in each source list.
func DefaultTable() Table {
	return Table{
		Rules: []Rule{
			{Feature: "Lead Origin", Value: "Landing Page Submission"},
			{Feature: "Lead Source", Sources: []string{"linkedin_profile"}, Value: "Direct Traffic"},
			{Feature: "Do Not Email", Value: "No"},
			{Feature: "Do Not Call", Value: "No"},
			{Feature: "TotalVisits", Value: 1.0},
			{Feature: "Total Time Spent on Website", Value: 300.0},
			{Feature: "Page Views Per Visit", Value: 2.0},
			{Feature: "Last Activity", Value: "Form Submitted"},
			{Feature: "Country", Value: "India"},
			{Feature: "Specialization", Sources: []string{"primary_skills", "skills"}, Value: "Select"},
			{Feature: "How did you hear about X Education", Value: "Select"},
			{Feature: "What is your current occupation", Infer: InferOccupation},
			{Feature: "What matters most to you in choosing a course", Value: "Better Career Prospects"},
			{Feature: "Search", Value: "No"},
			{Feature: "Magazine", Value: "No"},
			{Feature: "Newspaper Article", Value: "No"},
			{Feature: "X Education Forums", Value: "No"},
			{Feature: "Newspaper", Value: "No"},
			{Feature: "Digital Advertisement", Value: "No"},
			{Feature: "Through Recommendations", Value: "No"},
			{Feature: "Receive More Updates About Our Courses", Value: "No"},
			{Feature: "Tags", Value: "Interested in other courses"},
			{Feature: "Lead Quality", Infer: InferLeadQuality},
			{Feature: "Update me on Supply Chain Content", Value: "No"},
			{Feature: "Get updates on DM Content", Value: "No"},
			{Feature: "Lead Profile", Value: "Potential Lead"},
			{Feature: "City", Sources: []string{"current_location", "location"}, Value: "Mumbai"},
			{Feature: "Asymmetrique Activity Index", Value: "02.Medium"},
			{Feature: "Asymmetrique Profile Index", Value: "02.Medium"},
			{Feature: "Asymmetrique Activity Score", Value: 15.0},
			{Feature: "Asymmetrique Profile Score", Value: 15.0},
			{Feature: "I agree to pay the amount through cheque", Value: "No"},
			{Feature: "A free copy of Mastering The Interview", Value: "No"},
			{Feature: "Last Notable Activity", Value: "Form Submitted"},
			{Feature: "Highest education", Sources: []string{"highest_education"}, Infer: InferEducation},
			{Feature: "Years of experience", Sources: []string{"years_of_experience", "experience"}, Value: "0", Coerce: CoerceNumeric},
			{Feature: "Primary skills", Sources: []string{"primary_skills", "skills"}, Value: "Unknown"},
			{Feature: "Current location", Sources: []string{"current_location", "location"}, Value: "Unknown"},
			{Feature: "Expected salary", Sources: []string{"expected_salary", "salary"}, Value: "0", Coerce: CoerceSalary},
			{Feature: "Willing to relocate", Sources: []string{"willing_to_relocate", "relocate"}, Value: "No"},
			{Feature: "Sent to backend", Value: "Yes"},
		},
		Numeric: []string{
			"TotalVisits",
			"Total Time Spent on Website",
			"Page Views Per Visit",
			"Asymmetrique Activity Score",
			"Asymmetrique Profile Score",
			"Years of experience",
			"Expected salary",
		},
	}
}

// LoadTable reads a YAML mapping table from path and validates it.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Table{}, eris.Wrapf(ErrMappingFailed, "features: read table %s: %v", path, err)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Table{}, eris.Wrapf(ErrMappingFailed, "features: parse table %s: %v", path, err)
	}
	for i := range t.Rules {
		t.Rules[i].Value = normalizeConst(t.Rules[i].Value)
	}
	if err := t.Validate(); err != nil {
		return Table{}, err
	}
	return t, nil
}

// Validate checks the table for empty or duplicate features and unknown
// inference or coercion names.
func (t Table) Validate() error {
	if len(t.Rules) == 0 {
		return eris.Wrap(ErrMappingFailed, "features: table has no rules")
	}

	var errs []string
	seen := make(map[string]bool, len(t.Rules))
	for i, r := range t.Rules {
		if r.Feature == "" {
			errs = append(errs, fmt.Sprintf("rule %d: feature is required", i))
			continue
		}
		if seen[r.Feature] {
			errs = append(errs, "duplicate feature "+r.Feature)
		}
		seen[r.Feature] = true

		switch r.Infer {
		case "", InferOccupation, InferLeadQuality, InferEducation:
		default:
			errs = append(errs, r.Feature+": unknown infer "+r.Infer)
		}
		switch r.Coerce {
		case "", CoerceNumeric, CoerceSalary:
		default:
			errs = append(errs, r.Feature+": unknown coerce "+r.Coerce)
		}
		if len(r.Sources) == 0 && r.Infer == "" && r.Value == nil {
			errs = append(errs, r.Feature+": rule yields no value")
		}
	}

	if len(errs) > 0 {
		return eris.Wrapf(ErrMappingFailed, "features: invalid table: %s", strings.Join(errs, "; "))
	}
	return nil
}

// normalizeConst widens YAML integers to float64 so numeric constants have a
// single representation.
func normalizeConst(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}
