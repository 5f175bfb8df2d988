// Package reconcile syncs tabular lead sources into the lead store.
package reconcile

import (
	"regexp"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/leadscore/internal/model"
)

// headerTable maps known form headers to canonical field names. Keys are
// lowercased and trimmed.
var headerTable = map[string]string{
	"full name":           "full_name",
	"email":               "email",
	"email id":            "email",
	"email address":       "email",
	"mobile number":       "mobile_number",
	"phone number":        "mobile_number",
	"highest education":   "highest_education",
	"applied position":    "applied_position",
	"years of experience": "years_of_experience",
	"primary skills":      "primary_skills",
	"current location":    "current_location",
	"linkedin profile":    "linkedin_profile",
	"expected salary":     "expected_salary",
	"willing to relocate": "willing_to_relocate",
}

var nonFieldChars = regexp.MustCompile(`[^a-z0-9_]`)

// NormalizeHeader returns the canonical field name for a raw column header.
func NormalizeHeader(header string) string {
	h := strings.TrimSpace(header)
	if field, ok := headerTable[strings.ToLower(h)]; ok {
		return field
	}
	h = foldDiacritics(h)
	h = strings.ReplaceAll(strings.ToLower(h), " ", "_")
	return nonFieldChars.ReplaceAllString(h, "")
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// NormalizeRow renames headers to field names and drops blank values.
// When two headers normalize to the same field, the lexically first raw
// header with a non-blank value wins.
func NormalizeRow(row model.Row) model.Lead {
	headers := make([]string, 0, len(row))
	for h := range row {
		headers = append(headers, h)
	}
	slices.Sort(headers)

	rec := make(model.Lead, len(row))
	for _, h := range headers {
		field := NormalizeHeader(h)
		if field == "" {
			continue
		}
		v := row[h]
		if s, ok := v.(string); ok {
			v = strings.TrimSpace(s)
		}
		if blank(v) {
			continue
		}
		if _, taken := rec[field]; taken {
			continue
		}
		rec[field] = v
	}
	return rec
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	return strings.TrimSpace(model.Stringify(v)) == ""
}
