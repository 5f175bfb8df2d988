package identity

import (
	"net/url"
	"strings"

	"github.com/sells-group/leadscore/internal/model"
)

// Filter is the contact identity used to decide whether an incoming lead
// updates an existing record or creates a new one.
type Filter struct {
	Fields []string
	Values []string
}

// tier is one rung of the filter priority ladder. Each canonical field is
// resolved through its alias list.
type tier struct {
	fields  []string
	aliases [][]string
}

// tiers are tried in order; the first tier whose fields are all present wins.
var tiers = []tier{
	{fields: []string{"email"}, aliases: [][]string{emailFields}},
	{fields: []string{"mobile_number"}, aliases: [][]string{phoneFields}},
	{fields: []string{"full_name", "applied_position"}, aliases: [][]string{nameFields, positionFields}},
	{fields: []string{"full_name", "mobile_number"}, aliases: [][]string{nameFields, phoneFields}},
}

// FilterFor returns the highest-priority filter the lead can satisfy, or
// false when the lead has no usable contact identity.
func FilterFor(rec model.Lead) (Filter, bool) {
	for _, t := range tiers {
		values := make([]string, 0, len(t.fields))
		for i, field := range t.fields {
			v := rec.First(t.aliases[i]...)
			if v == "" {
				break
			}
			if field == "email" {
				v = strings.ToLower(v)
			}
			values = append(values, v)
		}
		if len(values) == len(t.fields) {
			return Filter{Fields: t.fields, Values: values}, true
		}
	}
	return Filter{}, false
}

// Key returns the canonical string form of the filter, stored as the
// uniqueness constraint on contact identity.
func (f Filter) Key() string {
	parts := make([]string, len(f.Fields))
	for i, field := range f.Fields {
		parts[i] = field + "=" + url.QueryEscape(f.Values[i])
	}
	return strings.Join(parts, "&")
}

// Match returns the filter as a field to value map.
func (f Filter) Match() map[string]string {
	m := make(map[string]string, len(f.Fields))
	for i, field := range f.Fields {
		m[field] = f.Values[i]
	}
	return m
}

// IsZero reports whether the filter is empty.
func (f Filter) IsZero() bool {
	return len(f.Fields) == 0
}
