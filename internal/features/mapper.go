// Package features translates lead records of any schema generation into
// the fixed feature vector the temperature classifier was trained on.
package features

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
)

// ErrMappingFailed signals that no feature vector could be built, either
// because the feature contract is unknown or the mapping table is invalid.
var ErrMappingFailed = eris.New("features: mapping failed")

// Placeholder is the value given to categorical features without a rule.
const Placeholder = "Select"

// Vector is an ordered feature vector. Values are string or float64.
type Vector struct {
	Names  []string
	Values map[string]any
}

// Get returns the value for a feature name.
func (v Vector) Get(name string) (any, bool) {
	val, ok := v.Values[name]
	return val, ok
}

// Len returns the number of features.
func (v Vector) Len() int {
	return len(v.Names)
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithNumericFeatures marks additional features as numeric for placeholder
// defaults, typically the classifier's numeric columns.
func WithNumericFeatures(names []string) Option {
	return func(m *Mapper) {
		for _, n := range names {
			m.numeric[n] = true
		}
	}
}

// Mapper applies a Table to lead records. It is safe for concurrent use.
type Mapper struct {
	rules   map[string]Rule
	numeric map[string]bool
}

// NewMapper validates t and returns a Mapper for it.
func NewMapper(t Table, opts ...Option) (*Mapper, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	m := &Mapper{
		rules:   make(map[string]Rule, len(t.Rules)),
		numeric: make(map[string]bool, len(t.Numeric)),
	}
	for _, r := range t.Rules {
		m.rules[r.Feature] = r
	}
	for _, n := range t.Numeric {
		m.numeric[n] = true
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Map builds the vector for features from rec. Every name in features is
// present in the result. An empty feature list is a mapping failure.
func (m *Mapper) Map(rec model.Lead, features []string) (Vector, error) {
	if m == nil {
		return Vector{}, eris.Wrap(ErrMappingFailed, "features: no mapping table")
	}
	if len(features) == 0 {
		return Vector{}, eris.Wrap(ErrMappingFailed, "features: no feature columns")
	}

	vec := Vector{
		Names:  append([]string(nil), features...),
		Values: make(map[string]any, len(features)),
	}
	for _, name := range features {
		rule, ok := m.rules[name]
		if !ok {
			vec.Values[name] = m.placeholder(name)
			continue
		}
		vec.Values[name] = resolve(rule, rec)
	}
	return vec, nil
}

func (m *Mapper) placeholder(name string) any {
	if !m.numeric[name] {
		return Placeholder
	}
	if strings.Contains(strings.ToLower(name), "salary") {
		return 0.0
	}
	return 1.0
}

func resolve(r Rule, rec model.Lead) any {
	var v any
	if s := rec.First(r.Sources...); s != "" {
		v = s
	} else if r.Infer != "" {
		v = infer(r.Infer, rec)
	} else {
		v = r.Value
	}

	switch r.Coerce {
	case CoerceNumeric:
		return Numeric(v)
	case CoerceSalary:
		return Salary(v)
	}
	return v
}

func infer(kind string, rec model.Lead) string {
	switch kind {
	case InferOccupation:
		return Occupation(rec)
	case InferLeadQuality:
		return LeadQuality(rec)
	case InferEducation:
		return Education(rec)
	}
	return Placeholder
}
