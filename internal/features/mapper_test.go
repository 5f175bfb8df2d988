package features

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/model"
)

func newTestMapper(t *testing.T, opts ...Option) *Mapper {
	t.Helper()
	m, err := NewMapper(DefaultTable(), opts...)
	require.NoError(t, err)
	return m
}

func TestMap_Completeness(t *testing.T) {
	m := newTestMapper(t)

	featureSets := [][]string{
		{"Lead Quality"},
		{"Years of experience", "Unknown Feature", "City"},
		{"Expected salary", "TotalVisits", "Lead Origin", "Sent to backend", "Another"},
	}
	for _, features := range featureSets {
		vec, err := m.Map(model.Lead{"email": "a@b.com"}, features)
		require.NoError(t, err)
		assert.Equal(t, features, vec.Names)
		assert.Len(t, vec.Values, len(features))
		for _, f := range features {
			_, ok := vec.Get(f)
			assert.True(t, ok, f)
		}
	}
}

func TestMap_EndToEndRecord(t *testing.T) {
	m := newTestMapper(t)
	rec := model.Lead{
		"full_name":           "Jane Doe",
		"email":               "jane@co.com",
		"years_of_experience": "5",
	}

	vec, err := m.Map(rec, []string{"Years of experience", "Lead Quality", "Highest education", "City", "Expected salary"})
	require.NoError(t, err)

	assert.Equal(t, 5.0, vec.Values["Years of experience"])
	assert.Equal(t, QualityLow, vec.Values["Lead Quality"])
	assert.Equal(t, EducationBachelors, vec.Values["Highest education"])
	assert.Equal(t, "Mumbai", vec.Values["City"])
	assert.Equal(t, 0.0, vec.Values["Expected salary"])
}

func TestMap_AliasPriority(t *testing.T) {
	m := newTestMapper(t)

	vec, err := m.Map(model.Lead{"skills": "go", "location": "Pune"}, []string{"Specialization", "City", "Current location", "Primary skills"})
	require.NoError(t, err)
	assert.Equal(t, "go", vec.Values["Specialization"])
	assert.Equal(t, "Pune", vec.Values["City"])
	assert.Equal(t, "Pune", vec.Values["Current location"])

	vec, err = m.Map(model.Lead{"primary_skills": "rust", "skills": "go", "current_location": " ", "location": "Pune"}, []string{"Primary skills", "City"})
	require.NoError(t, err)
	assert.Equal(t, "rust", vec.Values["Primary skills"])
	assert.Equal(t, "Pune", vec.Values["City"], "blank current field falls back to legacy alias")
}

func TestMap_Defaults(t *testing.T) {
	m := newTestMapper(t)

	vec, err := m.Map(model.Lead{}, []string{
		"Lead Source", "Specialization", "Primary skills", "Current location",
		"Willing to relocate", "Years of experience", "Expected salary", "TotalVisits",
	})
	require.NoError(t, err)
	assert.Equal(t, "Direct Traffic", vec.Values["Lead Source"])
	assert.Equal(t, "Select", vec.Values["Specialization"])
	assert.Equal(t, "Unknown", vec.Values["Primary skills"])
	assert.Equal(t, "Unknown", vec.Values["Current location"])
	assert.Equal(t, "No", vec.Values["Willing to relocate"])
	assert.Equal(t, 0.0, vec.Values["Years of experience"])
	assert.Equal(t, 0.0, vec.Values["Expected salary"])
	assert.Equal(t, 1.0, vec.Values["TotalVisits"])
}

func TestMap_Placeholders(t *testing.T) {
	m := newTestMapper(t, WithNumericFeatures([]string{"Lead Score", "Monthly Salary Band"}))

	vec, err := m.Map(model.Lead{}, []string{"Lead Score", "Monthly Salary Band", "Mystery Category"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, vec.Values["Lead Score"])
	assert.Equal(t, 0.0, vec.Values["Monthly Salary Band"])
	assert.Equal(t, Placeholder, vec.Values["Mystery Category"])
}

func TestMap_SalaryLPA(t *testing.T) {
	m := newTestMapper(t)

	vec, err := m.Map(model.Lead{"expected_salary": "8 lpa"}, []string{"Expected salary"})
	require.NoError(t, err)
	assert.Equal(t, 800000.0, vec.Values["Expected salary"])

	vec, err = m.Map(model.Lead{"salary": 500000.0}, []string{"Expected salary"})
	require.NoError(t, err)
	assert.Equal(t, 500000.0, vec.Values["Expected salary"])
}

func TestMap_Failure(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.Map(model.Lead{"email": "a@b.com"}, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMappingFailed))

	var nilMapper *Mapper
	_, err = nilMapper.Map(model.Lead{}, []string{"City"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMappingFailed))
}

func TestNewMapper_InvalidTable(t *testing.T) {
	_, err := NewMapper(Table{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMappingFailed))
}
