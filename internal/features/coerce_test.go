package features

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/leadscore/internal/model"
)

func TestNumeric(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"", 0},
		{nil, 0},
		{"500000", 500000},
		{"5 years", 5},
		{"3.5", 3.5},
		{"₹ 1,20,000", 120000},
		{"1.2.3", 0},
		{"abc", 0},
		{".", 0},
		{7.0, 7},
		{12, 12},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Numeric(tt.in), "%v", tt.in)
	}
}

func TestNumeric_StringAndNumberAgree(t *testing.T) {
	for _, v := range []float64{0, 1, 5, 3.25, 500000, 1234567.5} {
		assert.Equal(t, Numeric(v), Numeric(Numeric(v)))
		assert.Equal(t, Numeric(v), Numeric(model.Stringify(v)))
	}
}

func TestSalary(t *testing.T) {
	tests := []struct {
		in   any
		want float64
	}{
		{"8 LPA", 800000},
		{"8 lpa", 800000},
		{"12.5 LPA", 1250000},
		{"LPA", 0},
		{"500000", 500000},
		{"", 0},
		{nil, 0},
		{"INR 6,00,000", 600000},
		{750000.0, 750000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Salary(tt.in), "%v", tt.in)
	}
}
