package features

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/leadscore/internal/model"
)

var (
	nonNumeric   = regexp.MustCompile(`[^0-9.]`)
	leadingFloat = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// lakh is the multiplier for an LPA (lakhs per annum) salary.
const lakh = 100000

// Numeric strips everything but digits and dots from v and parses the rest.
// Empty or unparseable input yields 0.
func Numeric(v any) float64 {
	if isZero(v) {
		return 0
	}
	s := nonNumeric.ReplaceAllString(strings.TrimSpace(model.Stringify(v)), "")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// Salary parses a salary that may be written as "8 LPA". The LPA marker is
// matched case-insensitively; anything else goes through Numeric.
func Salary(v any) float64 {
	if isZero(v) {
		return 0
	}
	s := strings.ToUpper(strings.TrimSpace(model.Stringify(v)))
	if strings.Contains(s, "LPA") {
		if m := leadingFloat.FindString(s); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return f * lakh
			}
		}
	}
	return Numeric(s)
}

func isZero(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	default:
		return false
	}
}
