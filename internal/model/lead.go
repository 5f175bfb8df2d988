package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Reserved lead fields written by ingestion and prediction.
const (
	FieldUniqueID      = "unique_id"
	FieldPrediction    = "ml_prediction"
	FieldProcessedAt   = "processed_at"
	FieldMLEnabled     = "ml_enabled"
	FieldSyncedAt      = "_synced_at"
	FieldSource        = "_source"
	FieldSchemaVersion = "_schema_version"
)

// Lead is a schemaless lead record as received from a form or a sheet row.
// Values are strings, numbers, booleans or nested documents.
type Lead map[string]any

// Clone returns a shallow copy of the lead.
func (l Lead) Clone() Lead {
	out := make(Lead, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Has reports whether key holds a non-blank value.
func (l Lead) Has(key string) bool {
	return l.String(key) != ""
}

// String returns the trimmed string form of the value at key, or "" when
// the key is absent or nil.
func (l Lead) String(key string) string {
	v, ok := l[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(Stringify(v))
}

// First returns the first non-blank value among keys, in order.
func (l Lead) First(keys ...string) string {
	for _, k := range keys {
		if s := l.String(k); s != "" {
			return s
		}
	}
	return ""
}

// UniqueID returns the lead's unique_id field.
func (l Lead) UniqueID() string {
	return l.String(FieldUniqueID)
}

// Stringify renders a scalar value the way it would appear in a sheet cell.
// Whole floats drop the fractional part so 5.0 reads as "5".
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(t)
	}
}
