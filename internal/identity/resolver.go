// Package identity derives stable lead identifiers and the contact-identity
// filter used to deduplicate leads in storage.
package identity

import (
	"strings"

	"github.com/google/uuid"

	"github.com/sells-group/leadscore/internal/model"
)

// Namespace is the UUIDv5 namespace for lead identifiers (the RFC 4122 DNS
// namespace, 6ba7b810-9dad-11d1-80b4-00c04fd430c8).
var Namespace = uuid.NameSpaceDNS

// Field aliases checked for contact identity, current schema first.
var (
	emailFields    = []string{"email"}
	nameFields     = []string{"full_name", "name"}
	phoneFields    = []string{"mobile_number", "phone"}
	positionFields = []string{"applied_position", "role_position", "position"}
)

// Resolve returns the identifier for a lead. Leads with an email or a
// name+phone pair always resolve to the same UUIDv5; anything else gets a
// random UUIDv4.
func Resolve(rec model.Lead) string {
	if id, ok := Deterministic(rec); ok {
		return id
	}
	return uuid.NewString()
}

// Deterministic returns the UUIDv5 identifier for a lead and true, or false
// when the lead carries neither an email nor a name+phone pair.
func Deterministic(rec model.Lead) (string, bool) {
	base := baseKey(rec)
	if base == "" {
		return "", false
	}
	return uuid.NewSHA1(Namespace, []byte(base)).String(), true
}

func baseKey(rec model.Lead) string {
	if email := rec.First(emailFields...); email != "" {
		return strings.ToLower(email)
	}
	name := rec.First(nameFields...)
	phone := rec.First(phoneFields...)
	if name != "" && phone != "" {
		return strings.ToLower(name) + "_" + phone
	}
	return ""
}
