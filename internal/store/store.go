package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/model"
)

// ErrUnavailable is returned by writes when storage could not be reached.
var ErrUnavailable = eris.New("store: storage unavailable")

// Query selects lead documents. Paths are dot-separated document paths
// (e.g. "ml_prediction.predicted_temperature").
type Query struct {
	Match   map[string]string `json:"match,omitempty"`
	Exists  []string          `json:"exists,omitempty"`
	Missing []string          `json:"missing,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	// Oldest orders by creation time ascending; the default is newest first.
	Oldest bool `json:"oldest,omitempty"`
}

// Op is one queued upsert.
type Op struct {
	Filter identity.Filter
	Doc    model.Lead
}

// UpsertResult reports the stored lead ID and whether the lead was new.
type UpsertResult struct {
	UniqueID string
	Inserted bool
}

// BulkResult counts the outcomes of a bulk upsert.
type BulkResult struct {
	Inserted int
	Updated  int
	Failed   int
}

// Group is one bucket of an aggregation.
type Group struct {
	Key   string
	Count int
	Avg   float64
}

// Store defines the lead document store.
type Store interface {
	// Reads
	FindOne(ctx context.Context, q Query) (model.Lead, error)
	Find(ctx context.Context, q Query) ([]model.Lead, error)
	Count(ctx context.Context, q Query) (int, error)
	Aggregate(ctx context.Context, groupBy, average string) ([]Group, error)

	// Writes. Upserts are keyed by the contact identity filter and are
	// atomic per identity.
	Upsert(ctx context.Context, f identity.Filter, doc model.Lead) (UpsertResult, error)
	BulkUpsert(ctx context.Context, ops []Op) (BulkResult, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// ByUniqueID returns a query matching one lead ID.
func ByUniqueID(id string) Query {
	return Query{Match: map[string]string{model.FieldUniqueID: id}, Limit: 1}
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

func validateDoc(f identity.Filter, doc model.Lead) error {
	if f.IsZero() {
		return eris.New("store: upsert without identity filter")
	}
	if doc.UniqueID() == "" {
		return eris.New("store: document has no unique_id")
	}
	return nil
}
