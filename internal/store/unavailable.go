package store

import (
	"context"

	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/model"
)

// Unavailable is the degraded store used when the database could not be
// reached at startup. Reads come back empty and writes fail with
// ErrUnavailable.
type Unavailable struct {
	Reason error
}

var _ Store = (*Unavailable)(nil)

func (u *Unavailable) FindOne(context.Context, Query) (model.Lead, error) { return nil, nil }

func (u *Unavailable) Find(context.Context, Query) ([]model.Lead, error) { return nil, nil }

func (u *Unavailable) Count(context.Context, Query) (int, error) { return 0, nil }

func (u *Unavailable) Aggregate(context.Context, string, string) ([]Group, error) { return nil, nil }

func (u *Unavailable) Upsert(context.Context, identity.Filter, model.Lead) (UpsertResult, error) {
	return UpsertResult{}, ErrUnavailable
}

func (u *Unavailable) BulkUpsert(context.Context, []Op) (BulkResult, error) {
	return BulkResult{}, ErrUnavailable
}

func (u *Unavailable) Ping(context.Context) error { return ErrUnavailable }

func (u *Unavailable) Migrate(context.Context) error { return ErrUnavailable }

func (u *Unavailable) Close() error { return nil }

// IsUnavailable reports whether s is the degraded store.
func IsUnavailable(s Store) bool {
	_, ok := s.(*Unavailable)
	return ok
}
