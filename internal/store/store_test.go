package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func emailFilter(email string) identity.Filter {
	return identity.Filter{Fields: []string{"email"}, Values: []string{email}}
}

func lead(id, email string, extra map[string]any) model.Lead {
	l := model.Lead{model.FieldUniqueID: id, "email": email}
	for k, v := range extra {
		l[k] = v
	}
	return l
}

func prediction(temp string, confidence float64) map[string]any {
	return map[string]any{
		"predicted_temperature": temp,
		"confidence":            confidence,
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("UpsertInsertsThenMerges", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		res, err := s.Upsert(ctx, emailFilter("jane@x.com"), lead("id-1", "jane@x.com", map[string]any{"city": "Pune", "budget": 5.0}))
		require.NoError(t, err)
		assert.True(t, res.Inserted)
		assert.Equal(t, "id-1", res.UniqueID)

		res, err = s.Upsert(ctx, emailFilter("jane@x.com"), lead("id-2", "jane@x.com", map[string]any{"city": "Mumbai"}))
		require.NoError(t, err)
		assert.False(t, res.Inserted)
		assert.Equal(t, "id-1", res.UniqueID, "stored unique_id wins")

		got, err := s.FindOne(ctx, ByUniqueID("id-1"))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Mumbai", got["city"])
		assert.Equal(t, 5.0, got["budget"], "fields absent from the update are kept")
		assert.Equal(t, "id-1", got.UniqueID())

		n, err := s.Count(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("UpsertIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := lead("id-1", "a@x.com", map[string]any{"name": "A"})

		for range 3 {
			_, err := s.Upsert(ctx, emailFilter("a@x.com"), doc)
			require.NoError(t, err)
		}
		n, err := s.Count(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("ConcurrentUpsertSameIdentity", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		variants := []string{"jane@co.com", " JANE@co.com ", "Jane@Co.com", "jane@CO.COM\t"}

		const writers = 32
		errs := make([]error, writers)
		var wg sync.WaitGroup
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := model.Lead{"email": variants[i%len(variants)], "attempt": fmt.Sprint(i)}
				rec[model.FieldUniqueID] = identity.Resolve(rec)
				f, ok := identity.FilterFor(rec)
				if !ok {
					errs[i] = eris.New("no identity")
					return
				}
				_, errs[i] = s.Upsert(ctx, f, rec)
			}()
		}
		wg.Wait()
		for i, err := range errs {
			require.NoError(t, err, "writer %d", i)
		}

		n, err := s.Count(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("UpsertRequiresFilterAndID", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Upsert(ctx, identity.Filter{}, lead("id-1", "a@x.com", nil))
		assert.ErrorContains(t, err, "without identity filter")

		_, err = s.Upsert(ctx, emailFilter("a@x.com"), model.Lead{"email": "a@x.com"})
		assert.ErrorContains(t, err, "no unique_id")
	})

	t.Run("FindOneMissing", func(t *testing.T) {
		s := newStore(t)
		got, err := s.FindOne(context.Background(), ByUniqueID("nope"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("FindFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Upsert(ctx, emailFilter("hot@x.com"), lead("h", "hot@x.com", map[string]any{model.FieldPrediction: prediction("Hot", 0.9)}))
		require.NoError(t, err)
		_, err = s.Upsert(ctx, emailFilter("cold@x.com"), lead("c", "cold@x.com", map[string]any{model.FieldPrediction: prediction("Cold", 0.6)}))
		require.NoError(t, err)
		_, err = s.Upsert(ctx, emailFilter("new@x.com"), lead("n", "new@x.com", nil))
		require.NoError(t, err)

		hot, err := s.Find(ctx, Query{Match: map[string]string{"ml_prediction.predicted_temperature": "Hot"}})
		require.NoError(t, err)
		require.Len(t, hot, 1)
		assert.Equal(t, "h", hot[0].UniqueID())

		pending, err := s.Find(ctx, Query{Missing: []string{model.FieldPrediction}})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "n", pending[0].UniqueID())

		n, err := s.Count(ctx, Query{Exists: []string{"ml_prediction.predicted_temperature"}})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		oldest, err := s.Find(ctx, Query{Oldest: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, oldest, 2)
		assert.Equal(t, "h", oldest[0].UniqueID())
		assert.Equal(t, "c", oldest[1].UniqueID())

		newest, err := s.Find(ctx, Query{Limit: 1})
		require.NoError(t, err)
		require.Len(t, newest, 1)
		assert.Equal(t, "n", newest[0].UniqueID())
	})

	t.Run("Aggregate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		docs := []struct {
			id, temp string
			conf     float64
		}{
			{"1", "Hot", 0.8}, {"2", "Hot", 0.6}, {"3", "Warm", 0.5},
		}
		for _, d := range docs {
			_, err := s.Upsert(ctx, emailFilter(d.id+"@x.com"), lead(d.id, d.id+"@x.com", map[string]any{model.FieldPrediction: prediction(d.temp, d.conf)}))
			require.NoError(t, err)
		}
		_, err := s.Upsert(ctx, emailFilter("none@x.com"), lead("4", "none@x.com", nil))
		require.NoError(t, err)

		groups, err := s.Aggregate(ctx, "ml_prediction.predicted_temperature", "ml_prediction.confidence")
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "Hot", groups[0].Key)
		assert.Equal(t, 2, groups[0].Count)
		assert.InDelta(t, 0.7, groups[0].Avg, 1e-9)
		assert.Equal(t, "Warm", groups[1].Key)
		assert.Equal(t, 1, groups[1].Count)
	})

	t.Run("BulkUpsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Upsert(ctx, emailFilter("old@x.com"), lead("old", "old@x.com", nil))
		require.NoError(t, err)

		res, err := s.BulkUpsert(ctx, []Op{
			{Filter: emailFilter("old@x.com"), Doc: lead("other", "old@x.com", map[string]any{"city": "Delhi"})},
			{Filter: emailFilter("new@x.com"), Doc: lead("new", "new@x.com", nil)},
			{Filter: identity.Filter{}, Doc: lead("bad", "", nil)},
		})
		require.NoError(t, err)
		assert.Equal(t, BulkResult{Inserted: 1, Updated: 1, Failed: 1}, res)

		got, err := s.FindOne(ctx, ByUniqueID("old"))
		require.NoError(t, err)
		assert.Equal(t, "Delhi", got["city"])

		n, err := s.Count(ctx, Query{})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("BulkUpsertEmpty", func(t *testing.T) {
		s := newStore(t)
		res, err := s.BulkUpsert(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, BulkResult{}, res)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestUnavailable(t *testing.T) {
	var s Store = &Unavailable{Reason: eris.New("boom")}
	ctx := context.Background()

	assert.True(t, IsUnavailable(s))

	got, err := s.FindOne(ctx, ByUniqueID("x"))
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.Count(ctx, Query{})
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.Upsert(ctx, emailFilter("a@x.com"), lead("x", "a@x.com", nil))
	assert.True(t, eris.Is(err, ErrUnavailable))

	_, err = s.BulkUpsert(ctx, []Op{{}})
	assert.True(t, eris.Is(err, ErrUnavailable))
	assert.Error(t, s.Ping(ctx))
}
