package prediction

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

func seed(t *testing.T, st store.Store, n int) {
	t.Helper()
	for i := range n {
		l := model.Lead{
			"email":               fmt.Sprintf("lead%d@x.com", i),
			"years_of_experience": "2",
		}
		l[model.FieldUniqueID] = identity.Resolve(l)
		f, ok := identity.FilterFor(l)
		require.True(t, ok)
		_, err := st.Upsert(context.Background(), f, l)
		require.NoError(t, err)
	}
}

func TestBatch_ProcessesPendingLeads(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seed(t, st, 5)
	svc := newTestService(t, st, testModel(t))

	res, err := svc.Batch(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{Found: 3, Processed: 3, Predicted: 3}, res)

	pending, err := st.Count(ctx, store.Query{Missing: []string{model.FieldPrediction}})
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	res, err = svc.Batch(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)

	res, err = svc.Batch(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, res)

	total, err := st.Count(ctx, store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 5, total, "batch updates in place")
}

func TestBatch_ZeroLimit(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, 2)
	svc := newTestService(t, st, testModel(t))

	res, err := svc.Batch(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, BatchResult{}, res)
}

func TestBatch_SoftFailuresStillProcessed(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, 2)
	svc := NewService(st, nil, testMapper(t))

	res, err := svc.Batch(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	assert.Zero(t, res.Predicted)
}

func TestBatch_Cancelled(t *testing.T) {
	st := newTestStore(t)
	seed(t, st, 2)
	svc := newTestService(t, st, testModel(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Batch(ctx, 10)
	assert.Error(t, err)
}
