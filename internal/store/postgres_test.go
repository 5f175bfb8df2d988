package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func docJSON(t *testing.T, l model.Lead) []byte {
	t.Helper()
	b, err := json.Marshal(l)
	require.NoError(t, err)
	return b
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS leads`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOne_ByUniqueID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE unique_id = \$1 ORDER BY updated_at DESC, unique_id DESC LIMIT \$2`).
		WithArgs("id-1", 1).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow(docJSON(t, lead("id-1", "a@x.com", nil))))

	got, err := s.FindOne(context.Background(), ByUniqueID("id-1"))
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got["email"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindOne_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE unique_id`).
		WithArgs("nope", 1).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}))

	got, err := s.FindOne(context.Background(), ByUniqueID("nope"))
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Find_PendingOldest(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc FROM leads WHERE doc #> \$1 IS NULL ORDER BY created_at ASC, unique_id ASC LIMIT \$2`).
		WithArgs([]string{"ml_prediction"}, 50).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).
			AddRow(docJSON(t, lead("a", "a@x.com", nil))).
			AddRow(docJSON(t, lead("b", "b@x.com", nil))))

	leads, err := s.Find(context.Background(), Query{Missing: []string{"ml_prediction"}, Oldest: true, Limit: 50})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "a", leads[0].UniqueID())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Count(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM leads WHERE doc #> \$1 IS NOT NULL`).
		WithArgs([]string{"ml_prediction", "predicted_temperature"}).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.Count(context.Background(), Query{Exists: []string{"ml_prediction.predicted_temperature"}})
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Aggregate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT doc #>> \$1 AS k, count\(\*\), COALESCE\(avg`).
		WithArgs([]string{"ml_prediction", "predicted_temperature"}, []string{"ml_prediction", "confidence"}).
		WillReturnRows(pgxmock.NewRows([]string{"k", "count", "avg"}).
			AddRow("Hot", 3, 0.8).
			AddRow("Warm", 1, 0.55))

	groups, err := s.Aggregate(context.Background(), "ml_prediction.predicted_temperature", "ml_prediction.confidence")
	require.NoError(t, err)
	assert.Equal(t, []Group{{Key: "Hot", Count: 3, Avg: 0.8}, {Key: "Warm", Count: 1, Avg: 0.55}}, groups)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	doc := lead("id-2", "jane@x.com", nil)

	mock.ExpectQuery(`INSERT INTO "leads" AS cur .* ON CONFLICT \("identity_key"\) DO UPDATE`).
		WithArgs("id-2", "email=jane%40x.com", docJSON(t, doc)).
		WillReturnRows(pgxmock.NewRows([]string{"unique_id", "inserted"}).AddRow("id-1", false))

	res, err := s.Upsert(context.Background(), emailFilter("jane@x.com"), doc)
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{UniqueID: "id-1", Inserted: false}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkUpsert_Transaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`ON CONFLICT`).
		WithArgs("a", "email=a%40x.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"unique_id", "inserted"}).AddRow("a", true))
	mock.ExpectQuery(`ON CONFLICT`).
		WithArgs("b", "email=b%40x.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"unique_id", "inserted"}).AddRow("b0", false))
	mock.ExpectCommit()

	res, err := s.BulkUpsert(context.Background(), []Op{
		{Filter: emailFilter("a@x.com"), Doc: lead("a", "a@x.com", nil)},
		{Filter: emailFilter("b@x.com"), Doc: lead("b", "b@x.com", nil)},
	})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Inserted: 1, Updated: 1}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_BulkUpsert_FallsBackPerLead(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`ON CONFLICT`).
		WithArgs("a", "email=a%40x.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"unique_id", "inserted"}).AddRow("a", true))
	mock.ExpectQuery(`ON CONFLICT`).
		WithArgs("b", "email=b%40x.com", pgxmock.AnyArg()).
		WillReturnError(eris.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	mock.ExpectQuery(`ON CONFLICT`).
		WithArgs("a", "email=a%40x.com", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"unique_id", "inserted"}).AddRow("a", true))
	mock.ExpectQuery(`ON CONFLICT`).
		WithArgs("b", "email=b%40x.com", pgxmock.AnyArg()).
		WillReturnError(eris.New("duplicate key value violates unique constraint"))

	res, err := s.BulkUpsert(context.Background(), []Op{
		{Filter: emailFilter("a@x.com"), Doc: lead("a", "a@x.com", nil)},
		{Filter: emailFilter("b@x.com"), Doc: lead("b", "b@x.com", nil)},
	})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Inserted: 1, Failed: 1}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWhere(t *testing.T) {
	where, args := pgWhere(Query{
		Match:  map[string]string{"ml_prediction.predicted_temperature": "Hot"},
		Exists: []string{"email"},
	}, nil)
	assert.Equal(t, ` WHERE doc #>> $1 = $2 AND doc #> $3 IS NOT NULL`, where)
	assert.Equal(t, []any{[]string{"ml_prediction", "predicted_temperature"}, "Hot", []string{"email"}}, args)
}
