package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/db"
	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/model"
)

// PostgresStore implements Store on a JSONB document table using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var leadsTable = db.DocumentTable{
	Table:     "leads",
	IDColumn:  "unique_id",
	KeyColumn: "identity_key",
	DocColumn: "doc",
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	unique_id    TEXT PRIMARY KEY,
	identity_key TEXT NOT NULL UNIQUE,
	doc          JSONB NOT NULL,
	revision     INTEGER NOT NULL DEFAULT 1,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_leads_temperature ON leads((doc #>> '{ml_prediction,predicted_temperature}'));
CREATE INDEX IF NOT EXISTS idx_leads_doc ON leads USING gin (doc jsonb_path_ops);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) FindOne(ctx context.Context, q Query) (model.Lead, error) {
	q.Limit = 1
	leads, err := s.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return leads[0], nil
}

func (s *PostgresStore) Find(ctx context.Context, q Query) ([]model.Lead, error) {
	where, args := pgWhere(q, nil)
	query := `SELECT doc FROM leads` + where
	if q.Oldest {
		query += ` ORDER BY created_at ASC, unique_id ASC`
	} else {
		query += ` ORDER BY updated_at DESC, unique_id DESC`
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		var lead model.Lead
		if err := json.Unmarshal(raw, &lead); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal lead")
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: iterate leads")
}

func (s *PostgresStore) Count(ctx context.Context, q Query) (int, error) {
	where, args := pgWhere(q, nil)
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM leads`+where, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count leads")
	}
	return n, nil
}

func (s *PostgresStore) Aggregate(ctx context.Context, groupBy, average string) ([]Group, error) {
	args := []any{splitPath(groupBy)}
	avgExpr := `0::float8`
	if average != "" {
		args = append(args, splitPath(average))
		avgExpr = `COALESCE(avg((doc #>> $2)::float8), 0)`
	}
	query := fmt.Sprintf(
		`SELECT doc #>> $1 AS k, count(*), %s FROM leads WHERE doc #>> $1 IS NOT NULL GROUP BY 1 ORDER BY 1`,
		avgExpr,
	)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: aggregate by %s", groupBy)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Key, &g.Count, &g.Avg); err != nil {
			return nil, eris.Wrap(err, "postgres: scan group")
		}
		groups = append(groups, g)
	}
	return groups, eris.Wrap(rows.Err(), "postgres: iterate groups")
}

func (s *PostgresStore) Upsert(ctx context.Context, f identity.Filter, doc model.Lead) (UpsertResult, error) {
	d, err := encodeDocument(f, doc)
	if err != nil {
		return UpsertResult{}, err
	}
	res, err := db.UpsertDocument(ctx, s.pool, leadsTable, d)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "postgres: upsert lead %s", d.ID)
	}
	return UpsertResult{UniqueID: res.ID, Inserted: res.Inserted}, nil
}

// BulkUpsert writes all ops in one transaction. If the transaction fails,
// the ops are retried one statement at a time so a single bad row only
// fails itself.
func (s *PostgresStore) BulkUpsert(ctx context.Context, ops []Op) (BulkResult, error) {
	var result BulkResult
	docs := make([]db.Document, 0, len(ops))
	for _, op := range ops {
		d, err := encodeDocument(op.Filter, op.Doc)
		if err != nil {
			zap.L().Warn("postgres: skipping invalid lead", zap.Error(err))
			result.Failed++
			continue
		}
		docs = append(docs, d)
	}
	if len(docs) == 0 {
		return result, nil
	}

	results, err := db.UpsertDocuments(ctx, s.pool, leadsTable, docs)
	if err == nil {
		for _, r := range results {
			result.add(r.Inserted)
		}
		return result, nil
	}
	if ctx.Err() != nil {
		return result, eris.Wrap(err, "postgres: bulk upsert")
	}

	zap.L().Warn("postgres: bulk upsert failed, retrying per lead",
		zap.Int("leads", len(docs)),
		zap.Error(err),
	)
	for _, d := range docs {
		r, err := db.UpsertDocument(ctx, s.pool, leadsTable, d)
		if err != nil {
			zap.L().Error("postgres: upsert lead failed", zap.String("unique_id", d.ID), zap.Error(err))
			result.Failed++
			continue
		}
		result.add(r.Inserted)
	}
	return result, nil
}

func (r *BulkResult) add(inserted bool) {
	if inserted {
		r.Inserted++
	} else {
		r.Updated++
	}
}

func encodeDocument(f identity.Filter, doc model.Lead) (db.Document, error) {
	if err := validateDoc(f, doc); err != nil {
		return db.Document{}, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return db.Document{}, eris.Wrap(err, "store: marshal lead")
	}
	return db.Document{ID: doc.UniqueID(), Key: f.Key(), Body: body}, nil
}

// pgWhere renders q as a WHERE clause, appending its parameters to args.
func pgWhere(q Query, args []any) (string, []any) {
	var conds []string

	keys := make([]string, 0, len(q.Match))
	for k := range q.Match {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if k == model.FieldUniqueID {
			args = append(args, q.Match[k])
			conds = append(conds, fmt.Sprintf(`unique_id = $%d`, len(args)))
			continue
		}
		args = append(args, splitPath(k), q.Match[k])
		conds = append(conds, fmt.Sprintf(`doc #>> $%d = $%d`, len(args)-1, len(args)))
	}
	for _, p := range q.Exists {
		args = append(args, splitPath(p))
		conds = append(conds, fmt.Sprintf(`doc #> $%d IS NOT NULL`, len(args)))
	}
	for _, p := range q.Missing {
		args = append(args, splitPath(p))
		conds = append(conds, fmt.Sprintf(`doc #> $%d IS NULL`, len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}
