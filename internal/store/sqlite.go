package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Documents are
// stored as JSON text and merged in Go inside a transaction.
type SQLiteStore struct {
	db *sql.DB
}

// sortable timestamp layout; fixed width so text order matches time order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection serializes writers so the read-merge-write upsert
	// cannot interleave with another upsert for the same identity.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	unique_id    TEXT PRIMARY KEY,
	identity_key TEXT NOT NULL UNIQUE,
	doc          TEXT NOT NULL,
	revision     INTEGER NOT NULL DEFAULT 1,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindOne(ctx context.Context, q Query) (model.Lead, error) {
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

func (s *SQLiteStore) Find(ctx context.Context, q Query) ([]model.Lead, error) {
	where, args := sqliteWhere(q)
	query := `SELECT doc FROM leads` + where
	if q.Oldest {
		query += ` ORDER BY created_at ASC, rowid ASC`
	} else {
		query += ` ORDER BY updated_at DESC, rowid DESC`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find leads")
	}
	defer rows.Close() //nolint:errcheck

	var leads []model.Lead
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		var lead model.Lead
		if err := json.Unmarshal([]byte(raw), &lead); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal lead")
		}
		leads = append(leads, lead)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) Count(ctx context.Context, q Query) (int, error) {
	where, args := sqliteWhere(q)
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM leads`+where, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count leads")
	}
	return n, nil
}

func (s *SQLiteStore) Aggregate(ctx context.Context, groupBy, average string) ([]Group, error) {
	keyPath := jsonPath(groupBy)
	avgExpr := `0.0`
	args := []any{keyPath}
	if average != "" {
		avgExpr = `COALESCE(avg(json_extract(doc, ?)), 0.0)`
		args = append(args, jsonPath(average))
	}
	args = append(args, keyPath)

	query := fmt.Sprintf(
		`SELECT json_extract(doc, ?) AS k, count(*), %s FROM leads WHERE json_extract(doc, ?) IS NOT NULL GROUP BY k ORDER BY k`,
		avgExpr,
	)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: aggregate by %s", groupBy)
	}
	defer rows.Close() //nolint:errcheck

	var groups []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.Key, &g.Count, &g.Avg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan group")
		}
		groups = append(groups, g)
	}
	return groups, eris.Wrap(rows.Err(), "sqlite: iterate groups")
}

func (s *SQLiteStore) Upsert(ctx context.Context, f identity.Filter, doc model.Lead) (UpsertResult, error) {
	if err := validateDoc(f, doc); err != nil {
		return UpsertResult{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := upsertTx(ctx, tx, f.Key(), doc)
	if err != nil {
		return UpsertResult{}, err
	}
	return res, eris.Wrap(tx.Commit(), "sqlite: commit upsert")
}

// BulkUpsert applies all ops in one transaction. A failing op is rolled
// back to its savepoint and counted without aborting the batch.
func (s *SQLiteStore) BulkUpsert(ctx context.Context, ops []Op) (BulkResult, error) {
	var result BulkResult
	if len(ops) == 0 {
		return result, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, op := range ops {
		if err := validateDoc(op.Filter, op.Doc); err != nil {
			zap.L().Warn("sqlite: skipping invalid lead", zap.Error(err))
			result.Failed++
			continue
		}
		if _, err := tx.ExecContext(ctx, `SAVEPOINT lead_op`); err != nil {
			return BulkResult{}, eris.Wrap(err, "sqlite: savepoint")
		}
		res, err := upsertTx(ctx, tx, op.Filter.Key(), op.Doc)
		if err != nil {
			zap.L().Error("sqlite: upsert lead failed", zap.String("unique_id", op.Doc.UniqueID()), zap.Error(err))
			if _, rbErr := tx.ExecContext(ctx, `ROLLBACK TO lead_op`); rbErr != nil {
				return BulkResult{}, eris.Wrap(rbErr, "sqlite: rollback to savepoint")
			}
			result.Failed++
			continue
		}
		if _, err := tx.ExecContext(ctx, `RELEASE lead_op`); err != nil {
			return BulkResult{}, eris.Wrap(err, "sqlite: release savepoint")
		}
		result.add(res.Inserted)
	}

	if err := tx.Commit(); err != nil {
		return BulkResult{}, eris.Wrap(err, "sqlite: commit bulk upsert")
	}
	return result, nil
}

// upsertTx finds the lead by identity key and either inserts doc or
// shallow-merges it over the stored document, keeping the stored unique_id.
func upsertTx(ctx context.Context, tx *sql.Tx, key string, doc model.Lead) (UpsertResult, error) {
	now := time.Now().UTC().Format(sqliteTimeLayout)

	var id, raw string
	err := tx.QueryRowContext(ctx, `SELECT unique_id, doc FROM leads WHERE identity_key = ?`, key).Scan(&id, &raw)
	if err == sql.ErrNoRows {
		body, err := json.Marshal(doc)
		if err != nil {
			return UpsertResult{}, eris.Wrap(err, "sqlite: marshal lead")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leads (unique_id, identity_key, doc, revision, created_at, updated_at) VALUES (?, ?, ?, 1, ?, ?)`,
			doc.UniqueID(), key, string(body), now, now,
		)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "sqlite: insert lead %s", doc.UniqueID())
		}
		return UpsertResult{UniqueID: doc.UniqueID(), Inserted: true}, nil
	}
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "sqlite: find lead by identity")
	}

	var cur model.Lead
	if err := json.Unmarshal([]byte(raw), &cur); err != nil {
		return UpsertResult{}, eris.Wrapf(err, "sqlite: unmarshal lead %s", id)
	}
	if cur == nil {
		cur = model.Lead{}
	}
	for k, v := range doc {
		cur[k] = v
	}
	cur[model.FieldUniqueID] = id

	body, err := json.Marshal(cur)
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "sqlite: marshal lead")
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE leads SET doc = ?, revision = revision + 1, updated_at = ? WHERE unique_id = ?`,
		string(body), now, id,
	)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	return UpsertResult{UniqueID: id, Inserted: false}, nil
}

// jsonPath converts a dotted document path to a SQLite JSON path.
func jsonPath(path string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, part := range splitPath(path) {
		b.WriteString(`."`)
		b.WriteString(part)
		b.WriteString(`"`)
	}
	return b.String()
}

func sqliteWhere(q Query) (string, []any) {
	var conds []string
	var args []any

	keys := make([]string, 0, len(q.Match))
	for k := range q.Match {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if k == model.FieldUniqueID {
			conds = append(conds, `unique_id = ?`)
			args = append(args, q.Match[k])
			continue
		}
		conds = append(conds, `CAST(json_extract(doc, ?) AS TEXT) = ?`)
		args = append(args, jsonPath(k), q.Match[k])
	}
	for _, p := range q.Exists {
		conds = append(conds, `json_type(doc, ?) IS NOT NULL`)
		args = append(args, jsonPath(p))
	}
	for _, p := range q.Missing {
		conds = append(conds, `json_type(doc, ?) IS NULL`)
		args = append(args, jsonPath(p))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(conds, ` AND `), args
}
