package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// DocumentTable describes a JSONB document table with an opaque ID column
// and a unique key column used as the upsert conflict target.
type DocumentTable struct {
	Table     string // target table (e.g., "leads" or "crm.leads")
	IDColumn  string // stable document ID, preserved across updates
	KeyColumn string // unique conflict key
	DocColumn string // JSONB body
}

// Document is one row to upsert.
type Document struct {
	ID   string
	Key  string
	Body []byte
}

// UpsertResult reports the stored ID and whether the row was newly inserted.
type UpsertResult struct {
	ID       string
	Inserted bool
}

func (t DocumentTable) validate() error {
	if t.Table == "" {
		return eris.New("db: upsert: no table specified")
	}
	if t.IDColumn == "" || t.KeyColumn == "" || t.DocColumn == "" {
		return eris.New("db: upsert: id, key and doc columns are required")
	}
	return nil
}

// UpsertSQL builds the single-statement find-or-create for the table.
// On conflict the incoming document is shallow-merged over the stored one,
// the stored ID wins, and revision is bumped; revision 1 means inserted.
func (t DocumentTable) UpsertSQL() string {
	id := pgx.Identifier{t.IDColumn}.Sanitize()
	doc := pgx.Identifier{t.DocColumn}.Sanitize()
	cols := quoteAndJoin([]string{t.IDColumn, t.KeyColumn, t.DocColumn, "revision", "created_at", "updated_at"})

	return fmt.Sprintf(
		`INSERT INTO %s AS cur (%s) VALUES ($1, $2, $3, 1, now(), now()) `+
			`ON CONFLICT (%s) DO UPDATE SET `+
			`%s = cur.%s || EXCLUDED.%s || jsonb_build_object(%s, cur.%s), `+
			`revision = cur.revision + 1, updated_at = now() `+
			`RETURNING %s, revision = 1`,
		sanitizeTable(t.Table), cols,
		pgx.Identifier{t.KeyColumn}.Sanitize(),
		doc, doc, doc, quoteLiteral(t.IDColumn), id,
		id,
	)
}

// UpsertDocument runs the upsert for one document.
func UpsertDocument(ctx context.Context, q Querier, t DocumentTable, d Document) (UpsertResult, error) {
	if err := t.validate(); err != nil {
		return UpsertResult{}, err
	}
	if d.Key == "" {
		return UpsertResult{}, eris.New("db: upsert: empty conflict key")
	}

	var res UpsertResult
	err := q.QueryRow(ctx, t.UpsertSQL(), d.ID, d.Key, d.Body).Scan(&res.ID, &res.Inserted)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "db: upsert into %s", t.Table)
	}
	return res, nil
}

// UpsertDocuments upserts all documents in one transaction. Any failure
// rolls the whole batch back and is returned to the caller.
func UpsertDocuments(ctx context.Context, pool Pool, t DocumentTable, docs []Document) ([]UpsertResult, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if err := t.validate(); err != nil {
		return nil, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	results := make([]UpsertResult, 0, len(docs))
	for i, d := range docs {
		res, err := UpsertDocument(ctx, tx, t, d)
		if err != nil {
			return nil, eris.Wrapf(err, "db: upsert: document %d", i)
		}
		results = append(results, res)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "db: upsert: commit tx")
	}
	return results, nil
}

// sanitizeTable handles schema-qualified table names like "crm.leads".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
