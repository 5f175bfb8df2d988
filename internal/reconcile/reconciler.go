package reconcile

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/metrics"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/prediction"
	"github.com/sells-group/leadscore/internal/store"
)

const (
	// DefaultSource tags leads synced from the lead spreadsheet.
	DefaultSource = "google_sheets"
	// SchemaVersion is stamped on every synced lead.
	SchemaVersion = "2.0"
)

// Field defaults stamped on every synced row that lacks them.
var rowDefaults = []struct{ field, value string }{
	{"interview_status", "New"},
	{"availability", "Unknown"},
}

// requiredFields are logged when a source is missing them entirely.
var requiredFields = []string{"full_name", "email", "applied_position"}

// Predictor runs batch prediction over stored leads lacking one. Ready
// reports whether a model is loaded; without one, new leads are left
// unscored so a later batch can pick them up.
type Predictor interface {
	Batch(ctx context.Context, limit int) (prediction.BatchResult, error)
	Ready() bool
}

// Reconciler upserts source rows into the store, one lead per contact
// identity, and scores newly inserted leads.
type Reconciler struct {
	store     store.Store
	predictor Predictor
	source    string
	now       func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSource sets the _source tag; empty keeps DefaultSource.
func WithSource(source string) Option {
	return func(r *Reconciler) {
		if source != "" {
			r.source = source
		}
	}
}

// WithPredictor enables prediction of newly inserted leads.
func WithPredictor(p Predictor) Option {
	return func(r *Reconciler) { r.predictor = p }
}

// WithClock overrides the time source for _synced_at.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New returns a Reconciler writing to st.
func New(st store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{store: st, source: DefaultSource, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare normalizes a row into a lead ready to upsert. It returns false
// when the row has no contact identity.
func (r *Reconciler) Prepare(row model.Row, syncedAt time.Time) (store.Op, bool) {
	rec := NormalizeRow(row)
	filter, ok := identity.FilterFor(rec)
	if !ok {
		return store.Op{}, false
	}

	rec[model.FieldSyncedAt] = syncedAt.UTC().Format(time.RFC3339)
	rec[model.FieldSource] = r.source
	rec[model.FieldSchemaVersion] = SchemaVersion
	for _, d := range rowDefaults {
		if _, ok := rec[d.field]; !ok {
			rec[d.field] = d.value
		}
	}
	if !rec.Has(model.FieldUniqueID) {
		rec[model.FieldUniqueID] = identity.Resolve(rec)
	}
	return store.Op{Filter: filter, Doc: rec}, true
}

// Reconcile upserts rows and predicts exactly as many leads as were
// inserted. Rows are independent: a row without contact identity is
// skipped and a failed write is counted, neither stops the run.
func (r *Reconciler) Reconcile(ctx context.Context, rows []model.Row) (model.SyncResult, error) {
	result := model.SyncResult{Fetched: len(rows)}
	if len(rows) == 0 {
		zap.L().Info("reconcile: no rows to sync", zap.String("source", r.source))
		return result, nil
	}
	r.checkColumns(rows)

	syncedAt := r.now()
	ops := make([]store.Op, 0, len(rows))
	for i, row := range rows {
		op, ok := r.Prepare(row, syncedAt)
		if !ok {
			result.Skipped++
			zap.L().Warn("reconcile: skipped row without contact identity",
				zap.String("source", r.source),
				zap.Int("row", i+1),
			)
			continue
		}
		ops = append(ops, op)
	}

	if len(ops) > 0 {
		bulk, err := r.store.BulkUpsert(ctx, ops)
		if err != nil {
			return result, err
		}
		result.Inserted = bulk.Inserted
		result.Updated = bulk.Updated
		result.Failed = bulk.Failed
	}
	r.observe(result)
	zap.L().Info("reconcile: rows synced",
		zap.String("source", r.source),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	if r.predictor != nil && result.Inserted > 0 && !r.predictor.Ready() {
		zap.L().Warn("reconcile: model not loaded, new leads left unscored",
			zap.String("source", r.source),
			zap.Int("inserted", result.Inserted),
		)
	} else if r.predictor != nil && result.Inserted > 0 {
		batch, err := r.predictor.Batch(ctx, result.Inserted)
		if err != nil {
			zap.L().Warn("reconcile: prediction of new leads failed", zap.Error(err))
		}
		result.Predicted = batch.Predicted
	}
	return result, nil
}

func (r *Reconciler) checkColumns(rows []model.Row) {
	seen := make(map[string]bool)
	for _, row := range rows {
		for h := range row {
			seen[NormalizeHeader(h)] = true
		}
	}
	var missing []string
	for _, f := range requiredFields {
		if !seen[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		zap.L().Warn("reconcile: source is missing expected columns",
			zap.String("source", r.source),
			zap.Strings("missing", missing),
		)
	}
}

func (r *Reconciler) observe(res model.SyncResult) {
	metrics.SyncRows.WithLabelValues(r.source, "inserted").Add(float64(res.Inserted))
	metrics.SyncRows.WithLabelValues(r.source, "updated").Add(float64(res.Updated))
	metrics.SyncRows.WithLabelValues(r.source, "skipped").Add(float64(res.Skipped))
	metrics.SyncRows.WithLabelValues(r.source, "failed").Add(float64(res.Failed))
}
