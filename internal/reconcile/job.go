package reconcile

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/metrics"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/stats"
)

// Source produces rows from a tabular lead source.
type Source interface {
	Name() string
	FetchRows(ctx context.Context) ([]model.Row, error)
}

// Locker guards a sync run against concurrent runs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

const lockKey = "leadscore:sync"

// Job is one full sync: fetch rows, reconcile them, and summarize the
// resulting temperature distribution.
type Job struct {
	source     Source
	reconciler *Reconciler
	stats      *stats.Aggregator
	locker     Locker
	lockTTL    time.Duration
}

// JobOption configures a Job.
type JobOption func(*Job)

// WithLock makes the job hold a lock for the duration of the run.
func WithLock(l Locker, ttl time.Duration) JobOption {
	return func(j *Job) {
		j.locker = l
		j.lockTTL = ttl
	}
}

// NewJob returns a Job syncing src through r.
func NewJob(src Source, r *Reconciler, agg *stats.Aggregator, opts ...JobOption) *Job {
	j := &Job{source: src, reconciler: r, stats: agg, lockTTL: 10 * time.Minute}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Run executes the job and returns its summary.
func (j *Job) Run(ctx context.Context) (model.SyncSummary, error) {
	summary := model.SyncSummary{Source: j.source.Name(), Started: time.Now().UTC()}
	log := zap.L().With(zap.String("source", summary.Source))

	if j.locker != nil {
		release, err := j.locker.Acquire(ctx, lockKey, j.lockTTL)
		if err != nil {
			return summary, eris.Wrap(err, "reconcile: acquire sync lock")
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("reconcile: release sync lock", zap.Error(err))
			}
		}()
	}

	log.Info("reconcile: sync started")
	rows, err := j.source.FetchRows(ctx)
	if err != nil {
		return summary, eris.Wrapf(err, "reconcile: fetch rows from %s", summary.Source)
	}

	res, err := j.reconciler.Reconcile(ctx, rows)
	summary.Result = res
	if err != nil {
		return summary, eris.Wrap(err, "reconcile: reconcile rows")
	}

	if j.stats != nil {
		st, err := j.stats.Stats(ctx)
		if err != nil {
			log.Warn("reconcile: stats snapshot failed", zap.Error(err))
		} else {
			summary.Hot = st.Count(model.TemperatureHot)
			summary.Warm = st.Count(model.TemperatureWarm)
			summary.Cold = st.Count(model.TemperatureCold)
			summary.Coverage = st.CoveragePercentage
		}
	}

	summary.Duration = time.Since(summary.Started)
	metrics.SyncDuration.WithLabelValues(summary.Source).Observe(summary.Duration.Seconds())
	log.Info("reconcile: sync complete",
		zap.Int("fetched", res.Fetched),
		zap.Int("inserted", res.Inserted),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int("predicted", res.Predicted),
		zap.Int("hot", summary.Hot),
		zap.Int("warm", summary.Warm),
		zap.Int("cold", summary.Cold),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}
