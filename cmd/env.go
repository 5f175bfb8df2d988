package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/classifier"
	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/features"
	"github.com/sells-group/leadscore/internal/fetcher"
	"github.com/sells-group/leadscore/internal/lock"
	"github.com/sells-group/leadscore/internal/metrics"
	"github.com/sells-group/leadscore/internal/prediction"
	"github.com/sells-group/leadscore/internal/reconcile"
	"github.com/sells-group/leadscore/internal/resilience"
	"github.com/sells-group/leadscore/internal/source"
	"github.com/sells-group/leadscore/internal/stats"
	"github.com/sells-group/leadscore/internal/store"
	"github.com/sells-group/leadscore/pkg/notion"
	"github.com/sells-group/leadscore/pkg/salesforce"
	"github.com/sells-group/leadscore/pkg/sheets"
)

// appEnv holds the store, classifier and services shared by commands.
type appEnv struct {
	Store     store.Store
	Predictor *prediction.Service
	Stats     *stats.Aggregator
	Locker    *lock.Redis // nil unless sync.lock is set
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Locker != nil {
		_ = e.Locker.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func storeOptions(c *config.Config) store.Options {
	retry := resilience.DefaultRetryConfig()
	if c.Store.RetryAttempts > 0 {
		retry.MaxAttempts = c.Store.RetryAttempts
	}
	return store.Options{
		Driver:  c.Store.Driver,
		DSN:     c.Store.DatabaseURL,
		Pool:    &store.PoolConfig{MaxConns: c.Store.MaxConns, MinConns: c.Store.MinConns},
		Migrate: c.Store.Migrate,
		Retry:   retry,
	}
}

// initEnv validates the config for mode and wires the services. With
// degrade set, an unreachable database yields the degraded store instead
// of an error.
func initEnv(ctx context.Context, mode string, degrade bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	var st store.Store
	if degrade {
		st = store.Open(ctx, storeOptions(cfg))
	} else {
		s, err := store.Connect(ctx, storeOptions(cfg))
		if err != nil {
			return nil, err
		}
		st = s
	}

	svc, err := newPredictor(st, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	env := &appEnv{Store: st, Predictor: svc, Stats: stats.New(st)}
	if mode == config.ModeSync && cfg.Sync.Lock {
		env.Locker = lock.New(lock.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}
	return env, nil
}

// newPredictor loads the classifier and feature table. A missing model
// leaves the service running with the unavailable classifier.
func newPredictor(st store.Store, c *config.Config) (*prediction.Service, error) {
	clf := classifier.Open(c.Model.Path, c.Model.MetadataPath)
	metrics.SetModelLoaded(clf.Loaded())

	table := features.DefaultTable()
	if c.Model.MappingPath != "" {
		t, err := features.LoadTable(c.Model.MappingPath)
		if err != nil {
			return nil, eris.Wrap(err, "load feature mapping")
		}
		table = t
	}
	mapper, err := features.NewMapper(table, features.WithNumericFeatures(clf.Metadata().NumericColumns))
	if err != nil {
		return nil, eris.Wrap(err, "build feature mapper")
	}

	zap.L().Info("classifier ready",
		zap.Bool("loaded", clf.Loaded()),
		zap.String("version", clf.Metadata().Version()),
	)
	return prediction.NewService(st, clf, mapper, prediction.WithConcurrency(c.Batch.Concurrency)), nil
}

// newSource builds the row source selected by source.kind.
func newSource(c *config.Config) (reconcile.Source, error) {
	switch c.Source.Kind {
	case config.SourceSheets:
		opts := []sheets.Option{
			sheets.WithBaseURL(c.Sheets.BaseURL),
			sheets.WithRateLimit(c.Sheets.RateLimit),
		}
		if c.Sheets.AccessToken != "" {
			opts = append(opts, sheets.WithAccessToken(c.Sheets.AccessToken))
		}
		client := sheets.NewClient(c.Sheets.APIKey, opts...)
		return source.NewSheets(client, c.Sheets.SpreadsheetID, c.Sheets.Range), nil
	case config.SourceCSV:
		var delim rune
		if r := []rune(c.Source.Delimiter); len(r) == 1 {
			delim = r[0]
		}
		return source.NewCSV(fetcher.NewOpener(), c.Source.Location, fetcher.CSVOptions{Delimiter: delim, TrimSpace: true}), nil
	case config.SourceXLSX:
		return source.NewXLSX(fetcher.NewOpener(), c.Source.Location, fetcher.XLSXOptions{SheetName: c.Source.Sheet}), nil
	case config.SourceNotion:
		client := notion.NewClient(c.Notion.Token)
		return source.NewNotion(client, c.Notion.LeadDB, c.Notion.Status), nil
	case config.SourceSalesforce:
		client, err := salesforce.Connect(salesforce.Creds{
			LoginURL: c.Salesforce.LoginURL,
			ClientID: c.Salesforce.ClientID,
			Username: c.Salesforce.Username,
			KeyPath:  c.Salesforce.KeyPath,
		}, salesforce.WithRateLimit(c.Salesforce.RateLimit))
		if err != nil {
			return nil, err
		}
		return source.NewSalesforce(client, c.Salesforce.LeadWhere, c.Salesforce.LeadLimit), nil
	default:
		return nil, eris.Errorf("unknown source kind %q", c.Source.Kind)
	}
}

// newSyncJob wires a sync job over the configured source.
func newSyncJob(env *appEnv, c *config.Config) (*reconcile.Job, error) {
	src, err := newSource(c)
	if err != nil {
		return nil, err
	}

	tag := c.Sync.SourceTag
	if tag == "" {
		tag = src.Name()
	}
	ropts := []reconcile.Option{reconcile.WithSource(tag)}
	if c.Sync.PredictAfterSync {
		ropts = append(ropts, reconcile.WithPredictor(env.Predictor))
	}

	var jopts []reconcile.JobOption
	if env.Locker != nil {
		jopts = append(jopts, reconcile.WithLock(env.Locker, time.Duration(c.Sync.LockTTLSecs)*time.Second))
	}
	return reconcile.NewJob(src, reconcile.New(env.Store, ropts...), env.Stats, jopts...), nil
}
