package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/resilience"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures Open.
type Options struct {
	Driver  string
	DSN     string
	Pool    *PoolConfig
	Migrate bool
	Retry   resilience.RetryConfig
}

// Connect opens the configured backend, retrying connection failures.
func Connect(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}

	retry := opts.Retry
	if retry.MaxAttempts == 0 {
		retry = resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Multiplier:     2.0,
		}
	}
	retry.ShouldRetry = func(error) bool { return ctx.Err() == nil }
	retry.OnRetry = resilience.RetryLogger(opts.Driver, "connect")

	s, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (Store, error) {
		switch opts.Driver {
		case DriverPostgres:
			return NewPostgres(ctx, opts.DSN, opts.Pool)
		default:
			st, err := NewSQLite(opts.DSN)
			if err != nil {
				return nil, err
			}
			if err := st.Ping(ctx); err != nil {
				st.Close() //nolint:errcheck
				return nil, err
			}
			return st, nil
		}
	})
	if err != nil {
		return nil, err
	}

	if opts.Migrate {
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, err
		}
	}
	return s, nil
}

// Open is Connect that never fails: on error it logs and returns the
// degraded Unavailable store so the process can still serve predictions.
func Open(ctx context.Context, opts Options) Store {
	s, err := Connect(ctx, opts)
	if err != nil {
		zap.L().Error("store: database unavailable, running without persistence",
			zap.String("driver", opts.Driver),
			zap.Error(err),
		)
		return &Unavailable{Reason: err}
	}
	zap.L().Info("store: connected", zap.String("driver", opts.Driver))
	return s
}
