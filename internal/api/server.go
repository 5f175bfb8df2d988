// Package api exposes prediction, lead lookup, stats and sync over HTTP.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/classifier"
	"github.com/sells-group/leadscore/internal/metrics"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/prediction"
	"github.com/sells-group/leadscore/internal/store"
)

// Predictor scores and persists leads.
type Predictor interface {
	Process(ctx context.Context, rec model.Lead) (prediction.Result, error)
	Batch(ctx context.Context, limit int) (prediction.BatchResult, error)
	Classifier() classifier.Classifier
}

// StatsProvider reports prediction coverage.
type StatsProvider interface {
	Stats(ctx context.Context) (model.Stats, error)
}

// Syncer runs one sync job.
type Syncer interface {
	Run(ctx context.Context) (model.SyncSummary, error)
}

// Query limits.
const (
	defaultListLimit  = 20
	maxListLimit      = 100
	defaultBatchLimit = 50
	maxBatchLimit     = 200
)

// Server holds the API dependencies.
type Server struct {
	store       store.Store
	predictor   Predictor
	stats       StatsProvider
	syncer      Syncer
	corsOrigins []string
	batchLimit  int
}

// Option configures a Server.
type Option func(*Server)

// WithSyncer enables POST /api/sync.
func WithSyncer(s Syncer) Option {
	return func(srv *Server) { srv.syncer = s }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(srv *Server) { srv.corsOrigins = origins }
}

// WithDefaultBatchLimit sets the batch size used when the request has no
// limit parameter.
func WithDefaultBatchLimit(n int) Option {
	return func(srv *Server) {
		if n > 0 && n <= maxBatchLimit {
			srv.batchLimit = n
		}
	}
}

// New returns a Server.
func New(st store.Store, p Predictor, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		store:       st,
		predictor:   p,
		stats:       stats,
		corsOrigins: []string{"*"},
		batchLimit:  defaultBatchLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", s.handlePredict)
		r.Post("/batch-predict", s.handleBatchPredict)
		r.Post("/sync", s.handleSync)
		r.Get("/stats", s.handleStats)
		r.Get("/model", s.handleModel)
		r.Get("/leads", s.handleLeads)
		r.Get("/leads/temperature/{temperature}", s.handleLeadsByTemperature)
		r.Get("/leads/{uniqueID}", s.handleLead)
	})
	return r
}

// instrument logs each request and records it in the HTTP metrics under
// its route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
