// Package prediction scores leads with the temperature classifier and
// persists the enriched records.
package prediction

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/classifier"
	"github.com/sells-group/leadscore/internal/features"
	"github.com/sells-group/leadscore/internal/identity"
	"github.com/sells-group/leadscore/internal/metrics"
	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

const defaultConcurrency = 4

// Service combines the identity resolver, feature mapper and classifier.
// It is safe for concurrent use.
type Service struct {
	store       store.Store
	clf         classifier.Classifier
	mapper      *features.Mapper
	concurrency int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithConcurrency bounds the number of leads processed at once in Batch.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a Service. A nil mapper makes every prediction fail
// with the mapping marker.
func NewService(st store.Store, clf classifier.Classifier, mapper *features.Mapper, opts ...Option) *Service {
	if clf == nil {
		clf = classifier.Unavailable{Reason: "no classifier configured"}
	}
	s := &Service{
		store:       st,
		clf:         clf,
		mapper:      mapper,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.SetModelLoaded(clf.Loaded())
	return s
}

// Classifier returns the classifier the service predicts with.
func (s *Service) Classifier() classifier.Classifier { return s.clf }

// Ready reports whether the classifier is loaded.
func (s *Service) Ready() bool { return s.clf.Loaded() }

// Result is the outcome of processing one lead.
type Result struct {
	UniqueID   string
	Lead       model.Lead
	Prediction model.Prediction
	Persisted  bool
}

// Output returns the API representation of the result.
func (r Result) Output() model.PredictionOutput {
	return model.PredictionOutput{
		UniqueID:             r.UniqueID,
		PredictedTemperature: r.Prediction.PredictedTemperature,
		Confidence:           r.Prediction.Confidence,
		Probabilities:        r.Prediction.Probabilities,
		ModelVersion:         r.Prediction.ModelVersion,
		PredictionTimestamp:  r.Prediction.PredictionTimestamp,
		Error:                r.Prediction.Error,
		Persisted:            r.Persisted,
	}
}

// Predict scores rec without touching storage. Failures are reported as
// markers on the returned prediction, never as errors.
func (s *Service) Predict(rec model.Lead) model.Prediction {
	if !s.clf.Loaded() {
		return model.Prediction{Error: model.ErrMarkerModelNotLoaded}
	}

	md := s.clf.Metadata()
	vec, err := s.mapper.Map(rec, md.FeatureColumns)
	if err != nil {
		zap.L().Warn("prediction: feature mapping failed", zap.Error(err))
		return model.Prediction{Error: model.ErrMarkerMapping}
	}

	label, err := s.clf.Predict(vec)
	if err != nil {
		return model.Prediction{Error: predictError(err)}
	}
	probs, err := s.clf.PredictProba(vec)
	if err != nil {
		return model.Prediction{Error: predictError(err)}
	}

	confidence := 0.0
	for _, p := range probs {
		confidence = math.Max(confidence, p)
	}
	return model.Prediction{
		PredictedTemperature: model.Temperature(label),
		Confidence:           confidence,
		Probabilities:        probs,
		ModelVersion:         md.Version(),
		PredictionTimestamp:  s.now().UTC().Format(time.RFC3339),
	}
}

func predictError(err error) string {
	if eris.Is(err, classifier.ErrModelNotLoaded) {
		return model.ErrMarkerModelNotLoaded
	}
	return err.Error()
}

// Process scores rec, merges the prediction into it and upserts it keyed by
// contact identity. A lead without contact identity is scored but not
// stored. A storage failure is returned alongside the scored result.
func (s *Service) Process(ctx context.Context, rec model.Lead) (Result, error) {
	start := time.Now()
	defer func() { metrics.PredictionDuration.Observe(time.Since(start).Seconds()) }()

	uid := rec.UniqueID()
	if uid == "" {
		uid = identity.Resolve(rec)
	}

	pred := s.Predict(rec)
	observe(pred)

	enriched := rec.Clone()
	enriched[model.FieldUniqueID] = uid
	enriched[model.FieldPrediction] = pred.Document()
	enriched[model.FieldProcessedAt] = s.now().UTC().Format(time.RFC3339)
	enriched[model.FieldMLEnabled] = true

	res := Result{UniqueID: uid, Lead: enriched, Prediction: pred}

	filter, ok := identity.FilterFor(enriched)
	if !ok {
		zap.L().Warn("prediction: lead has no contact identity, not persisted",
			zap.String("unique_id", uid),
		)
		return res, nil
	}

	up, err := s.store.Upsert(ctx, filter, enriched)
	if err != nil {
		metrics.Predictions.WithLabelValues(metrics.OutcomeStoreFail).Inc()
		zap.L().Warn("prediction: could not save lead",
			zap.String("unique_id", uid),
			zap.Error(err),
		)
		return res, err
	}

	res.UniqueID = up.UniqueID
	res.Lead[model.FieldUniqueID] = up.UniqueID
	res.Persisted = true
	zap.L().Debug("prediction: lead saved",
		zap.String("unique_id", up.UniqueID),
		zap.Bool("inserted", up.Inserted),
		zap.String("temperature", string(pred.PredictedTemperature)),
	)
	return res, nil
}

func observe(p model.Prediction) {
	switch {
	case p.OK():
		metrics.Predictions.WithLabelValues(metrics.OutcomeOK).Inc()
		metrics.PredictionsByTemperature.WithLabelValues(string(p.PredictedTemperature)).Inc()
	case p.Error == model.ErrMarkerModelNotLoaded:
		metrics.Predictions.WithLabelValues(metrics.OutcomeNoModel).Inc()
	default:
		metrics.Predictions.WithLabelValues(metrics.OutcomeMapping).Inc()
	}
}
