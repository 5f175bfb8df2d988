// Package stats reports prediction coverage and temperature distribution
// across stored leads.
package stats

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

const (
	temperaturePath = "ml_prediction.predicted_temperature"
	confidencePath  = "ml_prediction.confidence"
)

// Aggregator computes Stats from a store.
type Aggregator struct {
	store store.Store
	now   func() time.Time
}

// New returns an Aggregator over st.
func New(st store.Store) *Aggregator {
	return &Aggregator{store: st, now: time.Now}
}

// Stats counts all leads and the leads holding a usable prediction, and
// groups the latter by temperature. Coverage is 0 for an empty store.
func (a *Aggregator) Stats(ctx context.Context) (model.Stats, error) {
	total, err := a.store.Count(ctx, store.Query{})
	if err != nil {
		return model.Stats{}, eris.Wrap(err, "stats: count leads")
	}
	predicted, err := a.store.Count(ctx, store.Query{Exists: []string{temperaturePath}})
	if err != nil {
		return model.Stats{}, eris.Wrap(err, "stats: count predictions")
	}
	groups, err := a.store.Aggregate(ctx, temperaturePath, confidencePath)
	if err != nil {
		return model.Stats{}, eris.Wrap(err, "stats: temperature distribution")
	}

	dist := make([]model.TemperatureBucket, 0, len(groups))
	for _, g := range groups {
		t, ok := model.ParseTemperature(g.Key)
		if !ok {
			continue
		}
		dist = append(dist, model.TemperatureBucket{
			Temperature:   t,
			Count:         g.Count,
			AvgConfidence: g.Avg,
		})
	}

	return model.Stats{
		TotalLeads:         total,
		TotalPredictions:   predicted,
		CoveragePercentage: Coverage(predicted, total),
		Distribution:       dist,
		LastUpdated:        a.now().UTC(),
	}, nil
}

// Coverage returns predicted as a percentage of total.
func Coverage(predicted, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(predicted) / float64(total) * 100
}
