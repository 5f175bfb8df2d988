package prediction

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscore/internal/model"
	"github.com/sells-group/leadscore/internal/store"
)

// BatchResult counts the outcome of a batch run.
type BatchResult struct {
	Found     int `json:"found"`
	Processed int `json:"processed"`
	Predicted int `json:"predicted"`
	Failed    int `json:"failed"`
}

// Batch processes up to limit stored leads that have no prediction yet,
// oldest first. Leads are independent; one failing lead never stops the
// others. Only context cancellation is returned as an error.
func (s *Service) Batch(ctx context.Context, limit int) (BatchResult, error) {
	if limit <= 0 {
		return BatchResult{}, nil
	}

	leads, err := s.store.Find(ctx, store.Query{
		Missing: []string{model.FieldPrediction},
		Oldest:  true,
		Limit:   limit,
	})
	if err != nil {
		return BatchResult{}, err
	}
	zap.L().Info("prediction: batch started", zap.Int("leads", len(leads)), zap.Int("limit", limit))

	var processed, predicted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, lead := range leads {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.Process(gctx, lead)
			if err != nil || !res.Persisted {
				failed.Add(1)
				return nil
			}
			processed.Add(1)
			if res.Prediction.OK() {
				predicted.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	result := BatchResult{
		Found:     len(leads),
		Processed: int(processed.Load()),
		Predicted: int(predicted.Load()),
		Failed:    int(failed.Load()),
	}
	zap.L().Info("prediction: batch complete",
		zap.Int("found", result.Found),
		zap.Int("processed", result.Processed),
		zap.Int("predicted", result.Predicted),
		zap.Int("failed", result.Failed),
	)
	if err == nil {
		err = ctx.Err()
	}
	return result, err
}
