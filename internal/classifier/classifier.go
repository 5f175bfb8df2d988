// Package classifier loads the trained lead temperature model and exposes
// it behind a single interface with a loaded and an unavailable variant.
package classifier

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscore/internal/features"
)

// ErrModelNotLoaded is returned by every call on an unavailable classifier.
var ErrModelNotLoaded = eris.New("classifier: model not loaded")

// Classifier predicts a temperature label from a feature vector.
// Implementations are safe for concurrent use.
type Classifier interface {
	Predict(v features.Vector) (string, error)
	PredictProba(v features.Vector) (map[string]float64, error)
	Metadata() Metadata
	Loaded() bool
}

// Open loads the model at modelPath with its metadata. Any failure is logged
// and yields an Unavailable classifier so the caller can keep serving.
func Open(modelPath, metadataPath string) Classifier {
	m, err := Load(modelPath, metadataPath)
	if err != nil {
		zap.L().Warn("classifier: model unavailable, predictions disabled",
			zap.String("model_path", modelPath),
			zap.String("metadata_path", metadataPath),
			zap.Error(err),
		)
		return Unavailable{Reason: err.Error()}
	}
	md := m.Metadata()
	zap.L().Info("classifier: model loaded",
		zap.String("model_path", modelPath),
		zap.String("training_date", md.TrainingDate),
		zap.Float64("accuracy", md.Performance.Accuracy),
		zap.Int("features", len(md.FeatureColumns)),
	)
	return m
}

// Unavailable is the classifier used when no model could be loaded.
type Unavailable struct {
	Reason string
}

func (Unavailable) Predict(features.Vector) (string, error) {
	return "", ErrModelNotLoaded
}

func (Unavailable) PredictProba(features.Vector) (map[string]float64, error) {
	return nil, ErrModelNotLoaded
}

func (Unavailable) Metadata() Metadata { return Metadata{} }

func (Unavailable) Loaded() bool { return false }
