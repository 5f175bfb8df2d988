package classifier

import (
	"encoding/json"
	"math"
	"os"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscore/internal/features"
	"github.com/sells-group/leadscore/internal/model"
)

// FormatLogistic is the artifact format written by the training export.
const FormatLogistic = "multinomial-logistic/v1"

// Artifact is the JSON export of a trained one-hot + standard-scaler +
// multinomial logistic regression pipeline. Weight slices are indexed by
// class in Classes order.
type Artifact struct {
	Format      string                          `json:"format"`
	Classes     []string                        `json:"classes"`
	Intercepts  []float64                       `json:"intercepts"`
	Numeric     map[string]NumericTerm          `json:"numeric"`
	Categorical map[string]map[string][]float64 `json:"categorical"`
}

// NumericTerm standardizes one numeric feature and weights it per class.
type NumericTerm struct {
	Mean    float64   `json:"mean"`
	Scale   float64   `json:"scale"`
	Weights []float64 `json:"weights"`
}

// Model is a loaded classifier. It is immutable after Load.
type Model struct {
	art  Artifact
	meta Metadata
}

// Load reads the model artifact and metadata and checks they agree.
func Load(modelPath, metadataPath string) (*Model, error) {
	meta, err := LoadMetadata(metadataPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, eris.Wrapf(err, "classifier: read model %s", modelPath)
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, eris.Wrapf(err, "classifier: decode model %s", modelPath)
	}
	return New(art, meta)
}

// New validates art against meta and returns a Model.
func New(art Artifact, meta Metadata) (*Model, error) {
	if art.Format != FormatLogistic {
		return nil, eris.Errorf("classifier: unsupported model format %q", art.Format)
	}
	k := len(art.Classes)
	if k < 2 {
		return nil, eris.New("classifier: model needs at least two classes")
	}
	if len(art.Intercepts) != k {
		return nil, eris.Errorf("classifier: %d intercepts for %d classes", len(art.Intercepts), k)
	}

	sortedModel := slices.Sorted(slices.Values(art.Classes))
	sortedMeta := slices.Sorted(slices.Values(meta.TargetClasses))
	if !slices.Equal(sortedModel, sortedMeta) {
		return nil, eris.Errorf("classifier: model classes %v do not match metadata %v", art.Classes, meta.TargetClasses)
	}

	for name, term := range art.Numeric {
		if !slices.Contains(meta.FeatureColumns, name) {
			return nil, eris.Errorf("classifier: numeric feature %q not in feature_columns", name)
		}
		if len(term.Weights) != k {
			return nil, eris.Errorf("classifier: feature %q has %d weights for %d classes", name, len(term.Weights), k)
		}
	}
	for name, cats := range art.Categorical {
		if !slices.Contains(meta.FeatureColumns, name) {
			return nil, eris.Errorf("classifier: categorical feature %q not in feature_columns", name)
		}
		for cat, w := range cats {
			if len(w) != k {
				return nil, eris.Errorf("classifier: %s=%s has %d weights for %d classes", name, cat, len(w), k)
			}
		}
	}

	for name := range art.Numeric {
		if !slices.Contains(meta.NumericColumns, name) {
			meta.NumericColumns = append(meta.NumericColumns, name)
		}
	}
	slices.Sort(meta.NumericColumns)
	return &Model{art: art, meta: meta}, nil
}

// Predict returns the most probable class. Ties go to the earlier class.
func (m *Model) Predict(v features.Vector) (string, error) {
	probs := m.scores(v)
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return m.art.Classes[best], nil
}

// PredictProba returns the probability of each class.
func (m *Model) PredictProba(v features.Vector) (map[string]float64, error) {
	probs := m.scores(v)
	out := make(map[string]float64, len(probs))
	for i, c := range m.art.Classes {
		out[c] = probs[i]
	}
	return out, nil
}

func (m *Model) Metadata() Metadata { return m.meta }

func (m *Model) Loaded() bool { return true }

// scores computes the softmax over class logits. Categories never seen in
// training contribute nothing.
func (m *Model) scores(v features.Vector) []float64 {
	logits := slices.Clone(m.art.Intercepts)

	for name, term := range m.art.Numeric {
		raw, _ := v.Get(name)
		x := toFloat(raw)
		if term.Scale != 0 {
			x = (x - term.Mean) / term.Scale
		} else {
			x -= term.Mean
		}
		for k, w := range term.Weights {
			logits[k] += w * x
		}
	}
	for name, cats := range m.art.Categorical {
		raw, _ := v.Get(name)
		w, ok := cats[model.Stringify(raw)]
		if !ok {
			continue
		}
		for k := range w {
			logits[k] += w[k]
		}
	}
	return softmax(logits)
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, l)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(l - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func toFloat(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return features.Numeric(v)
}
