package model

// Temperature is the classifier's label for a lead.
type Temperature string

const (
	TemperatureHot  Temperature = "Hot"
	TemperatureWarm Temperature = "Warm"
	TemperatureCold Temperature = "Cold"
)

// Temperatures lists the labels in the classifier's (alphabetical) class order.
var Temperatures = []Temperature{TemperatureCold, TemperatureHot, TemperatureWarm}

// ParseTemperature returns the Temperature named by s and whether it is valid.
func ParseTemperature(s string) (Temperature, bool) {
	for _, t := range Temperatures {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Soft-failure markers carried in Prediction.Error.
const (
	ErrMarkerModelNotLoaded = "Model not loaded"
	ErrMarkerMapping        = "Could not map features"
)

// Prediction is the classifier output attached to a lead under ml_prediction.
// A failed prediction carries only Error.
type Prediction struct {
	PredictedTemperature Temperature        `json:"predicted_temperature,omitempty"`
	Confidence           float64            `json:"confidence,omitempty"`
	Probabilities        map[string]float64 `json:"probabilities,omitempty"`
	ModelVersion         string             `json:"model_version,omitempty"`
	PredictionTimestamp  string             `json:"prediction_timestamp,omitempty"`
	Error                string             `json:"error,omitempty"`
}

// OK reports whether the prediction holds a usable label.
func (p Prediction) OK() bool {
	return p.Error == "" && p.PredictedTemperature != ""
}

// Document returns the prediction in the map form stored inside a lead.
func (p Prediction) Document() map[string]any {
	if p.Error != "" {
		return map[string]any{"error": p.Error}
	}
	probs := make(map[string]any, len(p.Probabilities))
	for k, v := range p.Probabilities {
		probs[k] = v
	}
	return map[string]any{
		"predicted_temperature": string(p.PredictedTemperature),
		"confidence":            p.Confidence,
		"probabilities":         probs,
		"model_version":         p.ModelVersion,
		"prediction_timestamp":  p.PredictionTimestamp,
	}
}

// PredictionOutput is the shape returned to API callers for a single lead.
type PredictionOutput struct {
	UniqueID             string             `json:"unique_id"`
	PredictedTemperature Temperature        `json:"predicted_temperature,omitempty"`
	Confidence           float64            `json:"confidence"`
	Probabilities        map[string]float64 `json:"probabilities,omitempty"`
	ModelVersion         string             `json:"model_version,omitempty"`
	PredictionTimestamp  string             `json:"prediction_timestamp,omitempty"`
	Error                string             `json:"error,omitempty"`
	Persisted            bool               `json:"persisted"`
}
