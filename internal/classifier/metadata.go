package classifier

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// Metadata describes a trained model's feature contract and provenance.
type Metadata struct {
	ModelName      string      `json:"model_name,omitempty"`
	FeatureColumns []string    `json:"feature_columns"`
	NumericColumns []string    `json:"numeric_columns,omitempty"`
	TargetClasses  []string    `json:"target_classes"`
	FeaturesCount  int         `json:"features_count,omitempty"`
	TrainingDate   string      `json:"training_date"`
	Performance    Performance `json:"performance"`
}

// Performance holds the evaluation metrics recorded at training time.
type Performance struct {
	Accuracy float64 `json:"accuracy"`
}

// Version returns the model version reported on predictions.
func (m Metadata) Version() string {
	if m.TrainingDate == "" {
		return "unknown"
	}
	return m.TrainingDate
}

const metadataSchema = `{
  "type": "object",
  "required": ["feature_columns", "target_classes", "performance", "training_date"],
  "properties": {
    "model_name": {"type": "string"},
    "feature_columns": {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
    "numeric_columns": {"type": "array", "items": {"type": "string"}},
    "target_classes": {"type": "array", "minItems": 2, "items": {"type": "string"}},
    "features_count": {"type": "integer"},
    "training_date": {"type": "string"},
    "performance": {
      "type": "object",
      "required": ["accuracy"],
      "properties": {"accuracy": {"type": "number", "minimum": 0, "maximum": 1}}
    }
  }
}`

var metadataSchemaLoader = gojsonschema.NewStringLoader(metadataSchema)

// LoadMetadata reads and validates a metadata document.
func LoadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, eris.Wrapf(err, "classifier: read metadata %s", path)
	}
	return ParseMetadata(data)
}

// ParseMetadata validates raw metadata JSON against the required keys and
// decodes it.
func ParseMetadata(data []byte) (Metadata, error) {
	result, err := gojsonschema.Validate(metadataSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Metadata{}, eris.Wrap(err, "classifier: validate metadata")
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return Metadata{}, eris.Errorf("classifier: invalid metadata: %s", strings.Join(errs, "; "))
	}

	var md Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return Metadata{}, eris.Wrap(err, "classifier: decode metadata")
	}
	return md, nil
}
