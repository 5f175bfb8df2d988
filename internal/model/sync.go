package model

import "time"

// Row is one record from a tabular source, keyed by its raw header.
type Row map[string]any

// SyncResult counts the outcome of reconciling a set of rows.
type SyncResult struct {
	Fetched   int `json:"fetched"`
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Predicted int `json:"predicted"`
}

// TemperatureBucket is the per-class slice of the stats distribution.
type TemperatureBucket struct {
	Temperature   Temperature `json:"temperature"`
	Count         int         `json:"count"`
	AvgConfidence float64     `json:"avg_confidence"`
}

// Stats summarizes prediction coverage across stored leads.
type Stats struct {
	TotalLeads         int                 `json:"total_leads"`
	TotalPredictions   int                 `json:"total_predictions"`
	CoveragePercentage float64             `json:"coverage_percentage"`
	Distribution       []TemperatureBucket `json:"temperature_distribution"`
	LastUpdated        time.Time           `json:"last_updated"`
}

// Count returns the number of leads predicted as t.
func (s Stats) Count(t Temperature) int {
	for _, b := range s.Distribution {
		if b.Temperature == t {
			return b.Count
		}
	}
	return 0
}

// SyncSummary is the report of a full sync job run.
type SyncSummary struct {
	Source   string        `json:"source"`
	Result   SyncResult    `json:"result"`
	Hot      int           `json:"hot"`
	Warm     int           `json:"warm"`
	Cold     int           `json:"cold"`
	Coverage float64       `json:"coverage_percentage"`
	Duration time.Duration `json:"duration"`
	Started  time.Time     `json:"started_at"`
}
