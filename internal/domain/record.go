package domain

import (
	"errors"
	"time"
)

// ErrUnknownKind is returned when a dataset kind is neither predictions nor forecasts.
var ErrUnknownKind = errors.New("unknown dataset kind")

// Kind identifies one of the two CSV datasets handed off by the external pipeline.
type Kind string

const (
	KindPredictions Kind = "predictions"
	KindForecasts   Kind = "forecasts"
)

// Kinds lists every dataset kind in a stable order.
var Kinds = []Kind{KindPredictions, KindForecasts}

// ParseKind validates a user-supplied kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPredictions, KindForecasts:
		return Kind(s), nil
	default:
		return "", ErrUnknownKind
	}
}

// Row is one CSV data row keyed by header column name.
// Columns that do not appear in the header are absent from the map.
type Row map[string]string

// RiskLevel is the categorical output of the external classifier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// RiskLevels lists the recognized risk levels from lowest to highest.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh}

// PredictionRecord is the dashboard shape of one predictions.csv row.
type PredictionRecord struct {
	City               string    `json:"city"`
	Year               *int      `json:"year"`
	RiskLevel          RiskLevel `json:"risk_level"`
	Probability        float64   `json:"probability"`
	PopulationAffected float64   `json:"population_affected"`
}

// ForecastRecord is the dashboard shape of one forecasts.csv row.
type ForecastRecord struct {
	City               string  `json:"city"`
	Target             string  `json:"target"`
	Year               *int    `json:"year"`
	Step               int     `json:"step"`
	PredictedCases     float64 `json:"predicted_cases"`
	ConfidenceInterval float64 `json:"confidence_interval"`
}

// Event sources for DatasetEvent.
const (
	SourceUpload = "upload"
	SourceWatch  = "watch"
)

// DatasetEvent announces that a handoff CSV was replaced.
type DatasetEvent struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	Source     string    `json:"source"`
	Rows       int       `json:"rows"`
	OccurredAt time.Time `json:"occurred_at"`
}
