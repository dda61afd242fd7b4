package domain

import (
	"math"
	"strconv"
	"strings"
)

const (
	unknownCity   = "Unknown"
	defaultTarget = "All"
)

// Column aliases, in priority order.
var (
	predictionCityColumns = []string{"City", "Country"}
	populationColumns     = []string{"PopulationAffected", "population_affected", "Population"}
	forecastCityColumns   = []string{"City", "city"}
)

// AdaptPredictions maps predictions.csv rows to records, one record per row,
// preserving input order. Missing or malformed fields degrade to defaults.
func AdaptPredictions(rows []Row) []PredictionRecord {
	out := make([]PredictionRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, adaptPrediction(r))
	}
	return out
}

func adaptPrediction(r Row) PredictionRecord {
	risk := normalizeRiskLevel(r["Prediction"])

	return PredictionRecord{
		City:               firstNonEmpty(r, predictionCityColumns, unknownCity),
		Year:               parseYear(r["Year"]),
		RiskLevel:          risk,
		Probability:        floatOrZero(r["proba_"+string(risk)]),
		PopulationAffected: firstNumber(r, populationColumns),
	}
}

// AdaptForecasts maps forecasts.csv rows to records, preserving input order.
// Step counters are scoped to this call: each distinct (city, target) pair
// counts up from 1 in file order.
func AdaptForecasts(rows []Row) []ForecastRecord {
	type seriesKey struct{ city, target string }
	steps := make(map[seriesKey]int)

	out := make([]ForecastRecord, 0, len(rows))
	for _, r := range rows {
		city := firstNonEmpty(r, forecastCityColumns, unknownCity)
		target := strings.TrimSpace(r["target"])
		if target == "" {
			target = defaultTarget
		}

		key := seriesKey{city: city, target: target}
		steps[key]++

		out = append(out, ForecastRecord{
			City:           city,
			Target:         target,
			Year:           parseYear(r["year"]),
			Step:           steps[key],
			PredictedCases: floatOrZero(r["forecast"]),
		})
	}
	return out
}

// normalizeRiskLevel accepts the exact class names emitted by the classifier
// and coerces everything else, including an empty cell, to Medium.
func normalizeRiskLevel(value string) RiskLevel {
	switch RiskLevel(strings.TrimSpace(value)) {
	case RiskLow:
		return RiskLow
	case RiskHigh:
		return RiskHigh
	default:
		return RiskMedium
	}
}

func firstNonEmpty(r Row, columns []string, fallback string) string {
	for _, c := range columns {
		if v := strings.TrimSpace(r[c]); v != "" {
			return v
		}
	}
	return fallback
}

func firstNumber(r Row, columns []string) float64 {
	for _, c := range columns {
		if v, ok := parseNumber(r[c]); ok {
			return v
		}
	}
	return 0
}

// parseNumber parses a trimmed decimal. Empty, non-numeric and non-finite
// values report ok=false.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func floatOrZero(s string) float64 {
	v, _ := parseNumber(s)
	return v
}

// parseYear returns nil unless the cell holds an integral number.
// Pandas writes "2024.0" when the column had gaps, so integral floats count.
func parseYear(s string) *int {
	v, ok := parseNumber(s)
	if !ok || v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return nil
	}
	year := int(v)
	return &year
}
