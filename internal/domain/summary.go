package domain

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SummaryFilter narrows the records a Summary is computed over.
// Zero values match everything.
type SummaryFilter struct {
	City string
	Year *int
}

func (f SummaryFilter) match(city string, year *int) bool {
	if f.City != "" && f.City != city {
		return false
	}
	if f.Year != nil && (year == nil || *year != *f.Year) {
		return false
	}
	return true
}

// CityRisk counts predictions per risk level for a single city.
type CityRisk struct {
	City   string `json:"city"`
	Low    int    `json:"Low"`
	Medium int    `json:"Medium"`
	High   int    `json:"High"`
}

// TargetStats aggregates forecast values for one target metric.
type TargetStats struct {
	Target             string  `json:"target"`
	Count              int     `json:"count"`
	MeanPredictedCases float64 `json:"mean_predicted_cases"`
	MaxPredictedCases  float64 `json:"max_predicted_cases"`
}

// Summary is the aggregate view rendered in the dashboard's headline cards and charts.
type Summary struct {
	Predictions             int               `json:"predictions"`
	RiskCounts              map[RiskLevel]int `json:"risk_counts"`
	HighRisk                int               `json:"high_risk"`
	TotalPopulationAffected float64           `json:"total_population_affected"`
	MeanProbability         float64           `json:"mean_probability"`
	Cities                  []CityRisk        `json:"cities"`
	Forecasts               int               `json:"forecasts"`
	Targets                 []TargetStats     `json:"targets"`
}

// Summarize aggregates already-adapted records. Cities and targets are sorted
// by name so the output is deterministic.
func Summarize(predictions []PredictionRecord, forecasts []ForecastRecord, filter SummaryFilter) Summary {
	s := Summary{
		RiskCounts: make(map[RiskLevel]int, len(RiskLevels)),
		Cities:     []CityRisk{},
		Targets:    []TargetStats{},
	}
	for _, level := range RiskLevels {
		s.RiskCounts[level] = 0
	}

	byCity := make(map[string]*CityRisk)
	var probabilities, population []float64

	for _, p := range predictions {
		if !filter.match(p.City, p.Year) {
			continue
		}
		s.Predictions++
		s.RiskCounts[p.RiskLevel]++
		probabilities = append(probabilities, p.Probability)
		population = append(population, p.PopulationAffected)

		c, ok := byCity[p.City]
		if !ok {
			c = &CityRisk{City: p.City}
			byCity[p.City] = c
		}
		switch p.RiskLevel {
		case RiskLow:
			c.Low++
		case RiskMedium:
			c.Medium++
		case RiskHigh:
			c.High++
		}
	}

	s.HighRisk = s.RiskCounts[RiskHigh]
	if len(probabilities) > 0 {
		s.MeanProbability = stat.Mean(probabilities, nil)
		s.TotalPopulationAffected = floats.Sum(population)
	}
	for _, c := range byCity {
		s.Cities = append(s.Cities, *c)
	}
	sort.Slice(s.Cities, func(i, j int) bool { return s.Cities[i].City < s.Cities[j].City })

	byTarget := make(map[string][]float64)
	for _, f := range forecasts {
		if !filter.match(f.City, f.Year) {
			continue
		}
		s.Forecasts++
		byTarget[f.Target] = append(byTarget[f.Target], f.PredictedCases)
	}
	for target, values := range byTarget {
		s.Targets = append(s.Targets, TargetStats{
			Target:             target,
			Count:              len(values),
			MeanPredictedCases: stat.Mean(values, nil),
			MaxPredictedCases:  floats.Max(values),
		})
	}
	sort.Slice(s.Targets, func(i, j int) bool { return s.Targets[i].Target < s.Targets[j].Target })

	return s
}
