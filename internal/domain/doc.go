// Package domain models the disease-risk datasets shown on the dashboard.
//
// # Data Source
//
// Two CSV files are written by an external data-science pipeline and handed
// off through a shared directory:
//
//	predictions.csv  one row per (city, year) from the risk classifier
//	forecasts.csv    one row per (city, target, year) from the case forecaster
//
// This service never computes risk or forecasts. It reads whatever the
// pipeline last wrote and adapts it into a fixed JSON shape.
//
// # Column Conventions
//
// Column presence is not guaranteed. Aliases are tried in priority order and
// the first non-empty (or, for numbers, first parseable) value wins:
//
//	prediction city:       City, Country            -> "Unknown"
//	population affected:   PopulationAffected, population_affected, Population -> 0
//	forecast city:         City, city               -> "Unknown"
//	forecast target:       target                   -> "All"
//
// The classifier writes its label in "Prediction" and one probability column
// per class: proba_Low, proba_Medium, proba_High. The probability reported for
// a row is the column matching its label. Labels outside Low/Medium/High are
// coerced to Medium.
//
// Numbers:
//
//	Cells are trimmed before parsing. Empty, non-numeric, NaN and infinite
//	values are treated as absent and fall back to the field default. Years are
//	integral; "2024.0" (pandas output for a column with gaps) is accepted as 2024,
//	"2024.5" is absent. An absent year is serialized as JSON null.
//
// # Forecast Steps
//
// forecasts.csv carries no explicit sequence index. Each row is assigned a
// step, counting from 1 for every distinct (city, target) pair in file order.
// Counters live only for the duration of one AdaptForecasts call, so adapting
// the same content twice yields identical output.
package domain
