// Command validate checks the prediction and forecast handoff files with the
// same adapters the server uses. It verifies that every row yields exactly one
// record, probabilities are in range and follow the predicted risk level, and
// forecast steps are contiguous per city and target.
//
// Usage:
//
//	go run ./cmd/validate -data-dir py
//	go run ./cmd/validate -data-dir data/mock -forecasts forecasts.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"

	"github.com/couchcryptid/health-risk-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "", "directory containing the handoff CSV files")
	predictions := flag.String("predictions", "predictions.csv", "predictions file, relative to -data-dir unless absolute")
	forecasts := flag.String("forecasts", "forecasts.csv", "forecasts file, relative to -data-dir unless absolute")
	flag.Parse()

	if *dataDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dataDir, resolve(*dataDir, *predictions), resolve(*dataDir, *forecasts)); code != 0 {
		os.Exit(code)
	}
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func run(dataDir, predictionsPath, forecastsPath string) int {
	fmt.Println("=== Dashboard Data Validation ===")
	fmt.Println()

	ctx := context.Background()
	store := csvfile.NewStore(dataDir, predictionsPath, forecastsPath)

	predRows, err := store.ReadRows(ctx, domain.KindPredictions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	fcRows, err := store.ReadRows(ctx, domain.KindForecasts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validatePredictions(predRows),
		validateForecasts(fcRows),
		validateDeterminism(predRows, fcRows),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d predictions, %d forecasts\n", len(predRows), len(fcRows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Predictions ──

var knownRiskLevels = map[domain.RiskLevel]bool{
	domain.RiskLow: true, domain.RiskMedium: true, domain.RiskHigh: true,
}

func validatePredictions(rows []domain.Row) *phase {
	p := &phase{name: "Phase 1: Predictions"}
	records := domain.AdaptPredictions(rows)

	if len(records) != len(rows) {
		p.errorf("record count: %d rows produced %d records", len(rows), len(records))
		return p
	}

	for i, rec := range records {
		row := i + 1
		if rec.City == "" {
			p.errorf("row %d: empty city", row)
		}
		if !knownRiskLevels[rec.RiskLevel] {
			p.errorf("row %d: risk level %q not in {Low, Medium, High}", row, rec.RiskLevel)
		}
		if rec.Probability < 0 || rec.Probability > 1 || math.IsNaN(rec.Probability) {
			p.errorf("row %d: probability %g outside [0,1]", row, rec.Probability)
		}
		if rec.PopulationAffected < 0 {
			p.errorf("row %d: negative population %g", row, rec.PopulationAffected)
		}
		if raw := rows[i]["Prediction"]; raw != "" && raw != string(rec.RiskLevel) {
			fmt.Printf("  Note: row %d: prediction %q read as %s\n", row, raw, rec.RiskLevel)
		}
	}
	return p
}

// ── Phase 2: Forecasts ──

func validateForecasts(rows []domain.Row) *phase {
	p := &phase{name: "Phase 2: Forecasts"}
	records := domain.AdaptForecasts(rows)

	if len(records) != len(rows) {
		p.errorf("record count: %d rows produced %d records", len(rows), len(records))
		return p
	}

	type series struct{ city, target string }
	last := map[series]int{}
	for i, rec := range records {
		row := i + 1
		key := series{rec.City, rec.Target}
		if rec.Step != last[key]+1 {
			p.errorf("row %d: %s/%s step %d follows %d", row, rec.City, rec.Target, rec.Step, last[key])
		}
		last[key] = rec.Step

		if rec.ConfidenceInterval != 0 {
			p.errorf("row %d: confidence interval %g, expected 0", row, rec.ConfidenceInterval)
		}
		if math.IsNaN(rec.PredictedCases) || math.IsInf(rec.PredictedCases, 0) {
			p.errorf("row %d: predicted cases %g not finite", row, rec.PredictedCases)
		}
	}
	return p
}

// ── Phase 3: Determinism ──
// Adapting the same rows twice must give identical output.

func validateDeterminism(predRows, fcRows []domain.Row) *phase {
	p := &phase{name: "Phase 3: Determinism"}
	if !reflect.DeepEqual(domain.AdaptPredictions(predRows), domain.AdaptPredictions(predRows)) {
		p.errorf("predictions differ between runs")
	}
	if !reflect.DeepEqual(domain.AdaptForecasts(fcRows), domain.AdaptForecasts(fcRows)) {
		p.errorf("forecasts differ between runs")
	}
	return p
}
