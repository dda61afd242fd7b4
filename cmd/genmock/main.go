// Command genmock writes deterministic predictions.csv and forecasts.csv files
// in the column layout of the external prediction and forecasting scripts, so
// the dashboard can be developed without running them.
//
// Usage:
//
//	go run ./cmd/genmock -out py -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
)

type city struct {
	name       string
	region     string
	population float64
	baseRisk   float64 // 0 (low) .. 1 (high)
}

var cities = []city{
	{"Guwahati", "Assam", 1_180_000, 0.65},
	{"Dibrugarh", "Assam", 155_000, 0.55},
	{"Silchar", "Assam", 230_000, 0.6},
	{"Shillong", "Meghalaya", 360_000, 0.35},
	{"Imphal", "Manipur", 270_000, 0.5},
	{"Agartala", "Tripura", 410_000, 0.45},
	{"Aizawl", "Mizoram", 300_000, 0.3},
	{"Kohima", "Nagaland", 100_000, 0.25},
	{"Itanagar", "Arunachal Pradesh", 60_000, 0.2},
	{"Gangtok", "Sikkim", 100_000, 0.15},
}

var targets = []struct {
	name string
	base float64
}{
	{"Diarrheal Cases per 100,000 people", 350},
	{"Cholera Cases per 100,000 people", 10},
	{"Typhoid Cases per 100,000 people", 45},
}

const (
	forecastEngine = "amazon/chronos-t5-small"
	firstYear      = 2019
	lastYear       = 2024
	horizon        = 3
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory for predictions.csv and forecasts.csv")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	return generate(*out, *seed)
}

func generate(dir string, seed uint64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	preds := predictionRows(rng)
	if err := writeCSV(filepath.Join(dir, "predictions.csv"), preds); err != nil {
		return fmt.Errorf("writing predictions: %w", err)
	}
	log.Printf("predictions: %d rows", len(preds)-1)

	fcs := forecastRows(rng)
	if err := writeCSV(filepath.Join(dir, "forecasts.csv"), fcs); err != nil {
		return fmt.Errorf("writing forecasts: %w", err)
	}
	log.Printf("forecasts: %d rows", len(fcs)-1)
	return nil
}

func predictionRows(rng *rand.Rand) [][]string {
	rows := [][]string{{"City", "Region", "Year", "Prediction", "proba_Low", "proba_Medium", "proba_High", "Population"}}
	for _, c := range cities {
		for year := firstYear; year <= lastYear; year++ {
			drift := float64(year-firstYear) * 0.02
			high := clamp(c.baseRisk+drift+rng.NormFloat64()*0.1, 0.02, 0.95)
			low := clamp((1-high)*(0.3+rng.Float64()*0.5), 0.01, 1-high)
			medium := 1 - high - low

			probs := map[domain.RiskLevel]float64{domain.RiskLow: low, domain.RiskMedium: medium, domain.RiskHigh: high}
			population := c.population * math.Pow(1.015, float64(year-firstYear))

			rows = append(rows, []string{
				c.name,
				c.region,
				strconv.Itoa(year),
				string(argmax(probs)),
				formatFloat(low, 4),
				formatFloat(medium, 4),
				formatFloat(high, 4),
				formatFloat(math.Round(population), 0),
			})
		}
	}
	return rows
}

// forecastRows follows the forecasting script's order: target, then city,
// then forecast year.
func forecastRows(rng *rand.Rand) [][]string {
	rows := [][]string{{"City", "engine", "target", "year", "forecast"}}
	for _, t := range targets {
		for _, c := range cities {
			level := t.base * (0.5 + c.baseRisk)
			for step := 1; step <= horizon; step++ {
				level *= 1 + 0.03 + rng.NormFloat64()*0.02
				rows = append(rows, []string{
					c.name,
					forecastEngine,
					t.name,
					strconv.Itoa(lastYear + step),
					formatFloat(level, 2),
				})
			}
		}
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	return f.Close()
}

func argmax(probs map[domain.RiskLevel]float64) domain.RiskLevel {
	best := domain.RiskLow
	for _, level := range domain.RiskLevels {
		if probs[level] > probs[best] {
			best = level
		}
	}
	return best
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
