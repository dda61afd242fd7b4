package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/health-risk-dashboard/internal/adapter/csvfile"
	"github.com/couchcryptid/health-risk-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Deterministic(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	require.NoError(t, generate(a, 7))
	require.NoError(t, generate(b, 7))

	for _, name := range []string{"predictions.csv", "forecasts.csv"} {
		first, err := os.ReadFile(filepath.Join(a, name))
		require.NoError(t, err)
		second, err := os.ReadFile(filepath.Join(b, name))
		require.NoError(t, err)
		assert.Equal(t, first, second, name)
	}
}

func TestGenerate_ReadableByStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generate(dir, 42))
	store := csvfile.NewStore(dir, filepath.Join(dir, "predictions.csv"), filepath.Join(dir, "forecasts.csv"))

	predRows, err := store.ReadRows(context.Background(), domain.KindPredictions)
	require.NoError(t, err)
	preds := domain.AdaptPredictions(predRows)
	require.Len(t, preds, len(cities)*(lastYear-firstYear+1))
	for _, p := range preds {
		require.NotNil(t, p.Year)
		assert.Positive(t, p.Probability)
		assert.LessOrEqual(t, p.Probability, 1.0)
		assert.Positive(t, p.PopulationAffected)
	}

	fcRows, err := store.ReadRows(context.Background(), domain.KindForecasts)
	require.NoError(t, err)
	fcs := domain.AdaptForecasts(fcRows)
	require.Len(t, fcs, len(targets)*len(cities)*horizon)
	assert.Equal(t, "Diarrheal Cases per 100,000 people", fcs[0].Target)
	assert.Equal(t, 1, fcs[0].Step)
	assert.Equal(t, horizon, fcs[horizon-1].Step)
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, domain.RiskHigh, argmax(map[domain.RiskLevel]float64{
		domain.RiskLow: 0.1, domain.RiskMedium: 0.3, domain.RiskHigh: 0.6,
	}))
	assert.Equal(t, domain.RiskMedium, argmax(map[domain.RiskLevel]float64{
		domain.RiskLow: 0.2, domain.RiskMedium: 0.5, domain.RiskHigh: 0.3,
	}))
}
