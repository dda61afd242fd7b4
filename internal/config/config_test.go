package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPasswordHash = "$2a$10$abcdefghijklmnopqrstuuJ8d0n8P4m7wA1Yt8a2QWm4nX1b2c3d4"
	testBroker       = "broker1:9092"
)

var testTokenSecret = strings.Repeat("s", 32)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "py", cfg.DataDir)
	assert.Equal(t, "py/predictions.csv", cfg.PredictionsFile)
	assert.Equal(t, "py/forecasts.csv", cfg.ForecastsFile)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
	assert.True(t, cfg.WatchEnabled)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.False(t, cfg.AdminEnabled)
	assert.Equal(t, "admin", cfg.AdminUsername)
	assert.Equal(t, 8*time.Hour, cfg.AdminTokenTTL)
	assert.False(t, cfg.KafkaEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "dashboard-dataset-updates", cfg.KafkaTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("PREDICTIONS_FILE", "risk.csv")
	t.Setenv("FORECASTS_FILE", "/tmp/forecast.csv")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")
	t.Setenv("WATCH_ENABLED", "false")
	t.Setenv("WATCH_DEBOUNCE", "2s")
	t.Setenv("ADMIN_USERNAME", "ops")
	t.Setenv("ADMIN_PASSWORD_HASH", testPasswordHash)
	t.Setenv("ADMIN_TOKEN_SECRET", testTokenSecret)
	t.Setenv("ADMIN_TOKEN_TTL", "1h")
	t.Setenv("KAFKA_BROKERS", testBroker+", broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-updates")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/data/risk.csv", cfg.PredictionsFile)
	assert.Equal(t, "/tmp/forecast.csv", cfg.ForecastsFile)
	assert.Equal(t, int64(2048), cfg.UploadMaxBytes)
	assert.False(t, cfg.WatchEnabled)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.True(t, cfg.AdminEnabled)
	assert.Equal(t, "ops", cfg.AdminUsername)
	assert.Equal(t, testPasswordHash, cfg.AdminPasswordHash)
	assert.Equal(t, time.Hour, cfg.AdminTokenTTL)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{testBroker, "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-updates", cfg.KafkaTopic)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"WATCH_DEBOUNCE", "bad"},
		{"WATCH_DEBOUNCE", "-1s"},
		{"ADMIN_TOKEN_TTL", "0s"},
		{"UPLOAD_MAX_BYTES", "0"},
		{"UPLOAD_MAX_BYTES", "lots"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_AdminRequiresSecret(t *testing.T) {
	t.Setenv("ADMIN_PASSWORD_HASH", testPasswordHash)
	t.Setenv("ADMIN_TOKEN_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_TOKEN_SECRET")
}

func TestLoad_KafkaEnabledWithoutBrokers(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_KafkaExplicitlyDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", testBroker)
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{testBroker}, cfg.KafkaBrokers)
}
