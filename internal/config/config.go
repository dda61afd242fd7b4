package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// minTokenSecretLen is the shortest HS256 key accepted for admin tokens.
const minTokenSecretLen = 32

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Handoff files written by the external prediction pipeline.
	DataDir         string
	PredictionsFile string
	ForecastsFile   string
	UploadMaxBytes  int64

	WatchEnabled  bool
	WatchDebounce time.Duration

	// Admin credential. Admin routes are disabled when AdminPasswordHash is empty.
	AdminEnabled      bool
	AdminUsername     string
	AdminPasswordHash string
	AdminTokenSecret  string
	AdminTokenTTL     time.Duration

	// Dataset change notifications to Kafka.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	watchDebounce, err := parsePositiveDuration("WATCH_DEBOUNCE", "500ms")
	if err != nil {
		return nil, err
	}

	tokenTTL, err := parsePositiveDuration("ADMIN_TOKEN_TTL", "8h")
	if err != nil {
		return nil, err
	}

	uploadMax, err := strconv.ParseInt(sharedcfg.EnvOrDefault("UPLOAD_MAX_BYTES", "10485760"), 10, 64)
	if err != nil || uploadMax <= 0 {
		return nil, errors.New("invalid UPLOAD_MAX_BYTES")
	}

	dataDir := sharedcfg.EnvOrDefault("DATA_DIR", "py")
	passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")

	brokers := sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:         dataDir,
		PredictionsFile: resolvePath(dataDir, sharedcfg.EnvOrDefault("PREDICTIONS_FILE", "predictions.csv")),
		ForecastsFile:   resolvePath(dataDir, sharedcfg.EnvOrDefault("FORECASTS_FILE", "forecasts.csv")),
		UploadMaxBytes:  uploadMax,

		WatchEnabled:  sharedcfg.EnvOrDefault("WATCH_ENABLED", "true") == "true",
		WatchDebounce: watchDebounce,

		AdminEnabled:      passwordHash != "",
		AdminUsername:     sharedcfg.EnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPasswordHash: passwordHash,
		AdminTokenSecret:  os.Getenv("ADMIN_TOKEN_SECRET"),
		AdminTokenTTL:     tokenTTL,

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "dashboard-dataset-updates"),
	}

	if cfg.AdminEnabled && len(cfg.AdminTokenSecret) < minTokenSecretLen {
		return nil, errors.New("ADMIN_TOKEN_SECRET must be at least 32 bytes when ADMIN_PASSWORD_HASH is set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func resolvePath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
