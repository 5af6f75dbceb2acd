// Package config loads service configuration from the environment, with
// matching thresholds defaulted from an embedded YAML file.
package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Matching  MatchingConfig
	Notifier  NotifierConfig
	Extractor ExtractorConfig
}

type ServerConfig struct {
	Host     string
	Port     int
	APIToken string // bearer token for police endpoints; empty disables auth
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL; empty selects the in-memory store
	MaxOpenConns int
	MaxIdleConns int
}

type MatchingConfig struct {
	VectorDim               int
	MatchThreshold          float64
	AlertThreshold          float64
	CategoryAlertThresholds map[string]float64
	PurgeGracePeriod        time.Duration
	PurgeSweepInterval      time.Duration
	UseANN                  bool // HNSW index instead of the flat scan
	ANNMaxCandidates        int
}

type NotifierConfig struct {
	WebhookURL string
}

type ExtractorConfig struct {
	URL string
}

// thresholdDefaults mirrors thresholds.yaml.
type thresholdDefaults struct {
	MatchThreshold          float64            `yaml:"match_threshold"`
	AlertThreshold          float64            `yaml:"alert_threshold"`
	CategoryAlertThresholds map[string]float64 `yaml:"category_alert_thresholds"`
}

// envInt reads an environment variable as a positive integer, falling back
// to the default when unset or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0,1], falling back
// to the default when unset or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a duration, falling back to
// the default when unset or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

// Load builds the configuration from the environment.
func Load() *Config {
	var defaults thresholdDefaults
	if err := yaml.Unmarshal(thresholdsYAML, &defaults); err != nil {
		// Embedded file; cannot fail in a correct build.
		panic("unmarshal embedded thresholds.yaml: " + err.Error())
	}

	matchThreshold := envFloat("MATCH_THRESHOLD", defaults.MatchThreshold)
	alertDefault := defaults.AlertThreshold
	if alertDefault == 0 {
		alertDefault = matchThreshold
	}
	categoryThresholds := categoryThresholdsFromEnv(defaults.CategoryAlertThresholds)

	return &Config{
		Server: ServerConfig{
			Host:     envString("HOST", "0.0.0.0"),
			Port:     envInt("PORT", 8080),
			APIToken: os.Getenv("API_TOKEN"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Matching: MatchingConfig{
			VectorDim:               envInt("VECTOR_DIM", 512),
			MatchThreshold:          matchThreshold,
			AlertThreshold:          envFloat("ALERT_THRESHOLD", alertDefault),
			CategoryAlertThresholds: categoryThresholds,
			PurgeGracePeriod:        envDuration("PURGE_GRACE_PERIOD", 24*time.Hour),
			PurgeSweepInterval:      envDuration("PURGE_SWEEP_INTERVAL", 10*time.Minute),
			UseANN:                  os.Getenv("USE_ANN_INDEX") == "true",
			ANNMaxCandidates:        envInt("ANN_MAX_CANDIDATES", 50),
		},
		Notifier: NotifierConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
		Extractor: ExtractorConfig{
			URL: os.Getenv("EXTRACTOR_URL"),
		},
	}
}

// caseCategories are the per-category threshold override keys, matching the
// registry's category enum.
var caseCategories = []string{"child", "woman", "man", "elderly"}

// categoryThresholdsFromEnv layers ALERT_THRESHOLD_<CATEGORY> variables over
// the embedded YAML defaults.
func categoryThresholdsFromEnv(defaults map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(defaults))
	for name, threshold := range defaults {
		out[name] = threshold
	}
	for _, name := range caseCategories {
		key := "ALERT_THRESHOLD_" + strings.ToUpper(name)
		if v := envFloat(key, 0); v > 0 {
			out[name] = v
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}
