package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Tracking TrackingConfig
	Model    ModelConfig
	Auth     AuthConfig
	Data     DataConfig
	Logger   LoggerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type TrackingConfig struct {
	// URI selects the registry backend: http(s):// for a tracking server,
	// postgres:// for a direct store connection.
	URI     string
	Timeout time.Duration
}

type ModelConfig struct {
	Name string
	// Experiment is the training lineage used for fallback resolution.
	Experiment string
	// PromotionMetric is the metric key compared by the promotion engine.
	PromotionMetric string
	// FeatureFile is the manifest path; its absence enables open schema mode.
	FeatureFile string
}

type AuthConfig struct {
	APIKey string
}

type DataConfig struct {
	DBPath string
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("TRACKING_URI", "http://localhost:5000")
	v.SetDefault("TRACKING_TIMEOUT", "30s")
	v.SetDefault("MODEL_NAME", "fraud_model")
	v.SetDefault("EXPERIMENT_NAME", "fraud_detection")
	v.SetDefault("PROMOTION_METRIC", "roc_auc")
	v.SetDefault("FEATURE_FILE", "app/feature_names.txt")
	v.SetDefault("API_KEY", "dev-key")
	v.SetDefault("FRAUD_DB_PATH", "data/fraud.db")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	// Env
	v.AutomaticEnv()

	timeout, err := time.ParseDuration(v.GetString("TRACKING_TIMEOUT"))
	if err != nil {
		timeout = 30 * time.Second
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Tracking: TrackingConfig{
			URI:     v.GetString("TRACKING_URI"),
			Timeout: timeout,
		},
		Model: ModelConfig{
			Name:            v.GetString("MODEL_NAME"),
			Experiment:      v.GetString("EXPERIMENT_NAME"),
			PromotionMetric: v.GetString("PROMOTION_METRIC"),
			FeatureFile:     v.GetString("FEATURE_FILE"),
		},
		Auth: AuthConfig{
			APIKey: v.GetString("API_KEY"),
		},
		Data: DataConfig{
			DBPath: v.GetString("FRAUD_DB_PATH"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
	}

	return cfg, nil
}
