package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Learning  LearningConfig  `yaml:"learning" mapstructure:"learning"`
	Accuracy  AccuracyConfig  `yaml:"accuracy" mapstructure:"accuracy"`
	Queries   QueriesConfig   `yaml:"queries" mapstructure:"queries"`
	Deadlines DeadlinesConfig `yaml:"deadlines" mapstructure:"deadlines"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LearningConfig configures pattern extraction and preference model building.
type LearningConfig struct {
	Alpha              float64 `yaml:"alpha" mapstructure:"alpha"`
	PreferredThreshold float64 `yaml:"preferred_threshold" mapstructure:"preferred_threshold"`
	AvoidedThreshold   float64 `yaml:"avoided_threshold" mapstructure:"avoided_threshold"`
	MinObservations    int     `yaml:"min_observations" mapstructure:"min_observations"`
	MaxTerms           int     `yaml:"max_terms" mapstructure:"max_terms"`
}

// AccuracyConfig configures trend computation for the strategy controller.
type AccuracyConfig struct {
	TrendWindow int     `yaml:"trend_window" mapstructure:"trend_window"`
	DeadBand    float64 `yaml:"dead_band" mapstructure:"dead_band"`
}

// QueriesConfig configures discovery query seeding and yield ranking.
type QueriesConfig struct {
	SeedFile    string  `yaml:"seed_file" mapstructure:"seed_file"`
	YieldFloor  float64 `yaml:"yield_floor" mapstructure:"yield_floor"`
	MinSurfaced int     `yaml:"min_surfaced" mapstructure:"min_surfaced"`
}

// DeadlinesConfig configures deadline alerting on accepted/maybe postings.
type DeadlinesConfig struct {
	WarnDays int `yaml:"warn_days" mapstructure:"warn_days"`
}

// AnthropicConfig holds Anthropic API settings for the scoring collaborator.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ScoringConfig configures the relevance-scoring collaborator.
type ScoringConfig struct {
	MaxConcurrent     int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxTextChars      int     `yaml:"max_text_chars" mapstructure:"max_text_chars"`
}

// ServerConfig configures the published-state HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("JOBSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "jobscout.db")
	v.SetDefault("learning.alpha", 1.0)
	v.SetDefault("learning.preferred_threshold", 0.75)
	v.SetDefault("learning.avoided_threshold", 0.15)
	v.SetDefault("learning.min_observations", 3)
	v.SetDefault("learning.max_terms", 15)
	v.SetDefault("accuracy.trend_window", 3)
	v.SetDefault("accuracy.dead_band", 0.05)
	v.SetDefault("queries.seed_file", "queries.yaml")
	v.SetDefault("queries.yield_floor", 0.05)
	v.SetDefault("queries.min_surfaced", 20)
	v.SetDefault("deadlines.warn_days", 7)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("scoring.max_concurrent", 4)
	v.SetDefault("scoring.requests_per_second", 2.0)
	v.SetDefault("scoring.max_text_chars", 8000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
