// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Server     ServerConfig            `mapstructure:"server"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Sources    map[string]SourceConfig `mapstructure:"sources"`
	Enrichment EnrichmentConfig        `mapstructure:"enrichment"`
	Retry      RetryConfig             `mapstructure:"retry"`
	Jobs       JobsConfig              `mapstructure:"jobs"`
	Scoring    ScoringConfig           `mapstructure:"scoring"`
	Rules      RulesConfig             `mapstructure:"rules"`
	Notify     NotifyConfig            `mapstructure:"notifications"`
	Logging    LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SourceConfig holds the settings applicable to one external data source.
type SourceConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// EnrichmentConfig bounds the orchestrator's fan-out.
type EnrichmentConfig struct {
	MaxInFlight      int `mapstructure:"max_in_flight"`
	PerSourceTimeout int `mapstructure:"per_source_timeout"` // milliseconds
}

// RetryConfig drives the background retry scheduler.
type RetryConfig struct {
	SweepInterval     int     `mapstructure:"sweep_interval"` // milliseconds
	BaseDelay         int     `mapstructure:"base_delay"`     // milliseconds
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	MaxAttempts       int     `mapstructure:"max_attempts"`
}

// JobsConfig controls job lifecycle and retention.
type JobsConfig struct {
	Deadline  int `mapstructure:"deadline"`  // milliseconds, total retry budget per job
	Retention int `mapstructure:"retention"` // milliseconds, store TTL
	TopK      int `mapstructure:"top_k"`
}

// ScoringConfig controls the final score scale.
type ScoringConfig struct {
	Scale float64 `mapstructure:"scale"` // final score maximum, e.g. 100 or 156
}

// RulesConfig allows the supersede sets of the weight rules to be
// overridden without a code change.
type RulesConfig struct {
	Supersedes map[string][]string `mapstructure:"supersedes"`
}

// NotifyConfig holds settings for report-ready notifications.
type NotifyConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		ToEmail   string `mapstructure:"to_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
