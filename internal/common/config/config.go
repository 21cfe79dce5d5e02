// internal/common/config/config.go
package config

import (
	"fmt"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Database DatabaseConfig          `mapstructure:"database"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Scoring  ScoringConfig           `mapstructure:"scoring"`
	Routing  RoutingConfig           `mapstructure:"routing"`
	Registry RegistryConfig          `mapstructure:"registry"`
	AWS      AWSConfig               `mapstructure:"aws"`
	Logging  LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
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
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// ScoringConfig holds settings for the vendor score engine: component
// weights, the rolling aggregation window and the hourly sweep.
type ScoringConfig struct {
	Weights             models.Weights `mapstructure:"weights"`
	WindowDays          int            `mapstructure:"window_days"`
	LateResponseMinutes int            `mapstructure:"late_response_minutes"`
	CacheTTL            int            `mapstructure:"cache_ttl"`      // milliseconds
	SweepInterval       int            `mapstructure:"sweep_interval"` // milliseconds
	SweepConcurrency    int            `mapstructure:"sweep_concurrency"`
}

// RoutingConfig holds settings for vendor ranking and the routing pipeline.
type RoutingConfig struct {
	MinOverallScore float64 `mapstructure:"min_overall_score"`
	TopN            int     `mapstructure:"top_n"`
	MaxAttempts     int     `mapstructure:"max_attempts"`
	RetryBackoff    int     `mapstructure:"retry_backoff"` // milliseconds, base for exponential backoff
	LockTimeout     int     `mapstructure:"lock_timeout"`  // milliseconds
	DecisionIndex   string  `mapstructure:"decision_index"`
}

// RegistryConfig points at the activity registry consumed by payload
// validation and the registry-updater tool.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// AWSConfig holds settings for outbound notifications.
type AWSConfig struct {
	Region string `mapstructure:"region"`
	SNS    struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		OpsEmails []string `mapstructure:"ops_emails"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
