// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Cache         CacheConfig        `mapstructure:"cache"`
	Fetcher       FetcherConfig      `mapstructure:"fetcher"`
	Confluence    ConfluenceConfig   `mapstructure:"confluence"`
	OpenAI        OpenAIConfig       `mapstructure:"openai"`
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Timezone    string `mapstructure:"timezone"`
}

type ServerConfig struct {
	Port              int     `mapstructure:"port"`
	FetchSecret       string  `mapstructure:"fetch_secret"`
	FetchSecretHeader string  `mapstructure:"fetch_secret_header"`
	RateLimitRPS      float64 `mapstructure:"rate_limit_rps"` // 0 disables throttling
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	URL      string         `mapstructure:"url"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
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

// DSN prefers database.url and falls back to the discrete postgres fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return d.Postgres.GetDSN()
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	TTL int `mapstructure:"ttl"` // milliseconds
}

// --- Acquisition ---

const (
	SourceMock       = "mock"
	SourceConfluence = "confluence"
)

type FetcherConfig struct {
	Source     string `mapstructure:"source"`
	MaxRetries int    `mapstructure:"max_retries"`
	RetryDelay int    `mapstructure:"retry_delay"` // milliseconds
}

type ConfluenceConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Auth    string `mapstructure:"auth"` // personal access token
	PageID  string `mapstructure:"page_id"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// OpenAIConfig points at any OpenAI-compatible chat completions endpoint.
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

type SchedulerConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Schedule     string `mapstructure:"schedule"`
	RunOnStartup bool   `mapstructure:"run_on_startup"`
	LockTTL      int    `mapstructure:"lock_ttl"` // milliseconds
	Timezone     string `mapstructure:"timezone"`
}

// NotificationConfig holds the failure alert channels.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
	SES struct {
		Enabled   bool     `mapstructure:"enabled"`
		FromEmail string   `mapstructure:"from_email"`
		ToEmails  []string `mapstructure:"to_emails"`
	} `mapstructure:"ses"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
