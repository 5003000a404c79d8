// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, merges configs/config.<APP_ENVIRONMENT>.yaml
// on top and lets environment variables override every key.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1️⃣ LOAD BASE CONFIG
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2️⃣ LOAD ENV CONFIG
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return build(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return build(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	// SERVER_FETCH_SECRET overrides server.fetch_secret and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	registerDefaults(v)
	return v
}

func build(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideEmptyConfig(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load .env from multiple possible locations
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env", // tests in test/e2e/
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("✅ Loaded .env from: %s\n", path)
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// registerDefaults makes every key known to viper so AutomaticEnv can
// override it even when no config file sets it.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "canteen-menu")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.timezone", "Europe/Berlin")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.fetch_secret", "")
	v.SetDefault("server.fetch_secret_header", "X-Menu-Fetch-Password")
	v.SetDefault("server.rate_limit_rps", 0.1)
	v.SetDefault("server.rate_limit_burst", 2)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.url", "")
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.max_connections", 0)
	v.SetDefault("database.postgres.max_idle", 0)
	v.SetDefault("database.postgres.sslmode", "")
	v.SetDefault("database.redis.enabled", false)
	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("cache.ttl", 600000)

	v.SetDefault("fetcher.source", SourceConfluence)
	v.SetDefault("fetcher.max_retries", 1)
	v.SetDefault("fetcher.retry_delay", 1000)

	v.SetDefault("confluence.base_url", "")
	v.SetDefault("confluence.auth", "")
	v.SetDefault("confluence.page_id", "")
	v.SetDefault("confluence.timeout", 30000)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "")
	v.SetDefault("openai.timeout", 60000)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.schedule", "0 6 * * 1-5")
	v.SetDefault("scheduler.run_on_startup", true)
	v.SetDefault("scheduler.lock_ttl", 600000)
	v.SetDefault("scheduler.timezone", "")

	v.SetDefault("notifications.aws.region", "")
	v.SetDefault("notifications.sns.enabled", false)
	v.SetDefault("notifications.sns.topic_arn", "")
	v.SetDefault("notifications.ses.enabled", false)
	v.SetDefault("notifications.ses.from_email", "")
	v.SetDefault("notifications.ses.to_emails", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Improved environment variable expansion
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion.
// These are the variable names deployments already carry.
func overrideEmptyConfig(cfg *Config) {
	overrides := []struct {
		dst *string
		env string
	}{
		{&cfg.Server.FetchSecret, "MENU_FETCH_PASSWORD"},
		{&cfg.Database.URL, "DATABASE_URL"},
		{&cfg.Database.Postgres.User, "DB_USER"},
		{&cfg.Database.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Confluence.BaseURL, "CONFLUENCE_BASE_URL"},
		{&cfg.Confluence.Auth, "CONFLUENCE_AUTH"},
		{&cfg.Confluence.PageID, "CONFLUENCE_PAGE_ID"},
		{&cfg.OpenAI.APIKey, "OPENAI_API_KEY"},
		{&cfg.OpenAI.Model, "OPENAI_MODEL"},
		{&cfg.Notifications.AWS.Region, "AWS_REGION"},
	}
	for _, o := range overrides {
		if *o.dst == "" {
			if val := os.Getenv(o.env); val != "" {
				*o.dst = val
			}
		}
	}
}

// applyDefaults fills fields whose default depends on other fields
func applyDefaults(cfg *Config) {
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Fetcher.Source = strings.ToLower(strings.TrimSpace(cfg.Fetcher.Source))

	if cfg.Scheduler.Timezone == "" {
		cfg.Scheduler.Timezone = cfg.App.Timezone
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Fetcher.MaxRetries < 1 {
		cfg.Fetcher.MaxRetries = 1
	}
	if cfg.Server.RateLimitRPS > 0 && cfg.Server.RateLimitBurst < 1 {
		cfg.Server.RateLimitBurst = 1
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone %q: %w", cfg.App.Timezone, err)
	}
	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return fmt.Errorf("scheduler.timezone %q: %w", cfg.Scheduler.Timezone, err)
	}

	switch cfg.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.Database.URL == "" && cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.url or database.postgres.host is required")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver)
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}

	switch cfg.Fetcher.Source {
	case SourceMock:
	case SourceConfluence:
		if cfg.Confluence.BaseURL == "" {
			return fmt.Errorf("confluence.base_url is required")
		}
		if cfg.Confluence.PageID == "" {
			return fmt.Errorf("confluence.page_id is required")
		}
		if cfg.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required")
		}
	default:
		return fmt.Errorf("fetcher.source %q is not supported", cfg.Fetcher.Source)
	}
	if cfg.Fetcher.RetryDelay < 0 {
		return fmt.Errorf("fetcher.retry_delay must not be negative")
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.Notifications.SES.Enabled {
		if cfg.Notifications.SES.FromEmail == "" {
			return fmt.Errorf("notifications.ses.from_email is required when ses is enabled")
		}
		if len(cfg.Notifications.SES.ToEmails) == 0 {
			return fmt.Errorf("notifications.ses.to_emails is required when ses is enabled")
		}
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
