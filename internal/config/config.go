package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		DBName          string `yaml:"dbname"`
		SSLMode         string `yaml:"sslmode"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
	} `yaml:"database"`

	JWT struct {
		Secret                 string `yaml:"secret"`
		AccessTokenExpiration  string `yaml:"access_token_expiration"`
		StudentScopeExpiration string `yaml:"student_scope_expiration"`
		Issuer                 string `yaml:"issuer"`
	} `yaml:"jwt"`

	Gateway struct {
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
		Timeout  string `yaml:"timeout"`
		Currency string `yaml:"currency"`
	} `yaml:"gateway"`

	Reconciler struct {
		MaxSyncAttempts int    `yaml:"max_sync_attempts"`
		InitialBackoff  string `yaml:"initial_backoff"`
		MaxBackoff      string `yaml:"max_backoff"`
		IntentTTL       string `yaml:"intent_ttl"`
		ReapInterval    string `yaml:"reap_interval"`
	} `yaml:"reconciler"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	loadFromEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "schoolsphere"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"

	config.JWT.AccessTokenExpiration = "1h"
	config.JWT.StudentScopeExpiration = "30m"
	config.JWT.Issuer = "schoolsphere.app"

	config.Gateway.Timeout = "15s"
	config.Gateway.Currency = "EUR"

	config.Reconciler.MaxSyncAttempts = 5
	config.Reconciler.InitialBackoff = "200ms"
	config.Reconciler.MaxBackoff = "10s"
	config.Reconciler.IntentTTL = "30m"
	config.Reconciler.ReapInterval = "5m"

	config.Logging.Level = "info"
	config.Logging.Format = "json"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) {
	config.Server.Port = GetEnv("SERVER_PORT", config.Server.Port)
	config.Server.Mode = GetEnv("SERVER_MODE", config.Server.Mode)

	config.Database.Host = GetEnv("DB_HOST", config.Database.Host)
	config.Database.Port = GetEnv("DB_PORT", config.Database.Port)
	config.Database.User = GetEnv("DB_USER", config.Database.User)
	config.Database.Password = GetEnv("DB_PASSWORD", config.Database.Password)
	config.Database.DBName = GetEnv("DB_NAME", config.Database.DBName)
	config.Database.SSLMode = GetEnv("DB_SSLMODE", config.Database.SSLMode)
	config.Database.MaxIdleConns = GetEnvAsInt("DB_MAX_IDLE_CONNS", config.Database.MaxIdleConns)
	config.Database.MaxOpenConns = GetEnvAsInt("DB_MAX_OPEN_CONNS", config.Database.MaxOpenConns)
	config.Database.ConnMaxLifetime = GetEnv("DB_CONN_MAX_LIFETIME", config.Database.ConnMaxLifetime)

	config.JWT.Secret = GetEnv("JWT_SECRET", config.JWT.Secret)
	config.JWT.AccessTokenExpiration = GetEnv("JWT_ACCESS_TOKEN_EXPIRATION", config.JWT.AccessTokenExpiration)
	config.JWT.StudentScopeExpiration = GetEnv("JWT_STUDENT_SCOPE_EXPIRATION", config.JWT.StudentScopeExpiration)
	config.JWT.Issuer = GetEnv("JWT_ISSUER", config.JWT.Issuer)

	config.Gateway.BaseURL = GetEnv("GATEWAY_BASE_URL", config.Gateway.BaseURL)
	config.Gateway.APIKey = GetEnv("GATEWAY_API_KEY", config.Gateway.APIKey)
	config.Gateway.Timeout = GetEnv("GATEWAY_TIMEOUT", config.Gateway.Timeout)
	config.Gateway.Currency = GetEnv("GATEWAY_CURRENCY", config.Gateway.Currency)

	config.Reconciler.MaxSyncAttempts = GetEnvAsInt("RECONCILER_MAX_SYNC_ATTEMPTS", config.Reconciler.MaxSyncAttempts)
	config.Reconciler.InitialBackoff = GetEnv("RECONCILER_INITIAL_BACKOFF", config.Reconciler.InitialBackoff)
	config.Reconciler.MaxBackoff = GetEnv("RECONCILER_MAX_BACKOFF", config.Reconciler.MaxBackoff)
	config.Reconciler.IntentTTL = GetEnv("RECONCILER_INTENT_TTL", config.Reconciler.IntentTTL)
	config.Reconciler.ReapInterval = GetEnv("RECONCILER_REAP_INTERVAL", config.Reconciler.ReapInterval)

	config.Logging.Level = GetEnv("LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = GetEnv("LOG_FORMAT", config.Logging.Format)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if config.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}

	if config.Reconciler.MaxSyncAttempts < 1 {
		return fmt.Errorf("reconciler must allow at least one sync attempt")
	}

	for name, value := range map[string]string{
		"JWT access token expiration":  config.JWT.AccessTokenExpiration,
		"JWT student scope expiration": config.JWT.StudentScopeExpiration,
		"gateway timeout":              config.Gateway.Timeout,
		"reconciler initial backoff":   config.Reconciler.InitialBackoff,
		"reconciler max backoff":       config.Reconciler.MaxBackoff,
		"reconciler intent TTL":        config.Reconciler.IntentTTL,
		"reconciler reap interval":     config.Reconciler.ReapInterval,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// GetEnv gets an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt gets an environment variable as an integer or returns a default value
func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := GetEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// ParseDuration parses a duration string, falling back to a default
func ParseDuration(value string, defaultValue time.Duration) time.Duration {
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}
