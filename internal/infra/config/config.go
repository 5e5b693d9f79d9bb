// Package config provides application-wide configuration.
// Values come from an optional YAML file and are then overridden by environment variables.
// A .env file in the working directory is loaded into the environment first; variables
// already set in the process environment win over it.
// Every field except the credentials has a safe default so the binary runs locally without setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Credentials identify the caller to the integrator gateway.
// They are checked per call by the API client, not at load time.
type Credentials struct {
	IntegratorID string `yaml:"integrator_id"` // INTEGRATOR_ID
	SecretID     string `yaml:"secret_id"`     // SECRET_ID
	SecretKey    string `yaml:"secret_key"`    // SECRET_KEY
}

// Config holds runtime configuration. It is built once at startup and never mutated.
type Config struct {
	Credentials Credentials `yaml:"credentials"`

	// Remote API
	BaseURL    string        `yaml:"base_url"` // HANDAAS_BASE_URL, default "https://console.handaas.com"
	Timeout    time.Duration `yaml:"-"`        // HANDAAS_TIMEOUT, default 30s
	TimeoutRaw string        `yaml:"timeout"`  // Go duration string, e.g. "15s"

	// HTTP transports
	HTTPHost   string `yaml:"http_host"`   // MCP_HTTP_HOST, default "127.0.0.1"
	HTTPPort   int    `yaml:"http_port"`   // MCP_HTTP_PORT, default 8000
	AuthSecret string `yaml:"auth_secret"` // MCP_AUTH_SECRET: empty disables bearer auth

	// Call audit trail
	AuditDBPath string `yaml:"audit_db_path"` // AUDIT_DB_PATH: empty disables the audit trail

	// Logging
	LogLevel  string `yaml:"log_level"`  // LOG_LEVEL, default "info"
	LogFormat string `yaml:"log_format"` // LOG_FORMAT, default "text"
}

const (
	envKeyIntegratorID = "INTEGRATOR_ID"
	envKeySecretID     = "SECRET_ID"
	envKeySecretKey    = "SECRET_KEY"
	envKeyBaseURL      = "HANDAAS_BASE_URL"
	envKeyTimeout      = "HANDAAS_TIMEOUT"
	envKeyHTTPHost     = "MCP_HTTP_HOST"
	envKeyHTTPPort     = "MCP_HTTP_PORT"
	envKeyAuthSecret   = "MCP_AUTH_SECRET"
	envKeyAuditDBPath  = "AUDIT_DB_PATH"
	envKeyLogLevel     = "LOG_LEVEL"
	envKeyLogFormat    = "LOG_FORMAT"
)

// DotEnvFile is read from the working directory by Load when present.
const DotEnvFile = ".env"

const (
	DefaultBaseURL   = "https://console.handaas.com"
	DefaultTimeout   = 30 * time.Second
	DefaultHTTPHost  = "127.0.0.1"
	DefaultHTTPPort  = 8000
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the configuration used when neither file nor environment set a value.
func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Timeout:   DefaultTimeout,
		HTTPHost:  DefaultHTTPHost,
		HTTPPort:  DefaultHTTPPort,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// Load reads the YAML file at path (skipped when path is empty), loads
// DotEnvFile into the environment, then applies environment overrides.
// A missing file named explicitly is an error; a missing .env is not.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := loadDotEnv(DotEnvFile); err != nil {
		return Config{}, err
	}

	cfg.Credentials.IntegratorID = envOr(envKeyIntegratorID, cfg.Credentials.IntegratorID)
	cfg.Credentials.SecretID = envOr(envKeySecretID, cfg.Credentials.SecretID)
	cfg.Credentials.SecretKey = envOr(envKeySecretKey, cfg.Credentials.SecretKey)
	cfg.BaseURL = envOr(envKeyBaseURL, cfg.BaseURL)
	cfg.HTTPHost = envOr(envKeyHTTPHost, cfg.HTTPHost)
	cfg.AuthSecret = envOr(envKeyAuthSecret, cfg.AuthSecret)
	cfg.AuditDBPath = envOr(envKeyAuditDBPath, cfg.AuditDBPath)
	cfg.LogLevel = envOr(envKeyLogLevel, cfg.LogLevel)
	cfg.LogFormat = envOr(envKeyLogFormat, cfg.LogFormat)

	if raw := envOr(envKeyTimeout, cfg.TimeoutRaw); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("config: parse timeout %q: %w", raw, err)
		}
		if d <= 0 {
			return Config{}, fmt.Errorf("config: timeout %q must be positive", raw)
		}
		cfg.Timeout = d
	}
	if raw := os.Getenv(envKeyHTTPPort); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return Config{}, fmt.Errorf("config: invalid %s %q", envKeyHTTPPort, raw)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config: file %q does not exist", path)
		}
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

// loadDotEnv copies the variables of the dotenv file at path into the process
// environment without overriding ones already set. A missing file is ignored.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
