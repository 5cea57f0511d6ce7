package internal

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// SecurityConfig carries the token and key-handling settings consumed by the
// auth service. SystemKey is the base64-encoded symmetric key used to decrypt
// stored per-user signing keys.
type SecurityConfig struct {
	TokenTTL      time.Duration `mapstructure:"token_ttl" validate:"required,min=1m"`
	TokenIssuer   string        `mapstructure:"token_issuer" validate:"required"`
	TokenAudience string        `mapstructure:"token_audience" validate:"required"`
	SystemKey     string        `mapstructure:"system_key" validate:"required"`
	BCryptCost    int           `mapstructure:"bcrypt_cost" validate:"min=10,max=15"`
	MaxLoginTries int           `mapstructure:"max_login_tries"`
	LockoutWindow time.Duration `mapstructure:"lockout_window"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SystemKeyBytes decodes the configured symmetric key. AES-256 requires
// exactly 32 bytes.
func (c SecurityConfig) SystemKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.SystemKey)
	if err != nil {
		return nil, fmt.Errorf("decode system key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("system key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c *Config) Validate() error {
	if c.Database.Source == "" {
		return errors.New("database.source is required")
	}
	if c.Security.TokenTTL <= 0 {
		return errors.New("security.token_ttl is required")
	}
	if c.Security.TokenIssuer == "" {
		return errors.New("security.token_issuer is required")
	}
	if c.Security.TokenAudience == "" {
		return errors.New("security.token_audience is required")
	}
	if _, err := c.Security.SystemKeyBytes(); err != nil {
		return err
	}
	return nil
}

// LoadConfigFromEnv builds a Config from environment variables, used for
// container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         envInt("SERVER_PORT", 8080),
			BaseURL:      os.Getenv("SERVER_BASE_URL"),
			ReadTimeout:  envDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: envDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  envDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Source:       os.Getenv("DATABASE_SOURCE"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Security: SecurityConfig{
			TokenTTL:      envDuration("SECURITY_TOKEN_TTL", time.Hour),
			TokenIssuer:   envString("SECURITY_TOKEN_ISSUER", "aegis-identity"),
			TokenAudience: os.Getenv("SECURITY_TOKEN_AUDIENCE"),
			SystemKey:     os.Getenv("SECURITY_SYSTEM_KEY"),
			BCryptCost:    envInt("SECURITY_BCRYPT_COST", 12),
			MaxLoginTries: envInt("SECURITY_MAX_LOGIN_TRIES", 5),
			LockoutWindow: envDuration("SECURITY_LOCKOUT_WINDOW", 15*time.Minute),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  envString("LOG_LEVEL", "info"),
				Format: envString("LOG_FORMAT", "json"),
			},
		},
	}
	return cfg
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
