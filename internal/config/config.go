package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Links    LinksConfig    `mapstructure:"links"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Hostname     string        `mapstructure:"hostname"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Hostname        string        `mapstructure:"hostname"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// GatewayConfig holds the WhatsApp messaging gateway configuration
type GatewayConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Instance string        `mapstructure:"instance"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LinksConfig holds consent link configuration. PublicDomain is the
// externally reachable origin under which /auth/{token} links are built.
type LinksConfig struct {
	PublicDomain        string `mapstructure:"public_domain"`
	DefaultValidityDays int    `mapstructure:"default_validity_days"`
	// ExtendOnResend controls whether a stale resend recomputes expires_at
	// from the validity window. Off by default: a resend restarts the
	// staleness clock without granting a longer validity window.
	ExtendOnResend bool `mapstructure:"extend_on_resend"`
}

// DispatchConfig holds bulk-send pacing configuration
type DispatchConfig struct {
	PacingMin      time.Duration `mapstructure:"pacing_min"`
	PacingMax      time.Duration `mapstructure:"pacing_max"`
	StaleAfterDays int           `mapstructure:"stale_after_days"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HABEAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.hostname", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 15*time.Second)
	v.SetDefault("server.idleTimeout", 60*time.Second)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("links.default_validity_days", 7)
	v.SetDefault("links.extend_on_resend", false)
	v.SetDefault("dispatch.pacing_min", 5*time.Second)
	v.SetDefault("dispatch.pacing_max", 15*time.Second)
	v.SetDefault("dispatch.stale_after_days", 5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// validateConfig validates the configuration. A missing public domain is a
// startup-blocking misconfiguration: links built without it are unusable.
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Hostname == "" {
		return fmt.Errorf("database hostname is required")
	}

	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if config.Links.PublicDomain == "" {
		return fmt.Errorf("links.public_domain is required: consent links cannot be built without it")
	}

	if config.Links.DefaultValidityDays < 1 || config.Links.DefaultValidityDays > 365 {
		return fmt.Errorf("links.default_validity_days must be between 1 and 365, got %d", config.Links.DefaultValidityDays)
	}

	if config.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway base URL is required")
	}

	if config.Gateway.Instance == "" {
		return fmt.Errorf("gateway instance name is required")
	}

	if config.Dispatch.PacingMin < 0 || config.Dispatch.PacingMax < config.Dispatch.PacingMin {
		return fmt.Errorf("invalid dispatch pacing bounds: min=%s max=%s",
			config.Dispatch.PacingMin, config.Dispatch.PacingMax)
	}

	return nil
}

// GetDSN returns the database connection string
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Hostname,
		d.Port,
		d.Database,
		d.SSLMode,
	)
}

// GetServerAddress returns the server address in host:port format
func (s *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", s.Hostname, s.Port)
}

// IsSecurePublicDomain reports whether consent links will be served over HTTPS.
func (l *LinksConfig) IsSecurePublicDomain() bool {
	return strings.HasPrefix(l.PublicDomain, "https://")
}
