package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config represents the runtime configuration for the talentgate access service.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	RingBufferSize  int           `mapstructure:"ring_buffer_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Path               string        `mapstructure:"path"`
	DSN                string        `mapstructure:"dsn"`
	Postgres           DBAuthConfig  `mapstructure:"postgres"`
	MySQL              DBAuthConfig  `mapstructure:"mysql"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig describes how callers identify themselves. Authentication itself happens
// upstream; this service only reads the resulting identity.
type AuthConfig struct {
	IdentityHeader string      `mapstructure:"identity_header"`
	JWT            JWTSettings `mapstructure:"jwt"`
}

// JWTSettings enables reading the caller from a bearer token issued upstream. An empty secret
// disables token identity and only the identity header is honoured.
type JWTSettings struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Reporter   ReporterConfig   `mapstructure:"reporter"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// ReporterConfig schedules the gauge refresh job.
type ReporterConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// AuditConfig controls audit log reads.
type AuditConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("TALENTGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Server.RingBufferSize < 0 {
		errs = multierr.Append(errs, errors.New("server.ring_buffer_size must not be negative"))
	}

	switch strings.ToLower(strings.TrimSpace(c.Database.Driver)) {
	case "", "sqlite", "postgres", "postgresql", "mysql", "mariadb":
	default:
		errs = multierr.Append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}

	if strings.TrimSpace(c.Auth.IdentityHeader) == "" && strings.TrimSpace(c.Auth.JWT.Secret) == "" {
		errs = multierr.Append(errs, errors.New("auth needs an identity_header or a jwt.secret"))
	}

	if c.Monitoring.Reporter.Enabled {
		if _, err := cron.ParseStandard(c.Monitoring.Reporter.Schedule); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("monitoring.reporter.schedule: %w", err))
		}
	}

	if c.Audit.DefaultPageSize <= 0 {
		errs = multierr.Append(errs, errors.New("audit.default_page_size must be positive"))
	}

	return errs
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.ring_buffer_size", 200)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/talentgate.sqlite")
	v.SetDefault("database.slow_query_threshold", "200ms")

	v.SetDefault("auth.identity_header", "X-User-ID")
	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.reporter.enabled", true)
	v.SetDefault("monitoring.reporter.schedule", "@every 1m")

	v.SetDefault("audit.default_page_size", 100)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
