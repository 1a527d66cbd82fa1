package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Map source kinds.
const (
	SourceOverpass = "overpass"
	SourceSnapshot = "snapshot"
	SourcePostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Source    SourceConfig    `mapstructure:"source"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	QueryTimeout int `mapstructure:"query_timeout"` // seconds per evaluation
	RateLimit    int `mapstructure:"rate_limit"`    // requests per minute per IP
}

// SourceConfig selects where raw map data comes from.
type SourceConfig struct {
	Kind              string   `mapstructure:"kind"`
	OverpassURL       string   `mapstructure:"overpass_url"`
	OverpassTimeout   int      `mapstructure:"overpass_timeout"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second"`
	Burst             int      `mapstructure:"burst"`
	UserAgent         string   `mapstructure:"user_agent"`
	SnapshotPaths     []string `mapstructure:"snapshot_paths"`
	CacheTTL          int      `mapstructure:"cache_ttl"` // seconds, 0 disables
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr     string `mapstructure:"addr"`
	Enabled  bool   `mapstructure:"enabled"`
	LocalTTL int    `mapstructure:"local_ttl"` // seconds of client-side caching, 0 disables
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	return load(v)
}

// LoadFile reads configuration from an explicit YAML file, still honouring
// environment overrides.
func LoadFile(service, path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	return load(v)
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 30)
	v.SetDefault("server.query_timeout", 15)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("source.kind", SourceOverpass)
	v.SetDefault("source.overpass_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("source.overpass_timeout", 60)
	v.SetDefault("source.requests_per_second", 1.0)
	v.SetDefault("source.burst", 1)
	v.SetDefault("source.user_agent", "nrplanner/1.0")
	v.SetDefault("source.snapshot_paths", []string{})
	v.SetDefault("source.cache_ttl", 3600)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "nrplanner")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "nrplanner")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.enabled", false)
	v.SetDefault("valkey.local_ttl", 0)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func load(v *viper.Viper) (*Config, error) {
	// Environment variables: NRPLANNER_SOURCE_KIND → source.kind
	v.SetEnvPrefix("NRPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.QueryTimeout <= 0 {
		errs = append(errs, "server.query_timeout must be positive")
	}
	if c.Source.CacheTTL < 0 {
		errs = append(errs, "source.cache_ttl must not be negative")
	}

	switch c.Source.Kind {
	case SourceOverpass:
		if c.Source.OverpassURL == "" {
			errs = append(errs, "source.overpass_url is required for the overpass source")
		}
		if c.Source.RequestsPerSecond <= 0 {
			errs = append(errs, "source.requests_per_second must be positive")
		}
	case SourceSnapshot:
		if len(c.Source.SnapshotPaths) == 0 {
			errs = append(errs, "source.snapshot_paths is required for the snapshot source")
		}
	case SourcePostgres:
		errs = append(errs, c.Database.validate()...)
	default:
		errs = append(errs, fmt.Sprintf("source.kind must be overpass, snapshot or postgres, got %q", c.Source.Kind))
	}

	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func (d DatabaseConfig) validate() []string {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user is required")
	}
	if d.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	return errs
}
