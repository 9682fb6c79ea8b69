package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultDebounce = 600 * time.Millisecond

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Session  SessionConfig  `mapstructure:"session"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Security SecurityConfig `mapstructure:"security"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Editor   EditorConfig   `mapstructure:"editor"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // gin mode: debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// StoreConfig selects the page store backend.
type StoreConfig struct {
	Driver      string `mapstructure:"driver"` // file, sqlite, postgres, redis
	Path        string `mapstructure:"path"`   // data file for the file driver
	DSN         string `mapstructure:"dsn"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

type SessionConfig struct {
	Name   string `mapstructure:"name"`
	Secret string `mapstructure:"secret"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type SecurityConfig struct {
	RateLimitRequests float64 `mapstructure:"rate_limit_requests"` // per second, per client IP; 0 disables
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EditorConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
	APIURL   string        `mapstructure:"api_url"` // server used by the watch command
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads .env, an optional config file and the environment. Environment
// variables take precedence over file values.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVars(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Note-Drop")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")

	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "./data/pages.json")
	v.SetDefault("store.dsn", "file:./data/pages.db?cache=shared")
	v.SetDefault("store.redis_url", "redis://localhost:6379/0")
	v.SetDefault("store.redis_prefix", "note:")

	v.SetDefault("session.name", "notedrop")
	v.SetDefault("session.secret", "change-this-session-secret")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("security.rate_limit_requests", 20)
	v.SetDefault("security.rate_limit_burst", 40)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("editor.debounce", DefaultDebounce.String())
	v.SetDefault("editor.api_url", "http://localhost:8080")
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("app.base_url", "APP_URL")
	_ = v.BindEnv("server.host", "SERVER_HOST")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.mode", "GIN_MODE")
	_ = v.BindEnv("store.driver", "STORE_DRIVER")
	_ = v.BindEnv("store.path", "DATA_FILE")
	_ = v.BindEnv("store.dsn", "DATABASE_URL")
	_ = v.BindEnv("store.redis_url", "REDIS_URL")
	_ = v.BindEnv("session.secret", "SESSION_SECRET")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
	_ = v.BindEnv("logger.format", "LOG_FORMAT")
	_ = v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	_ = v.BindEnv("security.rate_limit_burst", "RATE_LIMIT_BURST")
	_ = v.BindEnv("metrics.enabled", "ENABLE_METRICS")
	_ = v.BindEnv("editor.debounce", "EDITOR_DEBOUNCE")
	_ = v.BindEnv("editor.api_url", "NOTEDROP_API_URL")
}

func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case "file":
		if cfg.Store.Path == "" {
			return fmt.Errorf("store path is required for the file driver")
		}
	case "sqlite", "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for the %s driver", cfg.Store.Driver)
		}
	case "redis":
		if cfg.Store.RedisURL == "" {
			return fmt.Errorf("redis url is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server mode %q", cfg.Server.Mode)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if cfg.Editor.Debounce <= 0 {
		return fmt.Errorf("editor debounce must be positive")
	}
	return nil
}
