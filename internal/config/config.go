// Package config loads application configuration from the environment,
// an optional .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Mail      MailConfig
	RateLimit RateLimitConfig
	App       AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects the gorm driver and its connection settings.
type DatabaseConfig struct {
	Driver     string // postgres, mysql or sqlite
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	Debug      bool
}

type AuthConfig struct {
	JWTSecret    string
	TokenTTL     time.Duration
	RoleCacheTTL time.Duration
	SecureCookie bool
}

// RedisConfig is optional; an empty Addr disables token revocation.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig is optional; an empty Endpoint keeps documents in memory.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MailConfig is optional; an empty Host logs emails instead of sending them.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	DialTimeout time.Duration
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type AppConfig struct {
	Dev           bool
	Migrations    bool
	Seed          bool
	LogLevel      string
	BaseURL       string
	CompanyName   string
	AdminEmail    string
	AdminPassword string
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.DBName)
	case "sqlite":
		return d.SQLitePath
	default:
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
	}
}

// URL returns the PostgreSQL connection string in URL format (golang-migrate).
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// bindings maps config keys to the environment variable that feeds them, with defaults.
var bindings = []struct {
	key, env string
	def      any
}{
	{"server.port", "PORT", "8080"},
	{"server.read_timeout", "SERVER_READ_TIMEOUT", "15s"},
	{"server.write_timeout", "SERVER_WRITE_TIMEOUT", "30s"},
	{"server.idle_timeout", "SERVER_IDLE_TIMEOUT", "60s"},

	{"database.driver", "DB_DRIVER", "postgres"},
	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", 5432},
	{"database.user", "DB_USER", "procurement"},
	{"database.password", "DB_PASSWORD", "procurement"},
	{"database.name", "DB_NAME", "procurement"},
	{"database.sslmode", "DB_SSLMODE", "disable"},
	{"database.sqlite_path", "DB_SQLITE_PATH", "procurement.db"},
	{"database.debug", "DB_DEBUG", false},

	{"auth.jwt_secret", "JWT_SECRET", ""},
	{"auth.token_ttl", "AUTH_TOKEN_TTL", "12h"},
	{"auth.role_cache_ttl", "AUTH_ROLE_CACHE_TTL", "30s"},
	{"auth.secure_cookie", "COOKIE_SECURE", false},

	{"redis.addr", "REDIS_ADDR", ""},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},

	{"storage.endpoint", "MINIO_ENDPOINT", ""},
	{"storage.access_key", "MINIO_ACCESS_KEY", ""},
	{"storage.secret_key", "MINIO_SECRET_KEY", ""},
	{"storage.bucket", "MINIO_BUCKET", "procurement-documents"},
	{"storage.use_ssl", "MINIO_USE_SSL", false},

	{"mail.host", "SMTP_HOST", ""},
	{"mail.port", "SMTP_PORT", 587},
	{"mail.username", "SMTP_USERNAME", ""},
	{"mail.password", "SMTP_PASSWORD", ""},
	{"mail.from", "MAIL_FROM", "no-reply@procurement.local"},
	{"mail.dial_timeout", "SMTP_DIAL_TIMEOUT", "10s"},

	{"rate_limit.rps", "RATE_LIMIT_RPS", 2.0},
	{"rate_limit.burst", "RATE_LIMIT_BURST", 10},

	{"app.dev", "DEV", true},
	{"app.migrations", "MIGRATIONS", false},
	{"app.seed", "DB_SEED", false},
	{"app.log_level", "LOG_LEVEL", "info"},
	{"app.base_url", "BASE_URL", "http://localhost:8080"},
	{"app.company_name", "COMPANY_NAME", "Procurement"},
	{"app.admin_email", "ADMIN_EMAIL", ""},
	{"app.admin_password", "ADMIN_PASSWORD", ""},
}

const devSecret = "dev-insecure-jwt-secret"

// Load reads configuration. Environment variables win over config.yaml,
// which wins over defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", b.env, err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			IdleTimeout:  v.GetDuration("server.idle_timeout"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("database.driver")),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DBName:     v.GetString("database.name"),
			SSLMode:    v.GetString("database.sslmode"),
			SQLitePath: v.GetString("database.sqlite_path"),
			Debug:      v.GetBool("database.debug"),
		},
		Auth: AuthConfig{
			JWTSecret:    v.GetString("auth.jwt_secret"),
			TokenTTL:     v.GetDuration("auth.token_ttl"),
			RoleCacheTTL: v.GetDuration("auth.role_cache_ttl"),
			SecureCookie: v.GetBool("auth.secure_cookie"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			Bucket:    v.GetString("storage.bucket"),
			UseSSL:    v.GetBool("storage.use_ssl"),
		},
		Mail: MailConfig{
			Host:        v.GetString("mail.host"),
			Port:        v.GetInt("mail.port"),
			Username:    v.GetString("mail.username"),
			Password:    v.GetString("mail.password"),
			From:        v.GetString("mail.from"),
			DialTimeout: v.GetDuration("mail.dial_timeout"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("rate_limit.rps"),
			Burst: v.GetInt("rate_limit.burst"),
		},
		App: AppConfig{
			Dev:           v.GetBool("app.dev"),
			Migrations:    v.GetBool("app.migrations"),
			Seed:          v.GetBool("app.seed"),
			LogLevel:      v.GetString("app.log_level"),
			BaseURL:       strings.TrimRight(v.GetString("app.base_url"), "/"),
			CompanyName:   v.GetString("app.company_name"),
			AdminEmail:    v.GetString("app.admin_email"),
			AdminPassword: v.GetString("app.admin_password"),
		},
	}

	switch cfg.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Auth.JWTSecret == "" {
		if !cfg.App.Dev {
			return nil, errors.New("JWT_SECRET is required outside dev mode")
		}
		cfg.Auth.JWTSecret = devSecret
	}
	if cfg.Auth.TokenTTL <= 0 {
		return nil, errors.New("AUTH_TOKEN_TTL must be positive")
	}
	return cfg, nil
}
