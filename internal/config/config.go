package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"messaging-service/internal/auth"
	"messaging-service/internal/db"
	"messaging-service/internal/repositories"
)

// Config is the full runtime configuration. Values are layered: defaults,
// then the YAML file, then the .env file, then the process environment.
type Config struct {
	AppEnv   string `yaml:"app_env"`
	Port     string `yaml:"port"`
	GRPCPort string `yaml:"grpc_port"`

	DBDriver       string `yaml:"db_driver"`
	DBDSN          string `yaml:"db_dsn"`
	DBMaxOpenConns int    `yaml:"db_max_open_conns"`

	SecretKey             string `yaml:"secret_key"`
	Algorithm             string `yaml:"algorithm"`
	AccessTokenExpireDays int    `yaml:"access_token_expire_days"`

	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`

	OTLPEndpoint string `yaml:"otel_exporter_otlp_endpoint"`
	LogLevel     string `yaml:"log_level"`

	CORSAllowedOrigins     []string `yaml:"cors_allowed_origins"`
	EmptyListPolicy        string   `yaml:"empty_list_policy"`
	ProtectUserScopedViews bool     `yaml:"protect_user_scoped_views"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		AppEnv:                "development",
		Port:                  "8083",
		GRPCPort:              "9083",
		DBDriver:              db.DriverPostgres,
		Algorithm:             "HS256",
		AccessTokenExpireDays: 7,
		AMQPExchange:          "audit",
		LogLevel:              "info",
		EmptyListPolicy:       string(repositories.ListEmpty),
	}
}

// Load builds a Config from the optional YAML file at path and the optional
// env file, then applies the process environment. A missing env file is not
// an error; a missing YAML file is.
func Load(path, envFile string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already present in the environment
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("APP_ENV", &cfg.AppEnv)
	str("PORT", &cfg.Port)
	str("GRPC_PORT", &cfg.GRPCPort)
	str("DB_DRIVER", &cfg.DBDriver)
	str("DB_DSN", &cfg.DBDSN)
	str("SECRET_KEY", &cfg.SecretKey)
	str("ALGORITHM", &cfg.Algorithm)
	str("AMQP_URL", &cfg.AMQPURL)
	str("AMQP_EXCHANGE", &cfg.AMQPExchange)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("EMPTY_LIST_POLICY", &cfg.EmptyListPolicy)

	if err := integer("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns); err != nil {
		return err
	}
	if err := integer("ACCESS_TOKEN_EXPIRE_DAYS", &cfg.AccessTokenExpireDays); err != nil {
		return err
	}

	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok {
		cfg.CORSAllowedOrigins = splitList(v)
	}
	if v, ok := lookup("PROTECT_USER_SCOPED_VIEWS"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PROTECT_USER_SCOPED_VIEWS: %w", err)
		}
		cfg.ProtectUserScopedViews = b
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports the first setting that would stop the service from starting.
func (c Config) Validate() error {
	switch c.DBDriver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return errors.New("DB_DSN is required")
	}
	if c.SecretKey == "" {
		return errors.New("SECRET_KEY is required")
	}
	if !auth.SupportedAlgorithm(c.Algorithm) {
		return fmt.Errorf("unsupported ALGORITHM %q", c.Algorithm)
	}
	if c.AccessTokenExpireDays <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_DAYS must be positive, got %d", c.AccessTokenExpireDays)
	}
	if _, err := repositories.ParseListPolicy(c.EmptyListPolicy); err != nil {
		return err
	}
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	return nil
}

// TokenTTL is the default token lifetime.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireDays) * 24 * time.Hour
}

// ListPolicy returns the parsed empty-list policy. Call Validate first.
func (c Config) ListPolicy() repositories.ListPolicy {
	p, _ := repositories.ParseListPolicy(c.EmptyListPolicy)
	return p
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production") || strings.EqualFold(c.AppEnv, "prod")
}
