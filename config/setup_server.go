package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

const minSecretKeyLength = 32

type AppConfig struct {
	Server         ServerConfig   `yaml:"server"`
	DatabaseConfig DatabaseConfig `yaml:"databaseConfig"`
	RedisConfig    RedisConfig    `yaml:"redisConfig"`
	JWT            JWTConfig      `yaml:"jwt"`
	Security       SecurityConfig `yaml:"security"`
	Logger         LoggerConfig   `yaml:"logger"`
	TTL            TTL            `yaml:"TTL"`
}

// LoadConfig : читает yaml-файл, применяет значения по умолчанию и переменные окружения
func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseConfig(file)
}

// ParseConfig : разбирает конфигурацию из байтов yaml
func ParseConfig(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == "" {
		cfg.Server.ReadTimeout = "15s"
	}
	if cfg.Server.WriteTimeout == "" {
		cfg.Server.WriteTimeout = "15s"
	}
	if cfg.Server.ShutdownTimeout == "" {
		cfg.Server.ShutdownTimeout = "5s"
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "community-platform"
	}
	if cfg.JWT.AccessTokenTTL == "" {
		cfg.JWT.AccessTokenTTL = "15m"
	}
	if cfg.JWT.RefreshTokenTTL == "" {
		cfg.JWT.RefreshTokenTTL = "720h"
	}
	if cfg.Security.AuthRateLimit == 0 {
		cfg.Security.AuthRateLimit = 10
	}
	if cfg.Security.RateLimitWindow == "" {
		cfg.Security.RateLimitWindow = "1m"
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.TTL.UserCache == 0 {
		cfg.TTL.UserCache = 300
	}
}

// applyEnv : секреты могут приходить из окружения, а не из файла
func (cfg *AppConfig) applyEnv() {
	if v := os.Getenv("APP_JWT_SECRET"); v != "" {
		cfg.JWT.SecretKey = v
	}
	if v := os.Getenv("APP_DATABASE_DSN"); v != "" {
		cfg.DatabaseConfig.DSN = v
	}
	if v := os.Getenv("APP_REDIS_ADDR"); v != "" {
		cfg.RedisConfig.Addr = v
	}
	if v := os.Getenv("APP_REDIS_PASSWORD"); v != "" {
		cfg.RedisConfig.Password = v
	}
}

func (cfg *AppConfig) Validate() error {
	var errs []error

	if len(cfg.JWT.SecretKey) < minSecretKeyLength {
		errs = append(errs, fmt.Errorf("jwt.secret_key должен содержать минимум %d символов", minSecretKeyLength))
	}
	if cfg.DatabaseConfig.DSN == "" {
		errs = append(errs, errors.New("databaseConfig.dsn не указан"))
	}
	if cfg.RedisConfig.Addr == "" {
		errs = append(errs, errors.New("redisConfig.addr не указан"))
	}

	durations := map[string]string{
		"jwt.access_token_ttl":       cfg.JWT.AccessTokenTTL,
		"jwt.refresh_token_ttl":      cfg.JWT.RefreshTokenTTL,
		"server.read_timeout":        cfg.Server.ReadTimeout,
		"server.write_timeout":       cfg.Server.WriteTimeout,
		"server.shutdown_timeout":    cfg.Server.ShutdownTimeout,
		"security.rate_limit_window": cfg.Security.RateLimitWindow,
	}
	for name, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s должен быть положительным", name))
		}
	}

	return errors.Join(errs...)
}

// MustDuration : значение уже проверено в Validate
func MustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("некорректная длительность %q: %v", value, err))
	}
	return d
}

func SetupServer(cfg *ServerConfig) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  MustDuration(cfg.ReadTimeout),
		WriteTimeout: MustDuration(cfg.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}

	return server, router
}

func SetupDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	db, err := NewDatabaseConnection("postgres", cfg)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
