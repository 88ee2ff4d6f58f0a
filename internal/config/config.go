// Package config loads process settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendDisabled = "disabled"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"oneof=debug info warn warning error"`

	LedgerBackend string `validate:"oneof=memory postgres"`
	PostgresURL   string `validate:"required_if=LedgerBackend postgres"`

	CacheBackend  string `validate:"oneof=memory redis disabled"`
	RedisAddr     string `validate:"required_if=CacheBackend redis"`
	RedisPassword string
	RedisDB       int `validate:"min=0,max=15"`

	// bounds each cache write made after a bid is committed
	CacheWriteTimeoutMS int `validate:"min=1"`

	// empty disables cross-process fan-out
	NATSURL string

	CascadeStepsPerAgent int `validate:"min=1"`
	SeedDemo             bool
}

// Load reads the configuration from the environment and validates it
func Load() (Config, error) {
	redisDB, err := GetEnvInt("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	cacheTimeout, err := GetEnvInt("CACHE_WRITE_TIMEOUT_MS", 250)
	if err != nil {
		return Config{}, err
	}
	steps, err := GetEnvInt("CASCADE_STEPS_PER_AGENT", 1000)
	if err != nil {
		return Config{}, err
	}
	seed, err := GetEnvBool("SEED_DEMO", true)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:                 GetEnv("PORT", "8080"),
		LogLevel:             strings.ToLower(GetEnv("LOG_LEVEL", "info")),
		LedgerBackend:        strings.ToLower(GetEnv("LEDGER_BACKEND", BackendMemory)),
		PostgresURL:          GetEnv("POSTGRES_URL", ""),
		CacheBackend:         strings.ToLower(GetEnv("CACHE_BACKEND", BackendMemory)),
		RedisAddr:            GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        GetEnv("REDIS_PASSWORD", ""),
		RedisDB:              redisDB,
		CacheWriteTimeoutMS:  cacheTimeout,
		NATSURL:              GetEnv("NATS_URL", ""),
		CascadeStepsPerAgent: steps,
		SeedDemo:             seed,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server
func (c Config) Addr() string {
	return ":" + c.Port
}

// CacheWriteTimeout is CacheWriteTimeoutMS as a duration
func (c Config) CacheWriteTimeout() time.Duration {
	return time.Duration(c.CacheWriteTimeoutMS) * time.Millisecond
}

// Validate checks field constraints and reports every violation at once
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("'%s': %s", fe.Field(), message(fe)))
	}
	return fmt.Errorf("config: invalid settings: %s", strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "this field is required"
	case "oneof":
		return "should be one of " + fe.Param()
	case "min":
		return "should be greater or equal than " + fe.Param()
	case "max":
		return "should be less or equal than " + fe.Param()
	case "numeric":
		return "should be a number"
	default:
		return "failed on " + fe.Tag()
	}
}

// GetEnv returns the value of key, or def when unset or empty
func GetEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func GetEnvInt(key string, def int) (int, error) {
	v := GetEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func GetEnvBool(key string, def bool) (bool, error) {
	v := GetEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s must be a boolean: %w", key, err)
	}
	return b, nil
}
