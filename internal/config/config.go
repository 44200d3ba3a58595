package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/forecast-sync/internal/common"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const defaultSQLitePath = "forecast.db"

type AppConfig struct {
	Port     string `validate:"required"`
	Env      string
	LogLevel string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string        `validate:"omitempty,url"`
	ForecastDays       int           `validate:"min=1,max=16"`
	HTTPTimeout        time.Duration `validate:"gt=0"`
	FetchMaxRetries    int           `validate:"gte=0"`

	// Location is the default location query, e.g. "Seoul,KR".
	Location  string `validate:"required"`
	// UTCOffset fixes the calendar used to normalize forecast dates.
	UTCOffset time.Duration

	SyncInterval    time.Duration `validate:"gt=0"`
	SyncFlex        time.Duration `validate:"gte=0,ltfield=SyncInterval"`
	MinSyncInterval time.Duration `validate:"gte=0"`

	StoreDriver string `validate:"oneof=memory sqlite postgres"`
	DatabaseURL string `validate:"required_if=StoreDriver postgres"`
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string `validate:"required_with=KafkaBrokers"`

	NotificationsEnabled bool
	Units                string `validate:"oneof=metric imperial"`
}

var validate = validator.New()

// Load reads configuration from .env, an optional config file and the
// environment, applies defaults and validates the result.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("OPENWEATHER_API_KEY", "")
	v.SetDefault("OPENWEATHER_BASE_URL", "")
	v.SetDefault("FORECAST_DAYS", 14)
	v.SetDefault("HTTP_TIMEOUT", "20s")
	v.SetDefault("FETCH_MAX_RETRIES", 0)

	v.SetDefault("WEATHER_LOCATION", "Seoul,KR")
	v.SetDefault("UTC_OFFSET", "0s")

	v.SetDefault("SYNC_INTERVAL", "3h")
	v.SetDefault("SYNC_FLEX", "5m")
	v.SetDefault("MIN_SYNC_INTERVAL", "30m")

	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "forecast-notifications")

	v.SetDefault("NOTIFICATIONS_ENABLED", true)
	v.SetDefault("UNITS", "metric")
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{
		Port:                 v.GetString("PORT"),
		Env:                  v.GetString("APP_ENV"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		OpenWeatherAPIKey:    v.GetString("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL:   v.GetString("OPENWEATHER_BASE_URL"),
		ForecastDays:         v.GetInt("FORECAST_DAYS"),
		FetchMaxRetries:      v.GetInt("FETCH_MAX_RETRIES"),
		Location:             strings.TrimSpace(v.GetString("WEATHER_LOCATION")),
		StoreDriver:          strings.ToLower(v.GetString("STORE_DRIVER")),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RedisURL:             v.GetString("REDIS_URL"),
		KafkaBrokers:         common.SplitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:           v.GetString("KAFKA_TOPIC"),
		NotificationsEnabled: v.GetBool("NOTIFICATIONS_ENABLED"),
		Units:                strings.ToLower(v.GetString("UNITS")),
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"UTC_OFFSET", &cfg.UTCOffset},
		{"SYNC_INTERVAL", &cfg.SyncInterval},
		{"SYNC_FLEX", &cfg.SyncFlex},
		{"MIN_SYNC_INTERVAL", &cfg.MinSyncInterval},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if cfg.StoreDriver == DriverSQLite && cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultSQLitePath
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
