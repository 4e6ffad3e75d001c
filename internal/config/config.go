package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host               string
	Port               int
	AllowedOrigins     []string
	RateLimitPerMinute int
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

type AuthConfig struct {
	// AccessSecret enables the bearer token gate when set.
	AccessSecret string
}

type ReportsConfig struct {
	DriverDefaultRangeDays  int
	VehicleDefaultRangeDays int
	MaxRangeDays            int
	DriverEventLimit        int
	VehicleEventLimit       int
	TripBatchSize           int
	DropdownCacheTTL        time.Duration
}

type Config struct {
	Environment string
	LogLevel    string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Reports     ReportsConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		HTTP: HTTPConfig{
			Host:               v.GetString("HTTP_HOST"),
			Port:               v.GetInt("HTTP_PORT"),
			AllowedOrigins:     splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnectTimeout:  v.GetDuration("DB_CONNECT_TIMEOUT"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
		},
		Reports: ReportsConfig{
			DriverDefaultRangeDays:  v.GetInt("DRIVER_DEFAULT_RANGE_DAYS"),
			VehicleDefaultRangeDays: v.GetInt("VEHICLE_DEFAULT_RANGE_DAYS"),
			MaxRangeDays:            v.GetInt("ANALYTICS_MAX_RANGE_DAYS"),
			DriverEventLimit:        v.GetInt("DRIVER_EVENT_LIMIT"),
			VehicleEventLimit:       v.GetInt("VEHICLE_EVENT_LIMIT"),
			TripBatchSize:           v.GetInt("TRIP_BATCH_SIZE"),
			DropdownCacheTTL:        v.GetDuration("DROPDOWN_CACHE_TTL"),
		},
	}

	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7085
	}
	if cfg.HTTP.RateLimitPerMinute == 0 {
		cfg.HTTP.RateLimitPerMinute = 120
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.DB.MaxOpenConns <= 0 {
		cfg.DB.MaxOpenConns = 10
	}
	if cfg.DB.MaxIdleConns <= 0 {
		cfg.DB.MaxIdleConns = 5
	}
	if cfg.DB.ConnMaxLifetime <= 0 {
		cfg.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.DB.ConnectTimeout <= 0 {
		cfg.DB.ConnectTimeout = 30 * time.Second
	}
	if cfg.Reports.DriverDefaultRangeDays <= 0 {
		cfg.Reports.DriverDefaultRangeDays = 1
	}
	if cfg.Reports.VehicleDefaultRangeDays <= 0 {
		cfg.Reports.VehicleDefaultRangeDays = 2
	}
	if cfg.Reports.MaxRangeDays <= 0 {
		cfg.Reports.MaxRangeDays = 366
	}
	if cfg.Reports.DriverEventLimit <= 0 {
		cfg.Reports.DriverEventLimit = 1000
	}
	if cfg.Reports.VehicleEventLimit <= 0 {
		cfg.Reports.VehicleEventLimit = 500
	}
	if cfg.Reports.TripBatchSize <= 0 {
		cfg.Reports.TripBatchSize = 100
	}
	if cfg.Reports.DropdownCacheTTL <= 0 {
		cfg.Reports.DropdownCacheTTL = 10 * time.Minute
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d is out of range", cfg.HTTP.Port)
	}
	if cfg.Reports.DriverDefaultRangeDays > cfg.Reports.MaxRangeDays || cfg.Reports.VehicleDefaultRangeDays > cfg.Reports.MaxRangeDays {
		return fmt.Errorf("default ranges must not exceed ANALYTICS_MAX_RANGE_DAYS (%d)", cfg.Reports.MaxRangeDays)
	}
	if cfg.Reports.TripBatchSize > 1000 {
		return fmt.Errorf("TRIP_BATCH_SIZE %d exceeds 1000", cfg.Reports.TripBatchSize)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
