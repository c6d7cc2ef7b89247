package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// LogConfig controls the global zap logger.
type LogConfig struct {
	Level  string `mapstructure:"log_level" yaml:"log_level"`
	Format string `mapstructure:"log_format" yaml:"log_format"`
}

// GeocoderConfig points at a Nominatim-compatible geocoding service.
type GeocoderConfig struct {
	BaseURL   string `mapstructure:"geocoder_base_url" yaml:"geocoder_base_url"`
	UserAgent string `mapstructure:"geocoder_user_agent" yaml:"geocoder_user_agent"`
	RateLimit string `mapstructure:"geocoder_rate_limit" yaml:"geocoder_rate_limit"`
}

// BackofficeConfig holds the single operator allowed to run imports.
type BackofficeConfig struct {
	AdminEmail        string `mapstructure:"backoffice_admin_email" yaml:"backoffice_admin_email"`
	AdminPasswordHash string `mapstructure:"backoffice_admin_password_hash" yaml:"backoffice_admin_password_hash"`
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL        string           `mapstructure:"database_url" yaml:"database_url"`
	Port               string           `mapstructure:"port" yaml:"port"`
	JWTSecret          string           `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTTTL             string           `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	RateLimitImportRaw string           `mapstructure:"rate_limit_import" yaml:"rate_limit_import"`
	ImportMaxBytes     int64            `mapstructure:"import_max_bytes" yaml:"import_max_bytes"`
	DefaultPhoneRegion string           `mapstructure:"default_phone_region" yaml:"default_phone_region"`
	Log                LogConfig        `mapstructure:",squash"`
	Geocoder           GeocoderConfig   `mapstructure:",squash"`
	Backoffice         BackofficeConfig `mapstructure:",squash"`

	TokenTTL        time.Duration   `mapstructure:"-"`
	RateLimitImport RateLimitConfig `mapstructure:"-"`
	GeocoderLimit   RateLimitConfig `mapstructure:"-"`
}

// Load reads configuration from config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_url", "")
	v.SetDefault("port", "8080")
	v.SetDefault("jwt_secret", "dev-secret")
	v.SetDefault("jwt_ttl", "24h")
	v.SetDefault("rate_limit_import", "5/min")
	v.SetDefault("import_max_bytes", 50<<20)
	v.SetDefault("default_phone_region", "US")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("geocoder_base_url", "")
	v.SetDefault("geocoder_user_agent", "localpros-api/1.0")
	v.SetDefault("geocoder_rate_limit", "1/s")
	v.SetDefault("backoffice_admin_email", "")
	v.SetDefault("backoffice_admin_password_hash", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	cfg.TokenTTL = parseDuration(cfg.JWTTTL)

	rl, err := parseRateLimit(cfg.RateLimitImportRaw)
	if err != nil {
		return nil, eris.Wrap(err, "config: invalid RATE_LIMIT_IMPORT value")
	}
	cfg.RateLimitImport = rl

	gl, err := parseRateLimit(cfg.Geocoder.RateLimit)
	if err != nil {
		return nil, eris.Wrap(err, "config: invalid GEOCODER_RATE_LIMIT value")
	}
	cfg.GeocoderLimit = gl

	if cfg.ImportMaxBytes <= 0 {
		cfg.ImportMaxBytes = 50 << 20
	}

	return &cfg, nil
}

// InitLogger builds the global zap logger from cfg.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, eris.Errorf("expected format <requests>/<interval>, got %q", value)
	}
	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, eris.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, eris.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func parseDuration(input string) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}
