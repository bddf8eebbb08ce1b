package app

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/aussiebroadwan/sessiond/internal/session/geoip"
	"github.com/aussiebroadwan/sessiond/internal/session/service"
	"github.com/aussiebroadwan/sessiond/pkg/snowflake"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	// GeoDisabled as GeoServiceURL turns geolocation off.
	GeoDisabled = "off"
)

type Config struct {
	// Session policy
	AccessTokenExpiry     time.Duration `koanf:"access_token_expiry"`     // default: 15m
	RefreshTokenExpiry    time.Duration `koanf:"refresh_token_expiry"`    // default: 7d
	RememberMeExpiry      time.Duration `koanf:"remember_me_expiry"`      // default: 30d
	IdleTimeout           time.Duration `koanf:"idle_timeout"`            // default: 30d
	MaxSessionsPerUser    int           `koanf:"max_sessions_per_user"`   // default: 5, 0 = unlimited
	RotateRefreshSessions bool          `koanf:"rotate_refresh_sessions"` // default: true

	// Secrets. Inline values win over files; with neither a random secret is
	// generated and lost on restart.
	TokenSecret     string `koanf:"token_secret"`
	TokenSecretFile string `koanf:"token_secret_file"`
	TOTPSecret      string `koanf:"totp_secret"` // base64
	TOTPSecretFile  string `koanf:"totp_secret_file"`
	TOTPIssuer      string `koanf:"totp_issuer"`

	// ServiceKey gates session creation. Without one anyone may create
	// sessions, but only without roles or permissions.
	ServiceKey     string `koanf:"service_key"`
	ServiceKeyFile string `koanf:"service_key_file"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// WorkerID below zero derives one from hostname and pid.
	WorkerID int64 `koanf:"worker_id"`

	GeoServiceURL    string        `koanf:"geo_service_url"` // "off" disables lookups
	GeoLookupTimeout time.Duration `koanf:"geo_lookup_timeout"`
	GeoCacheTTL      time.Duration `koanf:"geo_cache_ttl"`

	StoreDriver  string `koanf:"store_driver"` // memory or sqlite
	DatabaseFile string `koanf:"database_file"`

	Env                  string        `koanf:"env"`        // dev, staging, prod
	LogLevel             string        `koanf:"log_level"`  // debug, info, warn, error
	LogFormat            string        `koanf:"log_format"` // json, text
	Port                 int           `koanf:"port"`
	ShutdownGracePeriod  time.Duration `koanf:"shutdown_grace_period"`
	HousekeepingInterval time.Duration `koanf:"housekeeping_interval"`
	MetricsEnabled       bool          `koanf:"metrics_enabled"`
	SwaggerEnabled       bool          `koanf:"swagger_enabled"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	policy := service.DefaultConfig()
	return Config{
		AccessTokenExpiry:     policy.AccessTokenExpiry,
		RefreshTokenExpiry:    policy.RefreshTokenExpiry,
		RememberMeExpiry:      policy.RememberMeExpiry,
		IdleTimeout:           policy.IdleTimeout,
		MaxSessionsPerUser:    policy.MaxSessionsPerUser,
		RotateRefreshSessions: policy.RotateRefreshSessions,
		TOTPIssuer:            "sessiond",
		WorkerID:              -1,
		GeoServiceURL:         geoip.DefaultBaseURL,
		GeoLookupTimeout:      geoip.DefaultTimeout,
		GeoCacheTTL:           geoip.DefaultTTL,
		StoreDriver:           StoreMemory,
		DatabaseFile:          "sessions.db",
		Env:                   "dev",
		LogLevel:              "info",
		LogFormat:             "json",
		Port:                  8080,
		ShutdownGracePeriod:   10 * time.Second,
		HousekeepingInterval:  time.Hour,
		MetricsEnabled:        true,
		SwaggerEnabled:        true,
	}
}

// LoadConfig layers defaults, the YAML file named by CONFIG_FILE (if any) and
// environment variables, then validates the result.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg. Keys missing from the file keep
// their current value.
func loadFile(path string, cfg *Config) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			TagName:          "koanf",
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				stringToDurationHook(),
			),
		},
	})
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.AccessTokenExpiry = getEnvDurationOrDefault("SESSION_ACCESS_TOKEN_EXPIRY", cfg.AccessTokenExpiry)
	cfg.RefreshTokenExpiry = getEnvDurationOrDefault("SESSION_REFRESH_TOKEN_EXPIRY", cfg.RefreshTokenExpiry)
	cfg.RememberMeExpiry = getEnvDurationOrDefault("SESSION_REMEMBER_ME_EXPIRY", cfg.RememberMeExpiry)
	cfg.IdleTimeout = getEnvDurationOrDefault("SESSION_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.MaxSessionsPerUser = getEnvIntOrDefault("SESSION_MAX_PER_USER", cfg.MaxSessionsPerUser)
	cfg.RotateRefreshSessions = getEnvBoolOrDefault("SESSION_ROTATE_REFRESH", cfg.RotateRefreshSessions)

	cfg.TokenSecret = getEnvOrDefault("SESSION_TOKEN_SECRET", cfg.TokenSecret)
	cfg.TokenSecretFile = getEnvOrDefault("SESSION_TOKEN_SECRET_FILE", cfg.TokenSecretFile)
	cfg.TOTPSecret = getEnvOrDefault("SESSION_TOTP_SECRET", cfg.TOTPSecret)
	cfg.TOTPSecretFile = getEnvOrDefault("SESSION_TOTP_SECRET_FILE", cfg.TOTPSecretFile)
	cfg.TOTPIssuer = getEnvOrDefault("SESSION_TOTP_ISSUER", cfg.TOTPIssuer)
	cfg.ServiceKey = getEnvOrDefault("SESSION_SERVICE_KEY", cfg.ServiceKey)
	cfg.ServiceKeyFile = getEnvOrDefault("SESSION_SERVICE_KEY_FILE", cfg.ServiceKeyFile)
	cfg.TrustProxyHeaders = getEnvBoolOrDefault("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)

	cfg.WorkerID = int64(getEnvIntOrDefault("SESSION_WORKER_ID", int(cfg.WorkerID)))

	cfg.GeoServiceURL = getEnvOrDefault("GEO_SERVICE_URL", cfg.GeoServiceURL)
	cfg.GeoLookupTimeout = getEnvDurationOrDefault("GEO_LOOKUP_TIMEOUT", cfg.GeoLookupTimeout)
	cfg.GeoCacheTTL = getEnvDurationOrDefault("GEO_CACHE_TTL", cfg.GeoCacheTTL)

	cfg.StoreDriver = getEnvOrDefault("SESSION_STORE", cfg.StoreDriver)
	cfg.DatabaseFile = getEnvOrDefault("SESSION_DATABASE_FILE", cfg.DatabaseFile)

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", cfg.HousekeepingInterval)
	cfg.MetricsEnabled = getEnvBoolOrDefault("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.SwaggerEnabled = getEnvBoolOrDefault("SWAGGER_ENABLED", cfg.SwaggerEnabled)
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error

	positive := map[string]time.Duration{
		"access_token_expiry":   c.AccessTokenExpiry,
		"refresh_token_expiry":  c.RefreshTokenExpiry,
		"remember_me_expiry":    c.RememberMeExpiry,
		"idle_timeout":          c.IdleTimeout,
		"geo_lookup_timeout":    c.GeoLookupTimeout,
		"geo_cache_ttl":         c.GeoCacheTTL,
		"shutdown_grace_period": c.ShutdownGracePeriod,
		"housekeeping_interval": c.HousekeepingInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}

	if c.MaxSessionsPerUser < 0 {
		errs = append(errs, fmt.Errorf("max_sessions_per_user must not be negative, got %d", c.MaxSessionsPerUser))
	}
	if c.WorkerID > snowflake.MaxWorkerID {
		errs = append(errs, fmt.Errorf("worker_id must be at most %d, got %d", snowflake.MaxWorkerID, c.WorkerID))
	}
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("database_file is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("store_driver must be %q or %q, got %q", StoreMemory, StoreSQLite, c.StoreDriver))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}

	return errors.Join(errs...)
}

// Policy is the session lifetime policy carried by c.
func (c Config) Policy() service.Config {
	return service.Config{
		AccessTokenExpiry:     c.AccessTokenExpiry,
		RefreshTokenExpiry:    c.RefreshTokenExpiry,
		RememberMeExpiry:      c.RememberMeExpiry,
		IdleTimeout:           c.IdleTimeout,
		MaxSessionsPerUser:    c.MaxSessionsPerUser,
		RotateRefreshSessions: c.RotateRefreshSessions,
	}
}

// GeoEnabled reports whether sessions are geolocated.
func (c Config) GeoEnabled() bool {
	return c.GeoServiceURL != "" && !strings.EqualFold(c.GeoServiceURL, GeoDisabled)
}

// stringToDurationHook accepts Go duration strings, a "d" suffix for days,
// and bare integers as minutes, matching the environment parser.
func stringToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return parseDuration(v)
		case int:
			return time.Duration(v) * time.Minute, nil
		default:
			return data, nil
		}
	}
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "7d")
	if duration, err := parseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
