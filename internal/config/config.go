package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath   = "CONFIG_PATH"
	EnvDBConnection = "DB_CONNECTION"
	EnvJWTSecret    = "JWT_SECRET"
	EnvJWTExpiry    = "JWT_EXPIRY"
	EnvAppEnv       = "APP_ENV"

	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvFreeModel     = "FREE_MODEL"
	EnvPaidModel     = "PAID_MODEL"

	EnvFreeDailyLimit    = "FREE_DAILY_LIMIT"
	EnvHobbyMonthlyLimit = "HOBBY_MONTHLY_LIMIT"
	EnvOccMonthlyLimit   = "OCC_MONTHLY_LIMIT"
	EnvProMonthlyLimit   = "PRO_MONTHLY_LIMIT"
	EnvEntMonthlyLimit   = "ENT_MONTHLY_LIMIT"

	EnvRedisAddr = "RATE_LIMIT_REDIS_ADDR"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
	Production bool
}

// LoadFromEnv loads a .env file when present, then app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	if errDotenv := godotenv.Load(); errDotenv != nil && !errors.Is(errDotenv, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", errDotenv)
	}
	return AppConfig{
		ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath)),
		Production: strings.EqualFold(strings.TrimSpace(os.Getenv(EnvAppEnv)), "production"),
	}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// ModelsConfig selects provider models by plan class.
type ModelsConfig struct {
	Free string `yaml:"free"`
	Paid string `yaml:"paid"`
}

// OpenAIConfig holds reasoning provider connection settings.
type OpenAIConfig struct {
	APIKey      string        `yaml:"api-key"`
	BaseURL     string        `yaml:"base-url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max-tokens"`
	Temperature float32       `yaml:"temperature"`
}

// QuotaConfig holds entitlement limits.
type QuotaConfig struct {
	TrialQuestions int            `yaml:"trial-questions"`
	TrialPeriod    time.Duration  `yaml:"trial-period"`
	FreeDaily      int            `yaml:"free-daily"`
	TimeZone       string         `yaml:"time-zone"`
	Monthly        map[string]int `yaml:"monthly"`
}

// TierConfig is one admission ceiling.
type TierConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// RedisConfig holds the optional shared admission backend.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RateLimitConfig holds the admission tiers.
type RateLimitConfig struct {
	Unauthenticated TierConfig  `yaml:"unauthenticated"`
	Browse          TierConfig  `yaml:"browse"` // Anonymous catalog reads.
	Free            TierConfig  `yaml:"free"`
	Paid            TierConfig  `yaml:"paid"`
	Redis           RedisConfig `yaml:"redis"`
}

// AdminConfig guards the admin API.
type AdminConfig struct {
	KeyHash string `yaml:"key-hash"` // bcrypt hash of the admin key.
}

// LoggingConfig controls log level and file output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max-size-mb"`
	MaxBackups int    `yaml:"max-backups"`
}

// ServiceConfig is the gateway configuration loaded from config.yaml.
type ServiceConfig struct {
	Port      int             `yaml:"port"`
	Models    ModelsConfig    `yaml:"models"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Quota     QuotaConfig     `yaml:"quota"`
	RateLimit RateLimitConfig `yaml:"rate-limit"`
	Admin     AdminConfig     `yaml:"admin"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultServiceConfig returns the built-in defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Port: 9000,
		Models: ModelsConfig{
			Free: "gpt-4o-mini",
			Paid: "gpt-4o",
		},
		OpenAI: OpenAIConfig{
			Timeout:     60 * time.Second,
			MaxTokens:   1500,
			Temperature: 0.1,
		},
		Quota: QuotaConfig{
			TrialQuestions: 5,
			TrialPeriod:    7 * 24 * time.Hour,
			FreeDaily:      5,
			TimeZone:       "Local",
			Monthly: map[string]int{
				"hobby":        100,
				"occasional":   300,
				"professional": 600,
				"enterprise":   5000,
			},
		},
		RateLimit: RateLimitConfig{
			Unauthenticated: TierConfig{Limit: 10, Window: time.Hour},
			Browse:          TierConfig{Limit: 120, Window: 15 * time.Minute},
			Free:            TierConfig{Limit: 50, Window: 15 * time.Minute},
			Paid:            TierConfig{Limit: 500, Window: 15 * time.Minute},
			Redis:           RedisConfig{Prefix: "gateway:rl"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Dir:        "logs",
			MaxSizeMB:  50,
			MaxBackups: 5,
		},
	}
}

// LoadServiceConfig reads the gateway sections of the YAML config file and applies env overrides.
// A missing file yields the defaults.
func LoadServiceConfig(configPath string) (ServiceConfig, error) {
	cfg := DefaultServiceConfig()

	data, errRead := os.ReadFile(configPath)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
			return ServiceConfig{}, fmt.Errorf("parse config file: %w", errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return ServiceConfig{}, fmt.Errorf("read config file: %w", errRead)
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	if errValidate := cfg.Validate(); errValidate != nil {
		return ServiceConfig{}, errValidate
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *ServiceConfig) {
	overrideString(&cfg.OpenAI.APIKey, EnvOpenAIKey)
	overrideString(&cfg.OpenAI.BaseURL, EnvOpenAIBaseURL)
	overrideString(&cfg.Models.Free, EnvFreeModel)
	overrideString(&cfg.Models.Paid, EnvPaidModel)
	overrideString(&cfg.RateLimit.Redis.Addr, EnvRedisAddr)
	if strings.TrimSpace(os.Getenv(EnvRedisAddr)) != "" {
		cfg.RateLimit.Redis.Enabled = true
	}

	overrideInt(&cfg.Quota.FreeDaily, EnvFreeDailyLimit)
	if cfg.Quota.Monthly == nil {
		cfg.Quota.Monthly = make(map[string]int)
	}
	for plan, env := range map[string]string{
		"hobby":        EnvHobbyMonthlyLimit,
		"occasional":   EnvOccMonthlyLimit,
		"professional": EnvProMonthlyLimit,
		"enterprise":   EnvEntMonthlyLimit,
	} {
		value := cfg.Quota.Monthly[plan]
		overrideInt(&value, env)
		cfg.Quota.Monthly[plan] = value
	}
}

func normalize(cfg *ServiceConfig) {
	defaults := DefaultServiceConfig()
	if cfg.Port <= 0 {
		cfg.Port = defaults.Port
	}
	if cfg.OpenAI.Timeout <= 0 {
		cfg.OpenAI.Timeout = defaults.OpenAI.Timeout
	}
	if cfg.OpenAI.MaxTokens <= 0 {
		cfg.OpenAI.MaxTokens = defaults.OpenAI.MaxTokens
	}
	if cfg.Quota.TrialPeriod <= 0 {
		cfg.Quota.TrialPeriod = defaults.Quota.TrialPeriod
	}
	if strings.TrimSpace(cfg.Quota.TimeZone) == "" {
		cfg.Quota.TimeZone = defaults.Quota.TimeZone
	}
	if strings.TrimSpace(cfg.RateLimit.Redis.Prefix) == "" {
		cfg.RateLimit.Redis.Prefix = defaults.RateLimit.Redis.Prefix
	}
	if cfg.RateLimit.Redis.DB < 0 {
		cfg.RateLimit.Redis.DB = 0
	}
	cfg.Models.Free = strings.TrimSpace(cfg.Models.Free)
	cfg.Models.Paid = strings.TrimSpace(cfg.Models.Paid)
}

// Validate rejects configurations the gateway cannot run with.
func (c ServiceConfig) Validate() error {
	if c.Models.Free == "" || c.Models.Paid == "" {
		return errors.New("config: models.free and models.paid must be set")
	}
	if c.Quota.TrialQuestions <= 0 || c.Quota.FreeDaily <= 0 {
		return errors.New("config: quota limits must be positive")
	}
	if _, errLoc := c.Location(); errLoc != nil {
		return errLoc
	}
	for name, tier := range map[string]TierConfig{
		"unauthenticated": c.RateLimit.Unauthenticated,
		"browse":          c.RateLimit.Browse,
		"free":            c.RateLimit.Free,
		"paid":            c.RateLimit.Paid,
	} {
		if tier.Limit > 0 && tier.Window <= 0 {
			return fmt.Errorf("config: rate-limit.%s.window must be positive", name)
		}
	}
	return nil
}

// Location resolves the time zone used for daily quota windows.
func (c ServiceConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Quota.TimeZone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("config: invalid quota.time-zone %q: %w", tz, err)
	}
	return loc, nil
}

func overrideString(target *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*target = v
	}
}

func overrideInt(target *int, env string) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return
	}
	if v, errParse := strconv.Atoi(raw); errParse == nil && v >= 0 {
		*target = v
	}
}
