package ratelimit

import (
	"strings"

	"github.com/router-for-me/AnswerGateway/internal/config"
)

// DefaultRedisPrefix namespaces limiter keys in Redis.
const DefaultRedisPrefix = "gateway:rl"

// SettingsConfig captures the limiter backend settings.
type SettingsConfig struct {
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// SettingsFromConfig converts the rate-limit config section into backend settings.
func SettingsFromConfig(cfg config.RateLimitConfig) SettingsConfig {
	settings := SettingsConfig{
		RedisEnabled:  cfg.Redis.Enabled,
		RedisAddr:     strings.TrimSpace(cfg.Redis.Addr),
		RedisPassword: strings.TrimSpace(cfg.Redis.Password),
		RedisDB:       cfg.Redis.DB,
		RedisPrefix:   strings.TrimSpace(cfg.Redis.Prefix),
	}
	if settings.RedisPrefix == "" {
		settings.RedisPrefix = DefaultRedisPrefix
	}
	if settings.RedisDB < 0 {
		settings.RedisDB = 0
	}
	return settings
}

// TiersFromConfig converts the rate-limit config section into tier ceilings.
func TiersFromConfig(cfg config.RateLimitConfig) map[Tier]TierConfig {
	return map[Tier]TierConfig{
		TierUnauthenticated: {Limit: cfg.Unauthenticated.Limit, Window: cfg.Unauthenticated.Window},
		TierBrowse:          {Limit: cfg.Browse.Limit, Window: cfg.Browse.Window},
		TierFree:            {Limit: cfg.Free.Limit, Window: cfg.Free.Window},
		TierPaid:            {Limit: cfg.Paid.Limit, Window: cfg.Paid.Window},
	}
}

// StaticSettings returns a SettingsProvider with a fixed snapshot.
func StaticSettings(settings SettingsConfig) SettingsProvider {
	return func() SettingsConfig { return settings }
}
