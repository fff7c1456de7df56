package ratelimit

import (
	"context"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/models"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides fixed-window rate limit checks.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// Tier selects which admission ceiling applies to a request.
type Tier string

// Tiers are mutually exclusive; a request is counted in exactly one.
// TierBrowse covers anonymous reads of public content.
const (
	TierUnauthenticated Tier = "unauthenticated"
	TierBrowse          Tier = "browse"
	TierFree            Tier = "free"
	TierPaid            Tier = "paid"
)

// TierConfig is the ceiling of a tier: Limit requests per Window.
type TierConfig struct {
	Limit  int
	Window time.Duration
}

// DefaultTiers returns the built-in ceilings.
func DefaultTiers() map[Tier]TierConfig {
	return map[Tier]TierConfig{
		TierUnauthenticated: {Limit: 10, Window: time.Hour},
		TierBrowse:          {Limit: 120, Window: 15 * time.Minute},
		TierFree:            {Limit: 50, Window: 15 * time.Minute},
		TierPaid:            {Limit: 500, Window: 15 * time.Minute},
	}
}

// TierForPlan maps an identity's plan to its tier; nil means unauthenticated.
func TierForPlan(plan *models.Plan) Tier {
	if plan == nil {
		return TierUnauthenticated
	}
	if plan.IsUnpaid() {
		return TierFree
	}
	return TierPaid
}

// windowBounds returns the fixed window index containing now and the instant it ends.
func windowBounds(now time.Time, window time.Duration) (int64, time.Time) {
	if window <= 0 {
		window = time.Second
	}
	idx := now.UnixNano() / int64(window)
	return idx, time.Unix(0, (idx+1)*int64(window)).UTC()
}
