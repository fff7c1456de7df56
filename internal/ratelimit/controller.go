package ratelimit

import (
	"context"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/apierr"
	log "github.com/sirupsen/logrus"
)

// RejectionObserver is notified when a tier rejects a request.
type RejectionObserver func(tier Tier)

// Controller enforces the per-client ceiling of each tier.
type Controller struct {
	limiter  Limiter
	tiers    map[Tier]TierConfig
	nowFn    func() time.Time
	observer RejectionObserver
}

// NewController constructs a Controller; nil tiers use DefaultTiers.
func NewController(limiter Limiter, tiers map[Tier]TierConfig, nowFn func() time.Time) *Controller {
	if limiter == nil {
		limiter = NewMemoryLimiter()
	}
	if tiers == nil {
		tiers = DefaultTiers()
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Controller{limiter: limiter, tiers: tiers, nowFn: nowFn}
}

// OnReject registers a rejection observer.
func (c *Controller) OnReject(observer RejectionObserver) {
	c.observer = observer
}

// Admit counts one request of clientID against tier and rejects it over the ceiling.
// Only the given tier's window is touched.
func (c *Controller) Admit(ctx context.Context, clientID string, tier Tier) (Result, error) {
	if c == nil {
		return Result{Allowed: true}, nil
	}
	cfg, ok := c.tiers[tier]
	if !ok || cfg.Limit <= 0 {
		return Result{Allowed: true}, nil
	}
	key := KeyFor(tier, clientID)
	if key == "" {
		return Result{Allowed: true}, nil
	}

	now := c.nowFn()
	result, errAllow := c.limiter.Allow(ctx, key, cfg.Limit, cfg.Window, now)
	if errAllow != nil {
		log.WithError(errAllow).Warn("rate limit: check failed")
		return Result{Allowed: true}, nil
	}
	if !result.Allowed {
		if c.observer != nil {
			c.observer(tier)
		}
		return result, apierr.Limited(result.Reset.Sub(now))
	}
	return result, nil
}
