package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/config"
	"github.com/router-for-me/AnswerGateway/internal/models"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		result, _ := limiter.Allow(ctx, "k", 3, time.Minute, now.Add(time.Duration(i)*time.Second))
		if !result.Allowed {
			t.Fatalf("request %d: expected allowed", i+1)
		}
	}
	result, _ := limiter.Allow(ctx, "k", 3, time.Minute, now.Add(10*time.Second))
	if result.Allowed {
		t.Fatalf("expected 4th request rejected")
	}
	if !result.Reset.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected reset at %s, got %s", now.Add(time.Minute), result.Reset)
	}

	next, _ := limiter.Allow(ctx, "k", 3, time.Minute, now.Add(time.Minute))
	if !next.Allowed || next.Remaining != 2 {
		t.Fatalf("expected fresh window, got %+v", next)
	}
}

func TestMemoryLimiterSweepsStaleEntries(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < sweepEvery-1; i++ {
		_, _ = limiter.Allow(ctx, "client-"+time.Duration(i).String(), 5, time.Second, now)
	}
	_, _ = limiter.Allow(ctx, "late", 5, time.Second, now.Add(time.Hour))
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected stale entries swept, got %d keys", got)
	}
}

func TestTierForPlan(t *testing.T) {
	trial, free, hobby := models.PlanTrial, models.PlanFree, models.PlanHobby
	cases := []struct {
		plan *models.Plan
		want Tier
	}{
		{nil, TierUnauthenticated},
		{&trial, TierFree},
		{&free, TierFree},
		{&hobby, TierPaid},
	}
	for _, tc := range cases {
		if got := TierForPlan(tc.plan); got != tc.want {
			t.Fatalf("expected %s, got %s", tc.want, got)
		}
	}
}

func TestControllerAdmitRejectsWithRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tiers := map[Tier]TierConfig{
		TierUnauthenticated: {Limit: 2, Window: time.Hour},
		TierFree:            {Limit: 1, Window: 15 * time.Minute},
	}
	controller := NewController(NewMemoryLimiter(), tiers, func() time.Time { return now })
	ctx := context.Background()

	rejected := 0
	controller.OnReject(func(Tier) { rejected++ })

	for i := 0; i < 2; i++ {
		if _, err := controller.Admit(ctx, "10.0.0.1", TierUnauthenticated); err != nil {
			t.Fatalf("request %d: expected admitted, got %v", i+1, err)
		}
	}
	_, err := controller.Admit(ctx, "10.0.0.1", TierUnauthenticated)
	e, ok := apierr.As(err)
	if !ok || e.Kind != apierr.RateLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if e.RetryAfter != time.Hour {
		t.Fatalf("expected retry after 1h, got %s", e.RetryAfter)
	}
	if rejected != 1 {
		t.Fatalf("expected observer called once, got %d", rejected)
	}

	if _, errFree := controller.Admit(ctx, "10.0.0.1", TierFree); errFree != nil {
		t.Fatalf("expected free tier counted separately, got %v", errFree)
	}
	if _, errOther := controller.Admit(ctx, "10.0.0.2", TierUnauthenticated); errOther != nil {
		t.Fatalf("expected other client admitted, got %v", errOther)
	}
	if _, errPaid := controller.Admit(ctx, "10.0.0.1", TierPaid); errPaid != nil {
		t.Fatalf("expected unconfigured tier admitted, got %v", errPaid)
	}
}

func TestManagerFallsBackToMemoryWhenRedisUnavailable(t *testing.T) {
	manager := NewManager(StaticSettings(SettingsConfig{
		RedisEnabled: true,
		RedisAddr:    "127.0.0.1:1",
	}), nil)
	defer func() { _ = manager.Close() }()

	ctx := context.Background()
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	first, err := manager.Allow(ctx, "k", 1, time.Minute, now)
	if err != nil || !first.Allowed {
		t.Fatalf("expected memory fallback to admit, got %+v, %v", first, err)
	}
	if !manager.isBreakerActive(now) {
		t.Fatalf("expected breaker tripped")
	}
	second, _ := manager.Allow(ctx, "k", 1, time.Minute, now)
	if second.Allowed {
		t.Fatalf("expected memory limiter to enforce the ceiling")
	}
}

func TestManagerConnectsWithoutHoldingLock(t *testing.T) {
	dialing := make(chan struct{})
	release := make(chan struct{})
	factory := func(options *redis.Options) *redis.Client {
		close(dialing)
		<-release
		return redis.NewClient(options)
	}
	manager := NewManager(StaticSettings(SettingsConfig{
		RedisEnabled: true,
		RedisAddr:    "127.0.0.1:1",
	}), factory)
	defer func() { _ = manager.Close() }()

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = manager.Allow(context.Background(), "k", 1, time.Minute, now)
	}()
	<-dialing

	locked := make(chan struct{})
	go func() {
		manager.isBreakerActive(now)
		close(locked)
	}()
	select {
	case <-locked:
	case <-time.After(time.Second):
		t.Fatalf("manager lock held while connecting to redis")
	}

	close(release)
	<-done
	if !manager.isBreakerActive(now) {
		t.Fatalf("expected breaker tripped after failed ping")
	}
}

func TestSettingsDefaults(t *testing.T) {
	cfg := config.DefaultServiceConfig().RateLimit
	cfg.Redis.Prefix = "  "
	settings := SettingsFromConfig(cfg)
	if settings.RedisPrefix != DefaultRedisPrefix {
		t.Fatalf("expected default prefix, got %q", settings.RedisPrefix)
	}
	tiers := TiersFromConfig(cfg)
	if tiers[TierPaid].Limit != 500 || tiers[TierFree].Window != 15*time.Minute || tiers[TierBrowse].Limit != 120 {
		t.Fatalf("unexpected tiers: %+v", tiers)
	}
}
