package entitlement

import (
	"testing"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/config"
	"github.com/router-for-me/AnswerGateway/internal/models"
)

func testLimits() Limits {
	limits := DefaultLimits()
	limits.Location = time.UTC
	return limits
}

func TestCheck_Trial(t *testing.T) {
	limits := testLimits()
	signup := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	user := NewUser("sub-1", "a@example.com", signup, limits)

	user.TrialQuestionsUsed = 4
	if d := Check(user, signup, limits); !d.Allowed {
		t.Fatalf("expected 5th trial question allowed, got %+v", d)
	}
	user.TrialQuestionsUsed = 5
	if d := Check(user, signup, limits); d.Allowed || d.Reason != ReasonTrialExhausted {
		t.Fatalf("expected trial exhausted, got %+v", d)
	}
	user.TrialQuestionsUsed = 0
	if d := Check(user, signup.Add(8*24*time.Hour), limits); d.Allowed || d.Reason != ReasonTrialExpired {
		t.Fatalf("expected trial expired, got %+v", d)
	}
}

func TestCheck_FreeUsesCurrentWindow(t *testing.T) {
	limits := testLimits()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	user := &models.User{Plan: models.PlanFree, DailyUsed: 5, DailyWindowStart: now.Add(-time.Hour)}

	if d := Check(user, now, limits); d.Allowed || d.Reason != ReasonDailyLimit {
		t.Fatalf("expected daily limit, got %+v", d)
	}
	if d := Check(user, now.Add(24*time.Hour), limits); !d.Allowed {
		t.Fatalf("expected allowed after the day rolls, got %+v", d)
	}
}

func TestCheck_PaidAlwaysAllowed(t *testing.T) {
	limits := testLimits()
	user := &models.User{Plan: models.PlanEnterprise, DailyUsed: 1000, MonthlyUsed: 100000}
	if d := Check(user, time.Now(), limits); !d.Allowed {
		t.Fatalf("expected paid allowed, got %+v", d)
	}
}

func TestApplyConsume_RollsWindows(t *testing.T) {
	limits := testLimits()
	day1 := time.Date(2025, 3, 31, 22, 0, 0, 0, time.UTC)
	user := NewUser("sub-1", "", day1, limits)

	ApplyConsume(user, day1, limits)
	ApplyConsume(user, day1.Add(time.Hour), limits)
	if user.DailyUsed != 2 || user.MonthlyUsed != 2 || user.TrialQuestionsUsed != 2 || user.MessageCount != 2 {
		t.Fatalf("unexpected counters after two consumes: %+v", user)
	}

	day2 := day1.Add(3 * time.Hour)
	ApplyConsume(user, day2, limits)
	if user.DailyUsed != 1 {
		t.Fatalf("expected daily reset to 1, got %d", user.DailyUsed)
	}
	if user.MonthlyUsed != 1 {
		t.Fatalf("expected monthly reset to 1, got %d", user.MonthlyUsed)
	}
	wantReset := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	if !user.MonthlyResetAt.Equal(wantReset) {
		t.Fatalf("expected monthly reset at %s, got %s", wantReset, user.MonthlyResetAt)
	}
	if user.TrialQuestionsUsed != 3 {
		t.Fatalf("expected trial counter never reset, got %d", user.TrialQuestionsUsed)
	}
}

func TestDayStart_FollowsLocation(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	limits := testLimits()
	limits.Location = zone

	now := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	want := time.Date(2025, 3, 9, 5, 0, 0, 0, time.UTC)
	if got := limits.DayStart(now); !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestUsage_MonthlyLimits(t *testing.T) {
	limits := testLimits()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		plan models.Plan
		want int
	}{
		{models.PlanFree, 150},
		{models.PlanHobby, 100},
		{models.PlanOccasional, 300},
		{models.PlanProfessional, 600},
		{models.PlanEnterprise, 5000},
	}
	for _, tc := range cases {
		user := NewUser("sub", "", now, limits)
		user.Plan = tc.plan
		if got := Usage(user, now, limits).MonthlyLimit; got != tc.want {
			t.Fatalf("plan %s: expected monthly limit %d, got %d", tc.plan, tc.want, got)
		}
	}
}

func TestLimitsFromConfig(t *testing.T) {
	cfg := config.DefaultServiceConfig().Quota
	cfg.Monthly["professional"] = 900
	cfg.Monthly["free"] = 1
	cfg.Monthly["platinum"] = 7

	limits := LimitsFromConfig(cfg, time.UTC)
	if limits.TrialQuestions != 5 || limits.FreeDaily != 5 || limits.TrialPeriod != 7*24*time.Hour {
		t.Fatalf("unexpected limits %+v", limits)
	}
	if got := limits.MonthlyLimit(models.PlanProfessional); got != 900 {
		t.Fatalf("expected professional 900, got %d", got)
	}
	if got := limits.MonthlyLimit(models.PlanFree); got != 150 {
		t.Fatalf("expected free monthly 150, got %d", got)
	}
	if len(limits.Monthly) != 4 {
		t.Fatalf("expected only paid plans, got %v", limits.Monthly)
	}
}
