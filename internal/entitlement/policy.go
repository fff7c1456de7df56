// Package entitlement implements the per-user question quota.
package entitlement

import (
	"strings"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/config"
	"github.com/router-for-me/AnswerGateway/internal/models"
)

// Denial reasons shown to callers.
const (
	ReasonTrialExhausted = "Trial questions exhausted"
	ReasonTrialExpired   = "Trial period expired"
	ReasonDailyLimit     = "Daily limit reached"
)

// Limits holds the quota configuration.
type Limits struct {
	TrialQuestions int                 // Questions granted on trial.
	TrialPeriod    time.Duration       // Trial length from signup.
	FreeDaily      int                 // Questions per local calendar day on free.
	Monthly        map[models.Plan]int // Informational monthly allowances for paid plans.
	Location       *time.Location      // Zone that defines calendar days.
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		TrialQuestions: 5,
		TrialPeriod:    7 * 24 * time.Hour,
		FreeDaily:      5,
		Monthly: map[models.Plan]int{
			models.PlanHobby:        100,
			models.PlanOccasional:   300,
			models.PlanProfessional: 600,
			models.PlanEnterprise:   5000,
		},
		Location: time.Local,
	}
}

// LimitsFromConfig converts the quota config section; unknown plan names in Monthly are ignored.
func LimitsFromConfig(cfg config.QuotaConfig, loc *time.Location) Limits {
	limits := Limits{
		TrialQuestions: cfg.TrialQuestions,
		TrialPeriod:    cfg.TrialPeriod,
		FreeDaily:      cfg.FreeDaily,
		Monthly:        make(map[models.Plan]int, len(cfg.Monthly)),
		Location:       loc,
	}
	for name, limit := range cfg.Monthly {
		if plan, ok := models.ParsePlan(name); ok && plan.IsPaid() {
			limits.Monthly[plan] = limit
		}
	}
	return limits
}

func (l Limits) location() *time.Location {
	if l.Location == nil {
		return time.Local
	}
	return l.Location
}

// MonthlyLimit returns the informational monthly allowance for plan.
func (l Limits) MonthlyLimit(plan models.Plan) int {
	switch plan {
	case models.PlanTrial:
		return l.TrialQuestions
	case models.PlanFree:
		return l.FreeDaily * 30
	}
	return l.Monthly[plan]
}

// Decision is the outcome of an entitlement check.
type Decision struct {
	Allowed bool
	Reason  string
}

// DayStart returns the first instant of now's calendar day in the limits' zone, in UTC.
func (l Limits) DayStart(now time.Time) time.Time {
	local := now.In(l.location())
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, l.location()).UTC()
}

// NextMonthStart returns the first instant of the UTC month after now.
func NextMonthStart(now time.Time) time.Time {
	utc := now.UTC()
	return time.Date(utc.Year(), utc.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

// dailyStale reports whether the daily window anchored at start has rolled over.
func (l Limits) dailyStale(start, now time.Time) bool {
	return start.Before(l.DayStart(now))
}

// Check evaluates whether user may ask a question at now.
func Check(user *models.User, now time.Time, limits Limits) Decision {
	if user == nil {
		return Decision{}
	}
	switch user.Plan {
	case models.PlanTrial:
		if user.TrialQuestionsUsed >= limits.TrialQuestions {
			return Decision{Reason: ReasonTrialExhausted}
		}
		if now.After(user.TrialExpiresAt) {
			return Decision{Reason: ReasonTrialExpired}
		}
		return Decision{Allowed: true}
	case models.PlanFree:
		used := user.DailyUsed
		if limits.dailyStale(user.DailyWindowStart, now) {
			used = 0
		}
		if used >= limits.FreeDaily {
			return Decision{Reason: ReasonDailyLimit}
		}
		return Decision{Allowed: true}
	default:
		return Decision{Allowed: true}
	}
}

// ApplyConsume records one accepted question on user.
func ApplyConsume(user *models.User, now time.Time, limits Limits) {
	if user == nil {
		return
	}
	now = now.UTC()
	if limits.dailyStale(user.DailyWindowStart, now) {
		user.DailyUsed = 0
		user.DailyWindowStart = now
	}
	if !now.Before(user.MonthlyResetAt) {
		user.MonthlyUsed = 0
		user.MonthlyResetAt = NextMonthStart(now)
	}
	if user.Plan == models.PlanTrial {
		user.TrialQuestionsUsed++
	}
	user.DailyUsed++
	user.MonthlyUsed++
	user.MessageCount++
	user.LastSeen = now
}

// NewUser returns the signup record for a first-seen identity.
func NewUser(subject, email string, now time.Time, limits Limits) *models.User {
	now = now.UTC()
	return &models.User{
		Subject:          strings.TrimSpace(subject),
		Email:            strings.TrimSpace(email),
		Plan:             models.PlanTrial,
		DailyWindowStart: now,
		MonthlyResetAt:   NextMonthStart(now),
		TrialExpiresAt:   now.Add(limits.TrialPeriod),
		SeesAds:          true,
		LastSeen:         now,
	}
}

// UsageView summarizes a user's consumption.
type UsageView struct {
	Plan               models.Plan `json:"plan"`
	DailyUsed          int         `json:"dailyUsed"`
	DailyLimit         int         `json:"dailyLimit"`
	MonthlyUsed        int         `json:"monthlyUsed"`
	MonthlyLimit       int         `json:"monthlyLimit"`
	TrialQuestionsUsed int         `json:"trialQuestionsUsed,omitempty"`
	TrialExpiresAt     *time.Time  `json:"trialExpiresAt,omitempty"`
	MessageCount       int         `json:"messageCount"`
	ResetsAt           time.Time   `json:"monthlyResetAt"`
}

// Usage returns the usage view of user as of now, with stale windows reported as empty.
func Usage(user *models.User, now time.Time, limits Limits) UsageView {
	view := UsageView{
		Plan:         user.Plan,
		DailyUsed:    user.DailyUsed,
		MonthlyUsed:  user.MonthlyUsed,
		MonthlyLimit: limits.MonthlyLimit(user.Plan),
		MessageCount: user.MessageCount,
		ResetsAt:     user.MonthlyResetAt,
	}
	if limits.dailyStale(user.DailyWindowStart, now) {
		view.DailyUsed = 0
	}
	if !now.Before(user.MonthlyResetAt) {
		view.MonthlyUsed = 0
		view.ResetsAt = NextMonthStart(now)
	}
	switch user.Plan {
	case models.PlanFree:
		view.DailyLimit = limits.FreeDaily
	case models.PlanTrial:
		view.DailyLimit = limits.TrialQuestions
		view.TrialQuestionsUsed = user.TrialQuestionsUsed
		expires := user.TrialExpiresAt
		view.TrialExpiresAt = &expires
	}
	return view
}
