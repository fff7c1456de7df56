package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/db"
	"github.com/router-for-me/AnswerGateway/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// admitAttempts bounds re-evaluation when a row changes between the update and the re-read.
const admitAttempts = 3

// Tracker persists entitlement state.
type Tracker struct {
	db     *gorm.DB
	limits Limits
	nowFn  func() time.Time
}

// NewTracker constructs a Tracker; nowFn defaults to time.Now.
func NewTracker(conn *gorm.DB, limits Limits, nowFn func() time.Time) *Tracker {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Tracker{db: conn, limits: limits, nowFn: nowFn}
}

// Limits returns the configured limits.
func (t *Tracker) Limits() Limits { return t.limits }

func (t *Tracker) now() time.Time { return t.nowFn().UTC() }

// FindOrCreate returns the user for subject, signing it up on first sight.
func (t *Tracker) FindOrCreate(ctx context.Context, subject, email string) (*models.User, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, apierr.Invalid("subject is required")
	}

	var user models.User
	errFind := t.db.WithContext(ctx).Where("subject = ?", subject).Take(&user).Error
	if errFind == nil {
		if email = strings.TrimSpace(email); email != "" && email != user.Email {
			if errUpdate := t.db.WithContext(ctx).Model(&user).Update("email", email).Error; errUpdate != nil {
				return nil, fmt.Errorf("entitlement: update email: %w", errUpdate)
			}
			user.Email = email
		}
		return &user, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("entitlement: find user: %w", errFind)
	}

	created := NewUser(subject, email, t.now(), t.limits)
	if errCreate := t.db.WithContext(ctx).Create(created).Error; errCreate != nil {
		if !db.IsUniqueViolation(errCreate) {
			return nil, fmt.Errorf("entitlement: create user: %w", errCreate)
		}
		var existing models.User
		if errReload := t.db.WithContext(ctx).Where("subject = ?", subject).Take(&existing).Error; errReload != nil {
			return nil, fmt.Errorf("entitlement: reload user: %w", errReload)
		}
		return &existing, nil
	}
	log.WithField("user_id", created.ID).Info("entitlement: signed up user on trial")
	return created, nil
}

// Get loads a user by id.
func (t *Tracker) Get(ctx context.Context, userID uint64) (*models.User, error) {
	var user models.User
	if errFind := t.db.WithContext(ctx).Where("id = ?", userID).Take(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apierr.Missing("User")
		}
		return nil, fmt.Errorf("entitlement: get user: %w", errFind)
	}
	return &user, nil
}

// CanAskQuestion evaluates the policy without mutating state.
func (t *Tracker) CanAskQuestion(ctx context.Context, userID uint64) (Decision, error) {
	user, errGet := t.Get(ctx, userID)
	if errGet != nil {
		return Decision{}, errGet
	}
	return Check(user, t.now(), t.limits), nil
}

// Consume records one accepted question unconditionally.
func (t *Tracker) Consume(ctx context.Context, userID uint64) (*models.User, error) {
	now := t.now()
	res := t.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(t.consumeUpdates(now))
	if res.Error != nil {
		return nil, fmt.Errorf("entitlement: consume: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Missing("User")
	}
	return t.Get(ctx, userID)
}

// Admit checks the policy and consumes in one statement; a denied request changes nothing.
func (t *Tracker) Admit(ctx context.Context, userID uint64) (*models.User, error) {
	for attempt := 0; attempt < admitAttempts; attempt++ {
		now := t.now()
		res := t.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ?", userID).
			Where(t.admissibleClause(now)).
			Updates(t.consumeUpdates(now))
		if res.Error != nil {
			return nil, fmt.Errorf("entitlement: admit: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return t.Get(ctx, userID)
		}

		user, errGet := t.Get(ctx, userID)
		if errGet != nil {
			return nil, errGet
		}
		if decision := Check(user, now, t.limits); !decision.Allowed {
			return nil, apierr.Quota(decision.Reason)
		}
	}
	return nil, fmt.Errorf("entitlement: admit: user %d changed concurrently", userID)
}

// admissibleClause mirrors Check as a SQL predicate.
func (t *Tracker) admissibleClause(now time.Time) *gorm.DB {
	dayStart := t.limits.DayStart(now)
	trial, free := string(models.PlanTrial), string(models.PlanFree)
	return t.db.
		Where("plan = ? AND trial_questions_used < ? AND trial_expires_at >= ?", trial, t.limits.TrialQuestions, now).
		Or("plan = ? AND (daily_window_start < ? OR daily_used < ?)", free, dayStart, t.limits.FreeDaily).
		Or("plan NOT IN ?", []string{trial, free})
}

// consumeUpdates rolls stale windows and increments counters using pre-update row values.
func (t *Tracker) consumeUpdates(now time.Time) map[string]any {
	dayStart := t.limits.DayStart(now)
	return map[string]any{
		"daily_used":           gorm.Expr("CASE WHEN daily_window_start < ? THEN 1 ELSE daily_used + 1 END", dayStart),
		"daily_window_start":   gorm.Expr("CASE WHEN daily_window_start < ? THEN ? ELSE daily_window_start END", dayStart, now),
		"monthly_used":         gorm.Expr("CASE WHEN monthly_reset_at <= ? THEN 1 ELSE monthly_used + 1 END", now),
		"monthly_reset_at":     gorm.Expr("CASE WHEN monthly_reset_at <= ? THEN ? ELSE monthly_reset_at END", now, NextMonthStart(now)),
		"trial_questions_used": gorm.Expr("CASE WHEN plan = ? THEN trial_questions_used + 1 ELSE trial_questions_used END", string(models.PlanTrial)),
		"message_count":        gorm.Expr("message_count + 1"),
		"last_seen":            now,
	}
}

// ChangePlan applies an external plan-change event.
func (t *Tracker) ChangePlan(ctx context.Context, userID uint64, plan models.Plan) (*models.User, error) {
	if !plan.Valid() {
		return nil, apierr.Invalid("unknown plan %q", string(plan))
	}
	res := t.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("plan", string(plan))
	if res.Error != nil {
		return nil, fmt.Errorf("entitlement: change plan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Missing("User")
	}
	log.WithFields(log.Fields{"user_id": userID, "plan": plan}).Info("entitlement: plan changed")
	return t.Get(ctx, userID)
}

// SetSeesAds stores the ad display preference.
func (t *Tracker) SetSeesAds(ctx context.Context, userID uint64, seesAds bool) (*models.User, error) {
	res := t.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("sees_ads", seesAds)
	if res.Error != nil {
		return nil, fmt.Errorf("entitlement: set sees ads: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apierr.Missing("User")
	}
	return t.Get(ctx, userID)
}

// Usage returns the usage view for userID.
func (t *Tracker) Usage(ctx context.Context, userID uint64) (UsageView, error) {
	user, errGet := t.Get(ctx, userID)
	if errGet != nil {
		return UsageView{}, errGet
	}
	return Usage(user, t.now(), t.limits), nil
}
