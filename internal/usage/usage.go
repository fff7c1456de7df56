// Package usage keeps a ledger of answered questions.
package usage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/metrics"
	"github.com/router-for-me/AnswerGateway/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutcomeFailed marks a question the provider could not answer.
const OutcomeFailed = "failed"

// MaxSummaryDays bounds the summary window.
const MaxSummaryDays = 90

// Record describes one question outcome.
type Record struct {
	UserID           uint64
	AnswerID         uint64 // Zero when no answer was served.
	Plan             models.Plan
	Model            string
	Outcome          string
	PromptTokens     int
	CompletionTokens int
	RequestedAt      time.Time
}

// GormRecorder persists usage records with GORM.
type GormRecorder struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewGormRecorder constructs a GormRecorder; nowFn defaults to time.Now.
func NewGormRecorder(db *gorm.DB, nowFn func() time.Time) *GormRecorder {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &GormRecorder{db: db, nowFn: nowFn}
}

// Record stores record. Failures are logged and never reach the caller.
func (r *GormRecorder) Record(ctx context.Context, record Record) {
	if r == nil || r.db == nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	requestedAt := record.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = r.nowFn()
	}
	row := models.Usage{
		UserID:           record.UserID,
		Plan:             record.Plan,
		Model:            strings.TrimSpace(record.Model),
		Outcome:          record.Outcome,
		PromptTokens:     record.PromptTokens,
		CompletionTokens: record.CompletionTokens,
		RequestedAt:      requestedAt.UTC(),
	}
	if record.AnswerID != 0 {
		answerID := record.AnswerID
		row.AnswerID = &answerID
	}
	if errCreate := r.db.WithContext(dbCtx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithField("user_id", record.UserID).Warn("usage: failed to persist record")
	}
}

// DaySummary aggregates one UTC day of usage.
type DaySummary struct {
	Day              string `json:"day"`
	Asks             int    `json:"asks"`
	Hits             int    `json:"hits"`
	Misses           int    `json:"misses"`
	Failed           int    `json:"failed"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

// Summary returns per-day totals for the last days UTC days, oldest first.
func (r *GormRecorder) Summary(ctx context.Context, days int) ([]DaySummary, error) {
	if days < 1 || days > MaxSummaryDays {
		return nil, apierr.Invalid("days must be between 1 and %d", MaxSummaryDays)
	}
	now := r.nowFn().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	var rows []models.Usage
	if errFind := r.db.WithContext(ctx).
		Select("outcome", "prompt_tokens", "completion_tokens", "requested_at").
		Where("requested_at >= ?", start).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("usage: summary: %w", errFind)
	}

	byDay := make(map[string]*DaySummary, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format(time.DateOnly)
		byDay[day] = &DaySummary{Day: day}
	}
	for _, row := range rows {
		summary, ok := byDay[row.RequestedAt.UTC().Format(time.DateOnly)]
		if !ok {
			continue
		}
		summary.Asks++
		switch row.Outcome {
		case metrics.OutcomeHit, metrics.OutcomeDuplicate:
			summary.Hits++
		case metrics.OutcomeMiss:
			summary.Misses++
		case OutcomeFailed:
			summary.Failed++
		}
		summary.PromptTokens += row.PromptTokens
		summary.CompletionTokens += row.CompletionTokens
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, summary := range byDay {
		out = append(out, *summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}
