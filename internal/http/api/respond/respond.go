// Package respond renders gateway results and failures as JSON.
package respond

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	"github.com/router-for-me/AnswerGateway/internal/models"
	log "github.com/sirupsen/logrus"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "requestID"

const internalMessage = "An unexpected error occurred. Please try again."

var kindStatus = map[apierr.Kind]int{
	apierr.InvalidArgument:     http.StatusBadRequest,
	apierr.NotFound:            http.StatusNotFound,
	apierr.QuotaExceeded:       http.StatusForbidden,
	apierr.RateLimited:         http.StatusTooManyRequests,
	apierr.UpstreamUnavailable: http.StatusBadGateway,
	apierr.EmptyResponse:       http.StatusBadGateway,
	apierr.Unauthorized:        http.StatusUnauthorized,
	apierr.DuplicateKey:        http.StatusConflict,
	apierr.Forbidden:           http.StatusForbidden,
}

// Status returns the HTTP status for err.
func Status(err error) int {
	if status, ok := kindStatus[apierr.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error aborts the request with the JSON rendering of err.
func Error(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	status := Status(err)
	body := gin.H{"kind": kind.String()}

	classified, ok := apierr.As(err)
	if !ok || kind == apierr.Internal {
		log.WithError(err).WithFields(log.Fields{
			"request_id": c.GetString(RequestIDKey),
			"path":       c.FullPath(),
		}).Error("request failed")
		body["error"] = internalMessage
		c.AbortWithStatusJSON(status, body)
		return
	}

	body["error"] = classified.Message
	switch kind {
	case apierr.QuotaExceeded:
		body["upgradeRequired"] = true
	case apierr.RateLimited:
		seconds := int(math.Ceil(classified.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
		body["retryAfterSeconds"] = seconds
	case apierr.UpstreamUnavailable, apierr.EmptyResponse:
		log.WithError(err).WithField("request_id", c.GetString(RequestIDKey)).Warn("upstream failure")
	}
	c.AbortWithStatusJSON(status, body)
}

// Answer renders an answer record.
func Answer(answer *models.Answer) gin.H {
	sources := []string(answer.Sources)
	if sources == nil {
		sources = []string{}
	}
	return gin.H{
		"id":             answer.ID,
		"question":       answer.OriginalQuestion,
		"platform":       answer.Platform,
		"version":        answer.Version,
		"answer":         answer.AnswerText,
		"modelUsed":      answer.ModelUsed,
		"sources":        sources,
		"popularity":     answer.Popularity,
		"ups":            answer.Ups,
		"downs":          answer.Downs,
		"score":          answer.Score,
		"published":      answer.Published,
		"publishedUrl":   answer.PublishedURL,
		"seoTitle":       answer.SEOTitle,
		"seoDescription": answer.SEODescription,
		"createdAt":      answer.CreatedAt,
		"updatedAt":      answer.UpdatedAt,
	}
}

// Answers renders a list of answer records.
func Answers(rows []models.Answer) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for i := range rows {
		out = append(out, Answer(&rows[i]))
	}
	return out
}

// Profile renders a user record.
func Profile(user *models.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"email":          user.Email,
		"plan":           user.Plan,
		"seesAds":        user.SeesAds,
		"messageCount":   user.MessageCount,
		"trialExpiresAt": user.TrialExpiresAt,
		"createdAt":      user.CreatedAt,
	}
}

// Usage renders a usage view.
func Usage(view entitlement.UsageView) gin.H {
	out := gin.H{
		"plan":           view.Plan,
		"dailyUsed":      view.DailyUsed,
		"dailyLimit":     view.DailyLimit,
		"monthlyUsed":    view.MonthlyUsed,
		"monthlyLimit":   view.MonthlyLimit,
		"monthlyResetAt": view.ResetsAt,
		"messageCount":   view.MessageCount,
	}
	if view.TrialExpiresAt != nil {
		out["trialQuestionsUsed"] = view.TrialQuestionsUsed
		out["trialExpiresAt"] = view.TrialExpiresAt
	}
	return out
}
