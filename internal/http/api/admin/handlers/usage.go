package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/http/api/respond"
	"github.com/router-for-me/AnswerGateway/internal/usage"
)

const defaultSummaryDays = 7

// UsageHandler reports the question ledger.
type UsageHandler struct {
	recorder *usage.GormRecorder
}

// NewUsageHandler constructs a UsageHandler.
func NewUsageHandler(recorder *usage.GormRecorder) *UsageHandler {
	return &UsageHandler{recorder: recorder}
}

// Summary returns per-day question totals.
func (h *UsageHandler) Summary(c *gin.Context) {
	days := defaultSummaryDays
	if raw := strings.TrimSpace(c.Query("days")); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil {
			respond.Error(c, apierr.Invalid("days must be between 1 and %d", usage.MaxSummaryDays))
			return
		}
		days = parsed
	}
	summary, errSummary := h.recorder.Summary(c.Request.Context(), days)
	if errSummary != nil {
		respond.Error(c, errSummary)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": summary})
}
