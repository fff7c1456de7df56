package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	"github.com/router-for-me/AnswerGateway/internal/http/api/respond"
	"github.com/router-for-me/AnswerGateway/internal/models"
)

// UserHandler applies account events from billing.
type UserHandler struct {
	tracker *entitlement.Tracker
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(tracker *entitlement.Tracker) *UserHandler {
	return &UserHandler{tracker: tracker}
}

type changePlanRequest struct {
	Plan string `json:"plan"` // Target plan name.
}

// ChangePlan moves a user to another plan.
func (h *UserHandler) ChangePlan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		respond.Error(c, apierr.Invalid("Invalid user ID format"))
		return
	}
	var body changePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.Error(c, apierr.Invalid("invalid json"))
		return
	}
	plan, okPlan := models.ParsePlan(body.Plan)
	if !okPlan {
		respond.Error(c, apierr.Invalid("unknown plan %q", body.Plan))
		return
	}
	user, errChange := h.tracker.ChangePlan(c.Request.Context(), id, plan)
	if errChange != nil {
		respond.Error(c, errChange)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": respond.Profile(user)})
}
