package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	"github.com/router-for-me/AnswerGateway/internal/http/api/respond"
	"github.com/router-for-me/AnswerGateway/internal/http/middleware"
)

// UserHandler serves the caller's profile and usage.
type UserHandler struct {
	tracker *entitlement.Tracker
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(tracker *entitlement.Tracker) *UserHandler {
	return &UserHandler{tracker: tracker}
}

// Usage returns the caller's consumption against their plan.
func (h *UserHandler) Usage(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		respond.Error(c, apierr.New(apierr.Unauthorized, "authentication required"))
		return
	}
	usage, errUsage := h.tracker.Usage(c.Request.Context(), user.ID)
	if errUsage != nil {
		respond.Error(c, errUsage)
		return
	}
	c.JSON(http.StatusOK, respond.Usage(usage))
}

// Profile returns the caller's profile.
func (h *UserHandler) Profile(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		respond.Error(c, apierr.New(apierr.Unauthorized, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": respond.Profile(user)})
}

type updateProfileRequest struct {
	SeesAds *bool `json:"seesAds"` // Ad display preference.
}

// UpdateProfile stores profile preferences.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		respond.Error(c, apierr.New(apierr.Unauthorized, "authentication required"))
		return
	}
	var body updateProfileRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.Error(c, apierr.Invalid("invalid json"))
		return
	}
	if body.SeesAds == nil {
		c.JSON(http.StatusOK, gin.H{"user": respond.Profile(user)})
		return
	}

	updated, errUpdate := h.tracker.SetSeesAds(c.Request.Context(), user.ID, *body.SeesAds)
	if errUpdate != nil {
		respond.Error(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": respond.Profile(updated)})
}
