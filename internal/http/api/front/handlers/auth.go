package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	"github.com/router-for-me/AnswerGateway/internal/http/api/respond"
	"github.com/router-for-me/AnswerGateway/internal/identity"
)

// AuthHandler exchanges identity tokens for gateway sessions.
type AuthHandler struct {
	verifier *identity.Verifier
	tracker  *entitlement.Tracker
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(verifier *identity.Verifier, tracker *entitlement.Tracker) *AuthHandler {
	return &AuthHandler{verifier: verifier, tracker: tracker}
}

type sessionRequest struct {
	Token string `json:"token"` // Identity provider token.
}

// Session verifies the token and signs the user up on first sight.
func (h *AuthHandler) Session(c *gin.Context) {
	var body sessionRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.Error(c, apierr.Invalid("invalid json"))
		return
	}
	if strings.TrimSpace(body.Token) == "" {
		respond.Error(c, apierr.Invalid("token is required"))
		return
	}

	claims, errVerify := h.verifier.Verify(body.Token)
	if errVerify != nil {
		respond.Error(c, apierr.Wrap(apierr.Unauthorized, "invalid token", errVerify))
		return
	}
	user, errUser := h.tracker.FindOrCreate(c.Request.Context(), claims.Subject, claims.Email)
	if errUser != nil {
		respond.Error(c, errUser)
		return
	}
	usage, errUsage := h.tracker.Usage(c.Request.Context(), user.ID)
	if errUsage != nil {
		respond.Error(c, errUsage)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":  respond.Profile(user),
		"usage": respond.Usage(usage),
	})
}
