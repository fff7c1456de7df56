// Package front registers the user-facing API.
package front

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/catalog"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	handlers "github.com/router-for-me/AnswerGateway/internal/http/api/front/handlers"
	"github.com/router-for-me/AnswerGateway/internal/http/middleware"
	"github.com/router-for-me/AnswerGateway/internal/identity"
	"github.com/router-for-me/AnswerGateway/internal/question"
	"github.com/router-for-me/AnswerGateway/internal/ratelimit"
)

// Deps are the services behind the front routes.
type Deps struct {
	Verifier  *identity.Verifier
	Tracker   *entitlement.Tracker
	Questions *question.Service
	Catalog   *catalog.Service
	Admission *ratelimit.Controller
}

// RegisterFrontRoutes registers front routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.Verifier == nil || deps.Tracker == nil {
		return
	}

	api := r.Group("/api")
	admission := middleware.Admission(deps.Admission)
	required := middleware.Authenticate(deps.Verifier, deps.Tracker, true)
	optional := middleware.Authenticate(deps.Verifier, deps.Tracker, false)

	authHandler := handlers.NewAuthHandler(deps.Verifier, deps.Tracker)
	api.POST("/auth/session", admission, authHandler.Session)

	askHandler := handlers.NewAskHandler(deps.Questions, deps.Catalog)
	api.POST("/ask", required, askHandler.Ask)
	api.POST("/ask/:answerId/vote", required, admission, askHandler.Vote)
	api.GET("/ask/catalog", optional, middleware.BrowseAdmission(deps.Admission), askHandler.Catalog)

	userHandler := handlers.NewUserHandler(deps.Tracker)
	users := api.Group("/users")
	users.Use(required, admission)
	users.GET("/usage", userHandler.Usage)
	users.GET("/profile", userHandler.Profile)
	users.PATCH("/profile", userHandler.UpdateProfile)
}
