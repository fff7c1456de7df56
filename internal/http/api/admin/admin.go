// Package admin registers the operator API.
package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/catalog"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	handlers "github.com/router-for-me/AnswerGateway/internal/http/api/admin/handlers"
	"github.com/router-for-me/AnswerGateway/internal/http/middleware"
	"github.com/router-for-me/AnswerGateway/internal/metrics"
	"github.com/router-for-me/AnswerGateway/internal/usage"
	"gorm.io/gorm"
)

// Deps are the services behind the admin routes.
type Deps struct {
	DB           *gorm.DB
	Tracker      *entitlement.Tracker
	Catalog      *catalog.Service
	Usage        *usage.GormRecorder
	AdminKeyHash string
}

// RegisterAdminRoutes registers operational and admin routes.
func RegisterAdminRoutes(r *gin.Engine, deps Deps) {
	if r == nil || deps.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authed := r.Group("/v0/admin")
	authed.Use(middleware.AdminKey(deps.AdminKeyHash))

	answerHandler := handlers.NewAnswerHandler(deps.Catalog)
	authed.POST("/answers/:id/publish", answerHandler.Publish)
	authed.PUT("/answers/:id", answerHandler.Revise)

	userHandler := handlers.NewUserHandler(deps.Tracker)
	authed.PUT("/users/:id/plan", userHandler.ChangePlan)

	if deps.Usage != nil {
		usageHandler := handlers.NewUsageHandler(deps.Usage)
		authed.GET("/usage/summary", usageHandler.Summary)
	}
}
