// Package app wires configuration, storage, and HTTP routes into a running gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/answers"
	"github.com/router-for-me/AnswerGateway/internal/catalog"
	"github.com/router-for-me/AnswerGateway/internal/config"
	"github.com/router-for-me/AnswerGateway/internal/db"
	"github.com/router-for-me/AnswerGateway/internal/entitlement"
	"github.com/router-for-me/AnswerGateway/internal/http/api/admin"
	"github.com/router-for-me/AnswerGateway/internal/http/api/front"
	"github.com/router-for-me/AnswerGateway/internal/http/middleware"
	"github.com/router-for-me/AnswerGateway/internal/identity"
	"github.com/router-for-me/AnswerGateway/internal/logging"
	"github.com/router-for-me/AnswerGateway/internal/metrics"
	"github.com/router-for-me/AnswerGateway/internal/provider"
	"github.com/router-for-me/AnswerGateway/internal/question"
	"github.com/router-for-me/AnswerGateway/internal/ratelimit"
	"github.com/router-for-me/AnswerGateway/internal/usage"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// Components are the long-lived services behind the HTTP surface.
type Components struct {
	DB         *gorm.DB
	Verifier   *identity.Verifier
	Tracker    *entitlement.Tracker
	Store      *answers.Store
	Controller *ratelimit.Controller
	Generator  provider.Generator
	Models     question.Models
	AdminHash  string
}

// NewEngine builds the gin engine serving every route.
func NewEngine(c Components) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger())

	catalogService := catalog.NewService(c.Store)
	recorder := usage.NewGormRecorder(c.DB, nil)
	questions := question.NewService(c.Controller, c.Tracker, c.Store, c.Generator, c.Models)
	questions.OnAnswer(recorder)

	front.RegisterFrontRoutes(engine, front.Deps{
		Verifier:  c.Verifier,
		Tracker:   c.Tracker,
		Questions: questions,
		Catalog:   catalogService,
		Admission: c.Controller,
	})
	admin.RegisterAdminRoutes(engine, admin.Deps{
		DB:           c.DB,
		Tracker:      c.Tracker,
		Catalog:      catalogService,
		Usage:        recorder,
		AdminKeyHash: c.AdminHash,
	})
	return engine
}

// RunServer boots the gateway and serves until ctx is cancelled.
// A positive port overrides the configured one.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	svcCfg, err := config.LoadServiceConfig(configPath)
	if err != nil {
		return err
	}
	logCloser, err := logging.Setup(svcCfg.Logging, cfg.Production)
	if err != nil {
		return err
	}
	defer func() {
		if errClose := logCloser.Close(); errClose != nil {
			log.Errorf("log file close error: %v", errClose)
		}
	}()
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	if info, errDescribe := describeDSN(dsn); errDescribe == nil {
		log.WithFields(info.fields()).Info("database configured")
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, _ := config.LoadJWTConfig(configPath)
	verifier, err := identity.NewVerifier(jwtCfg.Secret)
	if err != nil {
		return err
	}

	loc, err := svcCfg.Location()
	if err != nil {
		return err
	}
	tracker := entitlement.NewTracker(conn, entitlement.LimitsFromConfig(svcCfg.Quota, loc), nil)
	store := answers.NewStore(conn, nil)

	limiter := ratelimit.NewManager(ratelimit.StaticSettings(ratelimit.SettingsFromConfig(svcCfg.RateLimit)), nil)
	defer func() {
		if errClose := limiter.Close(); errClose != nil {
			log.Errorf("rate limiter close error: %v", errClose)
		}
	}()
	controller := ratelimit.NewController(limiter, ratelimit.TiersFromConfig(svcCfg.RateLimit), nil)
	controller.OnReject(func(tier ratelimit.Tier) {
		metrics.ObserveAdmissionRejection(string(tier))
	})

	generator, err := provider.NewOpenAI(provider.OpenAIOptions{
		APIKey:      svcCfg.OpenAI.APIKey,
		BaseURL:     svcCfg.OpenAI.BaseURL,
		Timeout:     svcCfg.OpenAI.Timeout,
		MaxTokens:   svcCfg.OpenAI.MaxTokens,
		Temperature: svcCfg.OpenAI.Temperature,
	})
	if err != nil {
		return err
	}
	if svcCfg.Admin.KeyHash == "" {
		log.Warn("admin key hash not configured, admin api disabled")
	}

	engine := NewEngine(Components{
		DB:         conn,
		Verifier:   verifier,
		Tracker:    tracker,
		Store:      store,
		Controller: controller,
		Generator:  generator,
		Models:     question.Models{Free: svcCfg.Models.Free, Paid: svcCfg.Models.Paid},
		AdminHash:  svcCfg.Admin.KeyHash,
	})

	if port <= 0 {
		port = svcCfg.Port
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.WithFields(log.Fields{
		"addr":       srv.Addr,
		"free_model": svcCfg.Models.Free,
		"paid_model": svcCfg.Models.Paid,
		"redis":      svcCfg.RateLimit.Redis.Enabled,
	}).Info("gateway listening")
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	log.Info("gateway stopped")
	return nil
}
