// Package middleware holds the gin middleware shared by the front and admin APIs.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/http/api/respond"
	"github.com/router-for-me/AnswerGateway/internal/identity"
	"github.com/router-for-me/AnswerGateway/internal/models"
	"github.com/router-for-me/AnswerGateway/internal/ratelimit"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// HeaderRequestID carries the request id on requests and responses.
const HeaderRequestID = "X-Request-ID"

const userKey = "user"

// Users resolves a verified identity to its entitlement record.
type Users interface {
	FindOrCreate(ctx context.Context, subject, email string) (*models.User, error)
}

// Admitter counts a request against an admission tier.
type Admitter interface {
	Admit(ctx context.Context, clientID string, tier ratelimit.Tier) (ratelimit.Result, error)
}

// RequestID assigns a request id, keeping a well-formed inbound one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if _, errParse := uuid.Parse(id); errParse != nil {
			id = uuid.NewString()
		}
		c.Set(respond.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"request_id": c.GetString(respond.RequestIDKey),
			"client_ip":  c.ClientIP(),
		})
		if user := UserFrom(c); user != nil {
			entry = entry.WithField("user_id", user.ID)
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Authenticate verifies the bearer token and loads the user.
// With required unset, a missing or invalid token continues anonymously.
func Authenticate(verifier *identity.Verifier, users Users, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			if required {
				respond.Error(c, apierr.New(apierr.Unauthorized, "missing authorization header"))
				return
			}
			c.Next()
			return
		}

		claims, errVerify := verifier.Verify(token)
		if errVerify != nil {
			if required {
				respond.Error(c, apierr.Wrap(apierr.Unauthorized, "invalid token", errVerify))
				return
			}
			log.WithError(errVerify).Debug("auth: ignoring invalid optional token")
			c.Next()
			return
		}

		user, errUser := users.FindOrCreate(c.Request.Context(), claims.Subject, claims.Email)
		if errUser != nil {
			respond.Error(c, errUser)
			return
		}
		SetUser(c, user)
		c.Request = c.Request.WithContext(identity.WithSubject(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

// SetUser stores the authenticated user on the gin context.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}

// UserFrom returns the authenticated user, or nil.
func UserFrom(c *gin.Context) *models.User {
	value, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// Admission counts the request against the caller's tier.
// Anonymous callers use the unauthenticated tier.
func Admission(admitter Admitter) gin.HandlerFunc {
	return admission(admitter, ratelimit.TierUnauthenticated)
}

// BrowseAdmission is Admission for public reads; anonymous callers use the browse tier.
func BrowseAdmission(admitter Admitter) gin.HandlerFunc {
	return admission(admitter, ratelimit.TierBrowse)
}

func admission(admitter Admitter, anonymous ratelimit.Tier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tier := anonymous
		if user := UserFrom(c); user != nil {
			tier = ratelimit.TierForPlan(&user.Plan)
		}
		if _, errAdmit := admitter.Admit(c.Request.Context(), c.ClientIP(), tier); errAdmit != nil {
			respond.Error(c, errAdmit)
			return
		}
		c.Next()
	}
}

// AdminKey guards admin routes with a key checked against a bcrypt hash.
// The key is read from X-Admin-Key or a bearer token. An empty hash rejects every request.
func AdminKey(hash string) gin.HandlerFunc {
	hashed := []byte(strings.TrimSpace(hash))
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader("X-Admin-Key"))
		if key == "" {
			key, _ = BearerToken(c)
		}
		if key == "" {
			respond.Error(c, apierr.New(apierr.Unauthorized, "missing admin key"))
			return
		}
		if len(hashed) == 0 {
			respond.Error(c, apierr.New(apierr.Forbidden, "admin api disabled"))
			return
		}
		if errCompare := bcrypt.CompareHashAndPassword(hashed, []byte(key)); errCompare != nil {
			respond.Error(c, apierr.New(apierr.Unauthorized, "invalid admin key"))
			return
		}
		c.Next()
	}
}
