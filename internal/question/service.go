// Package question orchestrates answering a user's question.
package question

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/router-for-me/AnswerGateway/internal/answers"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/canonical"
	"github.com/router-for-me/AnswerGateway/internal/metrics"
	"github.com/router-for-me/AnswerGateway/internal/models"
	"github.com/router-for-me/AnswerGateway/internal/provider"
	"github.com/router-for-me/AnswerGateway/internal/ratelimit"
	"github.com/router-for-me/AnswerGateway/internal/usage"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ModelUsedCache is reported instead of a model name when the answer came from the cache.
const ModelUsedCache = "cache"

// Admission counts a request against its tier.
type Admission interface {
	Admit(ctx context.Context, clientID string, tier ratelimit.Tier) (ratelimit.Result, error)
}

// Quota checks and consumes a user's entitlement in one step.
type Quota interface {
	Admit(ctx context.Context, userID uint64) (*models.User, error)
}

// Cache stores canonical answers.
type Cache interface {
	Lookup(ctx context.Context, key string) (*models.Answer, error)
	RecordHit(ctx context.Context, id uint64) (*models.Answer, error)
	LookupOrInsert(ctx context.Context, key string, in answers.NewAnswer) (*models.Answer, bool, error)
}

// Recorder receives one record per admitted question.
type Recorder interface {
	Record(ctx context.Context, record usage.Record)
}

// Models names the provider model per plan class.
type Models struct {
	Free string // Trial and free plans.
	Paid string // Every paid plan.
}

// For returns the model for plan.
func (m Models) For(plan models.Plan) string {
	if plan.IsUnpaid() {
		return m.Free
	}
	return m.Paid
}

// AskRequest is one question from an identified user.
type AskRequest struct {
	User     *models.User
	ClientID string
	Message  string
	Platform string
	Version  string
}

// AskResult is the answer returned to the caller.
type AskResult struct {
	Answer    *models.Answer
	ModelUsed string
	CacheHit  bool
	ShowAd    bool
	Tokens    *models.TokenUsage // Set when the answer was generated for this request.
	User      *models.User       // Entitlement state after consumption.
}

// Service answers questions.
type Service struct {
	admission Admission
	quota     Quota
	cache     Cache
	generator provider.Generator
	models    Models
	inflight  singleflight.Group
	recorder  Recorder
}

// NewService constructs a Service.
func NewService(admission Admission, quota Quota, cache Cache, generator provider.Generator, byPlan Models) *Service {
	return &Service{
		admission: admission,
		quota:     quota,
		cache:     cache,
		generator: generator,
		models:    byPlan,
	}
}

// OnAnswer registers the usage recorder.
func (s *Service) OnAnswer(recorder Recorder) {
	s.recorder = recorder
}

func (s *Service) record(ctx context.Context, user *models.User, result *AskResult, outcome string) {
	if s.recorder == nil {
		return
	}
	record := usage.Record{
		UserID:  user.ID,
		Plan:    user.Plan,
		Model:   result.ModelUsed,
		Outcome: outcome,
	}
	if result.Answer != nil {
		record.AnswerID = result.Answer.ID
	}
	if result.Tokens != nil {
		record.PromptTokens = result.Tokens.Prompt
		record.CompletionTokens = result.Tokens.Completion
	}
	s.recorder.Record(ctx, record)
}

type generated struct {
	answer  *models.Answer
	created bool
	tokens  models.TokenUsage
}

// Ask serves the canonical answer for the question, generating it on a miss.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apierr.Invalid("Question message is required")
	}
	if req.User == nil {
		return nil, apierr.New(apierr.Unauthorized, "authentication required")
	}

	plan := req.User.Plan
	if s.admission != nil {
		if _, errAdmit := s.admission.Admit(ctx, req.ClientID, ratelimit.TierForPlan(&plan)); errAdmit != nil {
			return nil, errAdmit
		}
	}

	user, errQuota := s.quota.Admit(ctx, req.User.ID)
	if errQuota != nil {
		if apierr.Is(errQuota, apierr.QuotaExceeded) {
			metrics.ObserveQuotaDenial(string(plan))
		}
		return nil, errQuota
	}
	result := &AskResult{
		User:   user,
		ShowAd: user.Plan.IsUnpaid() && user.SeesAds && user.MessageCount%2 == 0,
	}

	key := canonical.Key(message, req.Platform, req.Version)
	cached, errLookup := s.cache.Lookup(ctx, key)
	if errLookup != nil {
		return nil, errLookup
	}
	if cached != nil {
		hit, errHit := s.cache.RecordHit(ctx, cached.ID)
		if errHit != nil {
			return nil, errHit
		}
		metrics.ObserveAsk(metrics.OutcomeHit)
		result.Answer, result.CacheHit, result.ModelUsed = hit, true, ModelUsedCache
		s.record(ctx, user, result, metrics.OutcomeHit)
		return result, nil
	}

	model := s.models.For(user.Plan)
	if model == "" {
		log.WithField("plan", user.Plan).Error("question: model configuration missing")
		return nil, errors.New("question: no model configured for plan")
	}

	executed := false
	v, errGenerate, _ := s.inflight.Do(key, func() (any, error) {
		executed = true
		return s.generate(context.WithoutCancel(ctx), key, message, req.Platform, req.Version, model)
	})
	if errGenerate != nil {
		result.ModelUsed = model
		s.record(ctx, user, result, usage.OutcomeFailed)
		return nil, errGenerate
	}
	out := v.(*generated)

	if !executed {
		// Joined another request's generation; count this request as a hit.
		hit, errHit := s.cache.RecordHit(ctx, out.answer.ID)
		if errHit != nil {
			return nil, errHit
		}
		metrics.ObserveAsk(metrics.OutcomeHit)
		result.Answer, result.CacheHit, result.ModelUsed = hit, true, ModelUsedCache
		s.record(ctx, user, result, metrics.OutcomeHit)
		return result, nil
	}
	if !out.created {
		metrics.ObserveAsk(metrics.OutcomeDuplicate)
		result.Answer, result.CacheHit, result.ModelUsed = out.answer, true, ModelUsedCache
		s.record(ctx, user, result, metrics.OutcomeDuplicate)
		return result, nil
	}

	metrics.ObserveAsk(metrics.OutcomeMiss)
	tokens := out.tokens
	result.Answer, result.ModelUsed, result.Tokens = out.answer, out.answer.ModelUsed, &tokens
	s.record(ctx, user, result, metrics.OutcomeMiss)
	return result, nil
}

func (s *Service) generate(ctx context.Context, key, message, platform, version, model string) (*generated, error) {
	started := time.Now()
	completion, errGen := s.generator.Generate(ctx, provider.Prompt{
		Question: message,
		Platform: strings.TrimSpace(platform),
		Version:  strings.TrimSpace(version),
	}, model)
	metrics.ObserveProvider(model, time.Since(started), errGen)
	if errGen != nil {
		if apierr.KindOf(errGen) == apierr.Internal {
			return nil, apierr.Wrap(apierr.UpstreamUnavailable, "AI service is temporarily unavailable. Please try again shortly.", errGen)
		}
		return nil, errGen
	}
	if strings.TrimSpace(completion.Text) == "" {
		log.WithFields(log.Fields{"key": key, "model": model}).Error("question: empty response from provider")
		return nil, apierr.New(apierr.EmptyResponse, "The AI model returned an empty response. Please try again with a different question.")
	}

	tokens := models.TokenUsage{Prompt: completion.PromptTokens, Completion: completion.CompletionTokens}
	answer, created, errStore := s.cache.LookupOrInsert(ctx, key, answers.NewAnswer{
		Question:  message,
		Text:      completion.Text,
		ModelUsed: model,
		Tokens:    tokens,
		Sources:   completion.Sources,
	})
	if errStore != nil {
		return nil, fmt.Errorf("question: store answer: %w", errStore)
	}
	return &generated{answer: answer, created: created, tokens: tokens}, nil
}
