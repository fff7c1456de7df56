package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/AnswerGateway/internal/answers"
	"github.com/router-for-me/AnswerGateway/internal/apierr"
	"github.com/router-for-me/AnswerGateway/internal/catalog"
	"github.com/router-for-me/AnswerGateway/internal/http/api/respond"
	"github.com/router-for-me/AnswerGateway/internal/http/middleware"
	"github.com/router-for-me/AnswerGateway/internal/question"
)

// AskHandler serves questions, votes, and the public catalog.
type AskHandler struct {
	questions *question.Service
	catalog   *catalog.Service
}

// NewAskHandler constructs an AskHandler.
func NewAskHandler(questions *question.Service, catalogService *catalog.Service) *AskHandler {
	return &AskHandler{questions: questions, catalog: catalogService}
}

type askRequest struct {
	Message  string `json:"message"`  // Question text.
	Platform string `json:"platform"` // Product the question is about.
	Version  string `json:"version"`  // Product version, optional.
}

// Ask answers a question from the cache or the reasoning provider.
func (h *AskHandler) Ask(c *gin.Context) {
	var body askRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.Error(c, apierr.Invalid("invalid json"))
		return
	}

	result, errAsk := h.questions.Ask(c.Request.Context(), question.AskRequest{
		User:     middleware.UserFrom(c),
		ClientID: c.ClientIP(),
		Message:  body.Message,
		Platform: body.Platform,
		Version:  body.Version,
	})
	if errAsk != nil {
		respond.Error(c, errAsk)
		return
	}

	sources := []string(result.Answer.Sources)
	if sources == nil {
		sources = []string{}
	}
	out := gin.H{
		"answer":     result.Answer.AnswerText,
		"modelUsed":  result.ModelUsed,
		"answerId":   result.Answer.ID,
		"sources":    sources,
		"isCacheHit": result.CacheHit,
		"showAd":     result.ShowAd,
	}
	if result.Tokens != nil {
		out["tokens"] = gin.H{
			"prompt":     result.Tokens.Prompt,
			"completion": result.Tokens.Completion,
		}
	}
	c.JSON(http.StatusOK, out)
}

type voteRequest struct {
	Vote string `json:"vote"` // "up" or "down".
}

// Vote records an up or down vote.
func (h *AskHandler) Vote(c *gin.Context) {
	answerID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("answerId")), 10, 64)
	if errParse != nil || answerID == 0 {
		respond.Error(c, apierr.Invalid("Invalid answer ID format"))
		return
	}
	var body voteRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		respond.Error(c, apierr.Invalid("invalid json"))
		return
	}

	answer, errVote := h.catalog.Vote(c.Request.Context(), answerID, body.Vote)
	if errVote != nil {
		respond.Error(c, errVote)
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": respond.Answer(answer)})
}

// Catalog lists published answers.
func (h *AskHandler) Catalog(c *gin.Context) {
	page, okPage := queryInt(c, "page", 1)
	if !okPage {
		respond.Error(c, apierr.Invalid("Invalid page number"))
		return
	}
	limit, okLimit := queryInt(c, "limit", catalog.DefaultLimit)
	if !okLimit {
		respond.Error(c, apierr.Invalid("Limit must be between 1 and %d", answers.MaxPageSize))
		return
	}

	result, errCatalog := h.catalog.Catalog(c.Request.Context(), catalog.Query{
		Platform: c.Query("platform"),
		Page:     page,
		Limit:    limit,
		Order:    answers.Order(strings.ToLower(strings.TrimSpace(c.Query("sort")))),
	})
	if errCatalog != nil {
		respond.Error(c, errCatalog)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results":     respond.Answers(result.Results),
		"totalPages":  result.TotalPages,
		"currentPage": result.CurrentPage,
		"total":       result.Total,
	})
}

func queryInt(c *gin.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	value, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return 0, false
	}
	return value, true
}
